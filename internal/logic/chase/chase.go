// Package chase wires the frame scanner and the velocity planner to a drive.
//
// A Chaser holds no per-frame state: each frame is scanned, planned and
// delivered independently, in whatever order the frame source invokes it.
package chase

import (
	"context"
	"fmt"

	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/drive"
	"github.com/cjeanneret/BallChaser/internal/logic/steering"
	"github.com/cjeanneret/BallChaser/internal/logic/vision"
)

// Tuning groups the scanner and planner constants.
type Tuning struct {
	Scan vision.ScanConfig `json:"scan"`
	Plan steering.Config   `json:"plan"`
}

// DefaultTuning returns the stock thresholds (pure white, 6-row band,
// quarter-band saturation, 0.1 turn rate).
func DefaultTuning() Tuning {
	return Tuning{
		Scan: vision.DefaultScanConfig(),
		Plan: steering.DefaultConfig(),
	}
}

// Result is the outcome of one planning pass.
type Result struct {
	Counts  vision.RegionCounts `json:"counts"`
	Command steering.Command    `json:"command"`
}

// PlanFrame scans a frame and plans the velocity command for it.
// It fails only for malformed frames (vision.ErrInvalidFrame).
func PlanFrame(f vision.Frame, t Tuning) (Result, error) {
	counts, rows, err := vision.Scan(f, t.Scan)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Counts:  counts,
		Command: steering.Plan(counts, rows, f.Width, t.Plan),
	}, nil
}

// Chaser is the per-frame handler: plan, then hand the command to the drive.
type Chaser struct {
	drive  drive.Commander
	tuning Tuning
}

// NewChaser creates a Chaser delivering commands to d.
// d is owned by the caller and shared across all frames.
func NewChaser(d drive.Commander, t Tuning) *Chaser {
	return &Chaser{drive: d, tuning: t}
}

// Tuning returns the thresholds this Chaser plans with.
func (c *Chaser) Tuning() Tuning {
	return c.tuning
}

// HandleFrame plans one frame and delivers the command.
//
// A malformed frame aborts this frame only and is returned. A failed delivery
// is logged and dropped; a newer frame will produce a fresher command.
func (c *Chaser) HandleFrame(ctx context.Context, f vision.Frame) error {
	_, err := c.Process(ctx, f)
	return err
}

// Process is HandleFrame that also reports what was planned.
func (c *Chaser) Process(ctx context.Context, f vision.Frame) (Result, error) {
	res, err := PlanFrame(f, c.tuning)
	if err != nil {
		return Result{}, fmt.Errorf("plan frame: %w", err)
	}
	debug.Counts(res.Counts.Left, res.Counts.Forward, res.Counts.Right)
	debug.Command(res.Command.LinearX, res.Command.AngularZ)

	if err := c.drive.Drive(ctx, res.Command); err != nil {
		debug.Warn("Failed to call service command_robot: %v", err)
	}
	return res, nil
}
