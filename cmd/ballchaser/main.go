package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cjeanneret/BallChaser/internal/config"
	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/drive"
	"github.com/cjeanneret/BallChaser/internal/hw/camera"
	"github.com/cjeanneret/BallChaser/internal/hw/gpio"
	"github.com/cjeanneret/BallChaser/internal/logic/chase"
	"github.com/cjeanneret/BallChaser/internal/logic/vision"
	"github.com/cjeanneret/BallChaser/internal/web"
	"golang.org/x/sync/errgroup"
)

// overrides holds CLI values replacing config tuning; zero means "use config".
type overrides struct {
	TurnRate float64
	BandRows int
	Frames   string
}

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	turnRate := flag.Float64("turn_rate", 0, "override turn rate (0-1]")
	bandRows := flag.Int("band_rows", 0, "override scanned band height (positive, even)")
	frames := flag.String("frames", "", "override camera.dir, the directory of frames to replay")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (only non-zero values are applied; zero means "use config default")
	if err := validateCLIOverrides(*turnRate, *bandRows); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, overrides{TurnRate: *turnRate, BandRows: *bandRows, Frames: *frames})

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.PrintStruct("Scan config", cfg.ScanConfig())
	debug.PrintStruct("Planner config", cfg.PlannerConfig())

	debug.Step(1, "Connecting drive")
	commander, closeDrive, err := newCommanderFromConfig(cfg)
	if err != nil {
		log.Fatalf("init drive failed: %v", err)
	}
	defer func() {
		if err := closeDrive(); err != nil {
			log.Printf("closing drive failed: %v", err)
		}
	}()
	debug.Value("Drive type", cfg.Drive.Type)

	tuning := chase.Tuning{Scan: cfg.ScanConfig(), Plan: cfg.PlannerConfig()}
	chaser := chase.NewChaser(commander, tuning)

	debug.Step(2, "Initializing camera")
	src, err := newSourceFromConfig(cfg)
	if err != nil {
		log.Fatalf("init camera failed: %v", err)
	}
	debug.Value("Camera type", cfg.Camera.Type)

	webAddr := ""
	var broadcaster *web.StatusBroadcaster
	if port := webPort.port(); port > 0 {
		webAddr = fmt.Sprintf(":%d", port)
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	}
	if src == nil && webAddr == "" {
		log.Fatalf("camera type none needs -web to receive frames")
	}

	debug.Section("Chasing")
	if err := run(ctx, chaser, src, cfg.Camera.QueueSize, webAddr, broadcaster); err != nil {
		log.Fatalf("ballchaser: %v", err)
	}
	debug.Info("Stopped")
}

// run feeds frames from src through a dispatcher to chaser, and serves the
// web surface when webAddr is set. It returns when src is exhausted and the
// web server is off, or when ctx is cancelled.
func run(ctx context.Context, chaser *chase.Chaser, src camera.Source, queueSize int, webAddr string, broadcaster *web.StatusBroadcaster) error {
	g, ctx := errgroup.WithContext(ctx)

	if src != nil {
		handle := chaser.HandleFrame
		if broadcaster != nil {
			handle = func(ctx context.Context, f vision.Frame) error {
				res, err := chaser.Process(ctx, f)
				if err == nil {
					broadcaster.BroadcastResult(res)
				}
				return err
			}
		}
		dispatcher := camera.NewDispatcher(queueSize, handle)
		g.Go(func() error {
			return dispatcher.Run(ctx)
		})
		g.Go(func() error {
			defer dispatcher.Close()
			if err := src.Run(ctx, dispatcher.Push); err != nil {
				return fmt.Errorf("camera: %w", err)
			}
			debug.Summary(fmt.Sprintf("Camera finished: %d frames queued, %d dropped", dispatcher.Handled()+int64(dispatcher.Pending()), dispatcher.Dropped()))
			return nil
		})
	}

	if webAddr != "" {
		srv := web.NewServer(webAddr, broadcaster, chaser.Process, chaser.Tuning())
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	return g.Wait()
}

// newCommanderFromConfig selects where velocity commands go. The returned
// close function releases the hardware.
func newCommanderFromConfig(cfg *config.Config) (drive.Commander, func() error, error) {
	switch cfg.Drive.Type {
	case "http":
		debug.Value("command_robot URL", cfg.Drive.URL)
		return drive.NewClient(cfg.Drive.URL, cfg.DriveTimeout()), func() error { return nil }, nil
	case "stepper":
		debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
		g, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			return nil, nil, fmt.Errorf("init GPIO: %w", err)
		}
		base := drive.NewStepperBaseFromConfig(g, cfg)
		if err := base.Start(); err != nil {
			g.Close()
			return nil, nil, fmt.Errorf("enable wheels: %w", err)
		}
		closeFn := func() error {
			if err := base.Stop(); err != nil {
				g.Close()
				return err
			}
			return g.Close()
		}
		return drive.Serialize(base), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unsupported drive type: %s", cfg.Drive.Type)
	}
}

// newSourceFromConfig selects a frame source. It returns nil for camera type
// "none", where frames only arrive through POST /frame.
func newSourceFromConfig(cfg *config.Config) (camera.Source, error) {
	switch cfg.Camera.Type {
	case "dir":
		return &camera.DirSource{
			Dir:     cfg.Camera.Dir,
			Pattern: cfg.Camera.Pattern,
			FPS:     cfg.Camera.FPS,
			Loop:    cfg.Camera.Loop,
			Width:   cfg.Camera.Width,
			Height:  cfg.Camera.Height,
		}, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// validateCLIOverrides checks that non-zero CLI overrides are within valid ranges.
// Zero values are ignored (they mean "use config default").
func validateCLIOverrides(turnRate float64, bandRows int) error {
	if turnRate != 0 {
		if math.IsNaN(turnRate) || math.IsInf(turnRate, 0) || turnRate <= 0 || turnRate > 1 {
			return fmt.Errorf("turn_rate must be in (0, 1], got %g", turnRate)
		}
	}
	if bandRows != 0 {
		if bandRows < 0 || bandRows%2 != 0 {
			return fmt.Errorf("band_rows must be a positive even number, got %d", bandRows)
		}
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only non-zero override values are applied.
func applyOverrides(cfg *config.Config, o overrides) {
	if o.TurnRate > 0 {
		cfg.Tuning.TurnRate = o.TurnRate
	}
	if o.BandRows > 0 {
		cfg.Tuning.BandRows = o.BandRows
	}
	if o.Frames != "" {
		cfg.Camera.Type = "dir"
		cfg.Camera.Dir = o.Frames
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
