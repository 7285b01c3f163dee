package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cjeanneret/BallChaser/internal/logic/steering"
	"github.com/cjeanneret/BallChaser/internal/logic/vision"
	"gopkg.in/yaml.v3"
)

// TuningConfig holds the detection and steering thresholds.
type TuningConfig struct {
	WhiteLevel         *int    `yaml:"white_level"`         // channel value a target pixel must match (0-255, unset = 255)
	BandRows           int     `yaml:"band_rows"`           // rows scanned around the middle of the frame (even)
	SaturationDivisor  int     `yaml:"saturation_divisor"`  // forward speed reaches 0 at band_capacity/divisor pixels
	TurnRate           float64 `yaml:"turn_rate"`           // angular speed when the ball is only on a side
	ForwardDenominator float64 `yaml:"forward_denominator"` // forward ramp divisor (2 caps speed below 0.5)
}

// CameraConfig describes where frames come from.
// Type selects a concrete source ("dir" or "none" for web-only input).
type CameraConfig struct {
	Type      string  `yaml:"type"`       // "dir" or "none"
	Dir       string  `yaml:"dir"`        // directory of frames to replay
	Pattern   string  `yaml:"pattern"`    // glob inside dir (default "*")
	FPS       float64 `yaml:"fps"`        // replay rate
	Loop      bool    `yaml:"loop"`       // restart after the last frame
	Width     int     `yaml:"width"`      // optional rescale
	Height    int     `yaml:"height"`     // optional rescale
	QueueSize int     `yaml:"queue_size"` // frames buffered ahead of the planner
}

// WheelConfig holds the configuration for one wheel stepper.
type WheelConfig struct {
	StepPin       int  `yaml:"step_pin"`
	DirPin        int  `yaml:"dir_pin"`
	EnablePin     int  `yaml:"enable_pin"` // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	StepsPerRev   int  `yaml:"steps_per_rev"`
	Microstepping int  `yaml:"microstepping"`
	Inverted      bool `yaml:"inverted"` // mirror-mounted wheel
}

// DriveConfig describes how velocity commands reach the wheels.
// Type "http" calls a remote command_robot service, "stepper" drives local wheels.
type DriveConfig struct {
	Type             string      `yaml:"type"`
	URL              string      `yaml:"url"`        // command_robot base URL (type http)
	Listen           string      `yaml:"listen"`     // drivebot listen address
	TimeoutMs        int         `yaml:"timeout_ms"` // command round-trip timeout
	WheelDiameterMm  float64     `yaml:"wheel_diameter_mm"`
	TrackWidthMm     float64     `yaml:"track_width_mm"`
	MaxWheelSpeedMmS float64     `yaml:"max_wheel_speed_mm_s"`
	CommandPeriodMs  int         `yaml:"command_period_ms"`
	LeftWheel        WheelConfig `yaml:"left_wheel"`
	RightWheel       WheelConfig `yaml:"right_wheel"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Tuning   TuningConfig   `yaml:"tuning"`
	Camera   CameraConfig   `yaml:"camera"`
	Drive    DriveConfig    `yaml:"drive"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// MaxConfigFileBytes caps the size of a config file Load will read.
const MaxConfigFileBytes = 1 << 20

// ValidateConfigPath checks that path names a .yaml file directly inside a
// configs/ directory, after cleaning.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	clean := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(clean), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not traverse directories", path)
		}
	}
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s is too large (%d bytes, max %d)", path, info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when every field is left empty.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	t := &c.Tuning
	if t.WhiteLevel == nil {
		level := 255
		t.WhiteLevel = &level
	}
	if t.BandRows == 0 {
		t.BandRows = 6
	}
	if t.SaturationDivisor == 0 {
		t.SaturationDivisor = 4
	}
	if t.TurnRate == 0 {
		t.TurnRate = 0.1
	}
	if t.ForwardDenominator == 0 {
		t.ForwardDenominator = 2
	}

	if c.Camera.Type == "" {
		c.Camera.Type = "dir"
	}
	if c.Camera.Pattern == "" {
		c.Camera.Pattern = "*"
	}
	if c.Camera.QueueSize <= 0 {
		c.Camera.QueueSize = 10 // same depth as the camera topic subscription
	}

	d := &c.Drive
	if d.Type == "" {
		d.Type = "http"
	}
	if d.URL == "" {
		d.URL = "http://localhost:8090"
	}
	if d.Listen == "" {
		d.Listen = ":8090"
	}
	if d.TimeoutMs <= 0 {
		d.TimeoutMs = 2000
	}
	if d.CommandPeriodMs <= 0 {
		d.CommandPeriodMs = 100
	}
	if d.MaxWheelSpeedMmS <= 0 {
		d.MaxWheelSpeedMmS = 300
	}
	for _, w := range []*WheelConfig{&d.LeftWheel, &d.RightWheel} {
		if w.StepsPerRev <= 0 {
			w.StepsPerRev = 200
		}
		if w.Microstepping <= 0 {
			w.Microstepping = 1
		}
	}
}

// Validate checks value ranges. Defaults must already be applied.
func (c *Config) Validate() error {
	t := c.Tuning
	if t.WhiteLevel != nil && (*t.WhiteLevel < 0 || *t.WhiteLevel > 255) {
		return fmt.Errorf("tuning.white_level must be between 0 and 255, got %d", *t.WhiteLevel)
	}
	if t.BandRows < 0 || t.BandRows%2 != 0 {
		return fmt.Errorf("tuning.band_rows must be a positive even number, got %d", t.BandRows)
	}
	if t.SaturationDivisor < 0 {
		return fmt.Errorf("tuning.saturation_divisor must be > 0, got %d", t.SaturationDivisor)
	}
	if !finitePositive(t.TurnRate) || t.TurnRate > 1 {
		return fmt.Errorf("tuning.turn_rate must be in (0, 1], got %g", t.TurnRate)
	}
	if !finitePositive(t.ForwardDenominator) || t.ForwardDenominator < 1 {
		return fmt.Errorf("tuning.forward_denominator must be >= 1, got %g", t.ForwardDenominator)
	}

	switch c.Camera.Type {
	case "dir":
		if c.Camera.Dir == "" {
			return fmt.Errorf("camera.dir is required for camera type dir")
		}
	case "none":
	default:
		return fmt.Errorf("unsupported camera type: %s", c.Camera.Type)
	}
	if c.Camera.FPS < 0 || math.IsNaN(c.Camera.FPS) || math.IsInf(c.Camera.FPS, 0) {
		return fmt.Errorf("camera.fps must be >= 0, got %g", c.Camera.FPS)
	}
	if (c.Camera.Width > 0) != (c.Camera.Height > 0) {
		return fmt.Errorf("camera.width and camera.height must be set together")
	}

	switch c.Drive.Type {
	case "http":
	case "stepper":
		if c.Drive.WheelDiameterMm <= 0 {
			return fmt.Errorf("drive.wheel_diameter_mm must be > 0")
		}
		if c.Drive.TrackWidthMm <= 0 {
			return fmt.Errorf("drive.track_width_mm must be > 0")
		}
		if c.Drive.LeftWheel.StepPin == 0 || c.Drive.RightWheel.StepPin == 0 {
			return fmt.Errorf("drive.left_wheel.step_pin and drive.right_wheel.step_pin are required")
		}
	default:
		return fmt.Errorf("unsupported drive type: %s", c.Drive.Type)
	}

	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ScanConfig returns the scanner thresholds.
func (c *Config) ScanConfig() vision.ScanConfig {
	white := 255
	if c.Tuning.WhiteLevel != nil {
		white = *c.Tuning.WhiteLevel
	}
	return vision.ScanConfig{
		WhiteLevel: byte(white),
		BandRows:   c.Tuning.BandRows,
	}
}

// PlannerConfig returns the velocity planner constants.
func (c *Config) PlannerConfig() steering.Config {
	return steering.Config{
		SaturationDivisor:  c.Tuning.SaturationDivisor,
		ForwardDenominator: c.Tuning.ForwardDenominator,
		TurnRate:           c.Tuning.TurnRate,
	}
}

// DriveTimeout returns the command round-trip timeout.
func (c *Config) DriveTimeout() time.Duration {
	return time.Duration(c.Drive.TimeoutMs) * time.Millisecond
}

// CommandPeriod returns how long one command drives the wheels.
func (c *Config) CommandPeriod() time.Duration {
	return time.Duration(c.Drive.CommandPeriodMs) * time.Millisecond
}
