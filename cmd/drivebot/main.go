package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/BallChaser/internal/config"
	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/drive"
	"github.com/cjeanneret/BallChaser/internal/hw/gpio"
	"github.com/cjeanneret/BallChaser/internal/web"
)

func main() {
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	listen := flag.String("listen", "", "override drive.listen, the command_robot listen address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if *listen != "" {
		cfg.Drive.Listen = *listen
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)

	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	debug.Step(2, "Initializing wheels")
	base := drive.NewStepperBaseFromConfig(gpioDriver, cfg)
	if err := base.Start(); err != nil {
		log.Fatalf("enable wheels failed: %v", err)
	}
	defer func() {
		if err := base.Stop(); err != nil {
			log.Printf("releasing wheels failed: %v", err)
		}
	}()

	if err := web.Serve(ctx, cfg.Drive.Listen, newMux(base)); err != nil {
		debug.Error(err)
		log.Printf("command_robot server: %v", err)
	}
	debug.Info("Stopped")
}

// newMux routes the command_robot service to base.
func newMux(base drive.Commander) *http.ServeMux {
	mux := http.NewServeMux()
	drive.NewHandler(base).Register(mux)
	return mux
}
