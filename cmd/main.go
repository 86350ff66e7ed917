package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/Borislavv/shared-ref/internal/soak"
	"github.com/Borislavv/shared-ref/internal/soak/config"
	"github.com/Borislavv/shared-ref/pkg/k8s/probe/liveness"
	"github.com/Borislavv/shared-ref/pkg/shutdown"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	configPath      = "soak.cfg.yaml"
	configPathLocal = "soak.cfg.local.yaml"
)

// setMaxProcs automatically sets the optimal GOMAXPROCS value (CPU parallelism)
// based on the available CPUs and cgroup/docker CPU quotas (uses automaxprocs).
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

// loadCfg loads the soak configuration, preferring an explicit SOAK_CONFIG
// path, then the local override file, and falling back to built-in defaults
// when no config file is present.
func loadCfg() *config.Config {
	if path := os.Getenv("SOAK_CONFIG"); path != "" {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			log.Err(err).Msgf("[config] failed to load config from '%v'", path)
			panic(err)
		}
		log.Info().Msgf("[config] config loaded from '%v'", path)
		return cfg
	}
	cfg, err := config.LoadConfig(configPathLocal)
	if err == nil {
		log.Info().Msgf("[config] config loaded from '%v'", configPathLocal)
		return cfg
	}
	cfg, err = config.LoadConfig(configPath)
	if err == nil {
		log.Info().Msgf("[config] config loaded from '%v'", configPath)
		return cfg
	}
	log.Info().Msg("[config] no config file found, using defaults")
	return config.Default()
}

// Main entrypoint: configures and starts the soak harness.
func main() {
	// Create a root context for graceful shutdown and cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optimize GOMAXPROCS for the current environment.
	setMaxProcs()

	cfg := loadCfg()

	// Setup graceful shutdown handler (SIGTERM, SIGINT, etc).
	gracefulShutdown := shutdown.NewGraceful(ctx, cancel)
	gracefulShutdown.SetGracefulTimeout(time.Minute)

	// Initialize liveness probe for Kubernetes/Cloud health checks.
	probe := liveness.NewProbe(cfg.Soak.K8S.Probe.Timeout)

	// Initialize and start the soak application.
	app, err := soak.NewApp(ctx, cfg, probe)
	if err != nil {
		log.Err(err).Msg("[main] failed to init soak app")
		return
	}

	// Register app for graceful shutdown.
	gracefulShutdown.Add(1)
	go app.Start(gracefulShutdown)

	// Listen for OS signals or context cancellation and await shutdown.
	if err = gracefulShutdown.ListenCancelAndAwait(); err != nil {
		log.Err(err).Msg("failed to gracefully shut down service")
	}
}
