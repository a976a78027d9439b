package main

import (
	"time"

	"github.com/coder/quartz"

	"github.com/lox/kimserver/cmd/kimserver/shared"
	"github.com/lox/kimserver/internal/randutil"
	"github.com/lox/kimserver/internal/server"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Addr   string `kong:"help='Server address (overrides the config file)'"`
	Config string `kong:"default='kimserver.hcl',help='Path to HCL config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed for ticket generation (optional)'"`
}

func (c *ServerCmd) Run() error {
	config, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	logger := shared.SetupLoggerWithLevel(config.Server.LogLevel)
	if c.Debug {
		logger = shared.SetupLogger(true)
	}

	// Setup RNG and seed
	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	} else {
		seed = time.Now().UnixNano()
		logger.Info("Using random seed", "seed", seed)
	}
	rng := randutil.New(seed)

	addr := config.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	srv := server.NewServer(addr, logger)
	svc := server.NewGameService(srv, logger, rng, quartz.NewReal(), server.ServiceConfig{
		AdminPassword:   config.Server.AdminPassword,
		GraceDelay:      config.GraceDelay(),
		DefaultSettings: config.DefaultSettings(),
	})
	srv.SetGameService(svc)

	logger.Info("Starting KIM server",
		"address", addr,
		"maxWinners", config.Round.MaxWinners,
		"winCondition", config.Round.WinCondition,
		"graceDelay", config.GraceDelay(),
	)

	// Setup graceful shutdown
	ctx := shared.SetupSignalHandlerWithLogger(logger)

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for shutdown or error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		return srv.Stop()
	case err := <-serverErr:
		return err
	}
}
