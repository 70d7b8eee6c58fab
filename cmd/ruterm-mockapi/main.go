package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/russianllm/ruterm/internal/logging"
	"github.com/russianllm/ruterm/internal/mockapi"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var addr string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "optional config file")
	flag.StringVar(&addr, "addr", "", "override the listen address")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("ruterm-mockapi - Local API Stand-in\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runServer serves the mock API until SIGINT or SIGTERM.
func runServer(cfg mockConfig) error {
	logger, cleanupLogger, err := logging.New(logging.Config{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer cleanupLogger()

	fixtures, err := mockapi.LoadFixtures(cfg.Fixtures)
	if err != nil {
		return err
	}

	srv, err := mockapi.NewServer(mockapi.Config{
		Addr:          cfg.Addr,
		SessionTTL:    cfg.SessionTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		JWTSecret:     cfg.JWTSecret,
		CORSOrigins:   cfg.CORSOrigins,
		Fixtures:      &fixtures,
		Logger:        logger,
		Faults: mockapi.Faults{
			NetworkFailRate: cfg.NetworkFailRate,
			ServerFailRate:  cfg.ServerFailRate,
			Latency:         cfg.Latency,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build mock api: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start mock api on %s: %w", cfg.Addr, err)
	}
	logger.Info("mock api ready",
		"addr", srv.Addr(),
		"user", mockapi.TestEmail,
		"network_fail_rate", cfg.NetworkFailRate,
		"server_fail_rate", cfg.ServerFailRate,
		"version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down mock api")
		return srv.Stop()
	})
	return g.Wait()
}
