// ABOUTME: Entry point for roster-tools, the MCP tool server spoken over stdio
// ABOUTME: Opens the document store once and serves agent and document tools until stdin closes

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/2389/agent-roster/internal/config"
	"github.com/2389/agent-roster/internal/logging"
	"github.com/2389/agent-roster/internal/store"
	"github.com/2389/agent-roster/internal/tools"
)

// Version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "roster-tools: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// stdout carries protocol frames only
	logger := logging.New(cfg.Logging, os.Stderr).With("service", "roster-tools", "pid", os.Getpid())

	s, err := store.Open(ctx, storeOptions(cfg))
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Database.Driver, err)
	}
	defer s.Close()

	catalogue, err := tools.NewRosterCatalogue(s, cfg.Defaults, logger)
	if err != nil {
		return fmt.Errorf("building tool catalogue: %w", err)
	}

	logger.Info("serving tools", "store", cfg.Database.Driver, "tools", catalogue.Names())
	if err := tools.Serve(ctx, tools.NewServer(catalogue, version)); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serving: %w", err)
	}
	logger.Debug("stdin closed, exiting")
	return nil
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		Redis: store.RedisOptions{
			Addr:     cfg.Database.RedisAddr,
			Password: cfg.Database.RedisPassword,
			DB:       cfg.Database.RedisDB,
			Prefix:   cfg.Database.RedisPrefix,
		},
	}
}
