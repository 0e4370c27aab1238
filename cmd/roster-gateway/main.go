// ABOUTME: Entry point for roster-gateway, the HTTP front door to the agent roster
// ABOUTME: Spawns pooled roster-tools sessions and serves the REST API

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/agent-roster/internal/bridge"
	"github.com/2389/agent-roster/internal/config"
	"github.com/2389/agent-roster/internal/gateway"
	"github.com/2389/agent-roster/internal/logging"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                      _                                 _
  __ _  __ _  ___ _ _| |_   _ _ ___ ___| |_ ___ _ _
 / _' |/ _' |/ -_) ' \  _| | '_/ _ (_-<  _/ -_) '_|
 \__,_|\__, |\___|_||_\__| |_| \___/__/\__\___|_|
       |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: roster-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve [-config PATH]          Start the gateway server")
		fmt.Println("  init [-force] [PATH]          Write an example config file")
		fmt.Println("  health [-ready] [-config PATH] Check gateway health")
		fmt.Println("  version                       Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	case "health":
		err = runHealth(ctx, os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads .env files, then the config at path or ROSTER_CONFIG.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default $ROSTER_CONFIG)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	logger := logging.New(cfg.Logging, os.Stdout)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	source := cfg.Path
	if source == "" {
		source = "(defaults)"
	}
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", source)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Tools:     %s x%d\n", cfg.Tools.Command, cfg.Tools.PoolSize)
	green.Print("    ▶ ")
	fmt.Printf("Store:     %s", cfg.Database.Driver)
	if cfg.Database.Driver == "memory" {
		yellow.Print(" [per-session, not shared]")
	}
	fmt.Println()
	fmt.Println()

	logger.Info("starting roster-gateway",
		"version", version,
		"http_addr", cfg.Server.HTTPAddr,
		"tools_command", cfg.Tools.Command,
		"pool_size", cfg.Tools.PoolSize,
		"store", cfg.Database.Driver,
	)

	pool, err := bridge.NewPool(bridge.Config{
		Dialer: &bridge.CommandDialer{
			Path: cfg.Tools.Command,
			Args: cfg.Tools.Args,
			Env:  cfg.ToolEnv(),
		},
		Size:             cfg.Tools.PoolSize,
		HandshakeTimeout: cfg.Tools.HandshakeTimeout,
		CallTimeout:      cfg.Tools.CallTimeout,
		HealthInterval:   cfg.Tools.HealthInterval,
		ClientName:       "roster-gateway",
		ClientVersion:    version,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("creating tool pool: %w", err)
	}

	gw := gateway.New(cfg, pool, logger)
	if err := gw.Run(ctx); err != nil {
		logger.Error("gateway stopped", slog.Any("error", err))
		return err
	}
	logger.Info("gateway stopped")
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := fs.Arg(0)
	if path == "" {
		path = "roster.yaml"
	}
	if err := config.WriteExample(path, *force); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Wrote %s\n", path)
	fmt.Printf("  Start the gateway with: roster-gateway serve -config %s\n", path)
	return nil
}

func runHealth(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default $ROSTER_CONFIG)")
	ready := fs.Bool("ready", false, "also require a tool session to answer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	endpoint := "/health"
	if *ready {
		endpoint = "/health/ready"
	}
	url := fmt.Sprintf("http://%s%s", dialAddr(cfg.Server.HTTPAddr), endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// dialAddr turns a listen address like ":3001" into one a client can reach.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
