// ABOUTME: Gateway orchestrator that runs the HTTP server and the tool session pool
// ABOUTME: Manages routing setup, health endpoints and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389/agent-roster/internal/config"
	"github.com/2389/agent-roster/internal/dedupe"
)

// ToolCaller runs tool calls on behalf of HTTP handlers. *bridge.Pool
// implements it.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	Ping(ctx context.Context) error
}

// backgroundRunner is implemented by callers with their own lifecycle, such
// as the session pool.
type backgroundRunner interface {
	Warm(ctx context.Context) error
	Run(ctx context.Context) error
	Close() error
}

// Gateway serves the HTTP API and forwards requests to tool calls.
type Gateway struct {
	config     *config.Config
	tools      ToolCaller
	httpServer *http.Server
	logger     *slog.Logger

	// dedupe replays results for repeated Idempotency-Key values
	dedupe *dedupe.Cache
}

// New creates a gateway that forwards to tools.
func New(cfg *config.Config, tools ToolCaller, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		config: cfg,
		tools:  tools,
		logger: logger.With("component", "gateway"),
		dedupe: dedupe.New(cfg.Idempotency.TTL, cfg.Idempotency.MaxEntries),
	}

	mux := http.NewServeMux()
	g.registerRoutes(mux)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           g.wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g
}

// Handler returns the fully wrapped HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/ready", g.handleReady)

	mux.HandleFunc("GET /api/list-agents", g.handleListAgents)
	mux.HandleFunc("POST /api/save-agent", g.handleSaveAgent)
	mux.HandleFunc("DELETE /api/delete-agent/{rest...}", g.handleDeleteAgent)
	mux.HandleFunc("GET /api/load-agent/{id}", g.handleLoadAgent)
	mux.HandleFunc("GET /api/query-agents", g.handleQueryAgents)

	// Without this the mux would redirect to the {rest...} subtree.
	mux.HandleFunc("/api/delete-agent", g.handleNotFound)
	mux.HandleFunc("/", g.handleNotFound)
}

// Run listens on the configured address and serves until ctx is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return g.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln together with the tool pool's health
// loop, then shuts both down when ctx is canceled or either fails.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	runner, hasRunner := g.tools.(backgroundRunner)
	if hasRunner {
		if err := runner.Warm(ctx); err != nil {
			g.logger.Warn("tool sessions not ready, will retry on demand", "error", err)
		}
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	if hasRunner {
		eg.Go(func() error {
			return runner.Run(ctx)
		})
	}

	eg.Go(func() error {
		<-ctx.Done()
		g.logger.Info("shutting down gracefully")
		return g.gracefulShutdown()
	})

	return eg.Wait()
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// The caller's context is already canceled at this point.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), g.config.Server.ShutdownTimeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops accepting requests, waits for in-flight ones, then closes
// the tool sessions.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if runner, ok := g.tools.(backgroundRunner); ok {
		if err := runner.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tool pool close: %w", err))
		}
	}
	g.dedupe.Close()
	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if a tool session answers a ping.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := g.tools.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "tool server unavailable: %v", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
