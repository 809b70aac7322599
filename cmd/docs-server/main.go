// Package main provides the HTTP entry point for the documentation assistant.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mike-a-ellis/docs-observability/internal/api"
	"github.com/mike-a-ellis/docs-observability/internal/app"
	"github.com/mike-a-ellis/docs-observability/internal/config"
	"github.com/mike-a-ellis/docs-observability/internal/logging"
	mcpserver "github.com/mike-a-ellis/docs-observability/internal/mcp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "docs-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(api.Config{
		AppName:      cfg.AppName,
		Asker:        a.Pipeline,
		Reporter:     a.Analyzer,
		Health:       a.Store,
		Metrics:      a.Metrics,
		MCP:          mcpserver.NewHTTPHandler(a.MCPServer(), nil),
		AskRateLimit: cfg.AskRateLimit,
		AskRateBurst: cfg.AskRateBurst,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server",
			"addr", srv.Addr,
			"collection", a.Store.Collection(),
			"embedding", cfg.Embedding.Provider,
			"generation", cfg.GenerationEnabled(),
			"event_log", a.Events.Path(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
