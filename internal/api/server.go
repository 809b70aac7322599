// Package api serves the docs assistant over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mike-a-ellis/docs-observability/internal/answer"
	"github.com/mike-a-ellis/docs-observability/internal/insights"
	"github.com/mike-a-ellis/docs-observability/internal/logging"
	"github.com/mike-a-ellis/docs-observability/internal/metrics"
)

// Asker answers documentation questions.
type Asker interface {
	Ask(ctx context.Context, query string) (*answer.Response, error)
}

// Reporter aggregates the event log.
type Reporter interface {
	TopUnanswered(ctx context.Context, limit int) ([]insights.UnansweredQuery, error)
	Issues(ctx context.Context, window string, top int) ([]insights.IssueRow, error)
}

// Config holds handler dependencies. Health, Metrics and MCP are optional.
type Config struct {
	AppName  string
	Asker    Asker
	Reporter Reporter
	Health   HealthChecker
	Metrics  *metrics.Registry
	MCP      http.Handler

	// AskRateLimit is the sustained /ask rate in requests per second; 0 disables it.
	AskRateLimit float64
	AskRateBurst int

	Logger *slog.Logger
}

// NewHandler builds the HTTP routes.
func NewHandler(cfg Config) http.Handler {
	logger := logging.OrDefault(cfg.Logger)
	h := &handlers{asker: cfg.Asker, reporter: cfg.Reporter, logger: logger}

	mux := http.NewServeMux()

	var ask http.Handler = http.HandlerFunc(h.ask)
	if cfg.AskRateLimit > 0 {
		ask = rateLimit(cfg.AskRateLimit, cfg.AskRateBurst)(ask)
	}
	mux.Handle("POST /ask", ask)
	mux.HandleFunc("GET /top-unanswered", h.topUnanswered)
	mux.HandleFunc("GET /issues", h.issues)
	mux.HandleFunc("GET /healthz", NewHealthHandler(cfg.AppName, cfg.Health))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}
	if cfg.MCP != nil {
		mux.Handle("/mcp", cfg.MCP)
	}
	mux.HandleFunc("GET /{$}", NewLandingHandler(cfg.AppName))

	return logRequests(logger, mux)
}
