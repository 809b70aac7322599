// Package app wires configuration into the running components shared by the
// server and CLI binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mike-a-ellis/docs-observability/internal/answer"
	"github.com/mike-a-ellis/docs-observability/internal/config"
	"github.com/mike-a-ellis/docs-observability/internal/embedding"
	"github.com/mike-a-ellis/docs-observability/internal/eventlog"
	"github.com/mike-a-ellis/docs-observability/internal/generation"
	"github.com/mike-a-ellis/docs-observability/internal/insights"
	mcpserver "github.com/mike-a-ellis/docs-observability/internal/mcp"
	"github.com/mike-a-ellis/docs-observability/internal/metrics"
	"github.com/mike-a-ellis/docs-observability/internal/retrieval"
	"github.com/mike-a-ellis/docs-observability/internal/storage"
)

// Version is reported by the MCP server and the CLI.
const Version = "v0.1.0"

// App holds the long-lived components built from a Config.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Embedder embedding.Embedder
	Store    *storage.QdrantStorage
	Events   *eventlog.Log
	Metrics  *metrics.Registry
	Pipeline *answer.Pipeline
	Analyzer *insights.Analyzer
}

// NewEmbedder returns the embedder selected by EMBEDDING_PROVIDER.
func NewEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		client, err := embedding.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Embedding.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}
		return embedding.NewOpenAIEmbedder(client, cfg.Embedding.Model, cfg.Embedding.Dim, 0), nil
	case config.ProviderHash, "":
		return embedding.NewHashEmbedder(cfg.Embedding.Dim), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", config.ErrInvalidConfig, cfg.Embedding.Provider)
	}
}

// NewGenerator returns the configured chat generator, or nil when generation
// is disabled.
func NewGenerator(cfg *config.Config, logger *slog.Logger) generation.Generator {
	if !cfg.GenerationEnabled() {
		return nil
	}
	return generation.NewOpenAIGenerator(cfg.Generation.BaseURL, cfg.Generation.APIKey, cfg.Generation.Model, logger)
}

// OpenStore connects to Qdrant and makes sure the collection exists with the
// embedder's dimension.
func OpenStore(ctx context.Context, cfg *config.Config, dimension int) (*storage.QdrantStorage, error) {
	store, err := storage.NewQdrantStorage(storage.Options{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
		Dimension:  dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to Qdrant: %w", err)
	}
	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return store, nil
}

// New builds every component needed to answer queries and report on them.
// withRuntime adds Go runtime collectors to the metrics registry.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, withRuntime bool) (*App, error) {
	ruleSet, err := cfg.Rules()
	if err != nil {
		return nil, err
	}

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg, embedder.Dimension())
	if err != nil {
		return nil, err
	}

	events, err := eventlog.Open(cfg.LogDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open event log: %w", err)
	}

	reg := metrics.New(withRuntime)
	pipeline := answer.NewPipeline(answer.Config{
		Options:   Options(cfg),
		Rules:     ruleSet,
		Searcher:  retrieval.NewGateway(embedder, store),
		Generator: NewGenerator(cfg, logger),
		Events:    events,
		Metrics:   reg,
		Logger:    logger,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Embedder: embedder,
		Store:    store,
		Events:   events,
		Metrics:  reg,
		Pipeline: pipeline,
		Analyzer: insights.NewAnalyzer(events.Path()),
	}, nil
}

// Options maps configuration onto pipeline options.
func Options(cfg *config.Config) answer.Options {
	return answer.Options{
		TopK:              cfg.TopK,
		MinCitations:      cfg.MinCitations,
		LatestVersion:     cfg.LatestVersion,
		RetrievalTimeout:  cfg.RetrievalTimeout,
		GenerationTimeout: cfg.Generation.Timeout,
	}
}

// MCPServer builds the MCP tool server over the app's components.
func (a *App) MCPServer() *mcpserver.Server {
	return mcpserver.NewServer(&mcpserver.Config{
		Name:     a.Config.AppName,
		Version:  Version,
		Asker:    a.Pipeline,
		Reporter: a.Analyzer,
		Index:    a.Store,
	})
}

// Close releases the event log and the Qdrant connection.
func (a *App) Close() error {
	var first error
	if err := a.Events.Close(); err != nil {
		first = err
	}
	if err := a.Store.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
