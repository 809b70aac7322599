// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/mike-a-ellis/docs-observability/internal/rules"
)

// ErrInvalidConfig is returned by Validate and wrapped by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Embedding providers.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
)

// Config holds all service configuration.
type Config struct {
	AppName       string `envconfig:"APP_NAME" default:"ai-docs-observability"`
	Port          int    `envconfig:"PORT" default:"8080"`
	TopK          int    `envconfig:"TOP_K" default:"4"`
	MinCitations  int    `envconfig:"MIN_CITATIONS" default:"1"`
	LatestVersion string `envconfig:"LATEST_VERSION" default:"1.1"`
	RulesFile     string `envconfig:"RULES_FILE"`

	RetrievalTimeout time.Duration `envconfig:"RETRIEVAL_TIMEOUT" default:"10s"`

	LogDir    string `envconfig:"LOG_DIR" default:"logs"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// AskRateLimit is requests per second for /ask; 0 disables limiting.
	AskRateLimit float64 `envconfig:"ASK_RATE_LIMIT" default:"0"`
	AskRateBurst int     `envconfig:"ASK_RATE_BURST" default:"5"`

	DocsGlob     string `envconfig:"DOCS_GLOB" default:"data/docs/**/*.md"`
	GitHubToken  string `envconfig:"GITHUB_TOKEN"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	Qdrant     QdrantConfig     `envconfig:"QDRANT"`
	Embedding  EmbeddingConfig  `envconfig:"EMBEDDING"`
	Generation GenerationConfig `envconfig:"GENERATION"`
}

// QdrantConfig holds vector store connection settings.
type QdrantConfig struct {
	Host       string `envconfig:"HOST" default:"localhost"`
	Port       int    `envconfig:"PORT" default:"6334"`
	APIKey     string `envconfig:"API_KEY"`
	UseTLS     bool   `envconfig:"USE_TLS" default:"false"`
	Collection string `envconfig:"COLLECTION" default:"docs"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider string `envconfig:"PROVIDER" default:"hash"`
	Model    string `envconfig:"MODEL" default:"text-embedding-3-small"`
	// Dim of 0 selects the provider's default dimension.
	Dim     int    `envconfig:"DIM" default:"0"`
	BaseURL string `envconfig:"BASE_URL"`
}

// GenerationConfig points at an OpenAI-compatible chat completions server.
// Generation is disabled when Model is empty.
type GenerationConfig struct {
	BaseURL string        `envconfig:"BASE_URL" default:"http://localhost:11434/v1"`
	Model   string        `envconfig:"MODEL"`
	APIKey  string        `envconfig:"API_KEY"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"15s"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// .env is a local development convenience; absence is normal.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "PORT must be between 1 and 65535")
	}
	if c.TopK < 1 {
		errs = append(errs, "TOP_K must be positive")
	}
	if c.MinCitations < 0 {
		errs = append(errs, "MIN_CITATIONS must not be negative")
	}
	if strings.TrimSpace(c.LatestVersion) == "" {
		errs = append(errs, "LATEST_VERSION must not be empty")
	}
	if c.RetrievalTimeout <= 0 {
		errs = append(errs, "RETRIEVAL_TIMEOUT must be positive")
	}
	if c.AskRateLimit < 0 {
		errs = append(errs, "ASK_RATE_LIMIT must not be negative")
	}
	if c.AskRateLimit > 0 && c.AskRateBurst < 1 {
		errs = append(errs, "ASK_RATE_BURST must be positive when rate limiting is enabled")
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid LOG_FORMAT: %s (must be text or json)", c.LogFormat))
	}

	switch c.Embedding.Provider {
	case ProviderHash:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.Embedding.BaseURL == "" {
			errs = append(errs, "OPENAI_API_KEY or EMBEDDING_BASE_URL is required for the openai embedding provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid EMBEDDING_PROVIDER: %s (must be hash or openai)", c.Embedding.Provider))
	}
	if c.Embedding.Dim < 0 {
		errs = append(errs, "EMBEDDING_DIM must not be negative")
	}
	if c.Generation.Timeout <= 0 {
		errs = append(errs, "GENERATION_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Rules loads the rules table from RulesFile, or returns the built-in table.
func (c *Config) Rules() (*rules.Rules, error) {
	if c.RulesFile == "" {
		return rules.New(rules.DefaultTable()), nil
	}
	table, err := rules.LoadTable(c.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return rules.New(table), nil
}

// GenerationEnabled reports whether a chat model is configured.
func (c *Config) GenerationEnabled() bool {
	return strings.TrimSpace(c.Generation.Model) != ""
}
