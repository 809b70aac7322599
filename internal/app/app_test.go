package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/docs-observability/internal/config"
	"github.com/mike-a-ellis/docs-observability/internal/embedding"
)

func baseConfig() *config.Config {
	return &config.Config{
		TopK:             3,
		MinCitations:     2,
		LatestVersion:    "2.0",
		RetrievalTimeout: 5 * time.Second,
		Embedding:        config.EmbeddingConfig{Provider: config.ProviderHash},
		Generation:       config.GenerationConfig{Timeout: 7 * time.Second},
	}
}

func TestNewEmbedder_Hash(t *testing.T) {
	cfg := baseConfig()
	cfg.Embedding.Dim = 64

	e, err := NewEmbedder(cfg)
	require.NoError(t, err)
	assert.IsType(t, &embedding.HashEmbedder{}, e)
	assert.Equal(t, 64, e.Dimension())
}

func TestNewEmbedder_OpenAI(t *testing.T) {
	cfg := baseConfig()
	cfg.Embedding.Provider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = "sk-test"

	e, err := NewEmbedder(cfg)
	require.NoError(t, err)
	assert.IsType(t, &embedding.OpenAIEmbedder{}, e)
	assert.Equal(t, embedding.DefaultOpenAIDimension, e.Dimension())

	cfg.OpenAIAPIKey = ""
	_, err = NewEmbedder(cfg)
	assert.Error(t, err)
}

func TestNewEmbedder_Unknown(t *testing.T) {
	cfg := baseConfig()
	cfg.Embedding.Provider = "bert"

	_, err := NewEmbedder(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewGenerator(t *testing.T) {
	cfg := baseConfig()
	assert.Nil(t, NewGenerator(cfg, nil))

	cfg.Generation.Model = "llama3"
	cfg.Generation.BaseURL = "http://localhost:11434/v1"
	assert.NotNil(t, NewGenerator(cfg, nil))
}

func TestOptions(t *testing.T) {
	opts := Options(baseConfig())
	assert.Equal(t, 3, opts.TopK)
	assert.Equal(t, 2, opts.MinCitations)
	assert.Equal(t, "2.0", opts.LatestVersion)
	assert.Equal(t, 5*time.Second, opts.RetrievalTimeout)
	assert.Equal(t, 7*time.Second, opts.GenerationTimeout)
}
