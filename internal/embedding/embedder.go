// Package embedding turns text into vectors for the section index.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the OpenAI model used for generating embeddings.
	DefaultModel = "text-embedding-3-small"

	// DefaultOpenAIDimension is the vector size of text-embedding-3-small.
	DefaultOpenAIDimension = 1536

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	DefaultBatchSize = 500
)

// Embedder produces vectors for documents and queries.
type Embedder interface {
	// Embed embeds a batch of documents. Implementations may retry.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query with one attempt.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension is the length of every returned vector.
	Dimension() int
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
// Batch requests back off exponentially on rate limit errors.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	batchSize int
}

// NewOpenAIEmbedder creates an embedder. Zero values select DefaultModel,
// DefaultOpenAIDimension and DefaultBatchSize.
func NewOpenAIEmbedder(client *openai.Client, model string, dimension, batchSize int) *OpenAIEmbedder {
	if model == "" {
		model = DefaultModel
	}
	if dimension <= 0 {
		dimension = DefaultOpenAIDimension
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OpenAIEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
	}
}

// Dimension returns the configured vector size.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed generates embeddings in batches, retrying rate-limited batches.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		embeddings, err := e.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, embeddings...)
	}
	return all, nil
}

// EmbedQuery embeds a single query without retrying.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}
	return embeddings[0], nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = toFloat32(data.Embedding)
	}
	return embeddings, nil
}

// embedBatchWithRetry retries with exponential backoff on HTTP 429.
// Other errors are permanent and fail immediately.
func (e *OpenAIEmbedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		var err error
		embeddings, err = e.embedBatch(ctx, texts)
		if err != nil && !isRateLimitError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return embeddings, err
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
