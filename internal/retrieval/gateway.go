// Package retrieval finds documentation sections for a query within one
// documentation version.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mike-a-ellis/docs-observability/internal/embedding"
	"github.com/mike-a-ellis/docs-observability/internal/storage"
)

// ErrRetrieval marks failures of the retrieval backend. It is never returned
// for a query that simply has no matches.
var ErrRetrieval = errors.New("retrieval failed")

// Metadata describes where a hit came from.
type Metadata struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	Version   string `json:"version"`
	Heading   string `json:"heading"`
	DocID     string `json:"doc_id"`
	SectionID string `json:"section_id"`
}

// Hit is one retrieved section. Lower distance means more similar.
type Hit struct {
	ID       string
	Text     string
	Metadata Metadata
	Distance float64
}

// Searcher returns at most k hits whose version equals version exactly,
// ordered by ascending distance.
type Searcher interface {
	Search(ctx context.Context, query, version string, k int) ([]Hit, error)
}

// SectionIndex is the vector index queried by Gateway.
type SectionIndex interface {
	SearchSections(ctx context.Context, embedding []float32, version string, limit int) ([]*storage.ScoredSection, error)
}

// Gateway embeds the query and searches the section index.
type Gateway struct {
	embedder embedding.Embedder
	index    SectionIndex
}

// NewGateway creates a retrieval gateway.
func NewGateway(embedder embedding.Embedder, index SectionIndex) *Gateway {
	return &Gateway{embedder: embedder, index: index}
}

// Search implements Searcher. Cosine similarity from the index is reported as
// distance 1-score, clamped at zero.
func (g *Gateway) Search(ctx context.Context, query, version string, k int) ([]Hit, error) {
	vec, err := g.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrRetrieval, err)
	}

	results, err := g.index.SearchSections(ctx, vec, version, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			ID:   r.ID,
			Text: r.Text,
			Metadata: Metadata{
				Source:    r.Source,
				Title:     r.Title,
				Version:   r.Version,
				Heading:   r.Heading,
				DocID:     r.DocID,
				SectionID: r.SectionID,
			},
			Distance: math.Max(0, 1-r.Score),
		})
	}
	return hits, nil
}
