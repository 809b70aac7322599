package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/docs-observability/internal/embedding"
	"github.com/mike-a-ellis/docs-observability/internal/storage"
)

type fakeIndex struct {
	results []*storage.ScoredSection
	err     error

	gotVersion string
	gotLimit   int
	gotDim     int
}

func (f *fakeIndex) SearchSections(_ context.Context, vec []float32, version string, limit int) ([]*storage.ScoredSection, error) {
	f.gotVersion = version
	f.gotLimit = limit
	f.gotDim = len(vec)
	return f.results, f.err
}

func TestGateway_Search(t *testing.T) {
	index := &fakeIndex{results: []*storage.ScoredSection{
		{Section: &storage.Section{ID: "p1", SectionID: "d1:0", DocID: "d1", Source: "v1.1/a.md", Title: "A", Version: "1.1", Heading: "Intro", Text: "alpha"}, Score: 0.9},
		{Section: &storage.Section{ID: "p2", SectionID: "d2:1", DocID: "d2", Source: "v1.1/b.md", Title: "B", Version: "1.1", Heading: "Usage", Text: "beta"}, Score: 0.4},
		{Section: &storage.Section{ID: "p3", Source: "v1.1/c.md", Version: "1.1"}, Score: 1.0000001},
	}}
	g := NewGateway(embedding.NewHashEmbedder(16), index)

	hits, err := g.Search(context.Background(), "alpha", "1.1", 4)
	require.NoError(t, err)

	assert.Equal(t, "1.1", index.gotVersion)
	assert.Equal(t, 4, index.gotLimit)
	assert.Equal(t, 16, index.gotDim)

	require.Len(t, hits, 3)
	assert.Equal(t, "p1", hits[0].ID)
	assert.Equal(t, "alpha", hits[0].Text)
	assert.Equal(t, Metadata{Source: "v1.1/a.md", Title: "A", Version: "1.1", Heading: "Intro", DocID: "d1", SectionID: "d1:0"}, hits[0].Metadata)
	assert.InDelta(t, 0.1, hits[0].Distance, 1e-9)
	assert.InDelta(t, 0.6, hits[1].Distance, 1e-9)
	assert.Equal(t, 0.0, hits[2].Distance, "distance is never negative")
}

func TestGateway_NoMatches(t *testing.T) {
	g := NewGateway(embedding.NewHashEmbedder(16), &fakeIndex{})

	hits, err := g.Search(context.Background(), "nothing", "9.9", 4)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestGateway_BackendFailure(t *testing.T) {
	g := NewGateway(embedding.NewHashEmbedder(16), &fakeIndex{err: errors.New("connection refused")})

	_, err := g.Search(context.Background(), "alpha", "1.1", 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.Contains(t, err.Error(), "connection refused")
}
