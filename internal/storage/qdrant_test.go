//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 8

// setupTestStorage connects to a local Qdrant with a throwaway collection.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	storage, err := NewQdrantStorage(Options{
		Host:       "localhost",
		Port:       6334,
		Collection: "test_sections_" + uuid.New().String()[:8],
		Dimension:  testDimension,
	})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	ctx := context.Background()
	require.NoError(t, storage.EnsureCollection(ctx), "Failed to ensure collection")
	t.Cleanup(func() {
		storage.client.DeleteCollection(ctx, storage.collection)
		storage.Close()
	})
	return storage
}

func vector(hot int) []float32 {
	v := make([]float32, testDimension)
	v[hot] = 1
	return v
}

func TestSectionSearchRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	sections := []*Section{
		{
			ID: uuid.New().String(), SectionID: "doc1:0", DocID: "doc1",
			Source: "v1.0/indexes.md", Title: "Indexes", Version: "1.0",
			Heading: "Creating indexes", HeadingPath: "Indexes > Creating indexes",
			Text: "Use createIndex.", Embedding: vector(0),
		},
		{
			ID: uuid.New().String(), SectionID: "doc2:0", DocID: "doc2",
			Source: "v1.1/indexes.md", Title: "Indexes", Version: "1.1",
			Heading: "Creating indexes", HeadingPath: "Indexes > Creating indexes",
			Text: "Use createIndex with options.", Embedding: vector(0),
		},
	}
	require.NoError(t, storage.UpsertSections(ctx, sections))

	results, err := storage.SearchSections(ctx, vector(0), "1.0", 5)
	require.NoError(t, err)
	require.Len(t, results, 1, "version filter must be exact")

	got := results[0]
	assert.Equal(t, sections[0].ID, got.ID)
	assert.Equal(t, "doc1:0", got.SectionID)
	assert.Equal(t, "v1.0/indexes.md", got.Source)
	assert.Equal(t, "Creating indexes", got.Heading)
	assert.Equal(t, "Use createIndex.", got.Text)
	assert.InDelta(t, 1.0, got.Score, 1e-5)

	results, err = storage.SearchSections(ctx, vector(0), "2.0", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	count, err := storage.CountSections(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestUpsertSections_DimensionMismatch(t *testing.T) {
	storage := setupTestStorage(t)

	err := storage.UpsertSections(context.Background(), []*Section{
		{ID: uuid.New().String(), Embedding: []float32{1, 2}},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEnsureCollection_ExistingWithOtherDimension(t *testing.T) {
	storage := setupTestStorage(t)

	other, err := NewQdrantStorage(Options{
		Host:       "localhost",
		Port:       6334,
		Collection: storage.Collection(),
		Dimension:  testDimension * 2,
	})
	require.NoError(t, err)
	defer other.Close()

	assert.ErrorIs(t, other.EnsureCollection(context.Background()), ErrDimensionMismatch)
	assert.NoError(t, storage.EnsureCollection(context.Background()), "same dimension is idempotent")
}
