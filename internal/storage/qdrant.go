package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// Options configures a Qdrant connection.
type Options struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
}

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(opts Options) (*QdrantStorage, error) {
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidCollection, opts.Dimension)
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		APIKey: opts.APIKey,
		UseTLS: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		collection: opts.Collection,
		dimension:  opts.Dimension,
	}

	if err := storage.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Collection returns the collection name.
func (s *QdrantStorage) Collection() string {
	return s.collection
}

// EnsureCollection creates the sections collection with cosine distance and
// keyword payload indexes if it does not exist yet. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return s.checkDimension(ctx)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return s.createPayloadIndexes(ctx)
}

// checkDimension rejects an existing collection built for another embedder.
func (s *QdrantStorage) checkDimension(ctx context.Context) error {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}
	params, ok := info.GetConfig().GetParams().GetVectorsConfig().GetParamsMap().GetMap()[vectorName]
	if !ok {
		return fmt.Errorf("%w: collection %q has no %q vector", ErrInvalidCollection, s.collection, vectorName)
	}
	if got := int(params.GetSize()); got != s.dimension {
		return fmt.Errorf("%w: collection %q stores %d-dimensional vectors, embedder produces %d",
			ErrDimensionMismatch, s.collection, got, s.dimension)
	}
	return nil
}

// createPayloadIndexes indexes the fields used in filters. The version index
// backs the exact-match filter applied to every query.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context) error {
	for _, field := range []string{"version", "source", "doc_id", "section_id"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// ClearCollection drops and recreates the collection.
func (s *QdrantStorage) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// UpsertSections stores sections in batches of 100, retrying each batch with
// exponential backoff.
func (s *QdrantStorage) UpsertSections(ctx context.Context, sections []*Section) error {
	for i, sec := range sections {
		if len(sec.Embedding) != s.dimension {
			return fmt.Errorf("%w: section %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(sec.Embedding), s.dimension)
		}
	}

	const batchSize = 100
	for i := 0; i < len(sections); i += batchSize {
		end := min(i+batchSize, len(sections))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, sec := range sections[i:end] {
			points = append(points, &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(sec.ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(sec.Embedding...),
				}),
				Payload: qdrant.NewValueMap(sectionPayload(sec)),
			})
		}

		err := backoff.Retry(func() error {
			_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: s.collection,
				Wait:           qdrant.PtrOf(true),
				Points:         points,
			})
			return err
		}, backoff.WithContext(newBackoff(), ctx))
		if err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// SearchSections returns up to limit sections whose version payload equals
// version exactly, ordered by similarity descending. An empty version
// disables the filter.
func (s *QdrantStorage) SearchSections(ctx context.Context, embedding []float32, version string, limit int) ([]*ScoredSection, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}
	if limit <= 0 {
		return []*ScoredSection{}, nil
	}

	var filter *qdrant.Filter
	if version != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("version", version)},
		}
	}

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Using:          &using,
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search sections: %w", err)
	}

	scored := make([]*ScoredSection, 0, len(results))
	for _, result := range results {
		sec := sectionFromPayload(result.Payload)
		sec.ID = result.Id.GetUuid()
		scored = append(scored, &ScoredSection{
			Section: sec,
			Score:   float64(result.Score),
		})
	}
	return scored, nil
}

// CountSections returns the number of points in the collection.
func (s *QdrantStorage) CountSections(ctx context.Context) (uint64, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection: %w", err)
	}
	return info.GetPointsCount(), nil
}

func sectionPayload(sec *Section) map[string]any {
	return map[string]any{
		"section_id":   sec.SectionID,
		"doc_id":       sec.DocID,
		"source":       sec.Source,
		"title":        sec.Title,
		"version":      sec.Version,
		"heading":      sec.Heading,
		"heading_path": sec.HeadingPath,
		"text":         sec.Text,
	}
}

func sectionFromPayload(payload map[string]*qdrant.Value) *Section {
	return &Section{
		SectionID:   payload["section_id"].GetStringValue(),
		DocID:       payload["doc_id"].GetStringValue(),
		Source:      payload["source"].GetStringValue(),
		Title:       payload["title"].GetStringValue(),
		Version:     payload["version"].GetStringValue(),
		Heading:     payload["heading"].GetStringValue(),
		HeadingPath: payload["heading_path"].GetStringValue(),
		Text:        payload["text"].GetStringValue(),
	}
}
