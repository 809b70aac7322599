// Package ingest indexes markdown documentation into the section store.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mike-a-ellis/docs-observability/internal/embedding"
	"github.com/mike-a-ellis/docs-observability/internal/logging"
	"github.com/mike-a-ellis/docs-observability/internal/markdown"
	"github.com/mike-a-ellis/docs-observability/internal/storage"
)

// ErrNoDocuments is returned when the source lists nothing to index.
var ErrNoDocuments = errors.New("no documents found")

// sectionNamespace scopes the UUIDv5 point IDs derived from section IDs.
var sectionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docs-observability/sections"))

// SectionWriter stores embedded sections.
type SectionWriter interface {
	UpsertSections(ctx context.Context, sections []*storage.Section) error
}

// Result contains statistics about an indexing run.
type Result struct {
	TotalDocs      int
	TotalSections  int
	SuccessfulDocs int
	FailedDocs     []FailedDoc
	Revision       string
	Duration       time.Duration
}

// FailedDoc represents a document that failed to index.
type FailedDoc struct {
	Path   string
	Reason string
}

// Options tunes a Pipeline.
type Options struct {
	// DefaultVersion labels documents with no detectable version.
	DefaultVersion string
	// Workers bounds concurrent document processing. Zero means 4.
	Workers int
}

// Pipeline orchestrates indexing from source to storage.
type Pipeline struct {
	source   Source
	splitter *markdown.Splitter
	embedder embedding.Embedder
	store    SectionWriter
	opts     Options
	logger   *slog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
func NewPipeline(
	source Source,
	splitter *markdown.Splitter,
	embedder embedding.Embedder,
	store SectionWriter,
	opts Options,
	logger *slog.Logger,
) *Pipeline {
	if splitter == nil {
		splitter = markdown.NewSplitter()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger = logging.OrDefault(logger)
	return &Pipeline{
		source:   source,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

// Run lists every document in the source and indexes it. Per-document
// failures are recorded in the result; only listing failures and
// cancellation abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	if r, ok := p.source.(Revisioner); ok {
		rev, err := r.Revision(ctx)
		if err != nil {
			p.logger.Warn("Could not resolve source revision", "source", p.source.Name(), "error", err)
		}
		result.Revision = rev
	}
	p.logger.Info("Starting indexing", "source", p.source.Name(), "revision", result.Revision)

	paths, err := p.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list docs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoDocuments, p.source.Name())
	}
	result.TotalDocs = len(paths)
	p.logger.Info("Found documents", "count", len(paths))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for _, docPath := range paths {
		g.Go(func() error {
			n, err := p.processDocument(gctx, docPath)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Warn("Failed to process document", "path", docPath, "error", err)
				result.FailedDocs = append(result.FailedDocs, FailedDoc{Path: docPath, Reason: err.Error()})
				return nil
			}
			result.SuccessfulDocs++
			result.TotalSections += n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"sections", result.TotalSections,
		"duration", result.Duration,
	)
	return result, nil
}

// processDocument indexes one document and returns its section count.
func (p *Pipeline) processDocument(ctx context.Context, docPath string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := p.source.Fetch(ctx, docPath)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	content := []byte(strings.TrimSpace(string(raw)))

	version, ok := markdown.DetectVersion(docPath, content)
	if !ok {
		version = p.opts.DefaultVersion
	}

	parts, err := p.splitter.Split(content)
	if err != nil {
		return 0, fmt.Errorf("split: %w", err)
	}
	p.logger.Debug("Split document", "path", docPath, "sections", len(parts), "version", version)

	texts := make([]string, len(parts))
	for i, part := range parts {
		texts[i] = part.Content()
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embeddings: %w", err)
	}
	if len(embeddings) != len(parts) {
		return 0, fmt.Errorf("embeddings: got %d vectors for %d sections", len(embeddings), len(parts))
	}

	docID := DocID(docPath)
	title := path.Base(filepath.ToSlash(docPath))
	sections := make([]*storage.Section, len(parts))
	for i, part := range parts {
		sectionID := SectionID(docID, part.Index)
		sections[i] = &storage.Section{
			ID:          PointID(sectionID),
			SectionID:   sectionID,
			DocID:       docID,
			Source:      docPath,
			Title:       title,
			Version:     version,
			Heading:     part.Heading,
			HeadingPath: part.HeadingPath,
			Text:        texts[i],
			Embedding:   embeddings[i],
		}
	}

	if err := p.store.UpsertSections(ctx, sections); err != nil {
		return 0, fmt.Errorf("store sections: %w", err)
	}

	p.logger.Info("Indexed document", "path", docPath, "sections", len(sections), "version", version)
	return len(sections), nil
}

// DocID is the first 12 hex characters of the SHA-256 of the slash-separated path.
func DocID(docPath string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(docPath)))
	return hex.EncodeToString(sum[:])[:12]
}

// SectionID identifies the index-th section of a document.
func SectionID(docID string, index int) string {
	return fmt.Sprintf("%s:%d", docID, index)
}

// PointID is the stable UUIDv5 used as the store's point ID for a section,
// so re-ingesting a document overwrites its previous points.
func PointID(sectionID string) string {
	return uuid.NewSHA1(sectionNamespace, []byte(sectionID)).String()
}
