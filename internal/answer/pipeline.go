package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mike-a-ellis/docs-observability/internal/eventlog"
	"github.com/mike-a-ellis/docs-observability/internal/generation"
	"github.com/mike-a-ellis/docs-observability/internal/logging"
	"github.com/mike-a-ellis/docs-observability/internal/metrics"
	"github.com/mike-a-ellis/docs-observability/internal/retrieval"
	"github.com/mike-a-ellis/docs-observability/internal/rules"
)

// Pipeline runs the answer state machine for one query at a time. It holds no
// per-query state, so one Pipeline serves concurrent requests.
type Pipeline struct {
	opts      Options
	rules     *rules.Rules
	searcher  retrieval.Searcher
	generator generation.Generator
	events    eventlog.Appender
	metrics   *metrics.Registry
	logger    *slog.Logger
}

// Config holds pipeline dependencies. Generator may be nil, in which case
// every answer uses the deterministic fallback.
type Config struct {
	Options   Options
	Rules     *rules.Rules
	Searcher  retrieval.Searcher
	Generator generation.Generator
	Events    eventlog.Appender
	Metrics   *metrics.Registry
	Logger    *slog.Logger
}

// NewPipeline creates a pipeline from cfg. Non-positive TopK and an empty
// LatestVersion take their defaults.
func NewPipeline(cfg Config) *Pipeline {
	defaults := DefaultOptions()
	opts := cfg.Options
	if opts.TopK <= 0 {
		opts.TopK = defaults.TopK
	}
	if opts.LatestVersion == "" {
		opts.LatestVersion = defaults.LatestVersion
	}
	if cfg.Rules == nil {
		cfg.Rules = rules.New(rules.DefaultTable())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(false)
	}
	cfg.Logger = logging.OrDefault(cfg.Logger)
	return &Pipeline{
		opts:      opts,
		rules:     cfg.Rules,
		searcher:  cfg.Searcher,
		generator: cfg.Generator,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Ask answers query. Refusals and unanswered queries are normal responses;
// the only error is a retrieval failure, which wraps retrieval.ErrRetrieval.
//
// Flow:
// 1. Refuse trigger-matched queries without retrieval
// 2. Flag unsupported-feature questions (signal only)
// 3. Retrieve sections for the requested version
// 4. Gate on citation count
// 5. Flag version conflicts
// 6. Synthesize, falling back to a citation listing
func (p *Pipeline) Ask(ctx context.Context, query string) (*Response, error) {
	start := time.Now()
	p.metrics.Queries.Inc()

	queryID := uuid.New().String()
	q := strings.TrimSpace(query)
	version := p.resolveVersion(q)
	logger := p.logger.With("query_id", queryID, "requested_version", version)

	if p.rules.IsRefusal(q) {
		p.metrics.Refusals.WithLabelValues(RefusalPolicy).Inc()
		p.emit(logger, eventlog.Event{
			Type:             eventlog.TypeQueryResult,
			QueryID:          queryID,
			Query:            q,
			IssueTypes:       []string{eventlog.IssuePolicyRefusal},
			RequestedVersion: version,
			TopCitations:     []eventlog.CitationSummary{},
			AnswerMode:       eventlog.ModeRefused,
		})
		logger.Info("Query refused", "reason", RefusalPolicy)

		reason := RefusalPolicy
		return &Response{
			Refused:          true,
			RefusalReason:    &reason,
			Citations:        []Citation{},
			RequestedVersion: version,
			QueryID:          queryID,
			Mode:             ModeRefused,
			Issues:           []string{eventlog.IssuePolicyRefusal},
		}, nil
	}

	unsupported := p.rules.IsUnsupportedFeatureQuestion(q, version)
	if unsupported {
		p.metrics.UnsupportedFeatureQuestions.Inc()
		p.emit(logger, eventlog.Event{
			Type:             eventlog.TypeUnsupportedFeatureQuestion,
			QueryID:          queryID,
			Query:            q,
			IssueTypes:       []string{eventlog.IssueUnsupportedFeature},
			RequestedVersion: version,
			TopCitations:     []eventlog.CitationSummary{},
		})
	}

	hits, err := p.retrieve(ctx, q, version)
	if err != nil {
		p.metrics.RetrievalErrors.Inc()
		p.emit(logger, eventlog.Event{
			Type:             eventlog.TypeRetrievalError,
			QueryID:          queryID,
			Query:            q,
			IssueTypes:       []string{},
			RequestedVersion: version,
			TopCitations:     []eventlog.CitationSummary{},
			Error:            err.Error(),
		})
		logger.Error("Retrieval failed", "error", err)
		return nil, err
	}

	citations := make([]Citation, len(hits))
	for i, h := range hits {
		citations[i] = citationFromHit(h)
	}

	if len(citations) < p.opts.MinCitations {
		p.metrics.Unanswered.Inc()
		p.emit(logger, eventlog.Event{
			Type:             eventlog.TypeQueryResult,
			QueryID:          queryID,
			Query:            q,
			IssueTypes:       []string{eventlog.IssueUnanswered},
			RequestedVersion: version,
			TopCitations:     []eventlog.CitationSummary{},
			AnswerMode:       eventlog.ModeUnanswered,
		})
		p.metrics.ObserveLatency(start)
		logger.Info("Query unanswered", "citations", len(citations), "min_citations", p.opts.MinCitations)

		return &Response{
			Citations:        []Citation{},
			RequestedVersion: version,
			QueryID:          queryID,
			Mode:             ModeUnanswered,
			Issues:           []string{eventlog.IssueUnanswered},
		}, nil
	}

	versions := make([]string, len(citations))
	for i, c := range citations {
		versions[i] = c.Version
	}
	conflict := rules.HasVersionConflict(versions, version)
	if conflict {
		p.metrics.VersionConflicts.Inc()
	}
	if len(citations) == 0 {
		p.metrics.CitationGaps.Inc()
	}

	text := p.synthesize(ctx, logger, q, hits, citations, version)
	if conflict {
		text += VersionConflictWarning
	}

	issues := []string{}
	if conflict {
		issues = append(issues, eventlog.IssueVersionConflict)
	}
	if unsupported {
		issues = append(issues, eventlog.IssueUnsupportedFeature)
	}

	top := citations[:min(len(citations), maxLoggedCitations)]
	summaries := make([]eventlog.CitationSummary, len(top))
	for i, c := range top {
		summaries[i] = c.summary()
	}

	p.emit(logger, eventlog.Event{
		Type:             eventlog.TypeQueryResult,
		QueryID:          queryID,
		Query:            q,
		IssueTypes:       issues,
		RequestedVersion: version,
		TopCitations:     summaries,
		AnswerMode:       eventlog.ModeAnswered,
	})
	p.metrics.ObserveLatency(start)
	logger.Info("Query answered",
		"citations", len(citations),
		"issues", issues,
		"duration", time.Since(start),
	)

	return &Response{
		Answer:           &text,
		Citations:        citations,
		RequestedVersion: version,
		QueryID:          queryID,
		Mode:             ModeAnswered,
		Issues:           issues,
	}, nil
}

func (p *Pipeline) resolveVersion(q string) string {
	if v, ok := rules.ExtractRequestedVersion(q); ok {
		return v
	}
	return p.opts.LatestVersion
}

// retrieve calls the searcher under the retrieval timeout. Every failure,
// including the timeout, is reported as retrieval.ErrRetrieval.
func (p *Pipeline) retrieve(ctx context.Context, q, version string) ([]retrieval.Hit, error) {
	if p.opts.RetrievalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RetrievalTimeout)
		defer cancel()
	}

	hits, err := p.searcher.Search(ctx, q, version, p.opts.TopK)
	if err != nil {
		if !errors.Is(err, retrieval.ErrRetrieval) {
			err = fmt.Errorf("%w: %w", retrieval.ErrRetrieval, err)
		}
		return nil, err
	}
	if len(hits) > p.opts.TopK {
		hits = hits[:p.opts.TopK]
	}
	return hits, nil
}

// synthesize asks the generator for an answer, falling back to a listing of
// the top citations when it is missing, fails or times out.
func (p *Pipeline) synthesize(ctx context.Context, logger *slog.Logger, q string, hits []retrieval.Hit, citations []Citation, version string) string {
	if p.generator != nil {
		genCtx := ctx
		if p.opts.GenerationTimeout > 0 {
			var cancel context.CancelFunc
			genCtx, cancel = context.WithTimeout(ctx, p.opts.GenerationTimeout)
			defer cancel()
		}
		if text, ok := p.generator.Generate(genCtx, generation.BuildPrompt(q, hits, version)); ok {
			return text
		}
		logger.Warn("Generator produced no answer, using fallback")
	}

	p.metrics.GenerationFallbacks.Inc()
	return FallbackAnswer(citations)
}

// FallbackAnswer lists up to three citation titles with their versions.
func FallbackAnswer(citations []Citation) string {
	lines := []string{"Based on the documentation, here are the most relevant sections:"}
	for _, c := range citations[:min(len(citations), maxLoggedCitations)] {
		if c.Version != "" {
			lines = append(lines, fmt.Sprintf("- %s (v%s)", c.Title, c.Version))
		} else {
			lines = append(lines, "- "+c.Title)
		}
	}
	return strings.Join(lines, "\n")
}

func (p *Pipeline) emit(logger *slog.Logger, evt eventlog.Event) {
	if p.events == nil {
		return
	}
	if err := p.events.Append(evt); err != nil {
		logger.Error("Failed to append event", "type", evt.Type, "error", err)
	}
}
