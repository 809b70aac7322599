// Package answer decides, for a single query, whether the documentation
// supports an answer and records the decision in the event log.
package answer

import (
	"time"

	"github.com/mike-a-ellis/docs-observability/internal/eventlog"
	"github.com/mike-a-ellis/docs-observability/internal/retrieval"
)

// Mode is the terminal verdict of a query.
type Mode string

const (
	ModeRefused    Mode = eventlog.ModeRefused
	ModeUnanswered Mode = eventlog.ModeUnanswered
	ModeAnswered   Mode = eventlog.ModeAnswered
)

// RefusalPolicy is the refusal reason for trigger-matched queries.
const RefusalPolicy = "policy"

// VersionConflictWarning is appended to answers whose evidence spans versions.
const VersionConflictWarning = "\n\nWarning: Evidence spans multiple versions. Treat this as a docs/versioning issue."

// maxLoggedCitations bounds the citation summary stored in events and the
// fallback answer.
const maxLoggedCitations = 3

// Citation is a retrieved section presented as evidence.
type Citation struct {
	Source    string  `json:"source"`
	Title     string  `json:"title"`
	Version   string  `json:"version"`
	Heading   string  `json:"heading"`
	DocID     string  `json:"doc_id"`
	SectionID string  `json:"section_id"`
	Distance  float64 `json:"distance"`
}

func citationFromHit(h retrieval.Hit) Citation {
	return Citation{
		Source:    orDefault(h.Metadata.Source, "unknown"),
		Title:     orDefault(h.Metadata.Title, "unknown"),
		Version:   h.Metadata.Version,
		Heading:   h.Metadata.Heading,
		DocID:     h.Metadata.DocID,
		SectionID: h.Metadata.SectionID,
		Distance:  h.Distance,
	}
}

func (c Citation) summary() eventlog.CitationSummary {
	return eventlog.CitationSummary{
		Source:    c.Source,
		Heading:   orDefault(c.Heading, "Document"),
		SectionID: c.SectionID,
		DocID:     c.DocID,
		Version:   c.Version,
		Distance:  c.Distance,
	}
}

// Response is the outcome of one query.
type Response struct {
	Answer           *string    `json:"answer"`
	Refused          bool       `json:"refused"`
	RefusalReason    *string    `json:"refusal_reason"`
	Citations        []Citation `json:"citations"`
	RequestedVersion string     `json:"requested_version"`

	QueryID string `json:"-"`
	Mode    Mode   `json:"-"`
	// Issues lists the issue types recorded for the query.
	Issues []string `json:"-"`
}

// Options tunes the pipeline.
type Options struct {
	TopK              int
	MinCitations      int
	LatestVersion     string
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		TopK:              4,
		MinCitations:      1,
		LatestVersion:     "1.1",
		RetrievalTimeout:  10 * time.Second,
		GenerationTimeout: 15 * time.Second,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
