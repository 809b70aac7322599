// Package insights answers analytical questions by replaying the event log.
//
// Every query is a full scan of the log; there is no secondary index. Results
// are deterministic: equal counts keep the order in which their key was first
// seen in the log.
package insights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mike-a-ellis/docs-observability/internal/eventlog"
)

// UnansweredQuery is a query text that ended unanswered, with its frequency.
type UnansweredQuery struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// IssueRow aggregates one issue type against one cited section.
type IssueRow struct {
	IssueType       string `json:"issue_type"`
	Source          string `json:"source"`
	Heading         string `json:"heading"`
	Version         string `json:"version"`
	Count           int    `json:"count"`
	ExampleQuestion string `json:"example_question,omitempty"`
}

// Analyzer runs aggregation queries over an events file.
type Analyzer struct {
	path string
	now  func() time.Time
}

// NewAnalyzer creates an analyzer reading the events file at path.
func NewAnalyzer(path string) *Analyzer {
	return &Analyzer{path: path, now: time.Now}
}

// TopUnanswered returns the limit most frequent unanswered query texts.
func (a *Analyzer) TopUnanswered(ctx context.Context, limit int) ([]UnansweredQuery, error) {
	counts := make(map[string]int)
	var order []string

	err := eventlog.Scan(ctx, a.path, func(evt eventlog.Event) {
		if evt.Type != eventlog.TypeQueryResult || evt.AnswerMode != eventlog.ModeUnanswered {
			return
		}
		if _, seen := counts[evt.Query]; !seen {
			order = append(order, evt.Query)
		}
		counts[evt.Query]++
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}

	rows := make([]UnansweredQuery, 0, len(order))
	for _, q := range order {
		rows = append(rows, UnansweredQuery{Query: q, Count: counts[q]})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })

	return truncate(rows, limit), nil
}

type issueKey struct {
	issueType, source, heading, version string
}

// Issues groups issue-bearing query results inside the trailing window by
// (issue type, source, heading, version) and returns the top rows by count.
// Events without a numeric timestamp are always inside the window.
func (a *Analyzer) Issues(ctx context.Context, window string, top int) ([]IssueRow, error) {
	cutoff := float64(a.now().UnixNano())/float64(time.Second) - float64(WindowSeconds(window))

	index := make(map[issueKey]int)
	var rows []IssueRow

	err := eventlog.Scan(ctx, a.path, func(evt eventlog.Event) {
		if evt.Type != eventlog.TypeQueryResult {
			return
		}
		if evt.TS != nil && *evt.TS < cutoff {
			return
		}
		if len(evt.IssueTypes) == 0 || len(evt.TopCitations) == 0 {
			return
		}
		for _, issueType := range evt.IssueTypes {
			for _, c := range evt.TopCitations {
				key := issueKey{
					issueType: issueType,
					source:    orDefault(c.Source, "unknown"),
					heading:   orDefault(c.Heading, "Document"),
					version:   orDefault(c.Version, "unknown"),
				}
				i, ok := index[key]
				if !ok {
					i = len(rows)
					index[key] = i
					rows = append(rows, IssueRow{
						IssueType: key.issueType,
						Source:    key.source,
						Heading:   key.heading,
						Version:   key.version,
					})
				}
				rows[i].Count++
				if rows[i].ExampleQuestion == "" && evt.Query != "" {
					rows[i].ExampleQuestion = evt.Query
				}
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	return truncate(rows, top), nil
}

func truncate[T any](rows []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	if len(rows) > n {
		return rows[:n]
	}
	if rows == nil {
		return []T{}
	}
	return rows
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
