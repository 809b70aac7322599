// Package eventlog implements the append-only JSONL record of query outcomes.
package eventlog

import (
	"bytes"
	"encoding/json"
)

// Event types.
const (
	TypeQueryResult                = "query_result"
	TypeUnsupportedFeatureQuestion = "unsupported_feature_question"
	TypeRetrievalError             = "retrieval_error"
)

// Issue types attached to query_result events.
const (
	IssueVersionConflict    = "version_conflict"
	IssueUnsupportedFeature = "unsupported_feature"
	IssuePolicyRefusal      = "policy_refusal"
	IssueUnanswered         = "unanswered"
)

// Answer modes.
const (
	ModeRefused    = "refused"
	ModeUnanswered = "unanswered"
	ModeAnswered   = "answered"
)

// CitationSummary is the reduced form of a citation stored in an event.
type CitationSummary struct {
	Source    string  `json:"source"`
	Heading   string  `json:"heading"`
	SectionID string  `json:"section_id"`
	DocID     string  `json:"doc_id"`
	Version   string  `json:"version"`
	Distance  float64 `json:"distance"`
}

// Event is one line of the event log. Once appended it is never rewritten.
type Event struct {
	Type             string            `json:"type"`
	QueryID          string            `json:"query_id,omitempty"`
	Query            string            `json:"query"`
	IssueTypes       []string          `json:"issue_types"`
	RequestedVersion string            `json:"requested_version"`
	TopCitations     []CitationSummary `json:"top_citations"`
	AnswerMode       string            `json:"answer_mode,omitempty"`
	Error            string            `json:"error,omitempty"`
	// TS is Unix seconds. Nil means the record did not carry a numeric timestamp.
	TS *float64 `json:"ts,omitempty"`
}

// UnmarshalJSON decodes an event, treating a non-numeric ts as absent rather
// than rejecting the whole record.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var raw struct {
		plain
		TS json.RawMessage `json:"ts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event(raw.plain)
	e.TS = nil

	ts := bytes.TrimSpace(raw.TS)
	if len(ts) == 0 || ts[0] == '"' || bytes.Equal(ts, []byte("null")) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(ts, &v); err == nil {
		e.TS = &v
	}
	return nil
}
