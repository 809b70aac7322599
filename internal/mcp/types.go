// Package mcp exposes the docs assistant and its insight reports as MCP tools.
package mcp

import (
	"github.com/mike-a-ellis/docs-observability/internal/answer"
	"github.com/mike-a-ellis/docs-observability/internal/insights"
)

// AskDocsInput defines the input parameters for the ask_docs tool.
type AskDocsInput struct {
	// Query is the user's question. A "v1.0"-style token selects the version.
	Query string `json:"query" jsonschema:"The question to answer from the documentation, optionally naming a version such as v1.0"`
}

// AskDocsOutput mirrors the /ask response.
type AskDocsOutput struct {
	Answer           *string           `json:"answer"`
	Refused          bool              `json:"refused"`
	RefusalReason    *string           `json:"refusal_reason"`
	Citations        []answer.Citation `json:"citations"`
	RequestedVersion string            `json:"requested_version"`
}

// TopUnansweredInput defines the input parameters for the top_unanswered tool.
type TopUnansweredInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of queries to return (default 10)"`
}

// TopUnansweredOutput lists the most frequent unanswered queries.
type TopUnansweredOutput struct {
	Queries []insights.UnansweredQuery `json:"queries"`
}

// ListIssuesInput defines the input parameters for the list_issues tool.
type ListIssuesInput struct {
	Window string `json:"window,omitempty" jsonschema:"Look-back window such as 30m, 24h or 7d (default 24h)"`
	Top    int    `json:"top,omitempty" jsonschema:"Maximum number of rows to return (default 20)"`
}

// ListIssuesOutput lists aggregated documentation issues.
type ListIssuesOutput struct {
	Issues []insights.IssueRow `json:"issues"`
}

// IndexStatusInput takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput reports the state of the section index.
type IndexStatusOutput struct {
	Collection    string `json:"collection"`
	TotalSections uint64 `json:"total_sections"`
	Healthy       bool   `json:"healthy"`
	Message       string `json:"message,omitempty"`
}
