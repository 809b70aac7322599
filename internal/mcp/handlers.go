package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultUnansweredLimit = 10
	defaultIssuesWindow    = "24h"
	defaultIssuesTop       = 20
)

// makeAskHandler creates the ask_docs tool handler. Refusals and unanswered
// questions are successful results; retrieval failures are tool errors.
func makeAskHandler(asker Asker) func(
	context.Context, *mcp.CallToolRequest, AskDocsInput,
) (*mcp.CallToolResult, AskDocsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskDocsInput) (
		*mcp.CallToolResult, AskDocsOutput, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, AskDocsOutput{}, errors.New("query must not be empty")
		}

		resp, err := asker.Ask(ctx, input.Query)
		if err != nil {
			return nil, AskDocsOutput{}, fmt.Errorf("retrieval backend unavailable: %w", err)
		}

		return nil, AskDocsOutput{
			Answer:           resp.Answer,
			Refused:          resp.Refused,
			RefusalReason:    resp.RefusalReason,
			Citations:        resp.Citations,
			RequestedVersion: resp.RequestedVersion,
		}, nil
	}
}

// makeTopUnansweredHandler creates the top_unanswered tool handler.
func makeTopUnansweredHandler(reporter Reporter) func(
	context.Context, *mcp.CallToolRequest, TopUnansweredInput,
) (*mcp.CallToolResult, TopUnansweredOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input TopUnansweredInput) (
		*mcp.CallToolResult, TopUnansweredOutput, error,
	) {
		limit := input.Limit
		if limit == 0 {
			limit = defaultUnansweredLimit
		}

		queries, err := reporter.TopUnanswered(ctx, limit)
		if err != nil {
			return nil, TopUnansweredOutput{}, fmt.Errorf("failed to read event log: %w", err)
		}
		return nil, TopUnansweredOutput{Queries: queries}, nil
	}
}

// makeListIssuesHandler creates the list_issues tool handler.
func makeListIssuesHandler(reporter Reporter) func(
	context.Context, *mcp.CallToolRequest, ListIssuesInput,
) (*mcp.CallToolResult, ListIssuesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListIssuesInput) (
		*mcp.CallToolResult, ListIssuesOutput, error,
	) {
		window := input.Window
		if window == "" {
			window = defaultIssuesWindow
		}
		top := input.Top
		if top == 0 {
			top = defaultIssuesTop
		}

		issues, err := reporter.Issues(ctx, window, top)
		if err != nil {
			return nil, ListIssuesOutput{}, fmt.Errorf("failed to read event log: %w", err)
		}
		return nil, ListIssuesOutput{Issues: issues}, nil
	}
}

// makeIndexStatusHandler creates the index_status tool handler. An
// unreachable store is reported in the output rather than as a tool error.
func makeIndexStatusHandler(index IndexStats) func(
	context.Context, *mcp.CallToolRequest, IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexStatusInput) (
		*mcp.CallToolResult, IndexStatusOutput, error,
	) {
		out := IndexStatusOutput{Collection: index.Collection()}

		if err := index.Health(ctx); err != nil {
			out.Message = fmt.Sprintf("vector store unreachable: %v", err)
			return nil, out, nil
		}
		out.Healthy = true

		count, err := index.CountSections(ctx)
		if err != nil {
			out.Message = fmt.Sprintf("failed to count sections: %v", err)
			return nil, out, nil
		}
		out.TotalSections = count
		if count == 0 {
			out.Message = "Index is empty. Run docs-cli ingest."
		}
		return nil, out, nil
	}
}
