package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/docs-observability/internal/answer"
	"github.com/mike-a-ellis/docs-observability/internal/insights"
)

// Asker answers documentation questions.
type Asker interface {
	Ask(ctx context.Context, query string) (*answer.Response, error)
}

// Reporter aggregates the event log.
type Reporter interface {
	TopUnanswered(ctx context.Context, limit int) ([]insights.UnansweredQuery, error)
	Issues(ctx context.Context, window string, top int) ([]insights.IssueRow, error)
}

// IndexStats describes the section index.
type IndexStats interface {
	Collection() string
	CountSections(ctx context.Context) (uint64, error)
	Health(ctx context.Context) error
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies. Index is optional; without it the
// index_status tool is not registered.
type Config struct {
	Name     string
	Version  string
	Asker    Asker
	Reporter Reporter
	Index    IndexStats
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}
	if impl.Name == "" {
		impl.Name = "docs-observability"
	}
	if impl.Version == "" {
		impl.Version = "v0.1.0"
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_docs",
		Description: "Answer a question from the documentation with citations. Refuses policy-violating prompts and reports when the docs do not cover the question.",
	}, makeAskHandler(cfg.Asker))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "top_unanswered",
		Description: "List the questions users asked most often that the documentation could not answer.",
	}, makeTopUnansweredHandler(cfg.Reporter))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_issues",
		Description: "List documentation issues (version conflicts, unsupported features, refusals) grouped by source section within a time window.",
	}, makeListIssuesHandler(cfg.Reporter))

	if cfg.Index != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "index_status",
			Description: "Report the documentation index collection, its section count and vector store health.",
		}, makeIndexStatusHandler(cfg.Index))
	}

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
