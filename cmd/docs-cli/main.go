// Package main provides the docs CLI: indexing, one-off questions, event log
// reports and a stdio MCP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/docs-observability/internal/app"
	"github.com/mike-a-ellis/docs-observability/internal/config"
	"github.com/mike-a-ellis/docs-observability/internal/eventlog"
	ghclient "github.com/mike-a-ellis/docs-observability/internal/github"
	"github.com/mike-a-ellis/docs-observability/internal/ingest"
	"github.com/mike-a-ellis/docs-observability/internal/insights"
	"github.com/mike-a-ellis/docs-observability/internal/logging"
	"github.com/mike-a-ellis/docs-observability/internal/markdown"
)

var rootCmd = &cobra.Command{
	Use:           "docs-cli",
	Short:         "Documentation assistant tooling",
	Long:          "CLI for indexing documentation into Qdrant, asking questions and reading the event log",
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ingestFlags struct {
	reset    bool
	glob     string
	repo     string
	ref      string
	basePath string
	workers  int
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index markdown documentation into Qdrant",
	Long: `Splits markdown documents into heading sections, embeds them and
upserts them into the Qdrant collection. Re-running is idempotent: section
point IDs are derived from the document path and section index.

Documents are read from DOCS_GLOB (default data/docs/**/*.md) unless
--github is given, in which case every .md file under --path in the
repository is fetched.

Environment variables:
  QDRANT_HOST         Qdrant hostname (default: localhost)
  QDRANT_PORT         Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION   Collection name (default: docs)
  EMBEDDING_PROVIDER  hash or openai (default: hash)
  OPENAI_API_KEY      Required for the openai provider
  GITHUB_TOKEN        GitHub token for higher rate limits (optional)
  LATEST_VERSION      Version for documents with none detected (default: 1.1)`,
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the JSON response",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var topLimit int

var topUnansweredCmd = &cobra.Command{
	Use:   "top-unanswered",
	Short: "Print the most frequent unanswered questions",
	Args:  cobra.NoArgs,
	RunE:  runTopUnanswered,
}

var issuesFlags struct {
	window string
	top    int
}

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Print documentation issues grouped by section",
	Long: `Groups issue-bearing query results by issue type, source, heading and
version. --window accepts a number followed by s, m, h or d; anything else
falls back to 24h.`,
	Args: cobra.NoArgs,
	RunE: runIssues,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestFlags.reset, "reset", false, "clear the collection before indexing")
	ingestCmd.Flags().StringVar(&ingestFlags.glob, "glob", "", "local glob to index (default DOCS_GLOB)")
	ingestCmd.Flags().StringVar(&ingestFlags.repo, "github", "", "index a GitHub repository instead, as owner/repo")
	ingestCmd.Flags().StringVar(&ingestFlags.ref, "ref", "", "git ref for --github (default branch when empty)")
	ingestCmd.Flags().StringVar(&ingestFlags.basePath, "path", "docs", "directory inside the repository for --github")
	ingestCmd.Flags().IntVar(&ingestFlags.workers, "workers", 4, "documents processed concurrently")

	topUnansweredCmd.Flags().IntVar(&topLimit, "limit", 10, "maximum rows")

	issuesCmd.Flags().StringVar(&issuesFlags.window, "window", "24h", "trailing window")
	issuesCmd.Flags().IntVar(&issuesFlags.top, "top", 20, "maximum rows")

	rootCmd.AddCommand(ingestCmd, askCmd, topUnansweredCmd, issuesCmd, mcpCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	embedder, err := app.NewEmbedder(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.Qdrant.Host, cfg.Qdrant.Port)
	store, err := app.OpenStore(ctx, cfg, embedder.Dimension())
	if err != nil {
		return err
	}
	defer store.Close()
	fmt.Printf("Collection %q ready (dimension %d)\n", store.Collection(), embedder.Dimension())

	var source ingest.Source
	if ingestFlags.repo != "" {
		owner, repo, err := ghclient.ParseRepo(ingestFlags.repo)
		if err != nil {
			return err
		}
		client, err := ghclient.NewClient(cfg.GitHubToken)
		if err != nil {
			return fmt.Errorf("create GitHub client: %w", err)
		}
		source = ghclient.NewFetcher(client, owner, repo, ingestFlags.ref, ingestFlags.basePath)
	} else {
		pattern := ingestFlags.glob
		if pattern == "" {
			pattern = cfg.DocsGlob
		}
		source = ingest.NewLocalSource(pattern)
	}

	if ingestFlags.reset {
		fmt.Println("Clearing existing collection...")
		if err := store.ClearCollection(ctx); err != nil {
			return fmt.Errorf("clear collection: %w", err)
		}
	}

	fmt.Printf("Indexing documents from %s...\n", source.Name())
	pipeline := ingest.NewPipeline(source, markdown.NewSplitter(), embedder, store, ingest.Options{
		DefaultVersion: cfg.LatestVersion,
		Workers:        ingestFlags.workers,
	}, logger)

	result, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Printf("  Sections: %d\n", result.TotalSections)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	if result.Revision != "" {
		fmt.Printf("  Revision: %s\n", result.Revision)
	}

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Pipeline.Ask(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runTopUnanswered(cmd *cobra.Command, args []string) error {
	analyzer, err := openAnalyzer()
	if err != nil {
		return err
	}
	rows, err := analyzer.TopUnanswered(cmd.Context(), topLimit)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"queries": rows})
}

func runIssues(cmd *cobra.Command, args []string) error {
	analyzer, err := openAnalyzer()
	if err != nil {
		return err
	}
	rows, err := analyzer.Issues(cmd.Context(), issuesFlags.window, issuesFlags.top)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"issues": rows})
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	a.Logger.Info("Starting MCP server (stdio mode)", "collection", a.Store.Collection())
	return a.MCPServer().Run(cmd.Context())
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logging.New(cfg.LogLevel, cfg.LogFormat), false)
}

// openAnalyzer reads the event log without connecting to Qdrant.
func openAnalyzer() (*insights.Analyzer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return insights.NewAnalyzer(filepath.Join(cfg.LogDir, eventlog.FileName)), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
