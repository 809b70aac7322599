// Package generation synthesizes answer text from retrieved documentation.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mike-a-ellis/docs-observability/internal/logging"
	"github.com/mike-a-ellis/docs-observability/internal/retrieval"
)

// Generator produces answer text for a prompt. ok is false on any failure,
// including timeouts and empty output; errors never cross this boundary.
type Generator interface {
	Generate(ctx context.Context, prompt string) (text string, ok bool)
}

// BuildPrompt assembles the grounding prompt sent to the generator.
func BuildPrompt(query string, hits []retrieval.Hit, requestedVersion string) string {
	var b strings.Builder
	b.WriteString("Answer the user question using only the provided documentation context.")
	if requestedVersion != "" {
		fmt.Fprintf(&b, " The user asked about version v%s.", requestedVersion)
	}
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(query)
	b.WriteString("\n\nContext:")
	for i, h := range hits {
		title := h.Metadata.Title
		if title == "" {
			title = "unknown"
		}
		version := h.Metadata.Version
		if version == "" {
			version = "unknown"
		}
		fmt.Fprintf(&b, "\n\n[%d] %s (v%s)\n%s", i+1, title, version, h.Text)
	}
	b.WriteString("\n\nIf the answer is not in the context, say you do not know.")
	return b.String()
}

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint, such
// as Ollama's /v1 API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIGenerator creates a generator for model at baseURL.
func NewOpenAIGenerator(baseURL, apiKey, model string, logger *slog.Logger) *OpenAIGenerator {
	logger = logging.OrDefault(logger)
	if apiKey == "" {
		// Ollama ignores the key but the client requires one
		apiKey = "ollama"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIGenerator{client: &client, model: model, logger: logger}
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, bool) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
	})
	if err != nil {
		g.logger.Warn("Generation failed", "model", g.model, "error", err)
		return "", false
	}
	if len(resp.Choices) == 0 {
		g.logger.Warn("Generation returned no choices", "model", g.model)
		return "", false
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", false
	}
	return text, true
}
