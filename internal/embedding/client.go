package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// NewOpenAIClient creates an OpenAI client for embedding generation. baseURL
// may point at any OpenAI-compatible server; empty uses the public API.
func NewOpenAIClient(apiKey, baseURL string) (*openai.Client, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &client, nil
}
