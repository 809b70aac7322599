package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/docs-observability/internal/retrieval"
)

func TestBuildPrompt(t *testing.T) {
	hits := []retrieval.Hit{
		{Text: "Indexes speed up lookups.", Metadata: retrieval.Metadata{Title: "Indexes", Version: "1.0"}},
		{Text: "Untitled body.", Metadata: retrieval.Metadata{}},
	}

	prompt := BuildPrompt("how do indexes work in v1.0?", hits, "1.0")

	assert.True(t, strings.HasPrefix(prompt, "Answer the user question using only the provided documentation context. The user asked about version v1.0."))
	assert.Contains(t, prompt, "Question:\nhow do indexes work in v1.0?")
	assert.Contains(t, prompt, "[1] Indexes (v1.0)\nIndexes speed up lookups.")
	assert.Contains(t, prompt, "[2] unknown (vunknown)\nUntitled body.")
	assert.True(t, strings.HasSuffix(prompt, "say you do not know."))
}

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"llama3",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Use createIndex.  "}}]}`))
	})

	g := NewOpenAIGenerator(srv.URL, "", "llama3", nil)
	text, ok := g.Generate(context.Background(), "prompt")
	assert.True(t, ok)
	assert.Equal(t, "Use createIndex.", text)
}

func TestOpenAIGenerator_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
		}},
		{"empty content", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"m",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"   "}}]}`))
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"m","choices":[]}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.handler)
			g := NewOpenAIGenerator(srv.URL, "key", "m", nil)

			text, ok := g.Generate(context.Background(), "prompt")
			assert.False(t, ok)
			assert.Empty(t, text)
		})
	}
}

func TestOpenAIGenerator_Timeout(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	g := NewOpenAIGenerator(srv.URL, "key", "m", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, ok := g.Generate(ctx, "prompt")
	assert.False(t, ok)
}
