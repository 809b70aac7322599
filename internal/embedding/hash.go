package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// DefaultHashDimension is the vector size of HashEmbedder when none is given.
const DefaultHashDimension = 256

// HashEmbedder is a deterministic, dependency-free embedder. Each lower-cased
// whitespace token is hashed into a signed bucket and the vector is
// L2-normalised. It carries no semantics beyond token overlap.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hash embedder with the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// Dimension returns the vector size.
func (h *HashEmbedder) Dimension() int {
	return h.dimension
}

// Embed embeds every text.
func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

// EmbedQuery embeds a single text.
func (h *HashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return h.vector(text), nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	vec := make([]float64, h.dimension)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(tok))
		idx := binary.LittleEndian.Uint32(sum[:4]) % uint32(h.dimension)
		if sum[4]%2 == 0 {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, h.dimension)
	for i, v := range vec {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}
	return out
}
