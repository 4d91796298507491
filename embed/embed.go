package embed

import (
	"context"
	"errors"
	"math"
)

// Common errors returned by embedding providers.
var (
	// ErrEmptyText is returned when the text to embed is empty.
	ErrEmptyText = errors.New("embed: empty text")

	// ErrProviderFailed is returned when the embedding provider call fails
	// after transport-level handling. Callers treat it as retryable.
	ErrProviderFailed = errors.New("embed: provider request failed")
)

// Embedder turns text into a vector. Implementations must be safe for
// concurrent use; the pipeline embeds chunks from multiple workers.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model identifies the embedding model, used for cache keying.
	Model() string
}

// Normalize scales a vector to unit length in place and returns it. A zero
// vector is returned unchanged. Normalized vectors let cosine similarity be
// computed as a plain dot product.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}
