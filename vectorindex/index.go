package vectorindex

import (
	"context"
	"errors"
)

// Common errors returned by index implementations.
var (
	// ErrEmptyIndex is returned when a search runs against an index with no
	// entries.
	ErrEmptyIndex = errors.New("vectorindex: index is empty")

	// ErrDimensionMismatch is returned when a query vector's dimension does
	// not match the indexed vectors.
	ErrDimensionMismatch = errors.New("vectorindex: vector dimension mismatch")
)

// Match is a single similarity-search hit.
type Match struct {
	// TechniqueID is the matched technique's catalog id.
	TechniqueID string `json:"technique_id"`

	// Score is the similarity under the index's metric. For the cosine
	// metric over normalized vectors it lies in [-1, 1], with practical
	// text embeddings almost always in [0, 1]. Callers must not assume a
	// tighter bound than the metric guarantees.
	Score float64 `json:"score"`
}

// Filter restricts a search to a subset of the indexed techniques.
type Filter struct {
	// Tactics limits results to techniques whose tactic set intersects
	// this list. Empty means no restriction.
	Tactics []string
}

// Searcher is the similarity-search capability consumed by the retriever.
// Implementations must return matches in descending score order, breaking
// ties by ascending technique id, and must be safe for concurrent use.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int, filter *Filter) ([]Match, error)
}

// Entry is a technique's indexed representation.
type Entry struct {
	// TechniqueID is the catalog id.
	TechniqueID string

	// Tactics are the technique's tactic names, used for filtered search.
	Tactics []string

	// Vector is the technique's embedding. Vectors should be normalized so
	// cosine similarity reduces to a dot product.
	Vector []float32
}
