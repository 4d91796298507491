package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryIndex is an exact in-memory cosine index. Add may be called until
// the first Search; afterwards the index is effectively read-only and safe
// for concurrent searches.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []Entry
	dim     int
}

// NewMemoryIndex returns an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add inserts an entry. The first entry fixes the vector dimension.
func (m *MemoryIndex) Add(e Entry) error {
	if e.TechniqueID == "" {
		return fmt.Errorf("vectorindex: entry requires a technique id")
	}
	if len(e.Vector) == 0 {
		return fmt.Errorf("vectorindex: entry %s has no vector", e.TechniqueID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dim == 0 {
		m.dim = len(e.Vector)
	} else if len(e.Vector) != m.dim {
		return fmt.Errorf("%w: entry %s has dim %d, index has %d", ErrDimensionMismatch, e.TechniqueID, len(e.Vector), m.dim)
	}

	m.entries = append(m.entries, e)
	return nil
}

// Len returns the number of indexed entries.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Search implements Searcher with an exact scan. Results are ordered by
// descending cosine similarity, ties broken by ascending technique id.
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int, filter *Filter) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query has dim %d, index has %d", ErrDimensionMismatch, len(vector), m.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(m.entries))
	for _, e := range m.entries {
		if filter != nil && len(filter.Tactics) > 0 && !tacticsIntersect(e.Tactics, filter.Tactics) {
			continue
		}
		matches = append(matches, Match{
			TechniqueID: e.TechniqueID,
			Score:       dot(vector, e.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].TechniqueID < matches[j].TechniqueID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// dot computes the dot product, which equals cosine similarity for
// normalized vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// tacticsIntersect reports whether any tactic name appears in both sets,
// case-insensitively and tolerating hyphen/space spelling differences.
func tacticsIntersect(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if foldTactic(x) == foldTactic(y) {
				return true
			}
		}
	}
	return false
}

func foldTactic(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
