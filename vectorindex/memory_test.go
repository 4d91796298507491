package vectorindex

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/craftedsignal/attackmap/catalog"
)

func buildIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()

	entries := []Entry{
		{TechniqueID: "T1566", Tactics: []string{"initial-access"}, Vector: []float32{1, 0, 0}},
		{TechniqueID: "T1566.001", Tactics: []string{"initial-access"}, Vector: []float32{0.9396926, 0.3420201, 0}},
		{TechniqueID: "T1053.005", Tactics: []string{"execution", "persistence"}, Vector: []float32{0, 1, 0}},
		{TechniqueID: "T1071", Tactics: []string{"command-and-control"}, Vector: []float32{0, 0, 1}},
	}
	for _, e := range entries {
		if err := idx.Add(e); err != nil {
			t.Fatalf("Add(%s) error = %v", e.TechniqueID, err)
		}
	}
	return idx
}

func TestMemoryIndex_SearchOrdering(t *testing.T) {
	idx := buildIndex(t)

	matches, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(matches) != 3 {
		t.Fatalf("Search() returned %d matches, want 3", len(matches))
	}
	if matches[0].TechniqueID != "T1566" {
		t.Errorf("top match = %s, want T1566", matches[0].TechniqueID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not in descending score order at %d", i)
		}
	}
}

func TestMemoryIndex_TieBreakByID(t *testing.T) {
	idx := NewMemoryIndex()
	// Identical vectors force a score tie.
	for _, id := range []string{"T1done", "T1abc", "T1zzz"} {
		if err := idx.Add(Entry{TechniqueID: id, Vector: []float32{1, 0}}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	matches, err := idx.Search(context.Background(), []float32{1, 0}, 3, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	want := []string{"T1abc", "T1done", "T1zzz"}
	for i, m := range matches {
		if m.TechniqueID != want[i] {
			t.Errorf("match %d = %s, want %s (ascending id on tie)", i, m.TechniqueID, want[i])
		}
	}
}

func TestMemoryIndex_TacticFilter(t *testing.T) {
	idx := buildIndex(t)

	matches, err := idx.Search(context.Background(), []float32{1, 0, 0}, 10, &Filter{Tactics: []string{"Initial Access"}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("filtered search returned %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m.TechniqueID != "T1566" && m.TechniqueID != "T1566.001" {
			t.Errorf("unexpected match %s under initial-access filter", m.TechniqueID)
		}
	}
}

func TestMemoryIndex_KLimit(t *testing.T) {
	idx := buildIndex(t)

	matches, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Search() returned %d matches, want k=2", len(matches))
	}
}

func TestMemoryIndex_Errors(t *testing.T) {
	empty := NewMemoryIndex()
	if _, err := empty.Search(context.Background(), []float32{1}, 5, nil); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("empty index error = %v, want ErrEmptyIndex", err)
	}

	idx := buildIndex(t)
	if _, err := idx.Search(context.Background(), []float32{1, 0}, 5, nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("dimension mismatch error = %v, want ErrDimensionMismatch", err)
	}
	if err := idx.Add(Entry{TechniqueID: "T1", Vector: []float32{1}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Add dimension mismatch error = %v, want ErrDimensionMismatch", err)
	}
}

// unitEmbedder maps each text to a distinct axis-aligned unit vector.
type unitEmbedder struct {
	axes map[string]int
	dim  int
}

func (e *unitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	if axis, ok := e.axes[text]; ok {
		vec[axis] = 1
	} else {
		vec[0] = 1
	}
	return vec, nil
}

func (e *unitEmbedder) Model() string { return "test/unit" }

func TestPopulate(t *testing.T) {
	cat, err := catalog.New([]catalog.Technique{
		{ID: "T1566", Name: "Phishing", Tactics: []string{"initial-access"}, Description: "Phishing messages."},
		{ID: "T1071", Name: "Application Layer Protocol", Tactics: []string{"command-and-control"}, Description: "C2 over common protocols."},
	}, "18.1")
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}

	embedder := &unitEmbedder{
		dim: 2,
		axes: map[string]int{
			"Phishing. Phishing messages.":                             0,
			"Application Layer Protocol. C2 over common protocols.": 1,
		},
	}

	idx := NewMemoryIndex()
	if err := Populate(context.Background(), idx, cat, embedder, slog.Default()); err != nil {
		t.Fatalf("Populate() error = %v", err)
	}

	if idx.Len() != 2 {
		t.Fatalf("index has %d entries, want 2", idx.Len())
	}

	matches, err := idx.Search(context.Background(), []float32{0, 1}, 1, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if matches[0].TechniqueID != "T1071" {
		t.Errorf("top match = %s, want T1071", matches[0].TechniqueID)
	}
}
