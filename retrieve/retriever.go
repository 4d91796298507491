package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/craftedsignal/attackmap/catalog"
	"github.com/craftedsignal/attackmap/embed"
	"github.com/craftedsignal/attackmap/vectorindex"
)

// Default retrieval parameters, matching what works for the ATT&CK corpus:
// a generous candidate list with a permissive floor for parent techniques
// and a stricter one for sub-techniques, which are easy to confuse with
// their parents and siblings.
const (
	// DefaultTopK is the default number of candidates retrieved per chunk.
	DefaultTopK = 10

	// DefaultSimilarityFloor is the minimum similarity for a parent
	// technique to be considered relevant.
	DefaultSimilarityFloor = 0.3

	// DefaultSubtechniqueFloor is the stricter minimum similarity applied
	// to sub-techniques (dotted ids).
	DefaultSubtechniqueFloor = 0.5
)

// Candidate is a technique retrieved as potentially relevant to a chunk.
// Candidates are ephemeral: produced by the Retriever, consumed by the
// ContextBuilder.
type Candidate struct {
	// TechniqueID is the catalog id of the candidate technique.
	TechniqueID string `json:"technique_id"`

	// Name is the technique name, resolved from the catalog.
	Name string `json:"name"`

	// Tactics are the technique's tactic names, resolved from the catalog.
	Tactics []string `json:"tactics"`

	// Description is the technique's catalog description.
	Description string `json:"description"`

	// Score is the similarity between the chunk and the technique under
	// the index's metric.
	Score float64 `json:"score"`

	// ChunkIndex is the index of the chunk this candidate was retrieved
	// for.
	ChunkIndex int `json:"chunk_index"`
}

// Retriever retrieves ranked technique candidates for chunk text.
type Retriever struct {
	// Embedder is the embedding capability.
	Embedder embed.Embedder

	// Searcher is the similarity-search capability.
	Searcher vectorindex.Searcher

	// Catalog resolves ids to technique details and drops stale index
	// entries that no longer exist in the loaded framework version.
	Catalog *catalog.Catalog

	// TopK is the number of nearest neighbors requested per chunk.
	TopK int

	// SimilarityFloor filters parent techniques below this similarity.
	SimilarityFloor float64

	// SubtechniqueFloor filters sub-techniques below this similarity.
	SubtechniqueFloor float64
}

// NewRetriever builds a Retriever with the default parameters.
func NewRetriever(embedder embed.Embedder, searcher vectorindex.Searcher, cat *catalog.Catalog) *Retriever {
	return &Retriever{
		Embedder:          embedder,
		Searcher:          searcher,
		Catalog:           cat,
		TopK:              DefaultTopK,
		SimilarityFloor:   DefaultSimilarityFloor,
		SubtechniqueFloor: DefaultSubtechniqueFloor,
	}
}

// Retrieve returns candidates for the chunk text, ordered by descending
// similarity with ties broken by ascending technique id. Fewer than TopK
// candidates after floor filtering is a normal outcome, not an error. When
// tacticFilter is non-empty, only techniques whose tactic set intersects the
// filter are returned.
func (r *Retriever) Retrieve(ctx context.Context, chunkText string, chunkIndex int, tacticFilter []string) ([]Candidate, error) {
	vector, err := r.Embedder.Embed(ctx, chunkText)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed chunk %d: %w", chunkIndex, err)
	}

	var filter *vectorindex.Filter
	if len(tacticFilter) > 0 {
		filter = &vectorindex.Filter{Tactics: tacticFilter}
	}

	matches, err := r.Searcher.Search(ctx, vector, r.TopK, filter)
	if err != nil {
		return nil, fmt.Errorf("retrieve: search for chunk %d: %w", chunkIndex, err)
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		if m.Score < r.floorFor(m.TechniqueID) {
			continue
		}

		tech, err := r.Catalog.Get(m.TechniqueID)
		if err != nil {
			// Stale index entry for a technique no longer in the catalog.
			continue
		}

		candidates = append(candidates, Candidate{
			TechniqueID: tech.ID,
			Name:        tech.Name,
			Tactics:     tech.Tactics,
			Description: tech.Description,
			Score:       m.Score,
			ChunkIndex:  chunkIndex,
		})
	}

	return candidates, nil
}

// floorFor returns the similarity floor applicable to the technique id.
func (r *Retriever) floorFor(id string) float64 {
	if strings.Contains(id, ".") {
		return r.SubtechniqueFloor
	}
	return r.SimilarityFloor
}
