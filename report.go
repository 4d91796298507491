package attackmap

import (
	"time"

	"github.com/craftedsignal/attackmap/mapping"
)

// ChunkResult records the outcome of one chunk's retrieve-extract pass.
type ChunkResult struct {
	// Index is the chunk's zero-based position in the document.
	Index int `json:"index"`

	// Retrieved is the number of candidate techniques retrieved for the
	// chunk.
	Retrieved int `json:"retrieved"`

	// Mappings is the number of validated mappings the chunk produced.
	Mappings int `json:"mappings"`

	// Error is the failure message for a chunk that was skipped or
	// failed, empty on success.
	Error string `json:"error,omitempty"`
}

// OK reports whether the chunk completed without error.
func (c ChunkResult) OK() bool {
	return c.Error == ""
}

// Report summarizes per-chunk processing for a document.
type Report struct {
	// ChunkResults holds one entry per chunk, in document order.
	ChunkResults []ChunkResult `json:"chunk_results"`

	// Warnings lists chunk-level failures and skips in document order.
	Warnings []string `json:"warnings,omitempty"`

	// Succeeded is the number of chunks processed without error.
	Succeeded int `json:"succeeded"`

	// Failed is the number of chunks that failed or were skipped.
	Failed int `json:"failed"`

	// Duration is the wall-clock time for the document.
	Duration time.Duration `json:"duration"`
}

// Result is the final outcome of mapping one document.
type Result struct {
	// RunID uniquely identifies the pipeline run.
	RunID string `json:"run_id"`

	// GeneratedAt is when the run completed.
	GeneratedAt time.Time `json:"generated_at"`

	// CatalogVersion is the ATT&CK catalog version the mappings were
	// validated against.
	CatalogVersion string `json:"catalog_version"`

	// Mappings is the aggregated, deduplicated mapping set, ordered by
	// tactic then technique id.
	Mappings []mapping.Mapping `json:"mappings"`

	// Report carries per-chunk outcomes and warnings.
	Report Report `json:"report"`
}
