package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Confidence band thresholds.
const (
	// BandHigh labels confidence at or above 0.8.
	BandHigh = "high"

	// BandMedium labels confidence in [0.5, 0.8).
	BandMedium = "medium"

	// BandLow labels confidence below 0.5.
	BandLow = "low"
)

var (
	// ErrEmptyTechniqueID is returned when a mapping carries no technique id.
	ErrEmptyTechniqueID = errors.New("mapping: empty technique id")

	// ErrInvalidConfidence is returned when confidence falls outside [0, 1].
	// Out-of-range values are a validation failure, never clamped.
	ErrInvalidConfidence = errors.New("mapping: confidence outside [0, 1]")

	// ErrNoEvidence is returned when a mapping carries no evidence quotes.
	ErrNoEvidence = errors.New("mapping: no evidence quotes")
)

// Quote is one verbatim evidence quote attributed to a source chunk.
type Quote struct {
	// Text is the quoted substring of the chunk.
	Text string `json:"text"`

	// ChunkIndex is the zero-based index of the chunk the quote came from.
	ChunkIndex int `json:"chunk_index"`
}

// Mapping links a technique id to evidence found in one or more chunks of a
// document. Per-chunk mappings carry a single chunk index; the aggregator
// merges them across chunks.
type Mapping struct {
	// TechniqueID is the ATT&CK identifier, e.g. "T1566" or "T1566.001".
	TechniqueID string `json:"technique_id"`

	// Name is the technique name resolved from the catalog.
	Name string `json:"name,omitempty"`

	// Confidence is the extraction confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Evidence holds at least one quote supporting the mapping, in
	// chunk-index order.
	Evidence []Quote `json:"evidence"`

	// Chunks are the zero-based indices of chunks that contributed
	// evidence, ascending.
	Chunks []int `json:"chunks"`

	// Tactics are the tactic names resolved from the catalog at
	// aggregation time. They are never taken from model output.
	Tactics []string `json:"tactics,omitempty"`

	// Unverified marks a mapping whose evidence could not be located in
	// its source chunk. Such mappings keep their place in the result but
	// carry demoted confidence.
	Unverified bool `json:"unverified,omitempty"`
}

// Validate checks the mapping's structural invariants.
func (m Mapping) Validate() error {
	if strings.TrimSpace(m.TechniqueID) == "" {
		return ErrEmptyTechniqueID
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("%w: %v for %s", ErrInvalidConfidence, m.Confidence, m.TechniqueID)
	}
	if len(m.Evidence) == 0 {
		return fmt.Errorf("%w: %s", ErrNoEvidence, m.TechniqueID)
	}
	return nil
}

// String returns a short display form.
func (m Mapping) String() string {
	return fmt.Sprintf("%s (%.2f, %s)", m.TechniqueID, m.Confidence, Band(m.Confidence))
}

// Band returns the display band for a confidence value.
func Band(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return BandHigh
	case confidence >= 0.5:
		return BandMedium
	default:
		return BandLow
	}
}

// sortEvidence orders quotes by chunk index, preserving the order quotes
// were appended within a chunk.
func sortEvidence(quotes []Quote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].ChunkIndex < quotes[j].ChunkIndex
	})
}
