// Package mapping turns retrieved context plus chunk text into validated
// ATT&CK technique mappings, and merges per-chunk mappings into one
// deduplicated, confidence-ranked result set for a document.
//
// The extractor owns the protocol around the structured-generation call:
// prompt assembly, response parsing with a single retry, and validation of
// every returned item against the technique catalog and the chunk text. The
// aggregator is a pure function over per-chunk mapping slices and is
// idempotent.
package mapping
