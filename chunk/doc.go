// Package chunk splits normalized document text into bounded, overlapping
// segments suitable for per-segment retrieval and extraction.
//
// Chunking is deterministic: the same text, limits, and token counter always
// produce the same sequence of chunks. Split points prefer sentence and
// paragraph boundaries near the token limit; a hard cut at the exact limit is
// used only when no boundary falls within the tolerance window.
//
// Token counting is pluggable through the Counter interface. The default
// HeuristicCounter needs no model data and counts a token for every maximal
// run of letters or digits and for every punctuation rune. TiktokenCounter
// provides exact cl100k_base counts when model parity matters.
package chunk
