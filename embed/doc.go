// Package embed defines the embedding capability consumed by the retrieval
// pipeline, along with HTTP-backed providers and a Redis-backed cache.
//
// The pipeline only depends on the Embedder interface; any provider that can
// turn text into a vector can be substituted without touching chunking,
// retrieval, or aggregation logic.
package embed
