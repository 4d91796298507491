// Package vectorindex provides the similarity-search capability over the
// embedded technique catalog.
//
// The pipeline depends only on the Searcher interface ("k nearest neighbors
// by similarity, optionally restricted by tactic"); this package ships two
// implementations: MemoryIndex, an exact cosine scan suitable for the ~600
// technique corpus and for tests, and PgxIndex, a Postgres+pgvector adapter
// for deployments that keep the index out of process.
package vectorindex
