// Package retrieve finds catalog techniques semantically relevant to a chunk
// and formats them into a bounded context for extraction.
//
// The Retriever composes the embedding and similarity-search capabilities; it
// owns the similarity floors, the tactic filter, and deterministic result
// ordering. The ContextBuilder turns ranked candidates into a token-bounded
// prompt block, including each technique entry whole or not at all.
package retrieve
