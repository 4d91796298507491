// Package llm defines the structured-generation capability consumed by the
// mapping extractor, along with HTTP-backed providers for OpenAI, Anthropic,
// and Ollama.
//
// The extractor owns the protocol around the call (prompt assembly, response
// validation, retry policy); providers only move a request to a model and
// return its raw text. Any provider implementing Generator can be substituted
// without touching extraction or aggregation logic.
package llm
