package llm

import (
	"context"
	"errors"
)

// Common errors returned by generation providers.
var (
	// ErrProviderFailed is returned when the provider call fails at the
	// transport or API level. Callers treat it as retryable.
	ErrProviderFailed = errors.New("llm: provider request failed")

	// ErrRateLimited is returned on provider rate limiting. It unwraps to
	// ErrProviderFailed so a single errors.Is check covers both.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrEmptyResponse is returned when the provider answers with no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// GenerationRequest is a single structured-generation call.
type GenerationRequest struct {
	// System is the system/role prompt establishing the task.
	System string

	// Prompt is the user prompt: examples, retrieved context, and the
	// chunk text to analyze.
	Prompt string

	// MaxTokens bounds the generated output. Zero lets the provider
	// default apply.
	MaxTokens int

	// Temperature controls sampling randomness. Extraction runs at 0 for
	// repeatability.
	Temperature float64

	// ForceJSON asks the provider for a JSON-only response where the API
	// supports it (OpenAI response_format, Ollama format).
	ForceJSON bool
}

// TokenUsage tracks token consumption for a generation call.
type TokenUsage struct {
	// InputTokens is the number of tokens in the prompt.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the number of tokens generated.
	OutputTokens int `json:"output_tokens"`
}

// Total returns the combined input and output token count.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// GenerationResponse is a provider's answer to a GenerationRequest.
type GenerationResponse struct {
	// Text is the raw generated text. The caller parses and validates it;
	// providers make no schema guarantee.
	Text string

	// Model is the concrete model that produced the response.
	Model string

	// Usage is the token accounting reported by the provider, when
	// available.
	Usage TokenUsage
}

// Generator is the structured-generation capability. Implementations must be
// safe for concurrent use.
type Generator interface {
	// Generate runs one completion call.
	Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error)

	// Name identifies the provider and model (e.g. "openai/gpt-4o-mini").
	Name() string
}
