package llm

import "fmt"

// NewGenerator returns a Generator for the named provider. Supported
// providers are "openai", "anthropic", and "ollama". An empty model selects
// the provider's default; baseURL applies to Ollama only.
func NewGenerator(provider, model, baseURL string) (Generator, error) {
	switch provider {
	case "openai":
		return NewOpenAIGenerator("", model), nil
	case "anthropic":
		return NewAnthropicGenerator("", model), nil
	case "ollama":
		return NewOllamaGenerator(baseURL, model), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q (choose openai, anthropic, or ollama)", provider)
	}
}
