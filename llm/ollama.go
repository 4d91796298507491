package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaGenerator runs completions through a local Ollama server.
type OllamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaGenerator creates a generator for the given Ollama base URL
// (e.g. "http://localhost:11434") and model name.
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

// Name implements Generator.
func (g *OllamaGenerator) Name() string {
	return "ollama/" + g.model
}

type ollamaChatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Format   string `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Generate implements Generator.
func (g *OllamaGenerator) Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error) {
	payload := ollamaChatRequest{
		Model:  g.model,
		Stream: false,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.ForceJSON {
		payload.Format = "json"
	}
	if req.MaxTokens > 0 {
		payload.Options["num_predict"] = req.MaxTokens
	}
	for _, m := range []struct{ role, content string }{
		{"system", req.System},
		{"user", req.Prompt},
	} {
		payload.Messages = append(payload.Messages, struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{Role: m.role, Content: m.content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return GenerationResponse{}, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, detail)
	}

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return GenerationResponse{}, fmt.Errorf("llm: decode response: %w", err)
	}
	if parsed.Message.Content == "" {
		return GenerationResponse{}, ErrEmptyResponse
	}

	return GenerationResponse{
		Text:  parsed.Message.Content,
		Model: g.model,
		Usage: TokenUsage{
			InputTokens:  parsed.PromptEvalCount,
			OutputTokens: parsed.EvalCount,
		},
	}, nil
}
