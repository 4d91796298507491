package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultAnthropicModel is the model used when none is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// anthropicVersion is the API version header required by the messages API.
const anthropicVersion = "2023-06-01"

// AnthropicGenerator runs completions through the Anthropic messages API.
type AnthropicGenerator struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewAnthropicGenerator creates an Anthropic generator. An empty apiKey
// falls back to the ANTHROPIC_API_KEY environment variable; an empty model
// falls back to DefaultAnthropicModel.
func NewAnthropicGenerator(apiKey, model string) *AnthropicGenerator {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicGenerator{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com/v1",
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name implements Generator.
func (g *AnthropicGenerator) Name() string {
	return "anthropic/" + g.model
}

type anthropicRequest struct {
	Model       string `json:"model"`
	System      string `json:"system,omitempty"`
	MaxTokens   int    `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	payload := anthropicRequest{
		Model:       g.model,
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	payload.Messages = append(payload.Messages, struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(payload)
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return GenerationResponse{}, fmt.Errorf("%w: status 429", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return GenerationResponse{}, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, detail)
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return GenerationResponse{}, fmt.Errorf("llm: decode response: %w", err)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return GenerationResponse{}, ErrEmptyResponse
	}

	return GenerationResponse{
		Text:  text,
		Model: g.model,
		Usage: TokenUsage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		},
	}, nil
}
