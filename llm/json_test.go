package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{
			name: "bare object",
			text: `{"techniques": []}`,
			want: `{"techniques": []}`,
		},
		{
			name: "fenced with language tag",
			text: "Here you go:\n```json\n{\"techniques\": []}\n```\nDone.",
			want: `{"techniques": []}`,
		},
		{
			name: "fenced without language tag",
			text: "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "surrounded by prose",
			text: `The mappings are {"a": {"b": 2}} as requested.`,
			want: `{"a": {"b": 2}}`,
		},
		{
			name:    "no object",
			text:    "I could not identify any techniques.",
			wantErr: true,
		},
		{
			name:    "empty",
			text:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSON) {
					t.Errorf("ExtractJSON() error = %v, want ErrNoJSON", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewGenerator(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "ollama"} {
		g, err := NewGenerator(provider, "", "")
		if err != nil {
			t.Errorf("NewGenerator(%q) error = %v", provider, err)
		}
		if g == nil || g.Name() == "" {
			t.Errorf("NewGenerator(%q) returned unusable generator", provider)
		}
	}

	if _, err := NewGenerator("cohere", "", ""); err == nil {
		t.Error("NewGenerator() accepted unsupported provider")
	}
}
