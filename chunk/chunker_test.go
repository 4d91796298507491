package chunk

import (
	"errors"
	"strings"
	"testing"
)

func TestChunker_QualityGate(t *testing.T) {
	c := NewChunker()

	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty string", "", ErrEmptyDocument},
		{"whitespace only", "   \n\t  ", ErrEmptyDocument},
		{"too short", "short report", ErrDocumentTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Split("test", tt.text)
			if !errors.Is(err, tt.want) {
				t.Errorf("Split() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestChunker_SingleChunkUnderLimit(t *testing.T) {
	c := NewChunker()
	text := strings.TrimSpace(strings.Repeat("The attackers sent phishing emails to targets. ", 5))

	chunks, err := c.Split("report-1", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("Split() returned %d chunks, want 1", len(chunks))
	}
	got := chunks[0]
	if got.Index != 0 {
		t.Errorf("chunk index = %d, want 0", got.Index)
	}
	if got.OverlapLead || got.OverlapTail {
		t.Errorf("single chunk must not carry overlap markers: %+v", got)
	}
	if got.Text != text {
		t.Errorf("single chunk must span the whole document")
	}
	if got.Source != "report-1" {
		t.Errorf("chunk source = %q, want %q", got.Source, "report-1")
	}
}

func TestChunker_ReconstructionWithoutOverlap(t *testing.T) {
	c := NewChunker()
	c.MaxTokens = 40
	c.OverlapTokens = 0

	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("The malware established persistence using scheduled tasks on compromised hosts. ")
	}
	text := strings.TrimSpace(b.String())

	chunks, err := c.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var parts []string
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d, want contiguous zero-based indices", i, ch.Index)
		}
		if ch.TokenCount > c.MaxTokens {
			t.Errorf("chunk %d has %d tokens, exceeds limit %d", i, ch.TokenCount, c.MaxTokens)
		}
		parts = append(parts, ch.Text)
	}

	got := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	want := strings.Join(strings.Fields(text), " ")
	if got != want {
		t.Errorf("concatenated chunks do not reconstruct the document:\ngot  %d chars\nwant %d chars", len(got), len(want))
	}
}

func TestChunker_OverlapMarkers(t *testing.T) {
	c := NewChunker()
	c.MaxTokens = 40
	c.OverlapTokens = 12

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Once inside the network, the operators moved laterally over SMB. ")
	}
	text := strings.TrimSpace(b.String())

	chunks, err := c.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}

	normalized := strings.Join(strings.Fields(text), " ")
	for i, ch := range chunks {
		if !strings.Contains(normalized, strings.Join(strings.Fields(ch.Text), " ")) {
			t.Errorf("chunk %d text is not a span of the source document", i)
		}
		if i > 0 && !ch.OverlapLead {
			t.Errorf("chunk %d should lead with overlap", i)
		}
		if i > 0 && !chunks[i-1].OverlapTail {
			t.Errorf("chunk %d should be marked overlap-tail", i-1)
		}
	}
	if chunks[0].OverlapLead {
		t.Error("first chunk must not lead with overlap")
	}
	if chunks[len(chunks)-1].OverlapTail {
		t.Error("last chunk must not be marked overlap-tail")
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker()
	c.MaxTokens = 60
	c.OverlapTokens = 10

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("Attackers exfiltrated archives over an encrypted channel to external infrastructure. ")
	}
	text := strings.TrimSpace(b.String())

	first, err := c.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	second, err := c.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunker_HardCutOversizedSentence(t *testing.T) {
	c := NewChunker()
	c.MaxTokens = 20
	c.OverlapTokens = 4
	c.MinChars = 10

	// One long "sentence" with no terminal punctuation.
	text := strings.TrimSpace(strings.Repeat("token ", 100))

	chunks, err := c.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 4 {
		t.Fatalf("expected hard-cut windows, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if ch.TokenCount > c.MaxTokens {
			t.Errorf("chunk %d exceeds token limit: %d > %d", i, ch.TokenCount, c.MaxTokens)
		}
	}
}

func TestChunker_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Chunker)
		wantErr bool
	}{
		{"defaults are valid", func(c *Chunker) {}, false},
		{"zero max tokens", func(c *Chunker) { c.MaxTokens = 0 }, true},
		{"negative overlap", func(c *Chunker) { c.OverlapTokens = -1 }, true},
		{"overlap equals window", func(c *Chunker) { c.OverlapTokens = c.MaxTokens }, true},
		{"nil counter", func(c *Chunker) { c.Counter = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunker()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple sentences",
			text: "First point. Second point! Third point?",
			want: []string{"First point.", "Second point!", "Third point?"},
		},
		{
			name: "dotted identifiers survive",
			text: "The actor used T1059.001 for execution. Persistence followed.",
			want: []string{"The actor used T1059.001 for execution.", "Persistence followed."},
		},
		{
			name: "paragraph break without punctuation",
			text: "Heading line\n\nBody sentence here.",
			want: []string{"Heading line", "Body sentence here."},
		},
		{
			name: "no terminator at all",
			text: "a single run of words",
			want: []string{"a single run of words"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitSentences() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHeuristicCounter(t *testing.T) {
	c := HeuristicCounter{}

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello", 1},
		{"hello world", 2},
		{"T1059.001", 3}, // run, dot, run
		{"end.", 2},
		{"a, b", 3},
		{"  spaced   out  ", 2},
	}

	for _, tt := range tests {
		if got := c.Count(tt.text); got != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
