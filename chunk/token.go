package chunk

import (
	"fmt"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in text. Implementations must be deterministic and
// safe for concurrent use: the count governs chunk boundaries and downstream
// context-budget truncation, so two calls with the same input must agree.
type Counter interface {
	Count(text string) int
}

// HeuristicCounter approximates model tokenization without model data.
//
// The rule: every maximal run of letters or digits counts as one token, and
// every other non-space rune counts as one token on its own. Whitespace
// separates runs and is not counted. The rule is stable across releases;
// changing it is a breaking change because it moves chunk boundaries.
type HeuristicCounter struct{}

// Count implements Counter.
func (HeuristicCounter) Count(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				n++
				inWord = true
			}
		case unicode.IsSpace(r):
			inWord = false
		default:
			n++
			inWord = false
		}
	}
	return n
}

// TiktokenCounter counts tokens with a tiktoken BPE encoding, matching what
// OpenAI-family models see. Construction loads the encoding once; Count is
// then safe for concurrent use.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a Counter backed by the named encoding
// (for example "cl100k_base").
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count implements Counter.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
