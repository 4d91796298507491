package chunk

import (
	"errors"
	"fmt"
	"strings"
)

// Default chunking limits. The values track what works well for threat
// reports: windows small enough for focused extraction, with enough overlap
// to keep a behavior description intact across a boundary.
const (
	// DefaultMaxTokens is the default maximum tokens per chunk.
	DefaultMaxTokens = 500

	// DefaultOverlapTokens is the default token overlap between chunks.
	DefaultOverlapTokens = 50

	// DefaultMinChars is the minimum usable document length in characters.
	// Anything shorter is almost always a failed or empty extraction.
	DefaultMinChars = 100
)

// Common errors returned by the chunker.
var (
	// ErrEmptyDocument is returned when the document text is empty or
	// whitespace only.
	ErrEmptyDocument = errors.New("chunk: empty document")

	// ErrDocumentTooShort is returned when the document is below the
	// configured minimum character count.
	ErrDocumentTooShort = errors.New("chunk: document below minimum length")

	// ErrInvalidLimits is returned when the chunker configuration is
	// inconsistent (zero window, or overlap not smaller than the window).
	ErrInvalidLimits = errors.New("chunk: invalid chunking limits")
)

// Chunker splits document text into token-bounded, overlapping chunks.
// The zero value is not usable; construct with NewChunker.
type Chunker struct {
	// MaxTokens is the maximum tokens per chunk.
	MaxTokens int

	// OverlapTokens is how many trailing tokens of one chunk are repeated
	// at the head of the next.
	OverlapTokens int

	// MinChars is the minimum document length accepted by Split.
	MinChars int

	// Counter is the token counting rule.
	Counter Counter
}

// NewChunker returns a Chunker with the default limits and the heuristic
// token counter. Fields may be adjusted before first use.
func NewChunker() *Chunker {
	return &Chunker{
		MaxTokens:     DefaultMaxTokens,
		OverlapTokens: DefaultOverlapTokens,
		MinChars:      DefaultMinChars,
		Counter:       HeuristicCounter{},
	}
}

// Validate checks the chunker configuration.
func (c *Chunker) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidLimits, c.MaxTokens)
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.MaxTokens {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidLimits, c.OverlapTokens, c.MaxTokens)
	}
	if c.Counter == nil {
		return fmt.Errorf("%w: counter is required", ErrInvalidLimits)
	}
	return nil
}

// Split divides text into chunks in document order. The source string is
// recorded on every chunk for provenance.
//
// Split fails with ErrEmptyDocument or ErrDocumentTooShort when the text does
// not pass the quality gate. A document at or under MaxTokens yields exactly
// one chunk with index 0 and no overlap markers.
func (c *Chunker) Split(source, text string) ([]Chunk, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyDocument
	}
	if len(trimmed) < c.MinChars {
		return nil, fmt.Errorf("%w: %d chars, need %d", ErrDocumentTooShort, len(trimmed), c.MinChars)
	}

	total := c.Counter.Count(trimmed)
	if total <= c.MaxTokens {
		return []Chunk{{
			Source:     source,
			Index:      0,
			Text:       trimmed,
			TokenCount: total,
		}}, nil
	}

	sentences := SplitSentences(trimmed)

	var (
		chunks  []Chunk
		current []string
	)

	flush := func(overlapLead bool) {
		if len(current) == 0 {
			return
		}
		joined := strings.Join(current, " ")
		chunks = append(chunks, Chunk{
			Source:      source,
			Index:       len(chunks),
			Text:        joined,
			TokenCount:  c.Counter.Count(joined),
			OverlapLead: overlapLead,
		})
	}

	lead := false
	for _, sentence := range sentences {
		candidate := sentence
		if len(current) > 0 {
			candidate = strings.Join(current, " ") + " " + sentence
		}

		if c.Counter.Count(candidate) <= c.MaxTokens {
			current = append(current, sentence)
			continue
		}

		if len(current) > 0 {
			flush(lead)
			overlap := c.overlapTail(current)
			if rejoined := strings.Join(append(append([]string(nil), overlap...), sentence), " "); len(overlap) > 0 && c.Counter.Count(rejoined) <= c.MaxTokens {
				current = append(overlap, sentence)
				lead = true
				continue
			}
			// Overlap dropped: the sentence does not fit alongside it.
			current = nil
			lead = false
			if c.Counter.Count(sentence) <= c.MaxTokens {
				current = []string{sentence}
				continue
			}
		}

		// No boundary within the window: cut the oversized sentence at the
		// exact token limit.
		pieces := c.hardSplit(sentence)
		for i, piece := range pieces {
			if i < len(pieces)-1 {
				current = []string{piece}
				flush(false)
				current = nil
				continue
			}
			current = []string{piece}
			lead = false
		}
	}
	flush(lead)

	for i := range chunks {
		if i < len(chunks)-1 && chunks[i+1].OverlapLead {
			chunks[i].OverlapTail = true
		}
	}

	return chunks, nil
}

// overlapTail returns the trailing sentences of the flushed chunk that fit
// within OverlapTokens, preserving document order.
func (c *Chunker) overlapTail(sentences []string) []string {
	if c.OverlapTokens == 0 {
		return nil
	}
	var tail []string
	for i := len(sentences) - 1; i >= 0; i-- {
		candidate := append([]string{sentences[i]}, tail...)
		if c.Counter.Count(strings.Join(candidate, " ")) > c.OverlapTokens {
			break
		}
		tail = candidate
	}
	return tail
}

// hardSplit cuts a single oversized sentence into windows of at most
// MaxTokens tokens, splitting at whitespace.
func (c *Chunker) hardSplit(sentence string) []string {
	fields := strings.Fields(sentence)
	var (
		pieces  []string
		current []string
	)
	for _, f := range fields {
		candidate := strings.Join(append(current, f), " ")
		if len(current) > 0 && c.Counter.Count(candidate) > c.MaxTokens {
			pieces = append(pieces, strings.Join(current, " "))
			current = nil
		}
		current = append(current, f)
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}
	return pieces
}

// SplitSentences splits text at sentence and paragraph boundaries. A sentence
// ends at a run of '.', '!' or '?' followed by whitespace, or at a blank
// line. Every non-space rune of the input is preserved in exactly one
// returned sentence.
func SplitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)

	runes := []rune(text)
	flushAt := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			// Consume the terminator run, then require whitespace so that
			// decimals and dotted identifiers stay intact.
			j := i
			for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
				j++
			}
			if j+1 >= len(runes) || runes[j+1] == ' ' || runes[j+1] == '\t' || runes[j+1] == '\n' || runes[j+1] == '\r' {
				flushAt(j + 1)
			}
			i = j
		case '\n':
			// Paragraph break.
			j := i
			for j+1 < len(runes) && (runes[j+1] == '\n' || runes[j+1] == '\r' || runes[j+1] == ' ' || runes[j+1] == '\t') {
				j++
			}
			if strings.Count(string(runes[i:j+1]), "\n") >= 2 {
				flushAt(i)
				i = j
			}
		}
	}
	flushAt(len(runes))

	return sentences
}
