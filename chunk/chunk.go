package chunk

import "fmt"

// Chunk is a bounded span of a source document processed as a unit.
// Chunks are immutable after creation and carry enough provenance to
// attribute downstream evidence back to their position in the document.
type Chunk struct {
	// Source identifies the originating document (URL, file path, or title).
	Source string `json:"source,omitempty"`

	// Index is the zero-based position of this chunk in document order.
	Index int `json:"index"`

	// Text is the chunk's text span.
	Text string `json:"text"`

	// TokenCount is the token count of Text under the chunker's counter.
	TokenCount int `json:"token_count"`

	// OverlapLead is true when the leading portion of this chunk repeats
	// the tail of the previous chunk.
	OverlapLead bool `json:"overlap_lead,omitempty"`

	// OverlapTail is true when the trailing portion of this chunk is
	// repeated at the head of the next chunk.
	OverlapTail bool `json:"overlap_tail,omitempty"`
}

// String returns a short human-readable description of the chunk.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d (%d tokens, %d chars)", c.Index, c.TokenCount, len(c.Text))
}
