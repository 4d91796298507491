package retrieve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/craftedsignal/attackmap/chunk"
)

// Context sizing defaults, tuned for ~10 candidates within a prompt that
// also carries the chunk text and instructions.
const (
	// DefaultTokenBudget bounds the rendered context.
	DefaultTokenBudget = 2000

	// maxParentDescChars caps a parent technique's description.
	maxParentDescChars = 400

	// maxSubtechniqueDescChars caps a sub-technique's description. Longer,
	// because the extra detail is what separates a sub-technique from its
	// parent and siblings.
	maxSubtechniqueDescChars = 800
)

// Context is the bounded, structured context handed to the extractor.
type Context struct {
	// Entries are the included candidates, in descending similarity order.
	Entries []Candidate

	// TokenCount is the token count of the rendered text under the
	// builder's counter.
	TokenCount int

	text string
}

// Text returns the rendered prompt block.
func (c Context) Text() string {
	return c.text
}

// Empty reports whether no candidate fit the budget.
func (c Context) Empty() bool {
	return len(c.Entries) == 0
}

// ContextBuilder renders retrieved candidates into a token-bounded context.
type ContextBuilder struct {
	// TokenBudget is the maximum tokens for the rendered context.
	TokenBudget int

	// Counter is the token counting rule. It should match the chunker's
	// counter so budgets are comparable.
	Counter chunk.Counter
}

// NewContextBuilder returns a builder with the default budget and the
// heuristic counter.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{
		TokenBudget: DefaultTokenBudget,
		Counter:     chunk.HeuristicCounter{},
	}
}

// Build deduplicates, orders, and greedily packs candidates into the token
// budget. A candidate sharing a technique id with a higher-scoring one is
// dropped; entries are included whole or not at all, and descriptions are
// clipped at sentence boundaries, never mid-sentence. Build is deterministic
// for a given candidate set and budget.
func (b *ContextBuilder) Build(candidates []Candidate) Context {
	best := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		if prev, ok := best[c.TechniqueID]; !ok || c.Score > prev.Score {
			best[c.TechniqueID] = c
		}
	}

	deduped := make([]Candidate, 0, len(best))
	for _, c := range best {
		deduped = append(deduped, c)
	}
	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].Score != deduped[j].Score {
			return deduped[i].Score > deduped[j].Score
		}
		return deduped[i].TechniqueID < deduped[j].TechniqueID
	})

	header := "Retrieved ATT&CK techniques:\n"
	var (
		sb      strings.Builder
		entries []Candidate
	)
	sb.WriteString(header)
	used := b.Counter.Count(header)

	for _, c := range deduped {
		entry := renderEntry(c)
		cost := b.Counter.Count(entry)
		if used+cost > b.TokenBudget {
			break
		}
		sb.WriteString(entry)
		entries = append(entries, c)
		used += cost
	}

	if len(entries) == 0 {
		text := "No relevant ATT&CK techniques were retrieved for this text.\n"
		return Context{TokenCount: b.Counter.Count(text), text: text}
	}

	return Context{Entries: entries, TokenCount: used, text: sb.String()}
}

// renderEntry renders one technique entry for the prompt.
func renderEntry(c Candidate) string {
	maxChars := maxParentDescChars
	if strings.Contains(c.TechniqueID, ".") {
		maxChars = maxSubtechniqueDescChars
	}
	return fmt.Sprintf("\n- %s: %s\n  Tactics: %s\n  Description: %s\n",
		c.TechniqueID, c.Name, strings.Join(c.Tactics, ", "), clipSentences(c.Description, maxChars))
}

// clipSentences returns the longest prefix of whole sentences fitting in
// maxChars. The first sentence is always kept so an entry never loses its
// entire description.
func clipSentences(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxChars {
		return text
	}

	var sb strings.Builder
	for i, sentence := range chunk.SplitSentences(text) {
		addition := len(sentence)
		if i > 0 {
			addition++
		}
		if i > 0 && sb.Len()+addition > maxChars {
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(sentence)
	}
	return sb.String()
}
