package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/craftedsignal/attackmap/catalog"
	"github.com/craftedsignal/attackmap/chunk"
	"github.com/craftedsignal/attackmap/llm"
	"github.com/craftedsignal/attackmap/retrieve"
)

const (
	// unverifiedConfidence is the confidence assigned to a mapping whose
	// evidence could not be located in its source chunk.
	unverifiedConfidence = 0.3

	// defaultMaxTokens bounds the generation response.
	defaultMaxTokens = 2048
)

// ErrMalformedOutput is returned when the generation response fails to parse
// as the expected schema after a retry. Callers should skip the chunk and
// record a warning rather than fail the document.
var ErrMalformedOutput = errors.New("mapping: malformed structured output")

// systemPrompt instructs the model to map only attacker behavior and to
// ground every mapping in a quote from the text.
const systemPrompt = `You are an expert in cyber threat intelligence and the MITRE ATT&CK framework.
Your task is to analyze threat intelligence text and identify which ATT&CK techniques are described.

You will be provided with:
1. A chunk of text from a threat intelligence report
2. A list of potentially relevant ATT&CK techniques retrieved through semantic search

Your job is to:
- Identify which techniques from the retrieved list are actually described in the text
- Assign a confidence score (0.0 to 1.0) based on how explicitly the technique is mentioned
- Provide evidence by quoting the relevant part of the text verbatim
- Only include techniques that are clearly present in the text

CRITICAL: Only map techniques that describe ATTACKER/THREAT ACTOR behaviors and capabilities.
DO NOT map techniques for:
- Vendor/defender defensive actions (e.g., "Cisco blocked these IPs", "security team detected")
- Indicators of Compromise (IOCs) being reported (IPs, hashes, domains mentioned as evidence)
- Security product features or configurations
- Mitigation recommendations or patches

Confidence scoring guidelines:
- 0.8-1.0: Technique explicitly mentioned by name or with detailed behavioral description
- 0.5-0.8: Technique strongly implied with specific behavioral indicators
- 0.3-0.5: Technique possibly relevant but only tangentially related
- Below 0.3: Do not include

Respond with a single JSON object of the form:
{"mappings": [{"technique_id": "T1566.001", "confidence": 0.9, "evidence": ["verbatim quote from the text"]}]}
Return {"mappings": []} when no technique applies. Do not include any text outside the JSON object.`

// fewShotExamples anchors the attacker-behavior rule with worked examples.
const fewShotExamples = `Example 1 (CORRECT - attacker behavior):
Text: "The attackers sent phishing emails with malicious Excel documents attached."
Mapping: T1566.001, confidence 0.9, evidence "phishing emails with malicious Excel documents attached"

Example 2 (CORRECT - attacker behavior):
Text: "Once inside, they established persistence using scheduled tasks."
Mapping: T1053.005, confidence 0.85, evidence "established persistence using scheduled tasks"

Example 3 (INCORRECT - vendor defensive action, DO NOT MAP):
Text: "Cisco has blocked the following IPs: 192.168.1.1, 10.0.0.1"
Mapping: none - this describes a vendor blocking IOCs, not attacker behavior

Example 4 (INCORRECT - IOC reporting, DO NOT MAP):
Text: "The following file hashes were observed: abc123, def456"
Mapping: none - this lists IOCs for reference, not an attacker collection technique`

// Extractor calls a structured-generation capability to map one chunk's
// text, grounded in retrieved context, to validated technique mappings.
type Extractor struct {
	// Generator is the structured-generation capability.
	Generator llm.Generator

	// Catalog validates technique ids in model output.
	Catalog *catalog.Catalog

	// MaxTokens bounds the generation response. Zero means
	// defaultMaxTokens.
	MaxTokens int

	// Logger records skipped items and unverifiable evidence. Nil means
	// slog.Default.
	Logger *slog.Logger
}

// NewExtractor returns an extractor with default limits.
func NewExtractor(gen llm.Generator, cat *catalog.Catalog) *Extractor {
	return &Extractor{
		Generator: gen,
		Catalog:   cat,
		MaxTokens: defaultMaxTokens,
		Logger:    slog.Default(),
	}
}

// wireMapping is the schema the model is instructed to produce per item.
type wireMapping struct {
	TechniqueID string      `json:"technique_id"`
	Confidence  json.Number `json:"confidence"`
	Evidence    []string    `json:"evidence"`
}

// wireResponse defers item decoding so one bad item rejects that item, not
// the whole response.
type wireResponse struct {
	Mappings []json.RawMessage `json:"mappings"`
}

// Extract maps one chunk to technique mappings. A response that fails to
// parse triggers exactly one retry; a second failure returns
// ErrMalformedOutput. Items with unknown technique ids, out-of-range
// confidence, or no evidence are dropped. Quotes that cannot be located in
// the chunk text are removed when other quotes verify; when none of an
// item's quotes verify the item is kept but flagged Unverified with
// confidence demoted to 0.3.
func (e *Extractor) Extract(ctx context.Context, ch chunk.Chunk, rctx retrieve.Context) ([]Mapping, error) {
	req := llm.GenerationRequest{
		System:    systemPrompt,
		Prompt:    e.buildPrompt(ch, rctx),
		MaxTokens: e.maxTokens(),
		ForceJSON: true,
	}

	var wire wireResponse
	var parseErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := e.Generator.Generate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("mapping: generate for chunk %d: %w", ch.Index, err)
		}
		wire, parseErr = parseResponse(resp.Text)
		if parseErr == nil {
			break
		}
		e.logger().Warn("structured output failed to parse",
			"chunk", ch.Index,
			"attempt", attempt+1,
			"error", parseErr)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("%w: chunk %d: %v", ErrMalformedOutput, ch.Index, parseErr)
	}

	return e.validate(ch, wire.Mappings), nil
}

func (e *Extractor) buildPrompt(ch chunk.Chunk, rctx retrieve.Context) string {
	var sb strings.Builder
	sb.WriteString(fewShotExamples)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString(rctx.Text())
	sb.WriteString("\n---\n\nText to analyze:\n")
	sb.WriteString(ch.Text)
	return sb.String()
}

// validate applies the rejection policy to model output, producing
// per-chunk mappings that hold the package invariants.
func (e *Extractor) validate(ch chunk.Chunk, items []json.RawMessage) []Mapping {
	out := make([]Mapping, 0, len(items))
	for _, raw := range items {
		var item wireMapping
		if err := json.Unmarshal(raw, &item); err != nil {
			e.logger().Warn("rejected mapping that failed to decode",
				"chunk", ch.Index, "error", err)
			continue
		}
		id := strings.TrimSpace(item.TechniqueID)
		if !e.Catalog.Has(id) {
			e.logger().Warn("rejected mapping with unknown technique id",
				"chunk", ch.Index, "technique_id", item.TechniqueID)
			continue
		}
		conf, err := item.Confidence.Float64()
		if err != nil || conf < 0 || conf > 1 {
			e.logger().Warn("rejected mapping with invalid confidence",
				"chunk", ch.Index, "technique_id", id, "confidence", item.Confidence)
			continue
		}

		quotes, verified := verifyEvidence(ch, item.Evidence)
		if len(quotes) == 0 {
			e.logger().Warn("rejected mapping with no evidence",
				"chunk", ch.Index, "technique_id", id)
			continue
		}

		m := Mapping{
			TechniqueID: id,
			Confidence:  conf,
			Evidence:    quotes,
			Chunks:      []int{ch.Index},
		}
		if tech, err := e.Catalog.Get(id); err == nil {
			m.Name = tech.Name
		}
		if !verified {
			m.Unverified = true
			m.Confidence = unverifiedConfidence
			e.logger().Warn("evidence not found in chunk, mapping demoted",
				"chunk", ch.Index, "technique_id", id, "claimed_confidence", conf)
		}
		out = append(out, m)
	}
	return out
}

// verifyEvidence checks each quote against the chunk text under whitespace
// folding. When at least one quote verifies it returns only the verified
// quotes; when none do it returns every non-empty quote with verified=false
// so the caller can demote the mapping instead of dropping it.
func verifyEvidence(ch chunk.Chunk, evidence []string) ([]Quote, bool) {
	haystack := foldSpace(ch.Text)
	var located, all []Quote
	for _, raw := range evidence {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		q := Quote{Text: text, ChunkIndex: ch.Index}
		all = append(all, q)
		if strings.Contains(haystack, foldSpace(text)) {
			located = append(located, q)
		}
	}
	if len(located) > 0 {
		return located, true
	}
	return all, false
}

// foldSpace collapses all whitespace runs to single spaces.
func foldSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseResponse extracts and decodes the JSON object from raw model text.
func parseResponse(text string) (wireResponse, error) {
	raw, err := llm.ExtractJSON(text)
	if err != nil {
		return wireResponse{}, err
	}
	var wire wireResponse
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return wireResponse{}, err
	}
	return wire, nil
}

func (e *Extractor) maxTokens() int {
	if e.MaxTokens > 0 {
		return e.MaxTokens
	}
	return defaultMaxTokens
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
