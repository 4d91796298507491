package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/craftedsignal/attackmap"
	"github.com/craftedsignal/attackmap/mapping"
)

// WriteMarkdown renders the result as a tactic-grouped Markdown report with
// a summary and per-technique evidence quotes.
func WriteMarkdown(w io.Writer, result *attackmap.Result, meta Metadata) error {
	var sb strings.Builder
	stats := Summarize(result.Mappings)
	groups := mapping.GroupByTactic(result.Mappings)

	sb.WriteString("# ATT&CK Mapping Report\n\n")
	sb.WriteString(fmt.Sprintf("**Source:** %s\n", orDefault(meta.Source, "unknown")))
	if meta.Title != "" {
		sb.WriteString(fmt.Sprintf("**Title:** %s\n", meta.Title))
	}
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", result.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("**ATT&CK Version:** %s\n", result.CatalogVersion))
	if meta.Provider != "" {
		sb.WriteString(fmt.Sprintf("**Provider:** %s\n", meta.Provider))
	}

	sb.WriteString("\n## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total Techniques:** %d\n", stats.Total))
	sb.WriteString(fmt.Sprintf("- **High Confidence (>=0.8):** %d\n", stats.HighConfidence))
	sb.WriteString(fmt.Sprintf("- **Medium Confidence (0.5-0.8):** %d\n", stats.MedConfidence))
	sb.WriteString(fmt.Sprintf("- **Tactics Covered:** %d\n", stats.TacticsCovered))
	sb.WriteString(fmt.Sprintf("- **Chunks Processed:** %d succeeded, %d failed\n",
		result.Report.Succeeded, result.Report.Failed))

	for _, group := range groups {
		sb.WriteString(fmt.Sprintf("\n---\n\n## %s\n\n", tacticDisplay(group.Tactic)))
		for _, m := range group.Mappings {
			sb.WriteString(fmt.Sprintf("### %s: %s\n\n", m.TechniqueID, m.Name))
			sb.WriteString(fmt.Sprintf("**Confidence:** %s (%.2f)", confidenceBar(m.Confidence), m.Confidence))
			if m.Unverified {
				sb.WriteString(" - unverified evidence")
			}
			sb.WriteString("\n\n**Evidence:**\n")
			for _, q := range m.Evidence {
				sb.WriteString(fmt.Sprintf("> %s (chunk %d)\n", q.Text, q.ChunkIndex))
			}
			sb.WriteString("\n")
		}
	}

	if len(result.Report.Warnings) > 0 {
		sb.WriteString("\n---\n\n## Warnings\n\n")
		for _, warning := range result.Report.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", warning))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// confidenceBar renders a ten-slot bar of filled and empty blocks.
func confidenceBar(confidence float64) string {
	filled := int(confidence * 10)
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

// tacticDisplay converts a kebab-case tactic name to title words.
func tacticDisplay(tactic string) string {
	if tactic == "" {
		return "Uncategorized"
	}
	words := strings.Split(tactic, "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
