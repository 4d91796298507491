package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/craftedsignal/attackmap"
	"github.com/craftedsignal/attackmap/mapping"
)

// Format names accepted by Write and the CLI.
const (
	FormatJSON      = "json"
	FormatCSV       = "csv"
	FormatMarkdown  = "markdown"
	FormatNavigator = "navigator"
)

// Metadata describes the analyzed document and run settings for the
// serialized output.
type Metadata struct {
	// Source is the analyzed document's URL or path.
	Source string `json:"source"`

	// Title is the document title, when known.
	Title string `json:"title,omitempty"`

	// Provider names the generation backend used for extraction.
	Provider string `json:"provider,omitempty"`

	// MinConfidence is the confidence floor the run was aggregated with.
	MinConfidence float64 `json:"min_confidence"`
}

// Statistics summarizes a mapping set by confidence band.
type Statistics struct {
	Total          int `json:"total_techniques"`
	HighConfidence int `json:"high_confidence"`
	MedConfidence  int `json:"medium_confidence"`
	LowConfidence  int `json:"low_confidence"`
	TacticsCovered int `json:"tactics_covered"`
}

// Summarize computes band counts and tactic coverage for a mapping set.
func Summarize(mappings []mapping.Mapping) Statistics {
	stats := Statistics{Total: len(mappings)}
	tactics := make(map[string]struct{})
	for _, m := range mappings {
		switch mapping.Band(m.Confidence) {
		case mapping.BandHigh:
			stats.HighConfidence++
		case mapping.BandMedium:
			stats.MedConfidence++
		default:
			stats.LowConfidence++
		}
		for _, t := range m.Tactics {
			tactics[t] = struct{}{}
		}
	}
	stats.TacticsCovered = len(tactics)
	return stats
}

// Write serializes the result in the named format.
func Write(w io.Writer, format string, result *attackmap.Result, meta Metadata) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, result, meta)
	case FormatCSV:
		return WriteCSV(w, result.Mappings)
	case FormatMarkdown:
		return WriteMarkdown(w, result, meta)
	case FormatNavigator:
		return WriteNavigator(w, result, meta)
	default:
		return fmt.Errorf("output: unknown format %q", format)
	}
}

// Extension returns the file extension for a format name.
func Extension(format string) string {
	switch format {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	default:
		return "json"
	}
}

// Filename builds a timestamped output filename from the source name.
func Filename(source, format string, now time.Time) string {
	stem := "report"
	if base := filepath.Base(source); base != "." && base != string(filepath.Separator) {
		if s := strings.TrimSuffix(base, filepath.Ext(base)); s != "" {
			stem = s
		}
	}
	suffix := ""
	if format == FormatNavigator {
		suffix = "_navigator"
	}
	return fmt.Sprintf("attackmap_%s_%s%s.%s", stem, now.Format("20060102_150405"), suffix, Extension(format))
}

// joinEvidence flattens a mapping's quotes to one display string, capped at
// maxChars.
func joinEvidence(quotes []mapping.Quote, maxChars int) string {
	texts := make([]string, len(quotes))
	for i, q := range quotes {
		texts[i] = q.Text
	}
	joined := strings.Join(texts, "; ")
	if maxChars > 0 && len(joined) > maxChars {
		joined = joined[:maxChars-3] + "..."
	}
	return joined
}
