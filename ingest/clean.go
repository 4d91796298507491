package ingest

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	// ErrEmptyContent indicates the input had no usable text.
	ErrEmptyContent = errors.New("ingest: empty content")

	// ErrContentTooShort indicates the input was below the minimum
	// character count for meaningful analysis.
	ErrContentTooShort = errors.New("ingest: content too short")
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
	spaceRunPattern  = regexp.MustCompile(`[ \t]+`)
	blankRunPattern  = regexp.MustCompile(`\n\s*\n\s*\n+`)
	boilerplatePatts = []*regexp.Regexp{
		regexp.MustCompile(`(?i)©\s*\d{4}.*?rights reserved`),
		regexp.MustCompile(`(?i)this document is.*?confidential`),
		regexp.MustCompile(`(?i)for internal use only`),
	}
)

// Clean decodes HTML entities, strips leftover tags and common boilerplate,
// and normalizes whitespace while preserving paragraph breaks.
func Clean(text string) string {
	text = html.UnescapeString(text)
	text = tagPattern.ReplaceAllString(text, " ")
	for _, p := range boilerplatePatts {
		text = p.ReplaceAllString(text, "")
	}
	text = spaceRunPattern.ReplaceAllString(text, " ")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Validate checks acquired text against a minimum character count. It
// returns a non-fatal warning for text that looks mis-encoded (over half
// non-ASCII), and an error for empty or too-short content.
func Validate(text string, minChars int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}
	if len(text) < minChars {
		return "", fmt.Errorf("%w: %d chars, need %d", ErrContentTooShort, len(text), minChars)
	}

	total, nonASCII := 0, 0
	for _, r := range text {
		total++
		if r > 127 {
			nonASCII++
		}
	}
	if nonASCII*2 > total {
		return "high percentage of non-ASCII characters, possible encoding issue", nil
	}
	return "", nil
}
