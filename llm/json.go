package llm

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned when no JSON object can be located in a response.
var ErrNoJSON = errors.New("llm: no JSON object in response")

// ExtractJSON locates the JSON object in raw model output. Models frequently
// wrap JSON in markdown code fences or surround it with prose; this strips a
// leading fence when present and otherwise takes the span from the first '{'
// to the matching final '}'.
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)

	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		// Skip a language tag such as "json" on the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}
