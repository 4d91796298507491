package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// InputType classifies an input string.
type InputType string

const (
	// InputWeb is an HTTP or HTTPS URL to an HTML page.
	InputWeb InputType = "web"

	// InputPDF is a path to a local PDF file.
	InputPDF InputType = "pdf"

	// InputPDFURL is an HTTP or HTTPS URL ending in .pdf.
	InputPDFURL InputType = "pdf_url"

	// InputText is a path to a local plain-text file.
	InputText InputType = "text"

	// InputUnknown is an input that could not be classified.
	InputUnknown InputType = "unknown"
)

// String returns the type's string form.
func (t InputType) String() string {
	return string(t)
}

// IsValid reports whether the type is a known, usable classification.
func (t InputType) IsValid() bool {
	switch t {
	case InputWeb, InputPDF, InputPDFURL, InputText:
		return true
	}
	return false
}

// DetectInputType classifies an input string as a web URL, a PDF URL, a
// local PDF, or a local text file.
func DetectInputType(input string) InputType {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		// Strip query and fragment before checking the extension.
		path := input
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		if strings.HasSuffix(strings.ToLower(path), ".pdf") {
			return InputPDFURL
		}
		return InputWeb
	}

	info, err := os.Stat(input)
	if err != nil || info.IsDir() {
		return InputUnknown
	}
	if strings.EqualFold(filepath.Ext(input), ".pdf") {
		return InputPDF
	}
	return InputText
}

// Document is acquired report text plus source metadata.
type Document struct {
	// Source is the originating URL or file path.
	Source string `json:"source"`

	// Title is the document title when one could be extracted.
	Title string `json:"title,omitempty"`

	// Text is the cleaned document text.
	Text string `json:"text"`

	// Type is the detected input type.
	Type InputType `json:"type"`

	// FetchedAt is when the document was acquired.
	FetchedAt time.Time `json:"fetched_at"`
}
