package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// FromPDFURL downloads a PDF to a temporary file, extracts its text, and
// reports the original URL as the document source. The temporary file is
// removed before returning.
func FromPDFURL(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ingest: build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	client := &http.Client{Timeout: defaultFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingest: download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingest: download %s: unexpected status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "attackmap-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("ingest: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("ingest: save %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("ingest: close temp file: %w", err)
	}

	doc, err := FromPDF(tmp.Name())
	if err != nil {
		return nil, err
	}
	doc.Source = url
	doc.Type = InputPDFURL
	return doc, nil
}

// FromFile reads a local plain-text file.
func FromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	return &Document{
		Source:    path,
		Text:      Clean(string(data)),
		Type:      InputText,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Acquire detects the input type and dispatches to the matching reader.
func Acquire(ctx context.Context, input string) (*Document, error) {
	switch DetectInputType(input) {
	case InputWeb:
		return FromURL(ctx, input)
	case InputPDFURL:
		return FromPDFURL(ctx, input)
	case InputPDF:
		return FromPDF(input)
	case InputText:
		return FromFile(input)
	default:
		return nil, fmt.Errorf("ingest: cannot determine input type for %q, expected a URL or an existing file", input)
	}
}
