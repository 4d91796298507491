package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// defaultFetchTimeout bounds a single page or PDF download.
const defaultFetchTimeout = 30 * time.Second

// userAgent identifies the fetcher to servers that reject anonymous
// clients.
const userAgent = "attackmap/1.0"

// skippedElements are HTML elements whose text never belongs to the
// article body.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"iframe":   true,
	"svg":      true,
}

// blockElements force a line break around their text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "table": true, "section": true,
	"article": true,
}

// FromURL fetches an HTML page and extracts its readable text. PDF URLs
// should go through FromPDFURL instead.
func FromURL(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ingest: build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	client := &http.Client{Timeout: defaultFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingest: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingest: fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ingest: parse %s: %w", url, err)
	}

	title, body := extractHTML(root)
	text := Clean(body)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text extracted from %s", ErrEmptyContent, url)
	}

	return &Document{
		Source:    url,
		Title:     title,
		Text:      text,
		Type:      InputWeb,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// extractHTML walks the parse tree collecting the title and body text,
// skipping navigation and script content and breaking lines at block
// elements.
func extractHTML(root *html.Node) (title, body string) {
	var sb strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if n.Data == "title" && title == "" {
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteByte('\n')
		}
	}
	walk(root)

	return title, sb.String()
}
