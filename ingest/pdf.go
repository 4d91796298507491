package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// FromPDF extracts text from a local PDF file.
//
// Extraction reads each page's content stream and decodes the text shown by
// Tj/TJ operators. Simple encodings decode cleanly; reports produced with
// CID-keyed fonts may come out garbled, which the caller's Validate pass
// flags.
func FromPDF(path string) (*Document, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read pdf %s: %w", path, err)
	}

	var sb strings.Builder
	for page := 1; page <= ctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("ingest: extract page %d of %s: %w", page, path, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("ingest: read page %d of %s: %w", page, path, err)
		}
		sb.WriteString(contentText(content))
		sb.WriteByte('\n')
	}

	text := Clean(sb.String())
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return &Document{
		Source:    path,
		Title:     title,
		Text:      text,
		Type:      InputPDF,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// contentText pulls shown text out of a decoded content stream. Literal
// strings ahead of Tj/TJ/'/" operators carry the page text; Td, TD, and T*
// moves become line breaks.
func contentText(content []byte) string {
	var sb strings.Builder
	i := 0
	for i < len(content) {
		switch content[i] {
		case '(':
			s, next := literalString(content, i)
			sb.WriteString(s)
			i = next
		case '<':
			if i+1 < len(content) && content[i+1] == '<' {
				i += 2
				continue
			}
			i = skipHexString(content, i)
		case 'T':
			if i+1 < len(content) {
				switch content[i+1] {
				case '*', 'd', 'D':
					sb.WriteByte('\n')
				case 'j', 'J':
					sb.WriteByte(' ')
				}
			}
			i++
		default:
			i++
		}
	}
	return sb.String()
}

// literalString decodes one PDF literal string starting at the opening
// parenthesis, returning the text and the index past the closing
// parenthesis.
func literalString(content []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 0
	i := start
	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			if i+1 < len(content) {
				switch content[i+1] {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case '(', ')', '\\':
					sb.WriteByte(content[i+1])
				}
				i += 2
				continue
			}
			i++
		case '(':
			depth++
			if depth > 1 {
				sb.WriteByte(c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), i
}

// skipHexString returns the index past a hex string's closing bracket.
func skipHexString(content []byte, start int) int {
	for i := start + 1; i < len(content); i++ {
		if content[i] == '>' {
			return i + 1
		}
	}
	return len(content)
}
