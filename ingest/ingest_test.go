package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "entities decoded",
			in:   "attackers &amp; operators used &quot;living off the land&quot;",
			want: `attackers & operators used "living off the land"`,
		},
		{
			name: "tags stripped",
			in:   "<p>The <b>malware</b> persisted.</p>",
			want: "The malware persisted.",
		},
		{
			name: "whitespace normalized",
			in:   "spaced    out\ttext",
			want: "spaced out text",
		},
		{
			name: "boilerplate removed",
			in:   "Real content here. For Internal Use Only",
			want: "Real content here.",
		},
		{
			name: "paragraph breaks preserved",
			in:   "first paragraph\n\n\n\nsecond paragraph",
			want: "first paragraph\n\nsecond paragraph",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		minChars    int
		wantErr     error
		wantWarning bool
	}{
		{"valid", strings.Repeat("threat report text. ", 10), 100, nil, false},
		{"empty", "   ", 100, ErrEmptyContent, false},
		{"too short", "brief", 100, ErrContentTooShort, false},
		{"mostly non-ascii", strings.Repeat("éèê", 100), 10, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warning, err := Validate(tt.text, tt.minChars)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if (warning != "") != tt.wantWarning {
				t.Errorf("Validate() warning = %q, wantWarning %v", warning, tt.wantWarning)
			}
		})
	}
}

func TestDetectInputType(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "report.pdf")
	txtPath := filepath.Join(dir, "report.txt")
	for _, p := range []string{pdfPath, txtPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		input string
		want  InputType
	}{
		{"https://example.com/report", InputWeb},
		{"http://example.com/report.html", InputWeb},
		{"https://example.com/report.pdf", InputPDFURL},
		{"https://example.com/report.pdf?dl=1", InputPDFURL},
		{"https://example.com/REPORT.PDF#page=2", InputPDFURL},
		{pdfPath, InputPDF},
		{txtPath, InputText},
		{filepath.Join(dir, "missing.pdf"), InputUnknown},
		{dir, InputUnknown},
	}
	for _, tt := range tests {
		if got := DetectInputType(tt.input); got != tt.want {
			t.Errorf("DetectInputType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFromURL(t *testing.T) {
	const page = `<!DOCTYPE html>
<html>
<head><title>APT Campaign Analysis</title><style>body { color: red }</style></head>
<body>
<nav>Home | Blog | About</nav>
<article>
<h1>Campaign Overview</h1>
<p>The attackers sent spearphishing emails to targets.</p>
<script>analytics();</script>
<p>Persistence was established via scheduled tasks.</p>
</article>
<footer>Subscribe to our newsletter</footer>
</body>
</html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	doc, err := FromURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FromURL() error = %v", err)
	}

	if doc.Title != "APT Campaign Analysis" {
		t.Errorf("Title = %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "spearphishing emails") || !strings.Contains(doc.Text, "scheduled tasks") {
		t.Errorf("body text missing:\n%s", doc.Text)
	}
	for _, banned := range []string{"analytics()", "color: red", "Home | Blog", "newsletter"} {
		if strings.Contains(doc.Text, banned) {
			t.Errorf("text contains %q, want it stripped:\n%s", banned, doc.Text)
		}
	}
	if doc.Type != InputWeb || doc.Source != srv.URL {
		t.Errorf("doc metadata = %+v", doc)
	}
}

func TestFromURL_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := FromURL(context.Background(), srv.URL); err == nil {
		t.Error("FromURL() succeeded on a 404 response")
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("The   actor moved\tlaterally."), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	if doc.Text != "The actor moved laterally." {
		t.Errorf("Text = %q", doc.Text)
	}
	if doc.Type != InputText {
		t.Errorf("Type = %v", doc.Type)
	}
}

func TestContentText(t *testing.T) {
	content := []byte(`BT /F1 12 Tf (The attackers used) Tj (phishing \(targeted\)) Tj T* (emails.) Tj ET`)
	got := contentText(content)

	for _, want := range []string{"The attackers used", "phishing (targeted)", "emails."} {
		if !strings.Contains(got, want) {
			t.Errorf("contentText() = %q, missing %q", got, want)
		}
	}
}
