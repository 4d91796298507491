package attackmap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/craftedsignal/attackmap/catalog"
	"github.com/craftedsignal/attackmap/chunk"
	"github.com/craftedsignal/attackmap/llm"
	"github.com/craftedsignal/attackmap/mapping"
	"github.com/craftedsignal/attackmap/retrieve"
	"github.com/craftedsignal/attackmap/vectorindex"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) Model() string { return "test/stub" }

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, vector []float32, k int, filter *vectorindex.Filter) ([]vectorindex.Match, error) {
	return []vectorindex.Match{
		{TechniqueID: "T1566.001", Score: 0.9},
		{TechniqueID: "T1053.005", Score: 0.7},
	}, nil
}

// stubGenerator answers per prompt content, counting calls.
type stubGenerator struct {
	respond func(prompt string) (string, error)
	calls   atomic.Int64
}

func (g *stubGenerator) Generate(ctx context.Context, req llm.GenerationRequest) (llm.GenerationResponse, error) {
	g.calls.Add(1)
	text, err := g.respond(req.Prompt)
	if err != nil {
		return llm.GenerationResponse{}, err
	}
	return llm.GenerationResponse{Text: text, Model: "test"}, nil
}

func (g *stubGenerator) Name() string { return "stub" }

func pipelineCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Technique{
		{ID: "T1566.001", Name: "Spearphishing Attachment", Tactics: []string{"initial-access"}, Description: "Attachments."},
		{ID: "T1053.005", Name: "Scheduled Task", Tactics: []string{"execution", "persistence"}, Description: "Tasks."},
	}, "18.1")
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return cat
}

func testChunks() []chunk.Chunk {
	return []chunk.Chunk{
		{Index: 0, Text: "The attackers sent phishing emails with malicious attachments."},
		{Index: 1, Text: "They established persistence using scheduled tasks."},
		{Index: 2, Text: "The group continued operations through the quarter."},
	}
}

// chunkPortion isolates the analyzed chunk's text from a prompt. The
// instruction preamble mentions technique behaviors itself, so stubs must
// never match against the full prompt.
func chunkPortion(prompt string) string {
	const marker = "Text to analyze:\n"
	if i := strings.LastIndex(prompt, marker); i >= 0 {
		return prompt[i+len(marker):]
	}
	return prompt
}

// phishingResponse answers with a mapping whose evidence quotes each
// chunk's own text so verification passes.
func phishingResponse(prompt string) (string, error) {
	switch text := chunkPortion(prompt); {
	case strings.Contains(text, "phishing emails"):
		return `{"mappings": [{"technique_id": "T1566.001", "confidence": 0.9, "evidence": ["phishing emails with malicious attachments"]}]}`, nil
	case strings.Contains(text, "scheduled tasks"):
		return `{"mappings": [{"technique_id": "T1053.005", "confidence": 0.85, "evidence": ["established persistence using scheduled tasks"]}]}`, nil
	default:
		return `{"mappings": []}`, nil
	}
}

func newTestPipeline(t *testing.T, gen llm.Generator, opts ...Option) *Pipeline {
	t.Helper()
	cat := pipelineCatalog(t)
	retriever := retrieve.NewRetriever(stubEmbedder{}, stubSearcher{}, cat)
	extractor := mapping.NewExtractor(gen, cat)
	extractor.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	p, err := New(retriever, extractor, cat, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestPipeline_MapDocument(t *testing.T) {
	gen := &stubGenerator{respond: phishingResponse}
	p := newTestPipeline(t, gen, WithConcurrency(2))

	result, err := p.MapDocument(context.Background(), testChunks())
	if err != nil {
		t.Fatalf("MapDocument() error = %v", err)
	}

	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if result.CatalogVersion != "18.1" {
		t.Errorf("CatalogVersion = %q, want 18.1", result.CatalogVersion)
	}
	if len(result.Mappings) != 2 {
		t.Fatalf("got %d mappings, want 2: %+v", len(result.Mappings), result.Mappings)
	}
	// Ordered by first tactic: execution before initial-access.
	if result.Mappings[0].TechniqueID != "T1053.005" || result.Mappings[1].TechniqueID != "T1566.001" {
		t.Errorf("mapping order = %v %v", result.Mappings[0].TechniqueID, result.Mappings[1].TechniqueID)
	}
	if result.Report.Succeeded != 3 || result.Report.Failed != 0 {
		t.Errorf("report = %+v", result.Report)
	}
	if len(result.Report.ChunkResults) != 3 {
		t.Errorf("chunk results = %+v", result.Report.ChunkResults)
	}
}

func TestPipeline_DeterministicAcrossConcurrency(t *testing.T) {
	for _, concurrency := range []int{1, 2, 8} {
		gen := &stubGenerator{respond: phishingResponse}
		p := newTestPipeline(t, gen, WithConcurrency(concurrency))

		result, err := p.MapDocument(context.Background(), testChunks())
		if err != nil {
			t.Fatalf("MapDocument() concurrency=%d error = %v", concurrency, err)
		}
		if len(result.Mappings) != 2 || result.Mappings[0].TechniqueID != "T1053.005" {
			t.Errorf("concurrency=%d mappings = %+v", concurrency, result.Mappings)
		}
	}
}

func TestPipeline_EmptyInput(t *testing.T) {
	p := newTestPipeline(t, &stubGenerator{respond: phishingResponse})

	if _, err := p.MapDocument(context.Background(), nil); !errors.Is(err, ErrNoChunks) {
		t.Errorf("MapDocument(nil) error = %v, want ErrNoChunks", err)
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	p := newTestPipeline(t, &stubGenerator{respond: phishingResponse})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.MapDocument(ctx, testChunks())
	if err == nil {
		t.Fatal("MapDocument() returned a result under a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want wrapped context.Canceled", err)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindTimeout {
		t.Errorf("error kind = %v, want %s", err, KindTimeout)
	}
}

func TestPipeline_AllChunksFailed(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (string, error) {
		return "", errors.New("provider down")
	}}
	p := newTestPipeline(t, gen, WithRetries(0))

	if _, err := p.MapDocument(context.Background(), testChunks()); !errors.Is(err, ErrAllChunksFailed) {
		t.Errorf("MapDocument() error = %v, want ErrAllChunksFailed", err)
	}
}

func TestPipeline_MalformedChunkSkippedNotFatal(t *testing.T) {
	gen := &stubGenerator{respond: func(prompt string) (string, error) {
		if strings.Contains(chunkPortion(prompt), "scheduled tasks") {
			return "not JSON at all", nil
		}
		return phishingResponse(prompt)
	}}
	p := newTestPipeline(t, gen, WithRetries(3))

	result, err := p.MapDocument(context.Background(), testChunks())
	if err != nil {
		t.Fatalf("MapDocument() error = %v, want skipped chunk to be non-fatal", err)
	}

	if result.Report.Failed != 1 || result.Report.Succeeded != 2 {
		t.Errorf("report = %+v", result.Report)
	}
	if len(result.Report.Warnings) != 1 || !strings.Contains(result.Report.Warnings[0], "chunk 1") {
		t.Errorf("warnings = %v", result.Report.Warnings)
	}
	if len(result.Mappings) != 1 || result.Mappings[0].TechniqueID != "T1566.001" {
		t.Errorf("mappings = %+v", result.Mappings)
	}
	// The extractor retries the parse once within a single attempt;
	// the pipeline must not retry the chunk again on top of that.
	if got := gen.calls.Load(); got != 4 {
		t.Errorf("generator calls = %d, want 4 (3 chunks + 1 parse retry)", got)
	}
}

func TestPipeline_NoMappings(t *testing.T) {
	gen := &stubGenerator{respond: func(string) (string, error) {
		return `{"mappings": []}`, nil
	}}
	p := newTestPipeline(t, gen)

	if _, err := p.MapDocument(context.Background(), testChunks()); !errors.Is(err, ErrNoMappings) {
		t.Errorf("MapDocument() error = %v, want ErrNoMappings", err)
	}
}

func TestPipeline_RetriesTransientFailure(t *testing.T) {
	var failed atomic.Bool
	gen := &stubGenerator{respond: func(prompt string) (string, error) {
		if failed.CompareAndSwap(false, true) {
			return "", errors.New("transient")
		}
		return phishingResponse(prompt)
	}}
	p := newTestPipeline(t, gen, WithConcurrency(1), WithRetries(2))

	result, err := p.MapDocument(context.Background(), testChunks())
	if err != nil {
		t.Fatalf("MapDocument() error = %v, want transient failure retried", err)
	}
	if result.Report.Failed != 0 {
		t.Errorf("report = %+v", result.Report)
	}
}

func TestNew_RequiresStages(t *testing.T) {
	cat := pipelineCatalog(t)
	retriever := retrieve.NewRetriever(stubEmbedder{}, stubSearcher{}, cat)
	extractor := mapping.NewExtractor(&stubGenerator{respond: phishingResponse}, cat)

	tests := []struct {
		name string
		err  error
	}{
		{"nil retriever", func() error { _, err := New(nil, extractor, cat); return err }()},
		{"nil extractor", func() error { _, err := New(retriever, nil, cat); return err }()},
		{"nil catalog", func() error { _, err := New(retriever, extractor, nil); return err }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", tt.err)
			}
		})
	}
}
