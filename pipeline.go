package attackmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/craftedsignal/attackmap/catalog"
	"github.com/craftedsignal/attackmap/chunk"
	"github.com/craftedsignal/attackmap/mapping"
	"github.com/craftedsignal/attackmap/retrieve"
)

// Pipeline runs the chunk-level retrieve-extract loop and the final
// aggregation for a document. A Pipeline is safe for concurrent use; the
// catalog it holds is read-only after construction.
type Pipeline struct {
	retriever *retrieve.Retriever
	builder   *retrieve.ContextBuilder
	extractor *mapping.Extractor
	catalog   *catalog.Catalog
	cfg       pipelineConfig
}

// New assembles a pipeline from its stages. The retriever, extractor, and
// catalog are required.
func New(retriever *retrieve.Retriever, extractor *mapping.Extractor, cat *catalog.Catalog, opts ...Option) (*Pipeline, error) {
	const op = "attackmap.New"
	if retriever == nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: nil retriever", ErrInvalidConfig))
	}
	if extractor == nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: nil extractor", ErrInvalidConfig))
	}
	if cat == nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: nil catalog", ErrInvalidConfig))
	}

	cfg := defaultPipelineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Pipeline{
		retriever: retriever,
		builder:   retrieve.NewContextBuilder(),
		extractor: extractor,
		catalog:   cat,
		cfg:       cfg,
	}, nil
}

// MapDocument maps a document's chunks to an aggregated technique mapping
// set. Chunks are processed by a bounded worker pool; aggregation does not
// begin until every chunk attempt, including retries, has completed or
// definitively failed. Output ordering is deterministic and independent of
// completion order.
//
// A cancelled or timed-out context returns an error, never a silently
// truncated result. A single chunk failing is recorded in the report and is
// not fatal; MapDocument fails only when the input is empty, every chunk
// fails, or no chunk yields a valid mapping.
func (p *Pipeline) MapDocument(ctx context.Context, chunks []chunk.Chunk) (*Result, error) {
	const op = "Pipeline.MapDocument"
	if len(chunks) == 0 {
		return nil, NewInvalidInputError(op, ErrNoChunks)
	}

	if p.cfg.tracer != nil {
		var span trace.Span
		ctx, span = p.cfg.tracer.Start(ctx, "attackmap.MapDocument")
		defer span.End()
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := p.cfg.logger.With("run_id", runID)
	logger.Info("mapping document", "chunks", len(chunks), "concurrency", p.cfg.concurrency)

	perChunk := make([][]mapping.Mapping, len(chunks))
	chunkResults := make([]ChunkResult, len(chunks))

	sem := make(chan struct{}, p.cfg.concurrency)
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				chunkResults[i] = ChunkResult{Index: chunks[i].Index, Error: ctx.Err().Error()}
				return
			}
			perChunk[i], chunkResults[i] = p.processChunk(ctx, chunks[i], logger)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, NewTimeoutError(op, err)
	}

	report := buildReport(chunkResults, time.Since(start))
	if report.Failed == len(chunks) {
		return nil, NewCapabilityError(op, ErrAllChunksFailed).WithContext(map[string]any{
			"chunks": len(chunks),
		})
	}

	total := 0
	for _, ms := range perChunk {
		total += len(ms)
	}
	if total == 0 {
		return nil, NewAggregationError(op, ErrNoMappings)
	}

	final := mapping.Aggregate(perChunk, p.catalog, p.cfg.minConfidence)
	logger.Info("document mapped",
		"techniques", len(final),
		"chunks_succeeded", report.Succeeded,
		"chunks_failed", report.Failed,
		"duration", report.Duration)

	return &Result{
		RunID:          runID,
		GeneratedAt:    time.Now().UTC(),
		CatalogVersion: p.catalog.Version(),
		Mappings:       final,
		Report:         report,
	}, nil
}

// processChunk runs retrieve, context build, and extract for one chunk,
// retrying capability failures with exponential backoff. Malformed model
// output is not retried here; the extractor already retried once, and the
// chunk is skipped with a recorded warning.
func (p *Pipeline) processChunk(ctx context.Context, ch chunk.Chunk, logger *slog.Logger) ([]mapping.Mapping, ChunkResult) {
	if p.cfg.tracer != nil {
		var span trace.Span
		ctx, span = p.cfg.tracer.Start(ctx, "attackmap.processChunk")
		defer span.End()
	}

	result := ChunkResult{Index: ch.Index}
	var mapped []mapping.Mapping

	attempt := func() error {
		candidates, err := p.retriever.Retrieve(ctx, ch.Text, ch.Index, p.cfg.tactics)
		if err != nil {
			return err
		}
		result.Retrieved = len(candidates)

		rctx := p.builder.Build(candidates)
		ms, err := p.extractor.Extract(ctx, ch, rctx)
		if err != nil {
			if errors.Is(err, mapping.ErrMalformedOutput) {
				return backoff.Permanent(err)
			}
			return err
		}
		mapped = ms
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.cfg.retries)), ctx)
	notify := func(err error, wait time.Duration) {
		logger.Warn("chunk attempt failed, retrying", "chunk", ch.Index, "backoff", wait, "error", err)
	}

	if err := backoff.RetryNotify(attempt, bo, notify); err != nil {
		result.Error = err.Error()
		logger.Warn("chunk skipped", "chunk", ch.Index, "error", err)
		return nil, result
	}

	result.Mappings = len(mapped)
	return mapped, result
}

// buildReport derives the per-document report from per-chunk outcomes.
func buildReport(chunkResults []ChunkResult, elapsed time.Duration) Report {
	report := Report{ChunkResults: chunkResults, Duration: elapsed}
	for _, cr := range chunkResults {
		if cr.OK() {
			report.Succeeded++
			continue
		}
		report.Failed++
		report.Warnings = append(report.Warnings, fmt.Sprintf("chunk %d: %s", cr.Index, cr.Error))
	}
	return report
}
