package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/craftedsignal/attackmap"
	"github.com/craftedsignal/attackmap/catalog"
	"github.com/craftedsignal/attackmap/chunk"
	"github.com/craftedsignal/attackmap/embed"
	"github.com/craftedsignal/attackmap/ingest"
	"github.com/craftedsignal/attackmap/llm"
	"github.com/craftedsignal/attackmap/mapping"
	"github.com/craftedsignal/attackmap/output"
	"github.com/craftedsignal/attackmap/retrieve"
	"github.com/craftedsignal/attackmap/vectorindex"
)

const envPrefix = "ATTACKMAP"

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "attackmap <url-or-file>",
		Short: "Map a threat-intelligence report to MITRE ATT&CK techniques",
		Long: `attackmap splits a report into chunks, retrieves candidate ATT&CK
techniques per chunk with embeddings, extracts validated technique mappings
with an LLM, and aggregates them into one confidence-ranked result.

Input may be an article URL, a PDF URL, a local PDF, or a text file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			v.SetEnvPrefix(envPrefix)
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			return v.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd.Flags(), v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), s, args[0])
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "path to YAML config file")
	flags.StringSlice("format", []string{output.FormatJSON}, "output formats: json, csv, markdown, navigator")
	flags.String("out-dir", ".", "directory for output files")
	flags.String("llm-provider", "openai", "generation backend: openai, anthropic, ollama")
	flags.String("llm-model", "", "generation model (provider default when empty)")
	flags.String("llm-base-url", "", "generation endpoint override")
	flags.String("embed-provider", "openai", "embedding backend: openai, ollama")
	flags.String("embed-model", "", "embedding model (provider default when empty)")
	flags.String("embed-base-url", "", "embedding endpoint override")
	flags.Float64("min-confidence", attackmap.DefaultMinConfidence, "drop merged mappings below this confidence")
	flags.Int("concurrency", attackmap.DefaultConcurrency, "chunk workers processed in parallel")
	flags.Int("retries", attackmap.DefaultRetries, "retries per failed capability call")
	flags.StringSlice("tactics", nil, "restrict retrieval to these tactic names")
	flags.Int("chunk-max-tokens", chunk.DefaultMaxTokens, "maximum tokens per chunk")
	flags.Int("chunk-overlap-tokens", chunk.DefaultOverlapTokens, "token overlap between chunks")
	flags.Int("chunk-min-chars", chunk.DefaultMinChars, "minimum usable document length in characters")
	flags.Int("top-k", retrieve.DefaultTopK, "candidate techniques retrieved per chunk")
	flags.Float64("similarity-floor", retrieve.DefaultSimilarityFloor, "minimum similarity for retrieved techniques")
	flags.Float64("subtechnique-floor", retrieve.DefaultSubtechniqueFloor, "minimum similarity for retrieved sub-techniques")
	flags.String("stix-url", catalog.DefaultSTIXURL, "ATT&CK STIX bundle URL")
	flags.String("attack-version", "18.1", "ATT&CK framework version label")
	flags.String("stix-cache", defaultSTIXCache(), "local cache path for the STIX bundle")
	flags.String("redis-url", "", "Redis URL for the embedding cache (empty disables)")
	flags.Duration("redis-ttl", 7*24*time.Hour, "embedding cache TTL")
	flags.String("postgres", "", "pgvector DSN for a persistent technique index (empty uses in-memory)")
	flags.Duration("timeout", 15*time.Minute, "overall run timeout")
	flags.Bool("verbose", false, "debug logging")

	return cmd
}

func defaultSTIXCache() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "enterprise-attack.json"
	}
	return filepath.Join(dir, "attackmap", "enterprise-attack.json")
}

func run(ctx context.Context, s *settings, input string) error {
	logger := newLogger(s.verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	chunker := chunk.NewChunker()
	chunker.MaxTokens = s.chunkMaxTokens
	chunker.OverlapTokens = s.chunkOverlapTokens
	chunker.MinChars = s.chunkMinChars

	logger.Info("acquiring document", "input", input)
	doc, err := ingest.Acquire(ctx, input)
	if err != nil {
		return err
	}
	if warning, err := ingest.Validate(doc.Text, chunker.MinChars); err != nil {
		return err
	} else if warning != "" {
		logger.Warn("document quality", "warning", warning)
	}

	logger.Info("loading ATT&CK catalog", "url", s.stixURL)
	fetcher := &catalog.Fetcher{URL: s.stixURL, CachePath: s.stixCache}
	cat, err := fetcher.Fetch(ctx, s.attackVersion, false)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "techniques", cat.Len(), "version", cat.Version())

	embedder, closeCache, err := buildEmbedder(s, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	index, closeIndex, err := buildIndex(ctx, s, cat, embedder, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	generator, err := llm.NewGenerator(s.llm.Provider, s.llm.Model, s.llm.BaseURL)
	if err != nil {
		return err
	}

	retriever := retrieve.NewRetriever(embedder, index, cat)
	retriever.TopK = s.topK
	retriever.SimilarityFloor = s.similarityFloor
	retriever.SubtechniqueFloor = s.subtechniqueFloor

	extractor := mapping.NewExtractor(generator, cat)
	extractor.Logger = logger

	pipeline, err := attackmap.New(retriever, extractor, cat, s.options(attackmap.WithLogger(logger))...)
	if err != nil {
		return err
	}

	chunks, err := chunker.Split(doc.Source, doc.Text)
	if err != nil {
		return err
	}
	logger.Info("document chunked", "chunks", len(chunks))

	result, err := pipeline.MapDocument(ctx, chunks)
	if err != nil {
		return err
	}

	meta := output.Metadata{
		Source:        doc.Source,
		Title:         doc.Title,
		Provider:      generator.Name(),
		MinConfidence: s.minConfidence,
	}
	return writeOutputs(s, result, meta)
}

func buildEmbedder(s *settings, logger *slog.Logger) (embed.Embedder, func(), error) {
	var embedder embed.Embedder
	switch s.embedding.Provider {
	case "openai":
		embedder = embed.NewOpenAIEmbedder("", s.embedding.Model)
	case "ollama":
		embedder = embed.NewOllamaEmbedder(s.embedding.BaseURL, s.embedding.Model)
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", s.embedding.Provider)
	}

	if s.redisURL == "" {
		return embedder, func() {}, nil
	}

	cache, err := embed.NewCache(embedder, embed.CacheOptions{
		URL:    s.redisURL,
		TTL:    s.redisTTL,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return cache, func() { cache.Close() }, nil
}

// buildIndex selects the vector index. With a Postgres DSN the technique
// embeddings persist across runs, so a table that already covers the catalog
// skips re-embedding it.
func buildIndex(ctx context.Context, s *settings, cat *catalog.Catalog, embedder embed.Embedder, logger *slog.Logger) (vectorindex.Searcher, func(), error) {
	if s.postgres == "" {
		index := vectorindex.NewMemoryIndex()
		if err := vectorindex.Populate(ctx, index, cat, embedder, logger); err != nil {
			return nil, nil, err
		}
		return index, func() {}, nil
	}

	index, err := vectorindex.NewPgxIndex(ctx, s.postgres, "")
	if err != nil {
		return nil, nil, err
	}

	vec, err := embedder.Embed(ctx, "dimension check")
	if err != nil {
		index.Close()
		return nil, nil, fmt.Errorf("determine embedding dimension: %w", err)
	}
	if err := index.EnsureSchema(ctx, len(vec)); err != nil {
		index.Close()
		return nil, nil, err
	}

	n, err := index.Count(ctx)
	if err != nil {
		index.Close()
		return nil, nil, err
	}
	if n >= cat.Len() {
		logger.Info("reusing persistent vector index", "techniques", n)
		return index, index.Close, nil
	}
	if err := vectorindex.Populate(ctx, index, cat, embedder, logger); err != nil {
		index.Close()
		return nil, nil, err
	}
	return index, index.Close, nil
}

func writeOutputs(s *settings, result *attackmap.Result, meta output.Metadata) error {
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", s.outDir, err)
	}

	now := time.Now()
	for _, format := range s.formats {
		path := filepath.Join(s.outDir, output.Filename(meta.Source, format, now))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := output.Write(f, format, result, meta); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		slog.Info("wrote output", "format", format, "path", path)
	}
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
