package main

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/craftedsignal/attackmap"
)

// settings is the fully resolved run configuration, merged from flags,
// environment variables, and the optional YAML config file.
type settings struct {
	formats []string
	outDir  string

	llm       attackmap.ProviderConfig
	embedding attackmap.ProviderConfig

	minConfidence float64
	concurrency   int
	retries       int
	tactics       []string

	chunkMaxTokens     int
	chunkOverlapTokens int
	chunkMinChars      int

	topK              int
	similarityFloor   float64
	subtechniqueFloor float64

	stixURL       string
	stixCache     string
	attackVersion string

	redisURL string
	redisTTL time.Duration
	postgres string

	timeout time.Duration
	verbose bool
}

// resolveSettings merges the three configuration sources. Precedence, per
// setting: a flag set on the command line wins, then a non-zero config file
// value, then the ATTACKMAP_* environment or the flag default.
func resolveSettings(flags *pflag.FlagSet, v *viper.Viper) (*settings, error) {
	cfg := &attackmap.Config{}
	if path := v.GetString("config"); path != "" {
		loaded, err := attackmap.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	pickString := func(name, fromConfig string) string {
		if !flags.Changed(name) && fromConfig != "" {
			return fromConfig
		}
		return v.GetString(name)
	}
	pickInt := func(name string, fromConfig int) int {
		if !flags.Changed(name) && fromConfig != 0 {
			return fromConfig
		}
		return v.GetInt(name)
	}
	pickFloat := func(name string, fromConfig float64) float64 {
		if !flags.Changed(name) && fromConfig != 0 {
			return fromConfig
		}
		return v.GetFloat64(name)
	}
	pickDuration := func(name string, fromConfig time.Duration) time.Duration {
		if !flags.Changed(name) && fromConfig != 0 {
			return fromConfig
		}
		return v.GetDuration(name)
	}
	pickSlice := func(name string, fromConfig []string) []string {
		if !flags.Changed(name) && len(fromConfig) > 0 {
			return fromConfig
		}
		return v.GetStringSlice(name)
	}

	return &settings{
		formats: v.GetStringSlice("format"),
		outDir:  v.GetString("out-dir"),

		llm: attackmap.ProviderConfig{
			Provider: pickString("llm-provider", cfg.LLM.Provider),
			Model:    pickString("llm-model", cfg.LLM.Model),
			BaseURL:  pickString("llm-base-url", cfg.LLM.BaseURL),
		},
		embedding: attackmap.ProviderConfig{
			Provider: pickString("embed-provider", cfg.Embedding.Provider),
			Model:    pickString("embed-model", cfg.Embedding.Model),
			BaseURL:  pickString("embed-base-url", cfg.Embedding.BaseURL),
		},

		minConfidence: pickFloat("min-confidence", cfg.MinConfidence),
		concurrency:   pickInt("concurrency", cfg.Concurrency),
		retries:       pickInt("retries", cfg.Retries),
		tactics:       pickSlice("tactics", cfg.Tactics),

		chunkMaxTokens:     pickInt("chunk-max-tokens", cfg.Chunking.MaxTokens),
		chunkOverlapTokens: pickInt("chunk-overlap-tokens", cfg.Chunking.OverlapTokens),
		chunkMinChars:      pickInt("chunk-min-chars", cfg.Chunking.MinChars),

		topK:              pickInt("top-k", cfg.Retrieval.TopK),
		similarityFloor:   pickFloat("similarity-floor", cfg.Retrieval.SimilarityFloor),
		subtechniqueFloor: pickFloat("subtechnique-floor", cfg.Retrieval.SubtechniqueFloor),

		stixURL:       pickString("stix-url", cfg.Catalog.URL),
		stixCache:     pickString("stix-cache", cfg.Catalog.CachePath),
		attackVersion: v.GetString("attack-version"),

		redisURL: pickString("redis-url", cfg.Cache.URL),
		redisTTL: pickDuration("redis-ttl", cfg.Cache.TTL),
		postgres: pickString("postgres", cfg.Postgres),

		timeout: v.GetDuration("timeout"),
		verbose: v.GetBool("verbose"),
	}, nil
}

// options converts the resolved settings into pipeline options.
func (s *settings) options(extra ...attackmap.Option) []attackmap.Option {
	opts := append([]attackmap.Option{
		attackmap.WithConcurrency(s.concurrency),
		attackmap.WithRetries(s.retries),
		attackmap.WithMinConfidence(s.minConfidence),
	}, extra...)
	if len(s.tactics) > 0 {
		opts = append(opts, attackmap.WithTacticFilter(s.tactics...))
	}
	return opts
}
