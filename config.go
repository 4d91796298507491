package attackmap

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file-based pipeline configuration. Zero values fall back to
// package defaults; functional options applied at construction override it.
type Config struct {
	// Concurrency bounds the chunk worker pool.
	Concurrency int `yaml:"concurrency"`

	// Retries is the retry count for failed capability calls.
	Retries int `yaml:"retries"`

	// MinConfidence is the aggregation-time confidence floor.
	MinConfidence float64 `yaml:"min_confidence"`

	// Tactics restricts retrieval to the named tactics. Empty means all.
	Tactics []string `yaml:"tactics"`

	// Chunking controls document splitting.
	Chunking ChunkingConfig `yaml:"chunking"`

	// Retrieval controls candidate retrieval.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Embedding selects the embedding capability.
	Embedding ProviderConfig `yaml:"embedding"`

	// LLM selects the structured-generation capability.
	LLM ProviderConfig `yaml:"llm"`

	// Catalog controls ATT&CK catalog acquisition.
	Catalog CatalogConfig `yaml:"catalog"`

	// Cache configures the optional Redis embedding cache.
	Cache CacheConfig `yaml:"cache"`

	// Postgres is the optional pgvector index DSN. Empty selects the
	// in-memory index.
	Postgres string `yaml:"postgres"`
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	MaxTokens     int `yaml:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
	MinChars      int `yaml:"min_chars"`
}

// RetrievalConfig controls candidate retrieval.
type RetrievalConfig struct {
	TopK              int     `yaml:"top_k"`
	SimilarityFloor   float64 `yaml:"similarity_floor"`
	SubtechniqueFloor float64 `yaml:"subtechnique_floor"`
}

// ProviderConfig selects one external capability provider.
type ProviderConfig struct {
	// Provider names the backend: "openai", "anthropic", or "ollama".
	Provider string `yaml:"provider"`

	// Model is the provider's model identifier. Empty uses the
	// provider's default.
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint, e.g. for a local Ollama.
	BaseURL string `yaml:"base_url"`
}

// CatalogConfig controls ATT&CK catalog acquisition.
type CatalogConfig struct {
	// URL is the STIX bundle URL. Empty uses the published
	// enterprise-attack bundle.
	URL string `yaml:"url"`

	// CachePath is where the downloaded bundle is kept.
	CachePath string `yaml:"cache_path"`
}

// CacheConfig configures the Redis embedding cache.
type CacheConfig struct {
	// URL is the Redis connection URL. Empty disables caching.
	URL string `yaml:"url"`

	// TTL is the cache entry lifetime. Zero means no expiry.
	TTL time.Duration `yaml:"ttl"`
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	const op = "attackmap.LoadConfig"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigurationError(op, fmt.Errorf("read %s: %w", path, err))
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewConfigurationError(op, fmt.Errorf("parse %s: %w", path, err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges on the numeric settings.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c.Concurrency < 0 {
		return NewConfigurationError(op, fmt.Errorf("%w: negative concurrency", ErrInvalidConfig))
	}
	if c.Retries < 0 {
		return NewConfigurationError(op, fmt.Errorf("%w: negative retries", ErrInvalidConfig))
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return NewConfigurationError(op, fmt.Errorf("%w: min_confidence outside [0, 1]", ErrInvalidConfig))
	}
	if c.Chunking.OverlapTokens < 0 || c.Chunking.MaxTokens < 0 {
		return NewConfigurationError(op, fmt.Errorf("%w: negative chunking limits", ErrInvalidConfig))
	}
	if c.Chunking.MaxTokens > 0 && c.Chunking.OverlapTokens >= c.Chunking.MaxTokens {
		return NewConfigurationError(op, fmt.Errorf("%w: overlap_tokens must be below max_tokens", ErrInvalidConfig))
	}
	return nil
}

// Options converts the file configuration into pipeline options.
func (c *Config) Options() []Option {
	var opts []Option
	if c.Concurrency > 0 {
		opts = append(opts, WithConcurrency(c.Concurrency))
	}
	if c.Retries > 0 {
		opts = append(opts, WithRetries(c.Retries))
	}
	if c.MinConfidence > 0 {
		opts = append(opts, WithMinConfidence(c.MinConfidence))
	}
	if len(c.Tactics) > 0 {
		opts = append(opts, WithTacticFilter(c.Tactics...))
	}
	return opts
}
