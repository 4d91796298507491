package attackmap

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Pipeline defaults.
const (
	// DefaultConcurrency is the bounded worker pool size for per-chunk
	// processing. Sized conservatively for external API rate limits.
	DefaultConcurrency = 4

	// DefaultRetries is the number of retries for a failed capability
	// call, on top of the initial attempt.
	DefaultRetries = 2

	// DefaultMinConfidence is the aggregation-time confidence floor.
	DefaultMinConfidence = 0.5
)

// Option configures a Pipeline.
type Option func(*pipelineConfig)

// pipelineConfig holds configuration for a Pipeline instance.
type pipelineConfig struct {
	logger        *slog.Logger
	tracer        trace.Tracer
	concurrency   int
	retries       int
	minConfidence float64
	tactics       []string
}

func defaultPipelineConfig() pipelineConfig {
	return pipelineConfig{
		logger:        slog.Default(),
		concurrency:   DefaultConcurrency,
		retries:       DefaultRetries,
		minConfidence: DefaultMinConfidence,
	}
}

// WithLogger sets a custom logger for the pipeline. If not provided,
// slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *pipelineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets an OpenTelemetry tracer. Each MapDocument call and each
// chunk's processing is recorded as a span.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *pipelineConfig) {
		c.tracer = tracer
	}
}

// WithConcurrency bounds the number of chunks processed in parallel.
// Values below one fall back to serial processing.
func WithConcurrency(n int) Option {
	return func(c *pipelineConfig) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithRetries sets the number of retries for failed capability calls, on
// top of the initial attempt. Zero disables retrying.
func WithRetries(n int) Option {
	return func(c *pipelineConfig) {
		if n < 0 {
			n = 0
		}
		c.retries = n
	}
}

// WithMinConfidence sets the aggregation-time confidence floor. Mappings
// below it are dropped after merging, never before.
func WithMinConfidence(min float64) Option {
	return func(c *pipelineConfig) {
		c.minConfidence = min
	}
}

// WithTacticFilter restricts retrieval to techniques belonging to the named
// tactics. An empty list means no restriction.
func WithTacticFilter(tactics ...string) Option {
	return func(c *pipelineConfig) {
		c.tactics = tactics
	}
}
