package attackmap

import (
	"errors"
	"fmt"
)

// Sentinel errors for common pipeline failure conditions. They can be
// matched with errors.Is().
var (
	// ErrNoChunks indicates MapDocument was called with no chunks.
	ErrNoChunks = errors.New("no chunks to process")

	// ErrNoMappings indicates that no chunk yielded a valid technique
	// mapping, so there was nothing to aggregate.
	ErrNoMappings = errors.New("no valid mappings extracted")

	// ErrAllChunksFailed indicates every chunk-level extraction attempt
	// failed, including retries.
	ErrAllChunksFailed = errors.New("all chunks failed")

	// ErrInvalidConfig indicates the provided configuration is invalid or
	// incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error kinds categorize errors by their type.
const (
	// KindInvalidInput represents errors in caller-supplied input.
	KindInvalidInput = "invalid_input"

	// KindCapability represents failures of an external capability call
	// (embedding, similarity search, generation).
	KindCapability = "capability"

	// KindValidation represents rejection of model output during
	// validation.
	KindValidation = "validation"

	// KindAggregation represents failures while merging per-chunk results.
	KindAggregation = "aggregation"

	// KindTimeout represents operation timeouts and cancellation.
	KindTimeout = "timeout"

	// KindConfiguration represents errors in pipeline configuration.
	KindConfiguration = "configuration"
)

// Error is a structured error wrapping an underlying cause with the
// operation that failed and the category of failure.
//
// Error supports unwrapping, so errors.Is() and errors.As() see through it.
type Error struct {
	// Op is the operation that failed (e.g., "Pipeline.MapDocument").
	Op string

	// Kind categorizes the error (e.g., KindCapability, KindValidation).
	Kind string

	// Err is the underlying error.
	Err error

	// Context carries optional debugging detail such as chunk indices or
	// technique ids.
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("attackmap: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("attackmap: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("attackmap: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind (and Op when the target sets one), or
// delegates to the underlying error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with the provided context merged
// in.
func (e *Error) WithContext(ctx map[string]any) *Error {
	clone := *e
	clone.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		clone.Context[k] = v
	}
	for k, v := range ctx {
		clone.Context[k] = v
	}
	return &clone
}

// NewInvalidInputError creates an *Error with KindInvalidInput.
func NewInvalidInputError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInvalidInput, Err: err}
}

// NewCapabilityError creates an *Error with KindCapability.
func NewCapabilityError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindCapability, Err: err}
}

// NewValidationError creates an *Error with KindValidation.
func NewValidationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

// NewAggregationError creates an *Error with KindAggregation.
func NewAggregationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindAggregation, Err: err}
}

// NewTimeoutError creates an *Error with KindTimeout.
func NewTimeoutError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindTimeout, Err: err}
}

// NewConfigurationError creates an *Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}
