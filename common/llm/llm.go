package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
)

// Client is the model-call contract the pipeline depends on: structured
// prompt in, schema-conformant record out. Implementations never leak a
// vendor type past this boundary.
type Client interface {
	Chat(ctx context.Context, req Request, result any) (*Response, error)
	Model() string
}

// Request describes one structured completion.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

// Response carries usage accounting for a completed call.
type Response struct {
	PromptTokens     int
	CompletionTokens int
}

// Config holds LLM client configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// SchemaViolationError is returned when the model's raw output does not
// conform to the requested schema. The raw payload is preserved for
// diagnostics.
type SchemaViolationError struct {
	SchemaName string
	Raw        string
	Err        error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("model output violates schema %q: %v", e.SchemaName, e.Err)
}

func (e *SchemaViolationError) Unwrap() error {
	return e.Err
}

// GenerateSchema reflects a JSON schema from T for structured outputs.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// SchemaJSON renders a reflected schema to its JSON document, as needed by
// the output validator.
func SchemaJSON(schema any) ([]byte, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// Temp returns a pointer for inline temperature settings.
func Temp(t float64) *float64 {
	return &t
}

// IsRetryable reports whether a model-call failure is worth retrying.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "llm error not retryable: context cancelled or deadline exceeded")
		return false
	}

	var schemaErr *SchemaViolationError
	if errors.As(err, &schemaErr) {
		// Malformed output is a model problem, not a transport problem.
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			slog.WarnContext(ctx, "llm rate limited, will retry",
				"status_code", apiErr.StatusCode)
			return true
		case apiErr.StatusCode >= 500:
			slog.WarnContext(ctx, "llm server error, will retry",
				"status_code", apiErr.StatusCode)
			return true
		default:
			slog.ErrorContext(ctx, "llm client error, not retryable",
				"status_code", apiErr.StatusCode,
				"error_type", apiErr.Type,
				"error_code", apiErr.Code)
			return false
		}
	}

	// Network errors (no API response) are generally retryable
	slog.WarnContext(ctx, "llm network error, will retry", "error", err)
	return true
}
