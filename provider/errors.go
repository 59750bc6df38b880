package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for provider operations.
var (
	// ErrUnknownProvider indicates the requested provider is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrAPIKeyMissing indicates the provider requires a credential
	// that was not supplied.
	ErrAPIKeyMissing = errors.New("API key not set or invalid")

	// ErrRateLimited indicates the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrOverloaded indicates the provider is temporarily overloaded.
	ErrOverloaded = errors.New("provider overloaded")

	// ErrUnavailable indicates the LLM service is unavailable.
	ErrUnavailable = errors.New("LLM service unavailable")

	// ErrTimeout indicates the request timed out.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidRequest indicates the request is malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSchemaValidation indicates structured output parsed as JSON but
	// failed schema validation.
	ErrSchemaValidation = errors.New("schema validation failed")

	// ErrMalformedOutput indicates structured output could not be parsed
	// as JSON at all, even after lenient extraction.
	ErrMalformedOutput = errors.New("malformed structured output")

	// ErrTruncatedOutput indicates structured output looks cut off
	// (unbalanced braces, missing closing bracket). Reported distinctly
	// from generic parse failures because the fix is a larger max_tokens,
	// not a different prompt.
	ErrTruncatedOutput = errors.New("structured output appears truncated")
)

// Error wraps provider errors with context.
type Error struct {
	Provider  string // Provider name ("anthropic", "ollama", etc.)
	Op        string // Operation that failed ("generateText", "generateObject")
	Err       error  // Underlying error
	Retryable bool   // Whether the error is likely transient
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new provider error.
func NewError(provider, op string, err error, retryable bool) *Error {
	return &Error{
		Provider:  provider,
		Op:        op,
		Err:       err,
		Retryable: retryable,
	}
}

// transientPhrases match provider error strings that indicate a transient
// condition when no explicit marker is available. Matching is
// case-insensitive substring matching on the error message.
var transientPhrases = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"overloaded",
	"overloaded_error",
	"service unavailable",
	"temporarily unavailable",
	"connection reset",
	"connection refused",
	"timeout",
	"timed out",
	"429",
	"503",
	"529",
}

// IsRetryable checks if an error is likely transient and worth retrying.
// An explicit Error.Retryable marker wins; otherwise the decision falls
// back to known sentinels and message pattern matching.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}

	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrOverloaded) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range transientPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// IsContentError checks if an error is a structured-output content failure
// (malformed JSON or schema violation). Content errors are retried by
// re-issuing the generation call: malformed structure is frequently
// non-deterministic across attempts.
func IsContentError(err error) bool {
	return errors.Is(err, ErrSchemaValidation) ||
		errors.Is(err, ErrMalformedOutput) ||
		errors.Is(err, ErrTruncatedOutput)
}

// IsAuthError checks if an error is credential-related.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAPIKeyMissing)
}
