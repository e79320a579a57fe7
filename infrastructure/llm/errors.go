package llm

import (
	"errors"
	"fmt"
)

// Common errors returned by the client and providers.
var (
	// ErrEmptyAPIKey indicates an API key was required but not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrEmptyResponse indicates the provider returned an empty body.
	ErrEmptyResponse = errors.New("empty response from API")

	// ErrNoResponseChoice indicates the provider's response contained no
	// usable choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
)

// ProviderError normalizes provider-specific failures into a common
// shape with the HTTP status when one was available.
type ProviderError struct {
	// Provider names the backend that produced the error.
	Provider string

	// StatusCode holds the HTTP status from the provider, if any.
	StatusCode int

	// Message is the provider's error message.
	Message string

	// Err is the original underlying error.
	Err error
}

// Error implements the error interface for ProviderError.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: rate limiting or
// a provider-side server error.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
