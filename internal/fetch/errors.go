package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for fetch failures.
var (
	// ErrFetchExhausted is matched by errors returned after the last attempt failed.
	ErrFetchExhausted = errors.New("fetch exhausted")
	// ErrClientStatus is matched by non-retryable 4xx responses.
	ErrClientStatus = errors.New("client error status")
	// ErrInvalidJSON is returned when a 2xx body is not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON response")
)

// StatusError is an unexpected HTTP status from the upstream.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Is reports non-retryable 4xx responses as ErrClientStatus. 429 is retried
// and does not match.
func (e *StatusError) Is(target error) bool {
	return target == ErrClientStatus &&
		e.StatusCode >= 400 && e.StatusCode < 500 &&
		e.StatusCode != http.StatusTooManyRequests
}

// ExhaustedError wraps the cause of the final failed attempt.
type ExhaustedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("GET %s: %d attempts failed: %v", e.URL, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrFetchExhausted
}
