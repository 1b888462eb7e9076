package generator

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRetriesExhausted is returned once a rate-limited call has used up its retries.
	ErrRetriesExhausted = errors.New("rate limit retries exhausted")

	// ErrCancelled is returned when the caller's context ends a call or a backoff wait.
	ErrCancelled = errors.New("generation cancelled")

	// ErrInvalidConfig is returned for unusable client or pipeline configuration.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// RateLimitError is a retryable HTTP 429 response.
type RateLimitError struct {
	Status     int
	RetryAfter string
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter != "" {
		return fmt.Sprintf("llm rate limited (status %d, retry-after %q): %s", e.Status, e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("llm rate limited (status %d): %s", e.Status, e.Body)
}

// APIError is a non-retryable failure: any non-429 error status, or a
// transport failure when Status is zero.
type APIError struct {
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("llm transport error: %v", e.Err)
	}
	return fmt.Sprintf("llm upstream %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// SectionError names the section whose generation aborted a run.
type SectionError struct {
	Index int
	Title string
	Err   error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %d %q: %v", e.Index+1, e.Title, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }
