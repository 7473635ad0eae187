package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BackendUnavailableError indicates the upstream API could not be reached:
// network failure or timeout after retry exhaustion, or a circuit breaker
// blocking the call. The failure is retryable and leaves cache state intact.
type BackendUnavailableError struct {
	Op  string
	Err error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable during %s: %v", e.Op, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// UpstreamError indicates the upstream API answered with a non-2xx status.
// The original status and body are preserved for the caller to pass through.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d during %s", e.StatusCode, e.Op)
}

// ValidationError indicates the request failed local validation and was
// rejected before any upstream call was attempted.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}
