package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"betting-bff-go/services/backend"
)

// Envelope is the response shape every endpoint produces, success or failure.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// APIResponse handles consistent header setting and JSON envelope encoding.
type APIResponse struct {
	w           http.ResponseWriter
	r           *http.Request
	stats       statusRecorderStats
	cacheStatus string
}

type statusRecorderStats interface {
	RecordStatusCode(code int)
}

// Respond creates a response helper for a request
func Respond(w http.ResponseWriter, r *http.Request, stats statusRecorderStats) *APIResponse {
	return &APIResponse{w: w, r: r, stats: stats}
}

// SetCacheStatus sets the X-Cache-Status header value
func (a *APIResponse) SetCacheStatus(status string) *APIResponse {
	a.cacheStatus = status
	return a
}

func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")
	if a.cacheStatus != "" {
		a.w.Header().Set("X-Cache-Status", a.cacheStatus)
	}
}

// Success writes a 200 success envelope
func (a *APIResponse) Success(message string, data interface{}) {
	a.writeHeaders()
	if a.stats != nil {
		a.stats.RecordStatusCode(http.StatusOK)
	}
	json.NewEncoder(a.w).Encode(Envelope{
		Success:   true,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

// Failure writes a failure envelope with the given status and error code
func (a *APIResponse) Failure(statusCode int, errorCode, message string, details interface{}) {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	if a.stats != nil {
		a.stats.RecordStatusCode(statusCode)
	}
	json.NewEncoder(a.w).Encode(Envelope{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC(),
		ErrorCode: errorCode,
		Details:   details,
	})
}

// FromError maps a backend error to the right failure envelope. Upstream
// status and body pass through untouched; local validation rejects with 400;
// unreachable upstream maps to 503, or 504 on deadline.
func (a *APIResponse) FromError(err error) {
	var validation *backend.ValidationError
	if errors.As(err, &validation) {
		a.Failure(http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", validation.Errors)
		return
	}

	var upstream *backend.UpstreamError
	if errors.As(err, &upstream) {
		var details interface{}
		if len(upstream.Body) > 0 && json.Valid(upstream.Body) {
			details = json.RawMessage(upstream.Body)
		}
		a.Failure(upstream.StatusCode, "UPSTREAM_ERROR", upstream.Error(), details)
		return
	}

	var unavailable *backend.BackendUnavailableError
	if errors.As(err, &unavailable) {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		a.Failure(status, "BACKEND_UNAVAILABLE", "The betting service is temporarily unavailable", nil)
		return
	}

	a.Failure(http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}
