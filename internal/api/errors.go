// Package api provides a typed HTTP client for the EduMentor backend
// with automatic retry, error classification, and a realtime event stream.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, api.ErrUnauthorized) to check.
var (
	// ErrValidation covers 400 and 422: the request was understood but
	// rejected (duplicate email, malformed field, bad enum value).
	ErrValidation   = errors.New("api: validation rejected")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrConflict     = errors.New("api: conflict")
	ErrThrottled    = errors.New("api: throttled")
	ErrServer       = errors.New("api: server error")
)

// APIError wraps a sentinel error with HTTP status code, the client-side
// request ID, and the backend's detail message for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Detail     string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Detail)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServer
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsUnavailable reports whether err indicates the backend could not serve
// the request at all: a transport-level failure (no HTTP response) or a
// server-side outage class (5xx, throttled). Callers use this to fall back
// to cached data instead of failing hard.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrServer) || errors.Is(err, ErrThrottled) {
		return true
	}

	var apiErr *APIError

	return !errors.As(err, &apiErr)
}

// detailPayload mirrors FastAPI's error body. Detail is a plain string for
// HTTPException errors and a list of field errors for request validation.
type detailPayload struct {
	Detail json.RawMessage `json:"detail"`
}

// fieldError is one entry of a FastAPI request-validation error list.
type fieldError struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseDetail extracts a human-readable message from a FastAPI error body.
// Falls back to the raw body when the shape is unexpected.
func parseDetail(body []byte) string {
	var payload detailPayload
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var fields []fieldError
	if err := json.Unmarshal(payload.Detail, &fields); err == nil && len(fields) > 0 {
		msgs := make([]string, 0, len(fields))

		for _, f := range fields {
			loc := ""
			if n := len(f.Loc); n > 0 {
				loc = fmt.Sprintf("%v: ", f.Loc[n-1])
			}

			msgs = append(msgs, loc+f.Msg)
		}

		return strings.Join(msgs, "; ")
	}

	return strings.TrimSpace(string(body))
}
