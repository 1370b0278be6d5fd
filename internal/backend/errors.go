// LeadDesk - CRM Dashboard Data Layer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leaddesk

package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingToken is returned when the session has no bearer token.
	ErrMissingToken = errors.New("no session token available")

	// ErrNetwork wraps transport failures (DNS, refused, reset, timeout).
	ErrNetwork = errors.New("network request failed")

	// ErrUnsuccessful is returned when a mutation envelope reports success=false.
	ErrUnsuccessful = errors.New("backend reported an unsuccessful operation")

	// ErrDecode is returned when a response body does not match the envelope.
	ErrDecode = errors.New("failed to decode backend response")

	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("backend circuit breaker is open")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s failed with status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Temporary reports whether the failure is the backend's (5xx, 429) rather
// than the request's.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// StatusCode extracts the HTTP status from an *APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// UnsuccessfulError carries the backend's message for a success=false envelope.
type UnsuccessfulError struct {
	Message string
}

func (e *UnsuccessfulError) Error() string {
	if e.Message == "" {
		return ErrUnsuccessful.Error()
	}
	return ErrUnsuccessful.Error() + ": " + e.Message
}

// Unwrap lets errors.Is(err, ErrUnsuccessful) match.
func (e *UnsuccessfulError) Unwrap() error { return ErrUnsuccessful }
