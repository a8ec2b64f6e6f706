// ABOUTME: Error types for backend calls: HTTP-level failures and in-band backend error strings.
// ABOUTME: The backend reports most failures as HTTP 200 with a bare JSON string body.
package gateway

import (
	"errors"
	"fmt"
)

// APIError represents a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// BackendError is a failure the backend reported in-band.
type BackendError struct {
	Endpoint string
	Message  string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// Message extracts the human-readable part of a gateway error for notifications.
func Message(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
