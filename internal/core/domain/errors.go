package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from the transport error taxonomy below.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTextTooLarge indicates ingest text exceeds MaxIngestTextBytes.
	ErrTextTooLarge = errors.New("text exceeds maximum size of 10MB")

	// ErrClientClosed indicates an operation on a closed client.
	ErrClientClosed = errors.New("client closed")

	// ErrIngestFailed indicates at least one ingestion job ended in an error state.
	ErrIngestFailed = errors.New("ingestion failed")
)

// ConnectionError indicates the service endpoint or function could not be reached.
type ConnectionError struct {
	Message   string
	RequestID string
	Err       error
}

func (e *ConnectionError) Error() string {
	return formatError("connection error", e.Message, e.RequestID, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError indicates a credential or permission failure. It is never retried.
type AuthError struct {
	Message   string
	RequestID string
	Err       error
}

func (e *AuthError) Error() string {
	return formatError("authentication error", e.Message, e.RequestID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError indicates the requested resource does not exist.
type NotFoundError struct {
	Message   string
	RequestID string
}

func (e *NotFoundError) Error() string {
	return formatError("not found", e.Message, e.RequestID, nil)
}

// APIError is a server-side or otherwise unclassified API failure.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
	Err        error
}

func (e *APIError) Error() string {
	return formatError(fmt.Sprintf("API error %d", e.StatusCode), e.Message, e.RequestID, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the status is worth retrying (429 or 5xx).
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ValidationError indicates bad configuration or input detected before work starts.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match validation failures.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *ValidationError) Unwrap() error { return e.Err }

// LoadError indicates text extraction failed for one file.
type LoadError struct {
	Path   string
	Loader string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Loader == "" {
		return fmt.Sprintf("load %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("load %s (%s): %v", e.Path, e.Loader, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func formatError(kind, msg, requestID string, cause error) string {
	s := kind
	if msg != "" {
		s += ": " + msg
	} else if cause != nil {
		s += ": " + cause.Error()
	}
	if requestID != "" {
		s += " (request_id: " + requestID + ")"
	}
	return s
}

// RequestIDOf returns the request identifier carried by err, if any.
func RequestIDOf(err error) string {
	var (
		connErr *ConnectionError
		authErr *AuthError
		nfErr   *NotFoundError
		apiErr  *APIError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.RequestID
	case errors.As(err, &nfErr):
		return nfErr.RequestID
	case errors.As(err, &authErr):
		return authErr.RequestID
	case errors.As(err, &connErr):
		return connErr.RequestID
	}
	return ""
}

// IsRetryable reports whether err belongs to a transient class:
// connection failures and API errors with status 429 or 5xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// ErrorKind returns a short label for err, used in summaries.
func ErrorKind(err error) string {
	var (
		connErr *ConnectionError
		authErr *AuthError
		nfErr   *NotFoundError
		apiErr  *APIError
		valErr  *ValidationError
		loadErr *LoadError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return "AuthError"
	case errors.As(err, &nfErr):
		return "NotFoundError"
	case errors.As(err, &apiErr):
		return "APIError"
	case errors.As(err, &connErr):
		return "ConnectionError"
	case errors.As(err, &valErr):
		return "ValidationError"
	case errors.As(err, &loadErr):
		return "LoadError"
	default:
		return "Error"
	}
}
