package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// RequestIDHeader carries the correlation identifier in both directions.
const RequestIDHeader = "X-Request-ID"

// maxMessageLen bounds error messages taken from raw response bodies.
const maxMessageLen = 500

// DecodePayload parses a JSON response body into an object.
// An empty body decodes to an empty object; a top-level array is
// returned under the "items" key.
func DecodePayload(body []byte) (map[string]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return map[string]any{}, nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case nil:
		return map[string]any{}, nil
	default:
		return map[string]any{"items": t}, nil
	}
}

// ExtractMessage returns the human readable message from an error payload,
// looking at message, error and detail in that order.
func ExtractMessage(payload map[string]any) string {
	for _, key := range []string{"message", "error", "detail"} {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if s != "" {
				return s
			}
			continue
		}
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
		return fmt.Sprint(v)
	}
	return ""
}

// ExtractRequestID prefers the identifier echoed in the payload over the header value.
func ExtractRequestID(payload map[string]any, header string) string {
	for _, key := range []string{"request_id", "requestId"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return header
}

// ErrorFromStatus maps a non-2xx response to the error taxonomy:
// 401/403 to AuthError, 404 to NotFoundError and anything else to APIError.
func ErrorFromStatus(status int, body []byte, requestID string) error {
	payload, err := DecodePayload(body)
	msg := ""
	if err == nil {
		msg = ExtractMessage(payload)
		requestID = ExtractRequestID(payload, requestID)
	} else {
		msg = truncate(strings.TrimSpace(string(body)), maxMessageLen)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.AuthError{Message: msg, RequestID: requestID}
	case status == http.StatusNotFound:
		return &domain.NotFoundError{Message: msg, RequestID: requestID}
	default:
		return &domain.APIError{StatusCode: status, Message: msg, RequestID: requestID}
	}
}

// NewOutcome builds the outcome for a response, or the classified error
// when the status is not 2xx.
func NewOutcome(status int, body []byte, requestID string) (*domain.Outcome, error) {
	if status < 200 || status > 299 {
		return nil, ErrorFromStatus(status, body, requestID)
	}

	payload, err := DecodePayload(body)
	if err != nil {
		return nil, &domain.APIError{
			StatusCode: status,
			Message:    "invalid JSON response",
			RequestID:  requestID,
			Err:        err,
		}
	}
	return &domain.Outcome{
		StatusCode: status,
		RequestID:  ExtractRequestID(payload, requestID),
		Payload:    payload,
	}, nil
}

// ParseRetryAfter reads a Retry-After value given in seconds or as an HTTP date.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
