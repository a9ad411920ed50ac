package domain

import (
	"net/url"
	"strings"
)

// Request is a transport-neutral API call.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE).
	Method string

	// Path is the API path, starting with a slash.
	Path string

	// Query holds query string parameters.
	Query url.Values

	// Body is JSON-encoded when non-nil.
	Body any
}

// RouteKey returns the "METHOD /path" key used by the function envelope.
func (r Request) RouteKey() string {
	return strings.ToUpper(r.Method) + " " + r.Path
}

// Outcome is the result of one successful transport call.
type Outcome struct {
	StatusCode int

	// RequestID correlates the call with server-side logs. May be empty.
	RequestID string

	// Payload is the decoded JSON body. Never nil on success.
	Payload map[string]any
}

// Result is an opaque JSON object returned by the service.
type Result map[string]any

// String returns the string value at key, or "".
func (r Result) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the numeric value at key as an int, or 0.
func (r Result) Int(key string) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the boolean value at key, or false.
func (r Result) Bool(key string) bool {
	v, _ := r[key].(bool)
	return v
}

// Objects returns the list of objects at key. Non-object entries are dropped.
func (r Result) Objects(key string) []Result {
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Result, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Result(m))
		}
	}
	return out
}

// Object returns the nested object at key, or nil.
func (r Result) Object(key string) Result {
	if m, ok := r[key].(map[string]any); ok {
		return Result(m)
	}
	return nil
}

// DocumentID returns the document identifier of an ingest or upload result.
// The service has used both doc_id and document_id.
func (r Result) DocumentID() string {
	if id := r.String("doc_id"); id != "" {
		return id
	}
	return r.String("document_id")
}
