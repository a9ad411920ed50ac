package function

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// event is the HTTP-API v2 proxy event the API function expects.
type event struct {
	Version         string            `json:"version"`
	RouteKey        string            `json:"routeKey"`
	RawPath         string            `json:"rawPath"`
	RawQueryString  string            `json:"rawQueryString"`
	Headers         map[string]string `json:"headers"`
	QueryParameters map[string]string `json:"queryStringParameters,omitempty"`
	RequestContext  requestContext    `json:"requestContext"`
	Body            string            `json:"body,omitempty"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
}

type requestContext struct {
	HTTP      httpContext `json:"http"`
	RequestID string      `json:"requestId"`
	RouteKey  string      `json:"routeKey"`
	Stage     string      `json:"stage"`
}

type httpContext struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	Protocol  string `json:"protocol"`
	SourceIP  string `json:"sourceIp"`
	UserAgent string `json:"userAgent"`
}

// response is the proxy response returned by the API function.
type response struct {
	StatusCode      int               `json:"statusCode"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
}

// functionError is the payload of an unhandled exception inside the function.
type functionError struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// buildEvent encodes req as a proxy event.
func buildEvent(req domain.Request, requestID, userAgent string) ([]byte, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "GET"
	}
	routeKey := method + " " + req.Path

	ev := event{
		Version:        "2.0",
		RouteKey:       routeKey,
		RawPath:        req.Path,
		RawQueryString: req.Query.Encode(),
		Headers: map[string]string{
			"accept":       "application/json",
			"content-type": "application/json",
			"user-agent":   userAgent,
			"x-request-id": requestID,
		},
		RequestContext: requestContext{
			HTTP: httpContext{
				Method:    method,
				Path:      req.Path,
				Protocol:  "HTTP/1.1",
				SourceIP:  "127.0.0.1",
				UserAgent: userAgent,
			},
			RequestID: requestID,
			RouteKey:  routeKey,
			Stage:     "$default",
		},
	}

	if len(req.Query) > 0 {
		ev.QueryParameters = make(map[string]string, len(req.Query))
		for k, v := range req.Query {
			ev.QueryParameters[k] = strings.Join(v, ",")
		}
	}

	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		ev.Body = string(b)
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(err, "encode event")
	}
	return b, nil
}

// parseResponse decodes the proxy response and returns its status, body
// and headers. A payload that is not a proxy response is treated as a raw
// 200 body.
func parseResponse(payload []byte) (int, []byte, map[string]string, error) {
	var resp response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return 0, nil, nil, err
	}
	if resp.StatusCode == 0 {
		return 200, payload, nil, nil
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			return 0, nil, nil, errors.Wrap(err, "decode base64 body")
		}
		body = decoded
	}
	return resp.StatusCode, body, resp.Headers, nil
}

// headerValue looks up a header case-insensitively.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
