// Package rest implements the HTTP transport for the Stache REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/custodia-labs/stache-cli/internal/adapters/driven/transport"
	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 64 << 20

// Verify interface compliance.
var _ driven.Transport = (*Transport)(nil)

// Options configures the HTTP transport.
type Options struct {
	// BaseURL is the API root, e.g. https://stache.example.com.
	BaseURL string

	// Timeout bounds a single request. Zero means domain.DefaultTimeout.
	Timeout time.Duration

	// Tokens supplies bearer tokens. Nil sends unauthenticated requests.
	Tokens driven.TokenSource

	// Limiter throttles requests. May be nil.
	Limiter *transport.RateLimiter

	// UserAgent is sent with every request.
	UserAgent string

	// HTTPClient overrides the default client. Useful for testing. When nil,
	// the transport owns a private connection pool.
	HTTPClient *http.Client
}

// Transport sends requests to the REST API over HTTP.
type Transport struct {
	base      *url.URL
	timeout   time.Duration
	tokens    driven.TokenSource
	limiter   *transport.RateLimiter
	userAgent string
	client    *http.Client
	newID     func() string
}

// New creates an HTTP transport.
func New(opts Options) (*Transport, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &domain.ValidationError{Field: "api_url", Message: "must be an absolute http(s) URL"}
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, &domain.ValidationError{Field: "api_url", Message: "scheme must be http or https"}
	}

	t := &Transport{
		base:      base,
		timeout:   opts.Timeout,
		tokens:    opts.Tokens,
		limiter:   opts.Limiter,
		userAgent: opts.UserAgent,
		client:    opts.HTTPClient,
		newID:     uuid.NewString,
	}
	if t.timeout <= 0 {
		t.timeout = domain.DefaultTimeout
	}
	if t.client == nil {
		t.client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	if t.userAgent == "" {
		t.userAgent = "stache-cli"
	}
	return t, nil
}

// Kind returns domain.TransportHTTP.
func (t *Transport) Kind() domain.TransportKind {
	return domain.TransportHTTP
}

// Close releases idle connections.
func (t *Transport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// Send performs one request/response cycle. Retries are the caller's concern.
func (t *Transport) Send(ctx context.Context, req domain.Request) (*domain.Outcome, error) {
	requestID := t.newID()

	httpReq, err := t.buildRequest(ctx, req, requestID)
	if err != nil {
		return nil, err
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for rate limiter")
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	httpReq = httpReq.WithContext(callCtx)

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "%s", req.RouteKey())
		}
		return nil, &domain.ConnectionError{Message: connectionMessage(callCtx, err, t.timeout), RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.ConnectionError{Message: "read response body", RequestID: requestID, Err: err}
	}

	if id := responseRequestID(resp.Header); id != "" {
		requestID = id
	}
	logger.Debug("%s -> %d in %s (request_id: %s)", req.RouteKey(), resp.StatusCode, time.Since(start).Round(time.Millisecond), requestID)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if t.tokens != nil {
			t.tokens.Invalidate()
		}
	case http.StatusTooManyRequests:
		t.limiter.RecordRetryAfter(transport.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}

	return transport.NewOutcome(resp.StatusCode, body, requestID)
}

func (t *Transport) buildRequest(ctx context.Context, req domain.Request, requestID string) (*http.Request, error) {
	u := *t.base
	u.Path = t.base.Path + req.Path
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		body = bytes.NewReader(b)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set(transport.RequestIDHeader, requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if t.tokens != nil {
		token, err := t.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

func responseRequestID(h http.Header) string {
	if id := h.Get(transport.RequestIDHeader); id != "" {
		return id
	}
	return h.Get("X-Amzn-RequestId")
}

func connectionMessage(ctx context.Context, err error, timeout time.Duration) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "request timed out after " + timeout.String()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
