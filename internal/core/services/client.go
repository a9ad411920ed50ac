package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driving.KnowledgeBase = (*Client)(nil)

// Client is the knowledge base facade. It translates operations into
// transport requests, enforces client-side bounds and records the request
// id of the last call. A Client is used by one goroutine at a time; the
// ingestion orchestrator gives each worker its own.
type Client struct {
	transport driven.Transport
	probeAuth bool

	mu            sync.Mutex
	lastRequestID string
	closed        bool
}

// NewClient creates a client over transport. cfg decides whether health
// checks with includeAuth probe an authenticated endpoint.
func NewClient(transport driven.Transport, cfg domain.Config) *Client {
	return &Client{
		transport: transport,
		probeAuth: cfg.OAuthEnabled() || transport.Kind() == domain.TransportFunction,
	}
}

// Search runs a semantic search. TopK is capped at domain.MaxSearchTopK.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) (domain.Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Message: "cannot be empty"}
	}

	topK := req.TopK
	if topK <= 0 {
		topK = domain.DefaultSearchTopK
	}
	if topK > domain.MaxSearchTopK {
		topK = domain.MaxSearchTopK
	}

	body := map[string]any{
		"query":      query,
		"top_k":      topK,
		"rerank":     req.Rerank,
		"synthesize": req.Synthesize,
	}
	if req.Namespace != "" {
		body["namespace"] = req.Namespace
	}
	if len(req.Filter) > 0 {
		body["filter"] = req.Filter
	}
	if req.Model != "" {
		body["model"] = req.Model
	}
	return c.call(ctx, domain.Request{Method: http.MethodPost, Path: "/api/query", Body: body})
}

// IngestText submits text for chunking. Text larger than
// domain.MaxIngestTextBytes is rejected before any network call.
func (c *Client) IngestText(ctx context.Context, req domain.IngestTextRequest) (domain.Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &domain.ValidationError{Field: "text", Message: "cannot be empty"}
	}
	if len(req.Text) > domain.MaxIngestTextBytes {
		return nil, &domain.ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("%d bytes exceeds the %d byte limit", len(req.Text), domain.MaxIngestTextBytes),
			Err:     domain.ErrTextTooLarge,
		}
	}

	body := map[string]any{
		"text":              req.Text,
		"chunking_strategy": domain.ResolveChunkingStrategy(req.ChunkingStrategy),
	}
	if req.Namespace != "" {
		body["namespace"] = req.Namespace
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}
	if len(req.PrependMetadata) > 0 {
		body["prepend_metadata"] = req.PrependMetadata
	}
	return c.call(ctx, domain.Request{Method: http.MethodPost, Path: "/api/capture", Body: body})
}

// ListNamespaces returns every namespace, including children.
func (c *Client) ListNamespaces(ctx context.Context) (domain.Result, error) {
	return c.call(ctx, domain.Request{
		Method: http.MethodGet,
		Path:   "/api/namespaces",
		Query:  url.Values{"include_children": {"true"}},
	})
}

// CreateNamespace creates a namespace.
func (c *Client) CreateNamespace(ctx context.Context, ns domain.NamespaceCreate) (domain.Result, error) {
	if err := requireID("id", ns.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ns.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "cannot be empty"}
	}

	body := map[string]any{
		"id":          ns.ID,
		"name":        ns.Name,
		"description": ns.Description,
	}
	if ns.ParentID != "" {
		body["parent_id"] = ns.ParentID
	}
	if len(ns.Metadata) > 0 {
		body["metadata"] = ns.Metadata
	}
	return c.call(ctx, domain.Request{Method: http.MethodPost, Path: "/api/namespaces", Body: body})
}

// GetNamespace returns one namespace.
func (c *Client) GetNamespace(ctx context.Context, id string) (domain.Result, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	return c.call(ctx, domain.Request{Method: http.MethodGet, Path: "/api/namespaces/" + id})
}

// UpdateNamespace sends only the fields that are set.
func (c *Client) UpdateNamespace(ctx context.Context, id string, update domain.NamespaceUpdate) (domain.Result, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}

	body := map[string]any{}
	if update.Name != nil {
		body["name"] = *update.Name
	}
	if update.Description != nil {
		body["description"] = *update.Description
	}
	if update.Metadata != nil {
		body["metadata"] = update.Metadata
	}
	return c.call(ctx, domain.Request{Method: http.MethodPut, Path: "/api/namespaces/" + id, Body: body})
}

// DeleteNamespace deletes a namespace. With cascade, its documents go too.
func (c *Client) DeleteNamespace(ctx context.Context, id string, cascade bool) (domain.Result, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	return c.call(ctx, domain.Request{
		Method: http.MethodDelete,
		Path:   "/api/namespaces/" + id,
		Query:  url.Values{"cascade": {strconv.FormatBool(cascade)}},
	})
}

// ListDocuments pages through documents. Limit is capped at domain.MaxDocumentLimit.
func (c *Client) ListDocuments(ctx context.Context, req domain.ListDocumentsRequest) (domain.Result, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultDocumentLimit
	}
	if limit > domain.MaxDocumentLimit {
		limit = domain.MaxDocumentLimit
	}

	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if req.Namespace != "" {
		q.Set("namespace", req.Namespace)
	}
	if req.NextKey != "" {
		q.Set("next_key", req.NextKey)
	}
	return c.call(ctx, domain.Request{Method: http.MethodGet, Path: "/api/documents", Query: q})
}

// GetDocument returns one document with its reconstructed text.
func (c *Client) GetDocument(ctx context.Context, id, namespace string) (domain.Result, error) {
	if err := requireID("doc_id", id); err != nil {
		return nil, err
	}
	return c.call(ctx, domain.Request{
		Method: http.MethodGet,
		Path:   "/api/documents/id/" + id,
		Query:  url.Values{"namespace": {namespaceOrDefault(namespace)}},
	})
}

// UpdateDocument moves, renames or re-tags a document.
func (c *Client) UpdateDocument(ctx context.Context, id, namespace string, update domain.DocumentUpdate) (domain.Result, error) {
	if err := requireID("doc_id", id); err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, &domain.ValidationError{Message: "at least one update field required (namespace, filename, metadata)"}
	}

	body := map[string]any{}
	if update.Namespace != "" {
		body["namespace"] = update.Namespace
	}
	if update.Filename != "" {
		body["filename"] = update.Filename
	}
	if len(update.Metadata) > 0 {
		body["metadata"] = update.Metadata
	}
	return c.call(ctx, domain.Request{
		Method: http.MethodPut,
		Path:   "/api/documents/id/" + id,
		Query:  url.Values{"namespace": {namespaceOrDefault(namespace)}},
		Body:   body,
	})
}

// DeleteDocument deletes a document and its chunks.
func (c *Client) DeleteDocument(ctx context.Context, id, namespace string) (domain.Result, error) {
	if err := requireID("doc_id", id); err != nil {
		return nil, err
	}
	return c.call(ctx, domain.Request{
		Method: http.MethodDelete,
		Path:   "/api/documents/id/" + id,
		Query:  url.Values{"namespace": {namespaceOrDefault(namespace)}},
	})
}

// Health checks the service. With includeAuth and an authenticated
// transport, it also probes an endpoint that requires credentials and
// reports the outcome under auth_status instead of failing.
func (c *Client) Health(ctx context.Context, includeAuth bool) (domain.Result, error) {
	result, err := c.call(ctx, domain.Request{Method: http.MethodGet, Path: "/health"})
	if err != nil {
		return nil, err
	}
	if !includeAuth || !c.probeAuth {
		return result, nil
	}

	_, probeErr := c.call(ctx, domain.Request{
		Method: http.MethodGet,
		Path:   "/api/namespaces",
		Query:  url.Values{"limit": {"1"}},
	})
	if probeErr != nil {
		result["auth_status"] = "failed: " + probeErr.Error()
	} else {
		result["auth_status"] = "valid"
	}
	return result, nil
}

// ListModels returns the synthesis models the service offers.
func (c *Client) ListModels(ctx context.Context) (domain.Result, error) {
	return c.call(ctx, domain.Request{Method: http.MethodGet, Path: "/api/models"})
}

// Upload sends file bytes, base64 encoded, for server-side processing.
func (c *Client) Upload(ctx context.Context, req domain.UploadRequest) (domain.Result, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, &domain.ValidationError{Field: "filename", Message: "cannot be empty"}
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = domain.DefaultUploadMIMEType
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return c.call(ctx, domain.Request{
		Method: http.MethodPost,
		Path:   "/api/upload",
		Body: map[string]any{
			"filename":     req.Filename,
			"content":      base64.StdEncoding.EncodeToString(req.Content),
			"content_type": contentType,
			"namespace":    namespaceOrDefault(req.Namespace),
			"metadata":     metadata,
		},
	})
}

// LastRequestID returns the request id of the most recent call, successful or not.
func (c *Client) LastRequestID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRequestID
}

// Close releases the transport. Subsequent calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.transport.Close()
}

func (c *Client) call(ctx context.Context, req domain.Request) (domain.Result, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, domain.ErrClientClosed
	}

	out, err := c.transport.Send(ctx, req)
	if err != nil {
		c.setRequestID(domain.RequestIDOf(err))
		logger.Debug("%s failed: %v", req.RouteKey(), err)
		return nil, errors.Wrapf(err, "%s", req.RouteKey())
	}

	c.setRequestID(out.RequestID)
	if out.Payload == nil {
		return domain.Result{}, nil
	}
	return domain.Result(out.Payload), nil
}

func (c *Client) setRequestID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRequestID = id
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &domain.ValidationError{Field: field, Message: "cannot be empty"}
	}
	if strings.ContainsAny(id, "?#") {
		return &domain.ValidationError{Field: field, Message: fmt.Sprintf("invalid identifier %q", id)}
	}
	return nil
}

func namespaceOrDefault(ns string) string {
	if ns == "" {
		return domain.DefaultNamespace
	}
	return ns
}
