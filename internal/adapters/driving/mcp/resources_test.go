package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

func TestExtractNamespaceID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid namespace documents URI", uri: "stache://namespaces/docs/documents", expected: "docs"},
		{name: "hierarchical namespace", uri: "stache://namespaces/mba/finance/documents", expected: "mba/finance"},
		{name: "invalid prefix", uri: "file://namespaces/docs/documents", expected: ""},
		{name: "missing documents suffix", uri: "stache://namespaces/docs", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractNamespaceID(tt.uri))
		})
	}
}

func TestExtractDocumentID(t *testing.T) {
	assert.Equal(t, "doc-456", extractDocumentID("stache://documents/doc-456"))
	assert.Equal(t, "", extractDocumentID("stache://namespaces/doc-456"))
	assert.Equal(t, "", extractDocumentID(""))
}

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleNamespacesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns namespaces", func(t *testing.T) {
		kb := newMockKB()
		kb.results["list_namespaces"] = domain.Result{"namespaces": []any{
			map[string]any{"id": "docs", "name": "Docs"},
		}}
		server := newTestServer(t, kb)

		result, err := server.handleNamespacesResource(ctx, makeReadResourceRequest("stache://namespaces"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"id": "docs"`)
		assert.Contains(t, result.Contents[0].Text, `"name": "Docs"`)
	})

	t.Run("empty list", func(t *testing.T) {
		server := newTestServer(t, newMockKB())
		result, err := server.handleNamespacesResource(ctx, makeReadResourceRequest("stache://namespaces"))
		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		kb := newMockKB()
		kb.err = errors.New("service down")
		server := newTestServer(t, kb)
		_, err := server.handleNamespacesResource(ctx, makeReadResourceRequest("stache://namespaces"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing namespaces")
	})
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server := newTestServer(t, newMockKB())
		_, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("stache://invalid/uri"))
		require.Error(t, err)
	})

	t.Run("returns documents", func(t *testing.T) {
		kb := newMockKB()
		kb.results["list_documents"] = domain.Result{"documents": []any{
			map[string]any{"doc_id": "d1", "filename": "a.md", "total_chunks": float64(2)},
		}}
		server := newTestServer(t, kb)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("stache://namespaces/docs/documents"))
		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"id": "d1"`)
		assert.Contains(t, result.Contents[0].Text, `"chunks": 2`)
		assert.Equal(t, "docs", kb.lastList.Namespace)
		assert.Equal(t, domain.MaxDocumentLimit, kb.lastList.Limit)
	})
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns text", func(t *testing.T) {
		kb := newMockKB()
		kb.results["get_document"] = domain.Result{"text": "hello"}
		server := newTestServer(t, kb)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("stache://documents/d1"))
		require.NoError(t, err)
		assert.Equal(t, "hello", result.Contents[0].Text)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
		assert.Equal(t, "d1", kb.lastID)
		assert.Equal(t, domain.DefaultNamespace, kb.lastNS)
	})

	t.Run("not found maps to resource error", func(t *testing.T) {
		kb := newMockKB()
		kb.err = &domain.NotFoundError{Message: "no such document"}
		server := newTestServer(t, kb)

		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("stache://documents/missing"))
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting document")
	})
}
