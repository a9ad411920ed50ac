package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Stache resources.
	uriScheme = "stache://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "namespaces",
		Name:        "namespaces",
		Description: "List of all namespaces",
		MIMEType:    "application/json",
	}, s.handleNamespacesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "namespaces/{namespaceId}/documents",
		Name:        "namespace-documents",
		Description: "Documents stored in a specific namespace",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Reconstructed text of a document in the default namespace",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)
}

func (s *Server) handleNamespacesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	res, err := s.ports.KnowledgeBase.ListNamespaces(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing namespaces")
	}

	type namespaceInfo struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	namespaces := res.Objects("namespaces")
	infos := make([]namespaceInfo, len(namespaces))
	for i, ns := range namespaces {
		infos[i] = namespaceInfo{
			ID:          ns.String("id"),
			Name:        ns.String("name"),
			Description: ns.String("description"),
		}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// stache://namespaces/{namespaceId}/documents
	namespace := extractNamespaceID(req.Params.URI)
	if namespace == "" || validateID(namespace, "Namespace") != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	res, err := s.ports.KnowledgeBase.ListDocuments(ctx, domain.ListDocumentsRequest{
		Namespace: namespace,
		Limit:     domain.MaxDocumentLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing documents")
	}

	type docInfo struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Chunks   int    `json:"chunks"`
	}

	docs := res.Objects("documents")
	infos := make([]docInfo, len(docs))
	for i, doc := range docs {
		chunks := doc.Int("chunk_count")
		if chunks == 0 {
			chunks = doc.Int("total_chunks")
		}
		infos[i] = docInfo{
			ID:       doc.String("doc_id"),
			Filename: doc.String("filename"),
			Chunks:   chunks,
		}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// stache://documents/{documentId}
	docID := extractDocumentID(req.Params.URI)
	if docID == "" || validateID(docID, "Document ID") != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	res, err := s.ports.KnowledgeBase.GetDocument(ctx, docID, domain.DefaultNamespace)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, errors.Wrap(err, "getting document")
	}

	text := res.String("reconstructed_text")
	if text == "" {
		text = res.String("text")
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshalling resource")
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractNamespaceID extracts the namespace from stache://namespaces/{namespaceId}/documents.
// Namespace ids may contain slashes.
func extractNamespaceID(uri string) string {
	const prefix = uriScheme + "namespaces/"
	const suffix = "/documents"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}

// extractDocumentID extracts the document ID from stache://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
