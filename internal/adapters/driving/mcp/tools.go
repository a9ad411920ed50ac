package mcp

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// Namespace and document identifiers accepted by the tools.
const maxIDLength = 200

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_/-]+$`)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query     string         `json:"query" jsonschema:"search query"`
	Namespace string         `json:"namespace,omitempty" jsonschema:"optional namespace filter"`
	TopK      int            `json:"top_k,omitempty" jsonschema:"number of results (default 20, max 50)"`
	Rerank    *bool          `json:"rerank,omitempty" jsonschema:"rerank results for relevance (default true)"`
	Filter    map[string]any `json:"filter,omitempty" jsonschema:"metadata filter as a JSON object"`
}

// IngestTextInput is the input schema for the ingest_text tool.
type IngestTextInput struct {
	Text             string         `json:"text" jsonschema:"text content to ingest"`
	Namespace        string         `json:"namespace,omitempty" jsonschema:"target namespace"`
	Metadata         map[string]any `json:"metadata,omitempty" jsonschema:"optional metadata to attach"`
	ChunkingStrategy string         `json:"chunking_strategy,omitempty" jsonschema:"chunking strategy (default recursive)"`
	PrependMetadata  []string       `json:"prepend_metadata,omitempty" jsonschema:"metadata keys to prepend to chunks"`
}

// NamespaceInput identifies a namespace.
type NamespaceInput struct {
	ID string `json:"id" jsonschema:"namespace ID"`
}

// CreateNamespaceInput is the input schema for the create_namespace tool.
type CreateNamespaceInput struct {
	ID          string `json:"id" jsonschema:"namespace ID, e.g. mba/finance"`
	Name        string `json:"name" jsonschema:"display name"`
	Description string `json:"description,omitempty" jsonschema:"what belongs in this namespace"`
	ParentID    string `json:"parent_id,omitempty" jsonschema:"optional parent namespace ID"`
}

// UpdateNamespaceInput is the input schema for the update_namespace tool.
type UpdateNamespaceInput struct {
	ID          string `json:"id" jsonschema:"namespace ID"`
	Name        string `json:"name,omitempty" jsonschema:"new name"`
	Description string `json:"description,omitempty" jsonschema:"new description"`
}

// DeleteNamespaceInput is the input schema for the delete_namespace tool.
type DeleteNamespaceInput struct {
	ID      string `json:"id" jsonschema:"namespace ID"`
	Cascade bool   `json:"cascade,omitempty" jsonschema:"also delete the namespace documents"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Namespace string `json:"namespace,omitempty" jsonschema:"optional namespace filter"`
	Limit     int    `json:"limit,omitempty" jsonschema:"max documents (default 50, max 100)"`
}

// DocumentInput identifies a document.
type DocumentInput struct {
	DocID     string `json:"doc_id" jsonschema:"document ID"`
	Namespace string `json:"namespace,omitempty" jsonschema:"namespace (default 'default')"`
}

// UpdateDocumentInput is the input schema for the update_document tool.
type UpdateDocumentInput struct {
	DocID        string         `json:"doc_id" jsonschema:"document ID"`
	Namespace    string         `json:"namespace,omitempty" jsonschema:"current namespace (default 'default')"`
	NewNamespace string         `json:"new_namespace,omitempty" jsonschema:"namespace to move the document to"`
	NewFilename  string         `json:"new_filename,omitempty" jsonschema:"new filename"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"metadata replacing the existing values"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search in the Stache knowledge base. Returns relevant text chunks ranked by relevance.",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_text",
		Description: "Add text content to the Stache knowledge base.",
	}, s.handleIngestText)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_namespaces",
		Description: "List all namespaces in the knowledge base.",
	}, s.handleListNamespaces)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_namespace",
		Description: "Create a new namespace.",
	}, s.handleCreateNamespace)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_namespace",
		Description: "Get namespace details.",
	}, s.handleGetNamespace)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_namespace",
		Description: "Update namespace properties.",
	}, s.handleUpdateNamespace)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_namespace",
		Description: "Delete a namespace.",
	}, s.handleDeleteNamespace)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List documents, optionally filtered by namespace.",
	}, s.handleListDocuments)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get document content by ID.",
	}, s.handleGetDocument)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_document",
		Description: "Update document metadata (namespace, filename, custom metadata).",
	}, s.handleUpdateDocument)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document by ID.",
	}, s.handleDeleteDocument)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, any, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return errorResult("search", errors.New("query is required")), nil, nil
	}
	namespace, err := optionalID(input.Namespace, "Namespace")
	if err != nil {
		return errorResult("search", err), nil, nil
	}

	rerank := true
	if input.Rerank != nil {
		rerank = *input.Rerank
	}
	res, err := s.ports.KnowledgeBase.Search(ctx, domain.SearchRequest{
		Query:     query,
		Namespace: namespace,
		TopK:      input.TopK,
		Rerank:    rerank,
		Filter:    input.Filter,
	})
	if err != nil {
		return errorResult("search", err), nil, nil
	}
	return textResult(formatSearchResults(res)), nil, nil
}

func (s *Server) handleIngestText(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestTextInput,
) (*mcp.CallToolResult, any, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return errorResult("ingest_text", errors.New("text is required")), nil, nil
	}
	namespace, err := optionalID(input.Namespace, "Namespace")
	if err != nil {
		return errorResult("ingest_text", err), nil, nil
	}

	res, err := s.ports.KnowledgeBase.IngestText(ctx, domain.IngestTextRequest{
		Text:             text,
		Namespace:        namespace,
		Metadata:         input.Metadata,
		ChunkingStrategy: domain.ResolveChunkingStrategy(input.ChunkingStrategy),
		PrependMetadata:  input.PrependMetadata,
	})
	if err != nil {
		return errorResult("ingest_text", err), nil, nil
	}
	return textResult(formatIngestResult(res)), nil, nil
}

func (s *Server) handleListNamespaces(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, any, error) {
	res, err := s.ports.KnowledgeBase.ListNamespaces(ctx)
	if err != nil {
		return errorResult("list_namespaces", err), nil, nil
	}
	return textResult(formatNamespaceList(res)), nil, nil
}

func (s *Server) handleCreateNamespace(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateNamespaceInput,
) (*mcp.CallToolResult, any, error) {
	id := strings.TrimSpace(input.ID)
	name := strings.TrimSpace(input.Name)
	if id == "" || name == "" {
		return errorResult("create_namespace", errors.New("id and name are required")), nil, nil
	}
	if err := validateID(id, "Namespace ID"); err != nil {
		return errorResult("create_namespace", err), nil, nil
	}
	parent, err := optionalID(input.ParentID, "Parent namespace ID")
	if err != nil {
		return errorResult("create_namespace", err), nil, nil
	}

	_, err = s.ports.KnowledgeBase.CreateNamespace(ctx, domain.NamespaceCreate{
		ID:          id,
		Name:        name,
		Description: input.Description,
		ParentID:    parent,
	})
	if err != nil {
		return errorResult("create_namespace", err), nil, nil
	}
	return textResult("Created namespace: " + id), nil, nil
}

func (s *Server) handleGetNamespace(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input NamespaceInput,
) (*mcp.CallToolResult, any, error) {
	id, err := requiredID(input.ID, "id", "Namespace ID")
	if err != nil {
		return errorResult("get_namespace", err), nil, nil
	}
	res, err := s.ports.KnowledgeBase.GetNamespace(ctx, id)
	if err != nil {
		return errorResult("get_namespace", err), nil, nil
	}
	return textResult(formatNamespace(res)), nil, nil
}

func (s *Server) handleUpdateNamespace(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateNamespaceInput,
) (*mcp.CallToolResult, any, error) {
	id, err := requiredID(input.ID, "id", "Namespace ID")
	if err != nil {
		return errorResult("update_namespace", err), nil, nil
	}

	var update domain.NamespaceUpdate
	if input.Name != "" {
		update.Name = &input.Name
	}
	if input.Description != "" {
		update.Description = &input.Description
	}
	if _, err := s.ports.KnowledgeBase.UpdateNamespace(ctx, id, update); err != nil {
		return errorResult("update_namespace", err), nil, nil
	}
	return textResult("Updated namespace: " + id), nil, nil
}

func (s *Server) handleDeleteNamespace(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteNamespaceInput,
) (*mcp.CallToolResult, any, error) {
	id, err := requiredID(input.ID, "id", "Namespace ID")
	if err != nil {
		return errorResult("delete_namespace", err), nil, nil
	}
	res, err := s.ports.KnowledgeBase.DeleteNamespace(ctx, id, input.Cascade)
	if err == nil {
		err = reportedFailure(res)
	}
	if err != nil {
		return errorResult("delete_namespace", err), nil, nil
	}
	return textResult("Deleted namespace: " + id), nil, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, any, error) {
	namespace, err := optionalID(input.Namespace, "Namespace")
	if err != nil {
		return errorResult("list_documents", err), nil, nil
	}
	res, err := s.ports.KnowledgeBase.ListDocuments(ctx, domain.ListDocumentsRequest{
		Namespace: namespace,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult("list_documents", err), nil, nil
	}
	return textResult(formatDocumentList(res)), nil, nil
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, any, error) {
	id, namespace, err := documentRef(input.DocID, input.Namespace)
	if err != nil {
		return errorResult("get_document", err), nil, nil
	}
	res, err := s.ports.KnowledgeBase.GetDocument(ctx, id, namespace)
	if err != nil {
		return errorResult("get_document", err), nil, nil
	}
	return textResult(formatDocument(res)), nil, nil
}

func (s *Server) handleUpdateDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateDocumentInput,
) (*mcp.CallToolResult, any, error) {
	id, namespace, err := documentRef(input.DocID, input.Namespace)
	if err != nil {
		return errorResult("update_document", err), nil, nil
	}

	update := domain.DocumentUpdate{
		Filename: strings.TrimSpace(input.NewFilename),
		Metadata: input.Metadata,
	}
	update.Namespace, err = optionalID(input.NewNamespace, "New namespace")
	if err != nil {
		return errorResult("update_document", err), nil, nil
	}
	if update.Empty() {
		return errorResult("update_document",
			errors.New("At least one update field required (new_namespace, new_filename, metadata)")), nil, nil
	}

	res, err := s.ports.KnowledgeBase.UpdateDocument(ctx, id, namespace, update)
	if err != nil {
		return errorResult("update_document", err), nil, nil
	}
	target := res.String("namespace")
	if target == "" {
		target = namespace
	}
	return textResult(fmt.Sprintf("Updated document %s (%d chunks) in namespace %s",
		id, res.Int("updated_chunks"), target)), nil, nil
}

func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, any, error) {
	id, namespace, err := documentRef(input.DocID, input.Namespace)
	if err != nil {
		return errorResult("delete_document", err), nil, nil
	}
	res, err := s.ports.KnowledgeBase.DeleteDocument(ctx, id, namespace)
	if err == nil {
		err = reportedFailure(res)
	}
	if err != nil {
		return errorResult("delete_document", err), nil, nil
	}
	return textResult("Deleted document " + id), nil, nil
}

// validateID checks a namespace or document identifier.
func validateID(id, kind string) error {
	switch {
	case id == "":
		return errors.Newf("%s cannot be empty", kind)
	case len(id) > maxIDLength:
		return errors.Newf("%s too long (max %d characters)", kind, maxIDLength)
	case !idPattern.MatchString(id):
		return errors.Newf("%s contains invalid characters (only alphanumeric, hyphens, underscores, and slashes allowed)", kind)
	}
	return nil
}

func optionalID(id, kind string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", nil
	}
	return id, validateID(id, kind)
}

func requiredID(id, field, kind string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.Newf("%s is required", field)
	}
	return id, validateID(id, kind)
}

func documentRef(docID, namespace string) (string, string, error) {
	id, err := requiredID(docID, "doc_id", "Document ID")
	if err != nil {
		return "", "", err
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	if err := validateID(namespace, "Namespace"); err != nil {
		return "", "", err
	}
	return id, namespace, nil
}

// reportedFailure turns an explicit {"success": false} reply into an error.
func reportedFailure(res domain.Result) error {
	if ok, present := res["success"].(bool); present && !ok {
		msg := res.String("error")
		if msg == "" {
			msg = "Delete failed"
		}
		return errors.New(msg)
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(tool string, err error) *mcp.CallToolResult {
	logger.Warn("mcp: tool %s failed: %v", tool, err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
	}
}
