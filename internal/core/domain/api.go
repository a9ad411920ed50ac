package domain

// Request bounds enforced by the client.
const (
	DefaultSearchTopK     = 20
	MaxSearchTopK         = 50
	DefaultDocumentLimit  = 50
	MaxDocumentLimit      = 100
	DefaultNamespace      = "default"
	DefaultUploadMIMEType = "application/octet-stream"
)

// SearchRequest configures a semantic search.
type SearchRequest struct {
	Query     string
	Namespace string

	// TopK is capped at MaxSearchTopK. Zero means DefaultSearchTopK.
	TopK       int
	Rerank     bool
	Synthesize bool
	Filter     map[string]any
	Model      string
}

// IngestTextRequest submits text for chunking and storage.
type IngestTextRequest struct {
	Text             string
	Namespace        string
	Metadata         map[string]any
	ChunkingStrategy string
	PrependMetadata  []string
}

// NamespaceCreate describes a new namespace.
type NamespaceCreate struct {
	ID          string
	Name        string
	Description string
	ParentID    string
	Metadata    map[string]any
}

// NamespaceUpdate holds optional namespace changes. Nil fields are left unchanged.
type NamespaceUpdate struct {
	Name        *string
	Description *string
	Metadata    map[string]any
}

// ListDocumentsRequest pages through documents.
type ListDocumentsRequest struct {
	Namespace string

	// Limit is capped at MaxDocumentLimit. Zero means DefaultDocumentLimit.
	Limit   int
	NextKey string
}

// DocumentUpdate holds optional document changes.
type DocumentUpdate struct {
	Namespace string
	Filename  string
	Metadata  map[string]any
}

// Empty reports whether the update changes nothing.
func (u DocumentUpdate) Empty() bool {
	return u.Namespace == "" && u.Filename == "" && len(u.Metadata) == 0
}

// UploadRequest sends raw file bytes for server-side processing.
type UploadRequest struct {
	Filename    string
	Content     []byte
	ContentType string
	Namespace   string
	Metadata    map[string]any
}
