package driving

import (
	"context"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// KnowledgeBase is the client facade over the active transport.
// Every operation returns an opaque service payload or a taxonomy error.
type KnowledgeBase interface {
	// Search runs a semantic search.
	Search(ctx context.Context, req domain.SearchRequest) (domain.Result, error)

	// IngestText submits text for chunking and storage.
	IngestText(ctx context.Context, req domain.IngestTextRequest) (domain.Result, error)

	ListNamespaces(ctx context.Context) (domain.Result, error)
	CreateNamespace(ctx context.Context, ns domain.NamespaceCreate) (domain.Result, error)
	GetNamespace(ctx context.Context, id string) (domain.Result, error)
	UpdateNamespace(ctx context.Context, id string, update domain.NamespaceUpdate) (domain.Result, error)
	DeleteNamespace(ctx context.Context, id string, cascade bool) (domain.Result, error)

	ListDocuments(ctx context.Context, req domain.ListDocumentsRequest) (domain.Result, error)
	GetDocument(ctx context.Context, id, namespace string) (domain.Result, error)
	UpdateDocument(ctx context.Context, id, namespace string, update domain.DocumentUpdate) (domain.Result, error)
	DeleteDocument(ctx context.Context, id, namespace string) (domain.Result, error)

	// Health checks the service. With includeAuth, it also verifies credentials.
	Health(ctx context.Context, includeAuth bool) (domain.Result, error)

	// ListModels returns the models available for answer synthesis.
	ListModels(ctx context.Context) (domain.Result, error)

	// Upload sends a file for server-side processing.
	Upload(ctx context.Context, req domain.UploadRequest) (domain.Result, error)

	// LastRequestID returns the request id of the most recent call on this instance.
	LastRequestID() string

	// Close releases the underlying transport.
	Close() error
}

// ClientFactory builds a fresh KnowledgeBase. The orchestrator calls it once
// per worker so clients are never shared across goroutines.
type ClientFactory func(ctx context.Context) (KnowledgeBase, error)
