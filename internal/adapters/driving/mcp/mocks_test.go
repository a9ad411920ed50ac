package mcp

import (
	"context"
	"sync"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
)

var _ driving.KnowledgeBase = (*mockKnowledgeBase)(nil)

// mockKnowledgeBase records the last call and replies with canned results.
type mockKnowledgeBase struct {
	mu sync.Mutex

	results map[string]domain.Result
	err     error
	calls   []string

	lastSearch    domain.SearchRequest
	lastIngest    domain.IngestTextRequest
	lastNamespace domain.NamespaceCreate
	lastNSUpdate  domain.NamespaceUpdate
	lastList      domain.ListDocumentsRequest
	lastDocUpdate domain.DocumentUpdate
	lastID        string
	lastNS        string
	lastCascade   bool
}

func newMockKB() *mockKnowledgeBase {
	return &mockKnowledgeBase{results: map[string]domain.Result{}}
}

func (m *mockKnowledgeBase) reply(op string) (domain.Result, error) {
	m.calls = append(m.calls, op)
	if m.err != nil {
		return nil, m.err
	}
	if res, ok := m.results[op]; ok {
		return res, nil
	}
	return domain.Result{}, nil
}

func (m *mockKnowledgeBase) Search(_ context.Context, req domain.SearchRequest) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSearch = req
	return m.reply("search")
}

func (m *mockKnowledgeBase) IngestText(_ context.Context, req domain.IngestTextRequest) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastIngest = req
	return m.reply("ingest_text")
}

func (m *mockKnowledgeBase) ListNamespaces(_ context.Context) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply("list_namespaces")
}

func (m *mockKnowledgeBase) CreateNamespace(_ context.Context, ns domain.NamespaceCreate) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastNamespace = ns
	return m.reply("create_namespace")
}

func (m *mockKnowledgeBase) GetNamespace(_ context.Context, id string) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID = id
	return m.reply("get_namespace")
}

func (m *mockKnowledgeBase) UpdateNamespace(_ context.Context, id string, u domain.NamespaceUpdate) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID = id
	m.lastNSUpdate = u
	return m.reply("update_namespace")
}

func (m *mockKnowledgeBase) DeleteNamespace(_ context.Context, id string, cascade bool) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID = id
	m.lastCascade = cascade
	return m.reply("delete_namespace")
}

func (m *mockKnowledgeBase) ListDocuments(_ context.Context, req domain.ListDocumentsRequest) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = req
	return m.reply("list_documents")
}

func (m *mockKnowledgeBase) GetDocument(_ context.Context, id, namespace string) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID, m.lastNS = id, namespace
	return m.reply("get_document")
}

func (m *mockKnowledgeBase) UpdateDocument(_ context.Context, id, namespace string, u domain.DocumentUpdate) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID, m.lastNS = id, namespace
	m.lastDocUpdate = u
	return m.reply("update_document")
}

func (m *mockKnowledgeBase) DeleteDocument(_ context.Context, id, namespace string) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID, m.lastNS = id, namespace
	return m.reply("delete_document")
}

func (m *mockKnowledgeBase) Health(_ context.Context, _ bool) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply("health")
}

func (m *mockKnowledgeBase) ListModels(_ context.Context) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply("list_models")
}

func (m *mockKnowledgeBase) Upload(_ context.Context, _ domain.UploadRequest) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply("upload")
}

func (m *mockKnowledgeBase) LastRequestID() string { return "" }

func (m *mockKnowledgeBase) Close() error { return nil }
