package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stache-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
	"github.com/custodia-labs/stache-cli/internal/enrichers"
	"github.com/custodia-labs/stache-cli/internal/loaders"
)

// fakeKB is a concurrency-safe KnowledgeBase that records calls.
type fakeKB struct {
	mu      sync.Mutex
	results map[string]domain.Result
	errs    map[string]error
	calls   []string
	closed  int

	search        domain.SearchRequest
	ingested      []domain.IngestTextRequest
	createdNS     domain.NamespaceCreate
	nsUpdate      domain.NamespaceUpdate
	cascade       bool
	listDocs      domain.ListDocumentsRequest
	docNamespace  string
	docUpdate     domain.DocumentUpdate
	includeAuth   bool
	upload        domain.UploadRequest
	lastRequestID string
}

func newFakeKB() *fakeKB {
	return &fakeKB{
		results: make(map[string]domain.Result),
		errs:    make(map[string]error),
	}
}

func (f *fakeKB) respond(op string, res domain.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[op] = res
}

func (f *fakeKB) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeKB) record(op string) (domain.Result, error) {
	f.calls = append(f.calls, op)
	if err := f.errs[op]; err != nil {
		return nil, err
	}
	if res, ok := f.results[op]; ok {
		return res, nil
	}
	return domain.Result{}, nil
}

func (f *fakeKB) called(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == op {
			return true
		}
	}
	return false
}

func (f *fakeKB) Search(_ context.Context, req domain.SearchRequest) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.search = req
	return f.record("search")
}

func (f *fakeKB) IngestText(_ context.Context, req domain.IngestTextRequest) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, req)
	if err := f.errs["ingest:"+req.Text]; err != nil {
		f.calls = append(f.calls, "ingest")
		return nil, err
	}
	return f.record("ingest")
}

func (f *fakeKB) ListNamespaces(_ context.Context) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("list_namespaces")
}

func (f *fakeKB) CreateNamespace(_ context.Context, ns domain.NamespaceCreate) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdNS = ns
	return f.record("create_namespace")
}

func (f *fakeKB) GetNamespace(_ context.Context, _ string) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("get_namespace")
}

func (f *fakeKB) UpdateNamespace(_ context.Context, _ string, update domain.NamespaceUpdate) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nsUpdate = update
	return f.record("update_namespace")
}

func (f *fakeKB) DeleteNamespace(_ context.Context, _ string, cascade bool) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cascade = cascade
	return f.record("delete_namespace")
}

func (f *fakeKB) ListDocuments(_ context.Context, req domain.ListDocumentsRequest) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listDocs = req
	return f.record("list_documents")
}

func (f *fakeKB) GetDocument(_ context.Context, _, namespace string) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docNamespace = namespace
	return f.record("get_document")
}

func (f *fakeKB) UpdateDocument(_ context.Context, _, namespace string, update domain.DocumentUpdate) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docNamespace = namespace
	f.docUpdate = update
	return f.record("update_document")
}

func (f *fakeKB) DeleteDocument(_ context.Context, _, namespace string) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docNamespace = namespace
	return f.record("delete_document")
}

func (f *fakeKB) Health(_ context.Context, includeAuth bool) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.includeAuth = includeAuth
	return f.record("health")
}

func (f *fakeKB) ListModels(_ context.Context) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("list_models")
}

func (f *fakeKB) Upload(_ context.Context, req domain.UploadRequest) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upload = req
	return f.record("upload")
}

func (f *fakeKB) LastRequestID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRequestID
}

func (f *fakeKB) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

var _ driving.KnowledgeBase = (*fakeKB)(nil)

// setupTestApp injects kb and a temporary config store in place of the
// services loadApp would build.
func setupTestApp(t *testing.T, kb *fakeKB) {
	t.Helper()

	st, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	registry, err := loaders.Build(nil)
	require.NoError(t, err)

	cfg := domain.DefaultConfig()
	cfg.APIURL = "https://kb.example.com"
	cfg.Workers = 2

	appMu.Lock()
	store = st
	app = &appServices{
		cfg:       cfg,
		loaders:   registry,
		enrichers: enrichers.NewPipeline(enrichers.Whitespace{}),
		newClient: func(context.Context) (driving.KnowledgeBase, error) {
			return kb, nil
		},
	}
	appMu.Unlock()

	t.Cleanup(func() {
		appMu.Lock()
		store, app = nil, nil
		appMu.Unlock()
	})
}

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
