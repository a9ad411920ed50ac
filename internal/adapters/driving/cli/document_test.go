package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

func TestDocumentCmd_Aliases(t *testing.T) {
	assert.Contains(t, documentCmd.Aliases, "doc")
}

func TestDocumentList(t *testing.T) {
	kb := newFakeKB()
	kb.respond("list_documents", domain.Result{
		"documents": []any{
			map[string]any{"doc_id": "d1", "filename": "a.txt", "namespace": "docs", "chunk_count": float64(3)},
			map[string]any{"doc_id": "d2", "filename": "b.txt", "total_chunks": float64(5)},
			map[string]any{"doc_id": "d3", "filename": "c.txt"},
		},
		"next_key": "page-2",
	})
	setupTestApp(t, kb)

	out, err := execute(t, "doc", "list", "-n", "docs", "-l", "10", "--next-key", "page-1")
	require.NoError(t, err)

	assert.Equal(t, domain.ListDocumentsRequest{Namespace: "docs", Limit: 10, NextKey: "page-1"}, kb.listDocs)
	assert.Contains(t, out, "FILENAME")
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "b.txt")
	assert.Contains(t, out, "?")
	assert.Contains(t, out, "--next-key page-2")
}

func TestDocumentList_Defaults(t *testing.T) {
	kb := newFakeKB()
	setupTestApp(t, kb)

	out, err := execute(t, "document", "list")
	require.NoError(t, err)

	assert.Equal(t, "", kb.listDocs.Namespace)
	assert.Equal(t, domain.DefaultDocumentLimit, kb.listDocs.Limit)
	assert.Contains(t, out, "No documents found.")
}

func TestDocumentGet(t *testing.T) {
	kb := newFakeKB()
	text := strings.Repeat("x", contentPreview+25)
	kb.respond("get_document", domain.Result{
		"doc_id":             "d1",
		"filename":           "sermon.txt",
		"namespace":          "sermons",
		"chunk_count":        float64(7),
		"reconstructed_text": text,
	})
	setupTestApp(t, kb)

	out, err := execute(t, "document", "get", "d1")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultNamespace, kb.docNamespace)
	assert.Contains(t, out, "sermon.txt")
	assert.Contains(t, out, "ID: d1")
	assert.Contains(t, out, "Chunks: 7")
	assert.Contains(t, out, "Content:")
	assert.Contains(t, out, "... (25 more characters)")
}

func TestDocumentGet_Namespace(t *testing.T) {
	kb := newFakeKB()
	setupTestApp(t, kb)

	out, err := execute(t, "document", "get", "d1", "-n", "sermons")
	require.NoError(t, err)

	assert.Equal(t, "sermons", kb.docNamespace)
	assert.Contains(t, out, "Untitled")
}

func TestDocumentGet_NotFound(t *testing.T) {
	kb := newFakeKB()
	kb.fail("get_document", &domain.NotFoundError{Message: "document d1"})
	setupTestApp(t, kb)

	_, err := execute(t, "document", "get", "d1")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDocumentUpdate(t *testing.T) {
	kb := newFakeKB()
	kb.respond("update_document", domain.Result{"namespace": "archive", "updated_chunks": float64(6)})
	setupTestApp(t, kb)

	out, err := execute(t, "document", "update", "d1", "--new-namespace", "archive",
		"--new-filename", "renamed.txt", "-m", `{"tag":"old"}`)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultNamespace, kb.docNamespace)
	assert.Equal(t, domain.DocumentUpdate{
		Namespace: "archive",
		Filename:  "renamed.txt",
		Metadata:  map[string]any{"tag": "old"},
	}, kb.docUpdate)
	assert.Contains(t, out, "Updated document d1 (6 chunks) in namespace archive")
}

func TestDocumentUpdate_RequiresChange(t *testing.T) {
	kb := newFakeKB()
	setupTestApp(t, kb)

	_, err := execute(t, "document", "update", "d1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, kb.called("update_document"))
}

func TestDocumentDelete(t *testing.T) {
	kb := newFakeKB()
	kb.respond("delete_document", domain.Result{"success": true, "chunks_deleted": float64(9)})
	setupTestApp(t, kb)

	out, err := execute(t, "document", "delete", "d1", "-n", "docs", "-y")
	require.NoError(t, err)

	assert.Equal(t, "docs", kb.docNamespace)
	assert.Contains(t, out, "Deleted document (9 chunks)")
}

func TestDocumentDelete_ReportedFailure(t *testing.T) {
	kb := newFakeKB()
	kb.respond("delete_document", domain.Result{"success": false, "error": "locked"})
	setupTestApp(t, kb)

	_, err := execute(t, "document", "delete", "d1", "-y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete failed: locked")
}

func TestDocumentDelete_ConfirmDeclined(t *testing.T) {
	kb := newFakeKB()
	setupTestApp(t, kb)

	out, err := executeWithInput(t, "no\n", "document", "delete", "d1")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.False(t, kb.called("delete_document"))
}

func TestDocumentChunks(t *testing.T) {
	assert.Equal(t, "3", documentChunks(domain.Result{"chunk_count": float64(3)}))
	assert.Equal(t, "4", documentChunks(domain.Result{"total_chunks": float64(4)}))
	assert.Equal(t, "?", documentChunks(domain.Result{}))
}
