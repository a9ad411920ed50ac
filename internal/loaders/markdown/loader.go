// Package markdown loads Markdown files. The raw markdown is kept so the
// service can chunk on headings.
package markdown

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/loaders/text"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles Markdown documents.
type Loader struct{}

// New creates a new Markdown loader.
func New() *Loader {
	return &Loader{}
}

// Name returns "markdown".
func (l *Loader) Name() string { return "markdown" }

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string { return []string{".md", ".markdown"} }

// Priority returns the built-in priority.
func (l *Loader) Priority() int { return 0 }

// Load reads the document and takes the title from the first level-one heading.
func (l *Loader) Load(_ context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read markdown")
	}
	content := text.Decode(b)

	metadata := map[string]any{"filename": filename, "type": "markdown"}
	if title := extractTitle(content); title != "" {
		metadata["title"] = title
	}
	return &domain.LoadedDocument{Text: content, Metadata: metadata}, nil
}

// extractTitle returns the first "# " heading outside fenced code blocks.
func extractTitle(content string) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
