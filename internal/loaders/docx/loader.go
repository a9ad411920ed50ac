// Package docx loads Microsoft Word documents.
package docx

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/loaders/archive"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles .docx files.
type Loader struct{}

// New creates a new Word loader.
func New() *Loader {
	return &Loader{}
}

// Name returns "docx".
func (l *Loader) Name() string { return "docx" }

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string { return []string{".docx"} }

// Priority returns the built-in priority.
func (l *Loader) Priority() int { return 0 }

// Load extracts paragraph text from word/document.xml, one paragraph per line.
func (l *Loader) Load(_ context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error) {
	zr, err := archive.Open(r)
	if err != nil {
		return nil, err
	}

	body, err := archive.ReadFile(zr, "word/document.xml")
	if err != nil {
		return nil, errors.Wrap(err, "not a word document")
	}
	content, err := archive.XMLText(body, "p", "t")
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"filename": filename, "type": "docx"}
	props := archive.ReadCoreProperties(zr)
	if props.Title != "" {
		metadata["title"] = props.Title
	}
	if props.Creator != "" {
		metadata["author"] = props.Creator
	}
	return &domain.LoadedDocument{Text: content, Metadata: metadata}, nil
}
