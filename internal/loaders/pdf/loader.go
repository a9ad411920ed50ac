// Package pdf loads PDF documents. The built-in loader extracts the text
// layer in-process; the pdftotext plugin uses poppler when it is installed
// and produces better layout for complex documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader extracts the PDF text layer without external tools. It does not OCR;
// scanned documents come back empty with extraction_failed set.
type Loader struct{}

// New creates a new PDF loader.
func New() *Loader {
	return &Loader{}
}

// Name returns "pdf".
func (l *Loader) Name() string { return "pdf" }

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string { return []string{".pdf"} }

// Priority returns the built-in priority.
func (l *Loader) Priority() int { return 0 }

// Load extracts text page by page, joining pages with a blank line.
func (l *Loader) Load(_ context.Context, r io.Reader, filename string) (doc *domain.LoadedDocument, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read pdf")
	}

	// The parser panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "parse pdf")
	}

	pageCount := reader.NumPage()
	var pages []string
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Debug("%s: page %d: %v", filename, i, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	metadata := map[string]any{
		"filename":   filename,
		"type":       "pdf",
		"page_count": pageCount,
	}
	if len(pages) == 0 {
		logger.Warn("No text extracted from %s; it may be a scanned PDF", filename)
		metadata["extraction_failed"] = true
	}

	info := reader.Trailer().Key("Info")
	if title := strings.TrimSpace(info.Key("Title").Text()); title != "" {
		metadata["title"] = title
	}
	if author := strings.TrimSpace(info.Key("Author").Text()); author != "" {
		metadata["author"] = author
	}

	return &domain.LoadedDocument{Text: strings.Join(pages, "\n\n"), Metadata: metadata}, nil
}
