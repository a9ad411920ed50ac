// Package text loads plain text files.
package text

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles plain text and text-like data files.
type Loader struct{}

// New creates a new plain text loader.
func New() *Loader {
	return &Loader{}
}

// Name returns "text".
func (l *Loader) Name() string { return "text" }

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".txt", ".text", ".log", ".csv", ".json", ".yaml", ".yml", ".toml"}
}

// Priority returns the built-in priority.
func (l *Loader) Priority() int { return 0 }

// Load reads the file as UTF-8, replacing invalid sequences.
func (l *Loader) Load(_ context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read text")
	}
	return &domain.LoadedDocument{
		Text:     Decode(b),
		Metadata: map[string]any{"filename": filename, "type": "text"},
	}, nil
}

// Decode converts bytes to a string, dropping a UTF-8 byte order mark and
// replacing invalid sequences with U+FFFD.
func Decode(b []byte) string {
	s := strings.TrimPrefix(string(b), "\uFEFF")
	return strings.ToValidUTF8(s, "\uFFFD")
}
