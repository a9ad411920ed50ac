package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// Loader extracts text and metadata from one family of file types.
type Loader interface {
	// Name identifies the loader for overrides and logging (matched case-insensitively).
	Name() string

	// Extensions returns the lower-case extensions handled, with leading dot.
	Extensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Built-in loaders return 0; optional plugins return 5-10 to take over.
	Priority() int

	// Load reads the file and returns the extracted document.
	Load(ctx context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error)
}

// LoaderRegistry selects the active loader for a file.
type LoaderRegistry interface {
	// Resolve returns the active loader for an extension.
	Resolve(ext string) (Loader, bool)

	// ResolveFile returns the active loader for a file name.
	ResolveFile(filename string) (Loader, bool)

	// SupportedExtensions returns every extension with at least one loader, sorted.
	SupportedExtensions() []string
}
