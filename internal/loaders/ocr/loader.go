// Package ocr extracts text from images with tesseract.
package ocr

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/loaders/command"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Binary is the OCR executable.
const Binary = "tesseract"

// Loader runs tesseract over image files.
type Loader struct {
	runner command.Runner
}

// New creates an OCR loader. A nil runner uses command.ExecRunner.
func New(runner command.Runner) *Loader {
	if runner == nil {
		runner = command.ExecRunner{}
	}
	return &Loader{runner: runner}
}

// Name returns "ocr-image".
func (l *Loader) Name() string { return "ocr-image" }

// Extensions returns the image extensions tesseract accepts.
func (l *Loader) Extensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".gif"}
}

// Priority returns 5.
func (l *Loader) Priority() int { return 5 }

// Load writes the image to a temp file with its original extension so
// tesseract can detect the format, then reads the recognised text from stdout.
func (l *Loader) Load(ctx context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error) {
	suffix := strings.ToLower(filepath.Ext(filename))
	if suffix == "" {
		suffix = ".png"
	}

	var out []byte
	err := command.WithTempFile(r, suffix, func(path string) error {
		var runErr error
		out, runErr = l.runner.Run(ctx, Binary, path, "stdout")
		return runErr
	})
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "tesseract"), command.InstallHint(Binary))
	}

	metadata := map[string]any{
		"filename": filename,
		"type":     "image",
		"loader":   l.Name(),
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		metadata["extraction_failed"] = true
	}
	return &domain.LoadedDocument{Text: text, Metadata: metadata}, nil
}
