package pdf

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/loaders/command"
)

// Ensure PopplerLoader implements the interface.
var _ driven.Loader = (*PopplerLoader)(nil)

// PopplerBinary is the executable the poppler loader runs.
const PopplerBinary = "pdftotext"

// PopplerLoader extracts PDF text with poppler's pdftotext.
type PopplerLoader struct {
	runner command.Runner
}

// NewPoppler creates a poppler loader. A nil runner uses command.ExecRunner.
func NewPoppler(runner command.Runner) *PopplerLoader {
	if runner == nil {
		runner = command.ExecRunner{}
	}
	return &PopplerLoader{runner: runner}
}

// Name returns "pdftotext".
func (l *PopplerLoader) Name() string { return PopplerBinary }

// Extensions returns the extensions this loader handles.
func (l *PopplerLoader) Extensions() []string { return []string{".pdf"} }

// Priority returns 10 so it takes over from the built-in loader.
func (l *PopplerLoader) Priority() int { return 10 }

// Load runs pdftotext with layout preservation. Pages are separated by
// form feeds in the output and joined with a blank line.
func (l *PopplerLoader) Load(ctx context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error) {
	var out []byte
	err := command.WithTempFile(r, ".pdf", func(path string) error {
		var runErr error
		out, runErr = l.runner.Run(ctx, PopplerBinary, "-layout", "-enc", "UTF-8", path, "-")
		return runErr
	})
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "pdftotext"), command.InstallHint(PopplerBinary))
	}

	var pages []string
	for _, page := range strings.Split(string(out), "\f") {
		if page = strings.TrimSpace(page); page != "" {
			pages = append(pages, page)
		}
	}

	metadata := map[string]any{
		"filename": filename,
		"type":     "pdf",
		"loader":   PopplerBinary,
	}
	if len(pages) == 0 {
		metadata["extraction_failed"] = true
	}
	return &domain.LoadedDocument{Text: strings.Join(pages, "\n\n"), Metadata: metadata}, nil
}
