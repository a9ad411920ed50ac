package loaders

import (
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/loaders/command"
	"github.com/custodia-labs/stache-cli/internal/loaders/docx"
	"github.com/custodia-labs/stache-cli/internal/loaders/eml"
	"github.com/custodia-labs/stache-cli/internal/loaders/epub"
	"github.com/custodia-labs/stache-cli/internal/loaders/html"
	"github.com/custodia-labs/stache-cli/internal/loaders/markdown"
	"github.com/custodia-labs/stache-cli/internal/loaders/ocr"
	"github.com/custodia-labs/stache-cli/internal/loaders/pdf"
	"github.com/custodia-labs/stache-cli/internal/loaders/pptx"
	"github.com/custodia-labs/stache-cli/internal/loaders/text"
)

// Builtins returns the loaders compiled into the binary.
func Builtins() []driven.Loader {
	return []driven.Loader{
		text.New(),
		markdown.New(),
		html.New(),
		eml.New(),
		docx.New(),
		pptx.New(),
		epub.New(),
		pdf.New(),
	}
}

// DefaultPlugins returns the optional loaders backed by external binaries.
// A nil runner uses command.ExecRunner.
func DefaultPlugins(runner command.Runner) []Plugin {
	return []Plugin{
		{
			Name:  pdf.PopplerBinary,
			Probe: command.LookPath(pdf.PopplerBinary),
			New:   func() (driven.Loader, error) { return pdf.NewPoppler(runner), nil },
		},
		{
			Name:  "ocr-image",
			Probe: command.LookPath(ocr.Binary),
			New:   func() (driven.Loader, error) { return ocr.New(runner), nil },
		},
	}
}

// Build registers the built-in loaders, discovers plugins and applies overrides.
func Build(overrides map[string]string, plugins ...Plugin) (*Registry, error) {
	r := NewRegistry()
	for _, l := range Builtins() {
		r.Register(l)
	}
	r.Discover(plugins...)
	if len(overrides) > 0 {
		if err := r.SetOverrides(overrides); err != nil {
			return nil, err
		}
	}
	return r, nil
}
