// Package pptx loads Microsoft PowerPoint presentations.
package pptx

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/loaders/archive"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Loader handles .pptx files.
type Loader struct{}

// New creates a new PowerPoint loader.
func New() *Loader {
	return &Loader{}
}

// Name returns "pptx".
func (l *Loader) Name() string { return "pptx" }

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string { return []string{".pptx"} }

// Priority returns the built-in priority.
func (l *Loader) Priority() int { return 0 }

// Load extracts the text of every slide in slide order. Each slide starts
// with a "## Slide N" heading.
func (l *Loader) Load(_ context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error) {
	zr, err := archive.Open(r)
	if err != nil {
		return nil, err
	}

	var sections []string
	slides := slideFiles(zr)
	for i, name := range slides {
		data, err := archive.ReadFile(zr, name)
		if err != nil {
			return nil, err
		}
		content, err := archive.XMLText(data, "p", "t")
		if err != nil {
			return nil, err
		}
		if content == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("## Slide %d\n%s", i+1, content))
	}

	metadata := map[string]any{
		"filename":    filename,
		"type":        "pptx",
		"slide_count": len(slides),
	}
	props := archive.ReadCoreProperties(zr)
	if props.Title != "" {
		metadata["title"] = props.Title
	}
	if props.Creator != "" {
		metadata["author"] = props.Creator
	}
	return &domain.LoadedDocument{Text: strings.Join(sections, "\n\n"), Metadata: metadata}, nil
}

// slideFiles returns slide entry names ordered by slide number.
func slideFiles(zr *zip.Reader) []string {
	type slide struct {
		n    int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n: n, name: f.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	names := make([]string, len(slides))
	for i, s := range slides {
		names[i] = s.name
	}
	return names
}
