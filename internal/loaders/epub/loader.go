// Package epub loads EPUB ebooks in reading order.
package epub

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/loaders/archive"
	"github.com/custodia-labs/stache-cli/internal/loaders/html"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles .epub files.
type Loader struct{}

// New creates a new EPUB loader.
func New() *Loader {
	return &Loader{}
}

// Name returns "epub".
func (l *Loader) Name() string { return "epub" }

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string { return []string{".epub"} }

// Priority returns the built-in priority.
func (l *Loader) Priority() int { return 0 }

type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	Metadata struct {
		Title   []string `xml:"title"`
		Creator []string `xml:"creator"`
	} `xml:"metadata"`
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// Load walks the spine and extracts the text of each XHTML document.
func (l *Loader) Load(_ context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error) {
	zr, err := archive.Open(r)
	if err != nil {
		return nil, err
	}

	raw, err := archive.ReadFile(zr, "META-INF/container.xml")
	if err != nil {
		return nil, errors.Wrap(err, "not an epub")
	}
	var c container
	if err := xml.Unmarshal(raw, &c); err != nil || len(c.Rootfiles) == 0 {
		return nil, errors.New("epub container has no rootfile")
	}

	opfPath := c.Rootfiles[0].FullPath
	raw, err = archive.ReadFile(zr, opfPath)
	if err != nil {
		return nil, err
	}
	var pkg packageDoc
	if err := xml.Unmarshal(raw, &pkg); err != nil {
		return nil, errors.Wrap(err, "parse package document")
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		if strings.Contains(item.MediaType, "html") {
			hrefs[item.ID] = item.Href
		}
	}

	base := path.Dir(opfPath)
	var chapters []string
	for _, ref := range pkg.Spine {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		data, err := archive.ReadFile(zr, path.Join(base, href))
		if err != nil {
			continue
		}
		content, _, err := html.Extract(bytes.NewReader(data))
		if err != nil || content == "" {
			continue
		}
		chapters = append(chapters, content)
	}

	metadata := map[string]any{"filename": filename, "type": "epub"}
	if len(pkg.Metadata.Title) > 0 && strings.TrimSpace(pkg.Metadata.Title[0]) != "" {
		metadata["title"] = strings.TrimSpace(pkg.Metadata.Title[0])
	}
	if len(pkg.Metadata.Creator) > 0 && strings.TrimSpace(pkg.Metadata.Creator[0]) != "" {
		metadata["author"] = strings.TrimSpace(pkg.Metadata.Creator[0])
	}
	return &domain.LoadedDocument{Text: strings.Join(chapters, "\n\n"), Metadata: metadata}, nil
}
