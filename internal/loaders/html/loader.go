// Package html loads HTML documents, keeping visible text only.
package html

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles HTML documents.
type Loader struct{}

// New creates a new HTML loader.
func New() *Loader {
	return &Loader{}
}

// Name returns "html".
func (l *Loader) Name() string { return "html" }

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string { return []string{".html", ".htm", ".xhtml"} }

// Priority returns the built-in priority.
func (l *Loader) Priority() int { return 0 }

// Load extracts visible text and the document title.
func (l *Loader) Load(_ context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error) {
	content, title, err := Extract(r)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"filename": filename, "type": "html"}
	if title != "" {
		metadata["title"] = title
	}
	return &domain.LoadedDocument{Text: content, Metadata: metadata}, nil
}

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Head:     true,
}

// block elements end the current line.
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Tr: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Ul: true, atom.Ol: true, atom.Dt: true, atom.Dd: true, atom.Td: true, atom.Th: true,
}

// Extract tokenizes HTML and returns its visible text, one block per line,
// and the contents of the <title> element.
func Extract(r io.Reader) (string, string, error) {
	z := html.NewTokenizer(r)

	var (
		lines   []string
		line    strings.Builder
		title   strings.Builder
		skip    int
		inTitle bool
	)
	flush := func() {
		if s := strings.Join(strings.Fields(line.String()), " "); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", "", errors.Wrap(err, "parse html")
			}
			flush()
			return strings.Join(lines, "\n"), strings.Join(strings.Fields(title.String()), " "), nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Title {
				inTitle = tt == html.StartTagToken
				continue
			}
			if skipped[tok.DataAtom] && tt == html.StartTagToken {
				skip++
			}
			if block[tok.DataAtom] {
				flush()
			}

		case html.EndTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Title {
				inTitle = false
				continue
			}
			if skipped[tok.DataAtom] && skip > 0 {
				skip--
			}
			if block[tok.DataAtom] {
				flush()
			}

		case html.TextToken:
			text := string(z.Text())
			switch {
			case inTitle:
				title.WriteString(text)
			case skip == 0:
				line.WriteString(text)
				line.WriteByte(' ')
			}
		}
	}
}
