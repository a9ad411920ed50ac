// Package archive reads the zip-packaged formats (Office Open XML, EPUB)
// shared by several loaders.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
)

// maxEntryBytes bounds a single decompressed entry.
const maxEntryBytes = 256 << 20

// Open reads r fully and opens it as a zip archive.
func Open(r io.Reader) (*zip.Reader, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read archive")
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	return zr, nil
}

// ReadFile returns the contents of the named entry.
func ReadFile(zr *zip.Reader, name string) ([]byte, error) {
	name = path.Clean(strings.TrimPrefix(name, "/"))
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", name)
		}
		defer rc.Close()

		b, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		return b, nil
	}
	return nil, errors.Newf("%s not found in archive", name)
}

// Has reports whether the archive contains the named entry.
func Has(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// XMLText collects character data inside elements named text (local name),
// ending a line at every element named para. Tabs and breaks inside a
// paragraph become tab and newline characters.
func XMLText(data []byte, para, text string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var (
		lines  []string
		line   strings.Builder
		inText int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "parse xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case text:
				inText++
			case "tab":
				line.WriteByte('\t')
			case "br":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case text:
				if inText > 0 {
					inText--
				}
			case para:
				if s := strings.TrimSpace(line.String()); s != "" {
					lines = append(lines, s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inText > 0 {
				line.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(line.String()); s != "" {
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n"), nil
}

// CoreProperties holds the Dublin Core fields of docProps/core.xml.
type CoreProperties struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
	Subject string `xml:"subject"`
}

// ReadCoreProperties parses docProps/core.xml when present.
func ReadCoreProperties(zr *zip.Reader) CoreProperties {
	var props CoreProperties
	b, err := ReadFile(zr, "docProps/core.xml")
	if err != nil {
		return props
	}
	_ = xml.Unmarshal(b, &props)
	props.Title = strings.TrimSpace(props.Title)
	props.Creator = strings.TrimSpace(props.Creator)
	props.Subject = strings.TrimSpace(props.Subject)
	return props
}
