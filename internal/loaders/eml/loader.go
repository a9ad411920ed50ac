// Package eml loads RFC 822 email messages.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/loaders/html"
	"github.com/custodia-labs/stache-cli/internal/loaders/text"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles .eml files.
type Loader struct{}

// New creates a new email loader.
func New() *Loader {
	return &Loader{}
}

// Name returns "eml".
func (l *Loader) Name() string { return "eml" }

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string { return []string{".eml"} }

// Priority returns the built-in priority.
func (l *Loader) Priority() int { return 0 }

// Load parses the message. The text starts with the From, To, Date and
// Subject headers followed by the body; plain text parts are preferred
// over HTML parts.
func (l *Loader) Load(_ context.Context, r io.Reader, filename string) (*domain.LoadedDocument, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse email")
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	to := decodeHeader(msg.Header.Get("To"))
	date := msg.Header.Get("Date")

	body, err := extractBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	metadata := map[string]any{"filename": filename, "type": "email"}
	for _, h := range []struct{ label, key, value string }{
		{"From", "from", from},
		{"To", "to", to},
		{"Date", "date", date},
		{"Subject", "subject", subject},
	} {
		if h.value == "" {
			continue
		}
		content.WriteString(h.label + ": " + h.value + "\n")
		metadata[h.key] = h.value
	}
	if subject != "" {
		metadata["title"] = subject
	}
	content.WriteString("\n")
	content.WriteString(body)

	return &domain.LoadedDocument{
		Text:     strings.TrimSpace(content.String()),
		Metadata: metadata,
	}, nil
}

func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody returns the readable body of a message or part.
func extractBody(contentType, encoding string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(r, params["boundary"]), nil
	}

	b, err := io.ReadAll(decodeTransfer(r, encoding))
	if err != nil {
		return "", errors.Wrap(err, "read email body")
	}
	if mediaType == "text/html" {
		content, _, err := html.Extract(bytes.NewReader(b))
		if err != nil {
			return "", err
		}
		return content, nil
	}
	return text.Decode(b), nil
}

func extractMultipart(r io.Reader, boundary string) string {
	if boundary == "" {
		return ""
	}

	mr := multipart.NewReader(r, boundary)
	var plain, htmlParts []string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		ct := part.Header.Get("Content-Type")
		if ct == "" {
			ct = "text/plain"
		}
		mediaType, _, parseErr := mime.ParseMediaType(ct)
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		disposition, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		if disposition == "attachment" {
			part.Close()
			continue
		}

		switch {
		case mediaType == "text/plain", mediaType == "text/html", strings.HasPrefix(mediaType, "multipart/"):
			body, err := extractBody(ct, part.Header.Get("Content-Transfer-Encoding"), part)
			if err == nil && strings.TrimSpace(body) != "" {
				if mediaType == "text/html" {
					htmlParts = append(htmlParts, body)
				} else {
					plain = append(plain, body)
				}
			}
		}
		part.Close()
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n")
	}
	return strings.Join(htmlParts, "\n")
}

// decodeTransfer undoes base64 and quoted-printable transfer encodings.
// multipart.Reader already decodes quoted-printable parts and drops the header.
func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// newlineStripper drops CR and LF so wrapped base64 decodes cleanly.
type newlineStripper struct{ r io.Reader }

func (n newlineStripper) Read(p []byte) (int, error) {
	for {
		c, err := n.r.Read(p)
		j := 0
		for _, b := range p[:c] {
			if b != '\r' && b != '\n' {
				p[j] = b
				j++
			}
		}
		if j > 0 || err != nil {
			return j, err
		}
	}
}
