package markdown

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantTitle string
	}{
		{"h1 title", "# Getting Started\n\nSome text.", "Getting Started"},
		{"h1 after preamble", "intro\n\n# Real Title\n", "Real Title"},
		{"h2 only", "## Section\ntext", ""},
		{"heading in code fence", "```\n# comment\n```\n# Title", "Title"},
		{"indented is not a heading", "  # not a title", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New().Load(context.Background(), strings.NewReader(tt.content), "readme.md")
			require.NoError(t, err)
			assert.Equal(t, tt.content, doc.Text)
			assert.Equal(t, "markdown", doc.Metadata["type"])
			if tt.wantTitle == "" {
				assert.NotContains(t, doc.Metadata, "title")
			} else {
				assert.Equal(t, tt.wantTitle, doc.Metadata["title"])
			}
		})
	}
}

func TestLoader_Descriptor(t *testing.T) {
	l := New()
	assert.Equal(t, "markdown", l.Name())
	assert.ElementsMatch(t, []string{".md", ".markdown"}, l.Extensions())
}
