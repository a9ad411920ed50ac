package enrichers

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
)

// RegisterDefaults registers all built-in enrichers with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("whitespace", func(map[string]any) (driven.Enricher, error) { return Whitespace{}, nil })
	r.Register("stats", func(map[string]any) (driven.Enricher, error) { return Stats{}, nil })
}

// Whitespace trims trailing spaces and collapses runs of blank lines.
type Whitespace struct{}

// Name returns "whitespace".
func (Whitespace) Name() string { return "whitespace" }

// Priority returns 10 so text is normalised before other enrichers see it.
func (Whitespace) Priority() int { return 10 }

// Enrich returns the normalised text and no metadata.
func (Whitespace) Enrich(_ context.Context, text string, _ map[string]any) (string, map[string]any, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.Trim(strings.Join(out, "\n"), "\n"), nil, nil
}

// Stats records word and character counts.
type Stats struct{}

// Name returns "stats".
func (Stats) Name() string { return "stats" }

// Priority returns 100.
func (Stats) Priority() int { return 100 }

// Enrich adds word_count and char_count.
func (Stats) Enrich(_ context.Context, text string, _ map[string]any) (string, map[string]any, error) {
	return text, map[string]any{
		"word_count": len(strings.Fields(text)),
		"char_count": utf8.RuneCountInString(text),
	}, nil
}
