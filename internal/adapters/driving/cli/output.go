package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// Terminal palette.
var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6C7086")
	colorSuccess = lipgloss.Color("#A6E3A1")
	colorWarning = lipgloss.Color("#F9E2AF")
	colorError   = lipgloss.Color("#F38BA8")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
)

// Status markers for per-item progress lines.
var (
	markOK   = successStyle.Render("✓")
	markFail = errorStyle.Render("✗")
	markSkip = warningStyle.Render("○")
)

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal output")
	}
	cmd.Println(string(data))
	return nil
}

// parseJSONObject decodes a JSON object flag value. Empty input yields nil.
func parseJSONObject(flag, value string) (map[string]any, error) {
	if value == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, &domain.ValidationError{Field: flag, Message: "invalid JSON: " + err.Error()}
	}
	if out == nil {
		return nil, &domain.ValidationError{Field: flag, Message: "must be a JSON object"}
	}
	return out, nil
}

// printField prints an aligned "Label: value" line.
func printField(cmd *cobra.Command, label string, value any) {
	cmd.Printf("%s %v\n", labelStyle.Render(label+":"), value)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// orDash renders missing values as "-".
func orDash(r domain.Result, key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return "-"
	}
	switch val := v.(type) {
	case string:
		if val == "" {
			return "-"
		}
		return val
	case float64:
		return fmt.Sprint(int64(val))
	default:
		return fmt.Sprint(val)
	}
}

// timestamp trims an ISO timestamp to seconds precision.
func timestamp(r domain.Result, key string) string {
	ts := r.String(key)
	if ts == "" {
		return "-"
	}
	return truncate(ts, 19)
}

func formatScore(score float64) string {
	return fmt.Sprintf("(score: %.3f)", score)
}

// pluralize renders "1 file" or "3 files".
func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
