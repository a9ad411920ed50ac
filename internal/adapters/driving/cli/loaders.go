package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var loadersCmd = &cobra.Command{
	Use:   "loaders",
	Short: "List supported file types and the loader used for each",
	Long: `Shows every file extension "stache ingest" can read, the loader that
currently handles it and any lower-priority alternatives. Override the
choice with "stache config set loader.<ext> <loader>".`,
	Args: cobra.NoArgs,
	RunE: runLoaders,
}

func init() {
	rootCmd.AddCommand(loadersCmd)
}

func runLoaders(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	registry := a.loaders

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "EXTENSION\tLOADER\tPRIORITY\tALTERNATIVES")
	for _, ext := range registry.SupportedExtensions() {
		active, ok := registry.Resolve(ext)
		if !ok {
			continue
		}
		var others []string
		for _, l := range registry.Candidates(ext) {
			if l.Name() != active.Name() {
				others = append(others, l.Name())
			}
		}
		alternatives := "-"
		if len(others) > 0 {
			alternatives = strings.Join(others, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", ext, active.Name(), active.Priority(), alternatives)
	}
	return w.Flush()
}
