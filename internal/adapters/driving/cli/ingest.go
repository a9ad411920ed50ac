package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
	"github.com/custodia-labs/stache-cli/internal/core/services"
)

var (
	ingestText       string
	ingestStdin      bool
	ingestNamespace  string
	ingestRecursive  bool
	ingestChunking   string
	ingestMetadata   string
	ingestPrepend    string
	ingestBasePath   string
	ingestPattern    string
	ingestWorkers    int
	ingestSkipErrors bool
	ingestDryRun     bool
	ingestYes        bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest files or text into the knowledge base",
	Long: `Extracts text from local files and submits it for chunking and storage.
Paths may be files or directories; use -r to descend into subdirectories.
Alternatively, use --text or --stdin to ingest text directly.

Examples:
  stache ingest document.pdf -n docs
  stache ingest ./files/ -r -n docs -c markdown -P 8
  stache ingest -t "Quick note to remember" -n notes
  echo "Text from pipe" | stache ingest --stdin -n notes
  stache ingest sermon.txt -m '{"speaker":"Pastor John"}' -p speaker`,
	RunE: runIngest,
}

func init() {
	flags := ingestCmd.Flags()
	flags.StringVarP(&ingestText, "text", "t", "", "ingest text directly instead of files")
	flags.BoolVar(&ingestStdin, "stdin", false, "read text from stdin")
	flags.StringVarP(&ingestNamespace, "namespace", "n", "", "target namespace")
	flags.BoolVarP(&ingestRecursive, "recursive", "r", false, "recursively process directories")
	flags.StringVarP(&ingestChunking, "chunking-strategy", "c", "auto",
		"chunking strategy ("+strings.Join(domain.ChunkingStrategies, ", ")+")")
	flags.StringVarP(&ingestMetadata, "metadata", "m", "", `metadata as JSON, e.g. '{"author": "John"}'`)
	flags.StringVarP(&ingestPrepend, "prepend-metadata", "p", "", "metadata keys to prepend to chunks (comma separated)")
	flags.StringVar(&ingestBasePath, "base-path", "", "base path stripped from source_path for portable identifiers")
	flags.StringVar(&ingestPattern, "pattern", services.DefaultIngestPattern, "glob pattern for files in directories")
	flags.IntVarP(&ingestWorkers, "parallel", "P", 0, "parallel workers (1-32, default from config)")
	flags.BoolVar(&ingestSkipErrors, "skip-errors", false, "continue on errors instead of stopping")
	flags.BoolVar(&ingestDryRun, "dry-run", false, "load files without submitting them")
	flags.BoolVarP(&ingestYes, "yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	strategy := strings.ToLower(ingestChunking)
	if !slices.Contains(domain.ChunkingStrategies, strategy) {
		return &domain.ValidationError{
			Field:   "chunking-strategy",
			Message: fmt.Sprintf("%q is not one of %s", ingestChunking, strings.Join(domain.ChunkingStrategies, ", ")),
		}
	}
	metadata, err := parseJSONObject("metadata", ingestMetadata)
	if err != nil {
		return err
	}
	prepend := splitCommaList(ingestPrepend)

	text := ingestText
	if ingestStdin {
		if text, err = readStdin(cmd); err != nil {
			return err
		}
	}
	if text != "" {
		return ingestDirectText(cmd, domain.IngestTextRequest{
			Text:             text,
			Namespace:        ingestNamespace,
			Metadata:         metadata,
			ChunkingStrategy: domain.ResolveChunkingStrategy(strategy),
			PrependMetadata:  prepend,
		})
	}

	if len(args) == 0 {
		return errors.WithHint(
			&domain.ValidationError{Field: "paths", Message: "provide a PATH or use --text/--stdin"},
			"Example: stache ingest ./docs -n docs -r")
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	workers := a.cfg.Workers
	if cmd.Flags().Changed("parallel") {
		if ingestWorkers < domain.MinWorkers || ingestWorkers > domain.MaxWorkers {
			return &domain.ValidationError{Field: "parallel", Message: "must be between 1 and 32"}
		}
		workers = ingestWorkers
	}

	opts := domain.IngestOptions{
		Paths:            args,
		Pattern:          ingestPattern,
		Recursive:        ingestRecursive,
		Namespace:        ingestNamespace,
		Workers:          workers,
		SkipErrors:       ingestSkipErrors,
		DryRun:           ingestDryRun,
		ChunkingStrategy: domain.ResolveChunkingStrategy(strategy),
		Metadata:         metadata,
		PrependMetadata:  prepend,
		BasePath:         ingestBasePath,
	}

	orchestrator := services.NewIngestOrchestrator(a.loaders, a.enrichers, a.newClient)
	jobs, err := orchestrator.Plan(opts)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		cmd.Println(warningStyle.Render("No files to ingest"))
		return nil
	}
	if len(jobs) > 1 && ingestNamespace == "" {
		return errors.WithHint(
			&domain.ValidationError{Field: "namespace", Message: "--namespace required for multi-file ingests"},
			fmt.Sprintf("Example: stache ingest %s -n my-namespace -r", args[0]))
	}

	cmd.Printf("Found %s to process\n", pluralize(len(jobs), "file"))
	if strategy != "auto" {
		cmd.Println(mutedStyle.Render("Chunking strategy: " + strategy))
	}
	if ingestDryRun {
		cmd.Println(labelStyle.Render("Dry run") + ": files are loaded but nothing is submitted")
	} else if !ingestYes && len(jobs) > 1 {
		ok, err := confirm(cmd, fmt.Sprintf("Ingest %d files to namespace '%s'?", len(jobs), namespaceLabel(ingestNamespace)))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Aborted.")
			return nil
		}
	}

	report, runErr := orchestrator.Run(cmd.Context(), opts, func(r domain.IngestResult) {
		printIngestProgress(cmd, r)
	})
	if report == nil {
		return runErr
	}
	if report.Counts.Failed > 0 && !ingestSkipErrors {
		cmd.Println(errorStyle.Render("Stopping due to error.") + " Use --skip-errors to continue.")
	}
	printIngestSummary(cmd, report)
	return runErr
}

func ingestDirectText(cmd *cobra.Command, req domain.IngestTextRequest) error {
	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.IngestText(ctx, req)
		if err != nil {
			return err
		}
		chunks := "?"
		if _, ok := res["chunks_created"]; ok {
			chunks = fmt.Sprint(res.Int("chunks_created"))
		}
		cmd.Printf("%s Ingested text → %s chunks (doc: %s...)\n", markOK, chunks, truncate(res.DocumentID(), 8))
		return nil
	})
}

func printIngestProgress(cmd *cobra.Command, r domain.IngestResult) {
	name := filepath.Base(r.Job.SourcePath)
	switch r.State {
	case domain.JobCommitted:
		cmd.Printf("%s %s → %d chunks\n", markOK, name, r.Chunks)
	case domain.JobValidated:
		cmd.Printf("%s %s (%s)\n", markOK, name, r.Loader)
	case domain.JobSkippedNoLoader:
		cmd.Printf("%s %s (no loader)\n", markSkip, name)
	case domain.JobSkippedEmpty:
		cmd.Printf("%s %s (empty)\n", markSkip, name)
	case domain.JobSkippedDueToFailure:
		cmd.Printf("%s %s (not processed)\n", markSkip, name)
	case domain.JobLoadFailed, domain.JobSubmitFailed:
		cmd.Printf("%s %s: %v\n", markFail, name, r.Err)
	}
}

func printIngestSummary(cmd *cobra.Command, report *domain.IngestReport) {
	rule := strings.Repeat("=", 50)
	title := "Import Complete"
	successful := report.Counts.Committed
	if report.DryRun {
		title = "Dry Run Complete"
		successful = report.Counts.Validated
	}

	cmd.Println()
	cmd.Println(labelStyle.Render(rule))
	cmd.Println(labelStyle.Render(title))
	cmd.Printf("  Successful: %d files\n", successful)
	cmd.Printf("  Failed: %d files\n", report.Counts.Failed)
	cmd.Printf("  Skipped: %d files\n", report.Counts.Skipped)
	cmd.Printf("  Total chunks: %d\n", report.TotalChunks)
	cmd.Printf("  Namespace: %s\n", namespaceLabel(report.Namespace))
	printIngestProblems(cmd, report)
	cmd.Println(labelStyle.Render(rule))
}

// printIngestProblems lists every failed job with its error kind and request
// id, then every job left unprocessed after a failure.
func printIngestProblems(cmd *cobra.Command, report *domain.IngestReport) {
	failures := report.Failures()
	var unprocessed []domain.IngestResult
	for _, r := range report.Results {
		if r.State == domain.JobSkippedDueToFailure {
			unprocessed = append(unprocessed, r)
		}
	}
	if len(failures) == 0 && len(unprocessed) == 0 {
		return
	}

	cmd.Println()
	if len(failures) > 0 {
		cmd.Println("  " + labelStyle.Render("Failures:"))
		for _, r := range failures {
			requestID := r.RequestID
			if requestID == "" {
				requestID = domain.RequestIDOf(r.Err)
			}
			if requestID == "" {
				requestID = "-"
			}
			cmd.Printf("    %s %s  %s  request_id=%s\n",
				markFail, filepath.Base(r.Job.SourcePath), domain.ErrorKind(r.Err), requestID)
		}
	}
	if len(unprocessed) > 0 {
		cmd.Println("  " + labelStyle.Render("Not processed after failure:"))
		for _, r := range unprocessed {
			cmd.Printf("    %s %s\n", markSkip, filepath.Base(r.Job.SourcePath))
		}
	}
}

func namespaceLabel(ns string) string {
	if ns == "" {
		return domain.DefaultNamespace
	}
	return ns
}

// readStdin reads piped input. An interactive terminal is rejected.
func readStdin(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", &domain.ValidationError{Field: "stdin", Message: "no input on stdin"}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", errors.Wrap(err, "read stdin")
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", &domain.ValidationError{Field: "stdin", Message: "no input on stdin"}
	}
	return string(data), nil
}

// confirm asks a yes/no question on the command's input. The default is no.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	cmd.Printf("%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Wrap(err, "read answer")
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
