package cli

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
)

// contentPreview bounds the document text printed by "document get".
const contentPreview = 2000

var (
	documentNamespace    string
	documentFilter       string
	documentLimit        int
	documentNextKey      string
	documentJSON         bool
	documentYes          bool
	documentNewNamespace string
	documentNewFilename  string
	documentMetadata     string
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage documents",
	Long:    `Lists, inspects, updates and deletes documents stored in the knowledge base.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [document-id]",
	Short: "Show document details and content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentUpdateCmd = &cobra.Command{
	Use:   "update [document-id]",
	Short: "Move, rename or re-tag a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentUpdate,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentListCmd.Flags().StringVarP(&documentFilter, "namespace", "n", "", "filter by namespace")
	documentListCmd.Flags().IntVarP(&documentLimit, "limit", "l", domain.DefaultDocumentLimit, "max documents (up to 100)")
	documentListCmd.Flags().StringVar(&documentNextKey, "next-key", "", "continue from a previous page")
	documentListCmd.Flags().BoolVar(&documentJSON, "json", false, "output raw JSON")

	documentGetCmd.Flags().StringVarP(&documentNamespace, "namespace", "n", domain.DefaultNamespace, "namespace containing the document")
	documentGetCmd.Flags().BoolVar(&documentJSON, "json", false, "output raw JSON")

	documentUpdateCmd.Flags().StringVarP(&documentNamespace, "namespace", "n", domain.DefaultNamespace, "namespace containing the document")
	documentUpdateCmd.Flags().StringVar(&documentNewNamespace, "new-namespace", "", "namespace to move the document to")
	documentUpdateCmd.Flags().StringVar(&documentNewFilename, "new-filename", "", "new filename")
	documentUpdateCmd.Flags().StringVarP(&documentMetadata, "metadata", "m", "", "metadata as JSON, replacing existing values")

	documentDeleteCmd.Flags().StringVarP(&documentNamespace, "namespace", "n", domain.DefaultNamespace, "namespace containing the document")
	documentDeleteCmd.Flags().BoolVarP(&documentYes, "yes", "y", false, "skip confirmation")

	documentCmd.AddCommand(documentListCmd, documentGetCmd, documentUpdateCmd, documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.ListDocuments(ctx, domain.ListDocumentsRequest{
			Namespace: documentFilter,
			Limit:     documentLimit,
			NextKey:   documentNextKey,
		})
		if err != nil {
			return err
		}
		if documentJSON {
			return printJSON(cmd, res)
		}

		documents := res.Objects("documents")
		if len(documents) == 0 {
			cmd.Println(warningStyle.Render("No documents found."))
			return nil
		}

		w := newTable(cmd.OutOrStdout())
		fmt.Fprintln(w, "ID\tFILENAME\tNAMESPACE\tCHUNKS")
		for _, d := range documents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				truncate(d.String("doc_id"), 36),
				truncate(d.String("filename"), 30),
				namespaceLabel(d.String("namespace")),
				documentChunks(d),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if next := res.String("next_key"); next != "" {
			cmd.Println()
			cmd.Println(mutedStyle.Render("More results available. Continue with --next-key " + next))
		}
		return nil
	})
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.GetDocument(ctx, args[0], documentNamespace)
		if err != nil {
			return err
		}
		if documentJSON {
			return printJSON(cmd, res)
		}

		title := res.String("filename")
		if title == "" {
			title = "Untitled"
		}
		cmd.Println(titleStyle.Render(title))
		printField(cmd, "ID", res.String("doc_id"))
		printField(cmd, "Namespace", namespaceLabel(res.String("namespace")))
		printField(cmd, "Chunks", documentChunks(res))
		printField(cmd, "Created", timestamp(res, "created_at"))

		text := res.String("reconstructed_text")
		if text == "" {
			text = res.String("text")
		}
		if text == "" {
			return nil
		}
		cmd.Println()
		cmd.Println(labelStyle.Render("Content:"))
		cmd.Println(truncate(text, contentPreview))
		if rest := len([]rune(text)) - contentPreview; rest > 0 {
			cmd.Println()
			cmd.Println(mutedStyle.Render(fmt.Sprintf("... (%d more characters)", rest)))
		}
		return nil
	})
}

func runDocumentUpdate(cmd *cobra.Command, args []string) error {
	metadata, err := parseJSONObject("metadata", documentMetadata)
	if err != nil {
		return err
	}
	update := domain.DocumentUpdate{
		Namespace: documentNewNamespace,
		Filename:  documentNewFilename,
		Metadata:  metadata,
	}
	if update.Empty() {
		return &domain.ValidationError{
			Field:   "update",
			Message: "at least one of --new-namespace, --new-filename or --metadata is required",
		}
	}

	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.UpdateDocument(ctx, args[0], documentNamespace, update)
		if err != nil {
			return err
		}
		target := res.String("namespace")
		if target == "" {
			target = documentNamespace
		}
		cmd.Printf("%s %s (%d chunks) in namespace %s\n", successStyle.Render("Updated document"),
			args[0], res.Int("updated_chunks"), target)
		return nil
	})
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if !documentYes {
		ok, err := confirm(cmd, fmt.Sprintf("Delete document '%s'?", args[0]))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Aborted.")
			return nil
		}
	}

	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.DeleteDocument(ctx, args[0], documentNamespace)
		if err != nil {
			return err
		}
		if ok, present := res["success"].(bool); present && !ok {
			return errors.Newf("delete failed: %s", res.String("error"))
		}
		cmd.Println(successStyle.Render(fmt.Sprintf("Deleted document (%d chunks)", res.Int("chunks_deleted"))))
		return nil
	})
}

func documentChunks(d domain.Result) string {
	for _, key := range []string{"chunk_count", "total_chunks"} {
		if _, ok := d[key]; ok {
			return fmt.Sprint(d.Int(key))
		}
	}
	return "?"
}
