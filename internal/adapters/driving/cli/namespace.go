package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
)

var (
	namespaceJSON        bool
	namespaceName        string
	namespaceDescription string
	namespaceParent      string
	namespaceMetadata    string
	namespaceCascade     bool
	namespaceYes         bool
)

var namespaceCmd = &cobra.Command{
	Use:     "namespace",
	Aliases: []string{"ns"},
	Short:   "Manage namespaces",
	Long:    `Lists, creates, inspects, updates and deletes knowledge base namespaces.`,
}

var namespaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all namespaces",
	Args:  cobra.NoArgs,
	RunE:  runNamespaceList,
}

var namespaceGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show namespace details",
	Args:  cobra.ExactArgs(1),
	RunE:  runNamespaceGet,
}

var namespaceCreateCmd = &cobra.Command{
	Use:   "create [id]",
	Short: "Create a namespace",
	Args:  cobra.ExactArgs(1),
	RunE:  runNamespaceCreate,
}

var namespaceUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update a namespace",
	Args:  cobra.ExactArgs(1),
	RunE:  runNamespaceUpdate,
}

var namespaceDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a namespace",
	Args:  cobra.ExactArgs(1),
	RunE:  runNamespaceDelete,
}

func init() {
	namespaceListCmd.Flags().BoolVar(&namespaceJSON, "json", false, "output raw JSON")
	namespaceGetCmd.Flags().BoolVar(&namespaceJSON, "json", false, "output raw JSON")

	namespaceCreateCmd.Flags().StringVarP(&namespaceName, "name", "n", "", "display name")
	namespaceCreateCmd.Flags().StringVarP(&namespaceDescription, "description", "d", "", "description")
	namespaceCreateCmd.Flags().StringVarP(&namespaceParent, "parent", "p", "", "parent namespace ID")
	namespaceCreateCmd.Flags().StringVarP(&namespaceMetadata, "metadata", "m", "", "metadata as JSON")
	_ = namespaceCreateCmd.MarkFlagRequired("name")

	namespaceUpdateCmd.Flags().StringVarP(&namespaceName, "name", "n", "", "new display name")
	namespaceUpdateCmd.Flags().StringVarP(&namespaceDescription, "description", "d", "", "new description")
	namespaceUpdateCmd.Flags().StringVarP(&namespaceMetadata, "metadata", "m", "", "new metadata as JSON")

	namespaceDeleteCmd.Flags().BoolVar(&namespaceCascade, "cascade", false, "also delete every document in the namespace")
	namespaceDeleteCmd.Flags().BoolVarP(&namespaceYes, "yes", "y", false, "skip confirmation")

	namespaceCmd.AddCommand(namespaceListCmd, namespaceGetCmd, namespaceCreateCmd, namespaceUpdateCmd, namespaceDeleteCmd)
	rootCmd.AddCommand(namespaceCmd)
}

func runNamespaceList(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.ListNamespaces(ctx)
		if err != nil {
			return err
		}
		if namespaceJSON {
			return printJSON(cmd, res)
		}

		namespaces := res.Objects("namespaces")
		if len(namespaces) == 0 {
			cmd.Println(warningStyle.Render("No namespaces found."))
			return nil
		}

		w := newTable(cmd.OutOrStdout())
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tDOCS\tCHUNKS")
		for _, ns := range namespaces {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				ns.String("id"),
				ns.String("name"),
				truncate(ns.String("description"), 40),
				orDash(ns, "doc_count"),
				orDash(ns, "chunk_count"),
			)
		}
		return w.Flush()
	})
}

func runNamespaceGet(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.GetNamespace(ctx, args[0])
		if err != nil {
			return err
		}
		if namespaceJSON {
			return printJSON(cmd, res)
		}

		ns := res
		if inner := res.Object("namespace"); inner != nil {
			ns = inner
		}
		parent := ns.String("parent_id")
		if parent == "" {
			parent = "None"
		}
		cmd.Println(titleStyle.Render(args[0]))
		printField(cmd, "Name", ns.String("name"))
		printField(cmd, "Description", ns.String("description"))
		printField(cmd, "Parent", parent)
		printField(cmd, "Documents", orDash(ns, "doc_count"))
		printField(cmd, "Chunks", orDash(ns, "chunk_count"))
		printField(cmd, "Created", timestamp(ns, "created_at"))
		printField(cmd, "Updated", timestamp(ns, "updated_at"))
		return nil
	})
}

func runNamespaceCreate(cmd *cobra.Command, args []string) error {
	metadata, err := parseJSONObject("metadata", namespaceMetadata)
	if err != nil {
		return err
	}
	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		_, err := kb.CreateNamespace(ctx, domain.NamespaceCreate{
			ID:          args[0],
			Name:        namespaceName,
			Description: namespaceDescription,
			ParentID:    namespaceParent,
			Metadata:    metadata,
		})
		if err != nil {
			return err
		}
		cmd.Printf("%s %s\n", successStyle.Render("Created namespace:"), args[0])
		return nil
	})
}

func runNamespaceUpdate(cmd *cobra.Command, args []string) error {
	metadata, err := parseJSONObject("metadata", namespaceMetadata)
	if err != nil {
		return err
	}

	var update domain.NamespaceUpdate
	if cmd.Flags().Changed("name") {
		name := namespaceName
		update.Name = &name
	}
	if cmd.Flags().Changed("description") {
		desc := namespaceDescription
		update.Description = &desc
	}
	update.Metadata = metadata
	if update.Name == nil && update.Description == nil && update.Metadata == nil {
		cmd.Println(warningStyle.Render("Nothing to update. Provide --name, --description, or --metadata"))
		return nil
	}

	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		if _, err := kb.UpdateNamespace(ctx, args[0], update); err != nil {
			return err
		}
		cmd.Printf("%s %s\n", successStyle.Render("Updated namespace:"), args[0])
		return nil
	})
}

func runNamespaceDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	if !namespaceYes {
		question := fmt.Sprintf("Delete namespace '%s'?", id)
		if namespaceCascade {
			question = fmt.Sprintf("Delete namespace '%s' and ALL its documents?", id)
		}
		ok, err := confirm(cmd, question)
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Aborted.")
			return nil
		}
	}

	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.DeleteNamespace(ctx, id, namespaceCascade)
		if err != nil {
			return err
		}
		if namespaceCascade {
			cmd.Printf("%s %s (%d docs, %d chunks)\n", successStyle.Render("Deleted namespace:"), id,
				res.Int("documents_deleted"), res.Int("chunks_deleted"))
			return nil
		}
		cmd.Printf("%s %s\n", successStyle.Render("Deleted namespace:"), id)
		return nil
	})
}
