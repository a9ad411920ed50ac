package cli

import (
	"context"
	"mime"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
)

var (
	uploadNamespace string
	uploadMetadata  string
	uploadJSON      bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a file for server-side processing",
	Long: `Sends the raw file to the service, which extracts and chunks it.
Use "stache ingest" to extract text locally instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadNamespace, "namespace", "n", "", "target namespace")
	uploadCmd.Flags().StringVarP(&uploadMetadata, "metadata", "m", "", "metadata as JSON")
	uploadCmd.Flags().BoolVar(&uploadJSON, "json", false, "output raw JSON")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	metadata, err := parseJSONObject("metadata", uploadMetadata)
	if err != nil {
		return err
	}
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	filename := filepath.Base(path)

	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.Upload(ctx, domain.UploadRequest{
			Filename:    filename,
			Content:     content,
			ContentType: mime.TypeByExtension(filepath.Ext(filename)),
			Namespace:   uploadNamespace,
			Metadata:    metadata,
		})
		if err != nil {
			return err
		}
		if uploadJSON {
			return printJSON(cmd, res)
		}
		cmd.Printf("%s Uploaded %s → %d chunks (doc: %s)\n", markOK, filename, res.Int("chunks_created"), res.DocumentID())
		return nil
	})
}
