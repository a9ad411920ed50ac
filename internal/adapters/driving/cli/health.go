package cli

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/stache-cli/internal/adapters/driven/transport"
	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
)

var (
	healthAuth bool
	healthJSON bool
	modelsJSON bool
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity and service health",
	Long: `Reports the selected transport and the service health. With --auth,
or whenever OAuth is configured, it also verifies that credentials work.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available for answer synthesis",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	healthCmd.Flags().BoolVar(&healthAuth, "auth", false, "validate authentication")
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output raw JSON")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "output raw JSON")
	rootCmd.AddCommand(healthCmd, modelsCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	cfg := a.cfg
	kind := transport.Select(cfg)

	if !healthJSON {
		target := cfg.APIURL
		if kind == domain.TransportFunction {
			target = cfg.FunctionName
		}
		printField(cmd, "Transport", kind)
		printField(cmd, "Target", target)
		if kind == domain.TransportHTTP {
			oauth := "disabled"
			if cfg.OAuthEnabled() {
				oauth = "enabled"
			}
			printField(cmd, "OAuth", oauth)
		}
		cmd.Println()
	}

	includeAuth := healthAuth || cfg.OAuthEnabled() || kind == domain.TransportFunction
	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.Health(ctx, includeAuth)
		if err != nil {
			return errors.Wrap(err, "health check failed")
		}
		if healthJSON {
			return printJSON(cmd, res)
		}

		status := res.String("status")
		if status == "" {
			status = "unknown"
		}
		if status == "healthy" {
			cmd.Println(successStyle.Render("Status: " + status))
		} else {
			cmd.Println(warningStyle.Render("Status: " + status))
		}

		if auth := res.String("auth_status"); auth != "" {
			if auth == "valid" {
				cmd.Println(successStyle.Render("Auth: " + auth))
			} else {
				cmd.Println(errorStyle.Render("Auth: " + auth))
			}
		}

		if providers := res.Object("providers"); providers != nil {
			cmd.Println()
			cmd.Println(labelStyle.Render("Providers:"))
			cmd.Printf("  VectorDB: %s\n", providerName(providers, "vectordb_provider"))
			cmd.Printf("  Embedding: %s\n", providerName(providers, "embedding_provider"))
			cmd.Printf("  LLM: %s\n", providerName(providers, "llm_provider"))
		}

		if id := kb.LastRequestID(); id != "" {
			cmd.Println()
			cmd.Println(mutedStyle.Render("Request ID: " + id))
		}
		return nil
	})
}

func providerName(providers domain.Result, key string) string {
	if name := providers.String(key); name != "" {
		return name
	}
	return "unknown"
}

func runModels(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.ListModels(ctx)
		if err != nil {
			return err
		}
		if modelsJSON {
			return printJSON(cmd, res)
		}

		provider := res.String("provider")
		if provider == "" {
			provider = "unknown"
		}
		defaultModel := res.String("default")
		printField(cmd, "Provider", provider)
		printField(cmd, "Default", defaultModel)
		cmd.Println()

		models := res.Objects("models")
		if len(models) == 0 {
			cmd.Println(warningStyle.Render("No models available."))
			return nil
		}

		w := newTable(cmd.OutOrStdout())
		fmt.Fprintln(w, "ID\tNAME\tTIER\tCONTEXT")
		for _, m := range models {
			id := m.String("id")
			if id == defaultModel {
				id += " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, m.String("name"), m.String("tier"), orDash(m, "context_window"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		cmd.Println()
		cmd.Println(mutedStyle.Render("* = default model"))
		return nil
	})
}
