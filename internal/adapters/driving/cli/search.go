package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
)

// snippetLength bounds the text shown per source.
const snippetLength = 300

var (
	searchNamespace  string
	searchTopK       int
	searchNoRerank   bool
	searchSynthesize bool
	searchModel      string
	searchFilter     string
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Runs a semantic search against the knowledge base and prints the
matching chunks. With --synthesize the service also writes an answer
from the retrieved sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchNamespace, "namespace", "n", "", "restrict results to a namespace")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", domain.DefaultSearchTopK, "number of results (max 50)")
	searchCmd.Flags().BoolVar(&searchNoRerank, "no-rerank", false, "disable reranking")
	searchCmd.Flags().BoolVar(&searchSynthesize, "synthesize", false, "synthesize an answer from the results")
	searchCmd.Flags().StringVar(&searchModel, "model", "", "model used for synthesis")
	searchCmd.Flags().StringVarP(&searchFilter, "filter", "f", "", "metadata filter as a JSON object")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output raw JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	filter, err := parseJSONObject("filter", searchFilter)
	if err != nil {
		return err
	}

	req := domain.SearchRequest{
		Query:      args[0],
		Namespace:  searchNamespace,
		TopK:       searchTopK,
		Rerank:     !searchNoRerank,
		Synthesize: searchSynthesize,
		Filter:     filter,
		Model:      searchModel,
	}

	return withClient(cmd, func(ctx context.Context, kb driving.KnowledgeBase) error {
		res, err := kb.Search(ctx, req)
		if err != nil {
			return err
		}
		if searchJSON {
			return printJSON(cmd, res)
		}
		outputSearch(cmd, res)
		return nil
	})
}

func outputSearch(cmd *cobra.Command, res domain.Result) {
	if answer := res.String("answer"); answer != "" {
		cmd.Println(titleStyle.Render("Answer"))
		cmd.Println(answer)
		cmd.Println()
	}

	sources := res.Objects("sources")
	if len(sources) == 0 {
		cmd.Println(warningStyle.Render("No results found."))
		return
	}

	cmd.Println(labelStyle.Render("Found " + pluralize(len(sources), "source") + ":"))
	cmd.Println()
	for i, src := range sources {
		md := src.Object("metadata")
		filename := md.String("filename")
		if filename == "" {
			filename = "Unknown"
		}
		namespace := md.String("namespace")
		if namespace == "" {
			namespace = domain.DefaultNamespace
		}
		score, _ := src["score"].(float64)

		cmd.Printf("%d. %s %s\n", i+1, labelStyle.Render(filename), mutedStyle.Render(formatScore(score)))
		text := src.String("content")
		if text == "" {
			text = src.String("text")
		}
		cmd.Println(truncate(text, snippetLength))
		cmd.Println(mutedStyle.Render("namespace: " + namespace))
		cmd.Println()
	}
}
