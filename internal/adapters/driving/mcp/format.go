package mcp

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// maxChunkLength bounds the text shown per search hit.
const maxChunkLength = 1000

func formatSearchResults(res domain.Result) string {
	var b strings.Builder
	b.WriteString("# Search Results\n\n")

	sources := res.Objects("sources")
	if len(sources) == 0 {
		b.WriteString("No results found.")
		return b.String()
	}

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

		text := src.String("content")
		if len([]rune(text)) > maxChunkLength {
			text = string([]rune(text)[:maxChunkLength]) + "..."
		}

		fmt.Fprintf(&b, "### %d. (score: %.3f)\n", i+1, score(src))
		fmt.Fprintf(&b, "**Source:** %s | **Namespace:** %s\n", filename, namespace)
		fmt.Fprintf(&b, "\n%s\n\n", text)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func formatIngestResult(res domain.Result) string {
	return fmt.Sprintf("Ingested successfully: %d chunks created (doc_id: %s)",
		res.Int("chunks_created"), res.DocumentID())
}

func formatNamespaceList(res domain.Result) string {
	namespaces := res.Objects("namespaces")
	if len(namespaces) == 0 {
		return "No namespaces found."
	}

	lines := []string{"# Namespaces", ""}
	for _, ns := range namespaces {
		name := ns.String("name")
		if name == "" {
			name = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("- **%s** (`%s`)", name, ns.String("id")))
		if desc := ns.String("description"); desc != "" {
			lines = append(lines, "  "+desc)
		}
	}
	return strings.Join(lines, "\n")
}

func formatNamespace(res domain.Result) string {
	ns := res.Object("namespace")
	if ns == nil {
		ns = res
	}
	return fmt.Sprintf("**%s** (`%s`)\n%s", ns.String("name"), ns.String("id"), ns.String("description"))
}

func formatDocumentList(res domain.Result) string {
	documents := res.Objects("documents")
	if len(documents) == 0 {
		return "No documents found."
	}

	lines := []string{"# Documents", ""}
	for _, doc := range documents {
		filename := doc.String("filename")
		if filename == "" {
			filename = "Untitled"
		}
		lines = append(lines, fmt.Sprintf("- **%s** (`%s`) - %s chunks", filename, doc.String("doc_id"), chunkCount(doc)))
	}
	if res.String("next_key") != "" {
		lines = append(lines, "", "More documents available.")
	}
	return strings.Join(lines, "\n")
}

func formatDocument(res domain.Result) string {
	filename := res.String("filename")
	if filename == "" {
		filename = "Untitled"
	}
	namespace := res.String("namespace")
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	text := res.String("reconstructed_text")
	if text == "" {
		text = res.String("text")
	}
	return strings.Join([]string{
		"# " + filename,
		fmt.Sprintf("**ID:** `%s` | **Namespace:** %s", res.String("doc_id"), namespace),
		"---",
		text,
	}, "\n")
}

func score(r domain.Result) float64 {
	if v, ok := r["score"].(float64); ok {
		return v
	}
	return 0
}

func chunkCount(doc domain.Result) string {
	for _, key := range []string{"chunk_count", "total_chunks"} {
		if _, ok := doc[key]; ok {
			return fmt.Sprint(doc.Int(key))
		}
	}
	return "?"
}
