package driven

import "context"

// Enricher adjusts extracted text and metadata before ingestion.
type Enricher interface {
	// Name returns the enricher name for logging and configuration.
	Name() string

	// Priority orders enrichers; lower values run first.
	Priority() int

	// Enrich returns the new text and any metadata to merge in.
	Enrich(ctx context.Context, text string, metadata map[string]any) (string, map[string]any, error)
}

// EnrichmentPipeline applies enrichers in priority order.
// A failing enricher is skipped; it never fails the document.
type EnrichmentPipeline interface {
	Apply(ctx context.Context, text string, metadata map[string]any) (string, map[string]any)
}
