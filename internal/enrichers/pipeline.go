package enrichers

import (
	"context"
	"sort"

	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driven.EnrichmentPipeline = (*Pipeline)(nil)

// Pipeline runs enrichers in ascending priority order.
// Enrichers with equal priority keep the order they were added in.
type Pipeline struct {
	enrichers []driven.Enricher
}

// NewPipeline creates a pipeline with the given enrichers.
func NewPipeline(enrichers ...driven.Enricher) *Pipeline {
	p := &Pipeline{}
	for _, e := range enrichers {
		p.Add(e)
	}
	return p
}

// Add inserts an enricher at its priority position.
func (p *Pipeline) Add(e driven.Enricher) {
	p.enrichers = append(p.enrichers, e)
	sort.SliceStable(p.enrichers, func(i, j int) bool {
		return p.enrichers[i].Priority() < p.enrichers[j].Priority()
	})
}

// Len returns the number of enrichers in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.enrichers)
}

// Apply runs every enricher over the text. The input metadata is not modified.
// An enricher that fails is logged and skipped; its output is discarded.
func (p *Pipeline) Apply(ctx context.Context, text string, metadata map[string]any) (string, map[string]any) {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	if p == nil {
		return text, out
	}

	for _, e := range p.enrichers {
		newText, extra, err := e.Enrich(ctx, text, out)
		if err != nil {
			logger.Warn("enricher %s failed: %v", e.Name(), err)
			continue
		}
		text = newText
		for k, v := range extra {
			out[k] = v
		}
	}
	return text, out
}
