// Package enrichers adjusts extracted text and metadata before ingestion.
package enrichers

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
)

// BuilderFunc creates an Enricher from generic config.
// Config is a map of enricher-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (driven.Enricher, error)

// Registry maps enricher names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new enricher registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds an enricher builder to the registry.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates an enricher by name with the given config.
func (r *Registry) Build(name string, cfg map[string]any) (driven.Enricher, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, &domain.ValidationError{
			Field:   "enrichers",
			Message: fmt.Sprintf("unknown enricher %q (available: %v)", name, r.Names()),
		}
	}
	return builder(cfg)
}

// Has returns true if an enricher with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered enricher names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline builds a pipeline from the named enrichers.
func (r *Registry) Pipeline(names []string) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range names {
		e, err := r.Build(name, nil)
		if err != nil {
			return nil, err
		}
		p.Add(e)
	}
	return p, nil
}
