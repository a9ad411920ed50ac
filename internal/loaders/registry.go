package loaders

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Plugin is an optional loader that depends on something outside the binary.
type Plugin struct {
	// Name identifies the plugin in logs.
	Name string

	// Probe reports whether the plugin can run here. Nil means always.
	Probe func() error

	// New constructs the loader.
	New func() (driven.Loader, error)
}

// Registry maps extensions to loaders. Safe for concurrent Resolve.
type Registry struct {
	mu        sync.RWMutex
	loaders   []driven.Loader
	overrides map[string]driven.Loader
	discover  sync.Once
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{overrides: make(map[string]driven.Loader)}
}

// Register adds a loader. Among loaders of equal priority for an extension,
// the most recently registered wins.
func (r *Registry) Register(l driven.Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders = append(r.loaders, l)
}

// Discover probes and registers plugins. Only the first call has any effect.
// Plugins that fail to probe or construct are skipped.
func (r *Registry) Discover(plugins ...Plugin) {
	r.discover.Do(func() {
		for _, p := range plugins {
			if p.Probe != nil {
				if err := p.Probe(); err != nil {
					logger.Debug("loader plugin %s unavailable: %v", p.Name, err)
					continue
				}
			}
			l, err := p.New()
			if err != nil {
				logger.Debug("loader plugin %s failed to initialise: %v", p.Name, err)
				continue
			}
			r.Register(l)
			logger.Debug("loaded plugin loader %s (priority %d)", l.Name(), l.Priority())
		}
	})
}

// SetOverrides forces a loader per extension. Names are matched
// case-insensitively among loaders registered for that extension.
// An unmatched name fails with a ValidationError and leaves no override applied.
func (r *Registry) SetOverrides(overrides map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resolved := make(map[string]driven.Loader, len(overrides))
	for rawExt, name := range overrides {
		ext := domain.NormaliseExtension(rawExt)
		candidates := r.candidatesLocked(ext)

		var match driven.Loader
		for _, l := range candidates {
			if strings.EqualFold(l.Name(), strings.TrimSpace(name)) {
				match = l
			}
		}
		if match == nil {
			names := make([]string, 0, len(candidates))
			for _, l := range candidates {
				names = append(names, l.Name())
			}
			available := "none"
			if len(names) > 0 {
				available = strings.Join(names, ", ")
			}
			return &domain.ValidationError{
				Field:   "loader" + ext,
				Message: fmt.Sprintf("no loader named %q handles %s (available: %s)", name, ext, available),
			}
		}
		resolved[ext] = match
	}

	r.overrides = resolved
	return nil
}

// Resolve returns the active loader for an extension.
func (r *Registry) Resolve(ext string) (driven.Loader, bool) {
	ext = domain.NormaliseExtension(ext)
	if ext == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.overrides[ext]; ok {
		return l, true
	}

	var best driven.Loader
	for _, l := range r.candidatesLocked(ext) {
		if best == nil || l.Priority() >= best.Priority() {
			best = l
		}
	}
	return best, best != nil
}

// ResolveFile returns the active loader for a file name.
func (r *Registry) ResolveFile(filename string) (driven.Loader, bool) {
	return r.Resolve(filepath.Ext(filename))
}

// Candidates returns the loaders registered for an extension, in registration order.
func (r *Registry) Candidates(ext string) []driven.Loader {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.candidatesLocked(domain.NormaliseExtension(ext))
}

// SupportedExtensions returns every extension with at least one loader, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, l := range r.loaders {
		for _, ext := range l.Extensions() {
			seen[domain.NormaliseExtension(ext)] = true
		}
	}
	exts := make([]string, 0, len(seen))
	for ext := range seen {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Loaders returns every registered loader in registration order.
func (r *Registry) Loaders() []driven.Loader {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]driven.Loader, len(r.loaders))
	copy(out, r.loaders)
	return out
}

func (r *Registry) candidatesLocked(ext string) []driven.Loader {
	var out []driven.Loader
	for _, l := range r.loaders {
		for _, e := range l.Extensions() {
			if domain.NormaliseExtension(e) == ext {
				out = append(out, l)
				break
			}
		}
	}
	return out
}
