package transport

import "github.com/custodia-labs/stache-cli/internal/core/domain"

// Select resolves the configured transport kind. An explicit kind wins;
// auto picks the function transport when a function name is configured.
func Select(cfg domain.Config) domain.TransportKind {
	switch cfg.Transport {
	case domain.TransportHTTP, domain.TransportFunction:
		return cfg.Transport
	}
	if cfg.FunctionName != "" {
		return domain.TransportFunction
	}
	return domain.TransportHTTP
}
