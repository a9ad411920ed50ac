package mcp

import (
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server forwards to.
type Ports struct {
	// KnowledgeBase serves every tool. It must be safe for concurrent use.
	KnowledgeBase driving.KnowledgeBase
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.KnowledgeBase == nil {
		return ErrMissingKnowledgeBase
	}
	return nil
}
