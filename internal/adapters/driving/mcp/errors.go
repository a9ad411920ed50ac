// Package mcp provides an MCP (Model Context Protocol) server adapter for Stache.
// It lets AI assistants search and curate the knowledge base through the client facade.
package mcp

import "errors"

// ErrMissingKnowledgeBase is returned when no knowledge base client is provided.
var ErrMissingKnowledgeBase = errors.New("mcp: knowledge base client is required")
