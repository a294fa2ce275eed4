package mcp

import (
	"github.com/custodia-labs/chatrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers queries. Required.
	Retrieval driving.RetrievalService

	// Document ingests and lists documents. Optional.
	Document driving.DocumentService

	// Models reports local model status. Optional.
	Models driving.ModelService

	// Settings supplies retrieval defaults. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
