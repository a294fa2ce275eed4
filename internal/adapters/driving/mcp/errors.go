// Package mcp provides an MCP (Model Context Protocol) server adapter for chatrag.
// It lets AI assistants retrieve context from the local chunk store.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
