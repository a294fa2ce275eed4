package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for chatrag resources.
	uriScheme = "chatrag://"

	mimeJSON = "application/json"
	mimeText = "text/plain"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "models",
		Name:        "models",
		Description: "Local embedding models with their download status",
		MIMEType:    mimeJSON,
	}, s.handleModelsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "List of all ingested documents",
		MIMEType:    mimeJSON,
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Content of a specific document",
		MIMEType:    mimeText,
	}, s.handleDocumentContentResource)
}

// handleModelsResource returns the model catalog and the state of each model.
func (s *Server) handleModelsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type modelInfo struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Dimensions int    `json:"dimensions"`
		Languages  string `json:"languages"`
		Quality    string `json:"quality"`
		SizeMB     int    `json:"approx_size_mb"`
		Instruct   bool   `json:"instruct"`
		Status     string `json:"status"`
		Progress   int    `json:"progress,omitempty"`
	}

	catalog := domain.AllModels()
	infos := make([]modelInfo, len(catalog))
	for i := range catalog {
		d := &catalog[i]
		infos[i] = modelInfo{
			ID:         d.ID,
			Name:       d.DisplayName,
			Dimensions: d.Dimensions,
			Languages:  strings.Join(d.Languages, ","),
			Quality:    d.Quality,
			SizeMB:     d.ApproxSizeMB,
			Instruct:   d.IsInstruct,
			Status:     "unknown",
		}
		if s.ports.Models != nil {
			state := s.ports.Models.GetStatus(d.ID)
			infos[i].Status = state.Phase.String()
			infos[i].Progress = int(state.Progress)
		}
	}

	return jsonResource(req.Params.URI, infos, "models")
}

// handleDocumentsResource returns all ingested documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return jsonResource(req.Params.URI, []struct{}{}, "documents")
	}

	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		URI      string `json:"uri"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:       docs[i].ID,
			Filename: docs[i].Filename,
			URI:      uriScheme + "documents/" + docs[i].ID,
		}
	}

	return jsonResource(req.Params.URI, infos, "documents")
}

// handleDocumentContentResource returns the content of a specific document.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Document.Get(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document content: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: mimeText,
			Text:     doc.Content,
		}},
	}, nil
}

func jsonResource(uri string, v any, what string) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", what, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like chatrag://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
