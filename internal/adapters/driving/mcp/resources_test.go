package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid document URI",
			uri:      "chatrag://documents/doc-456",
			expected: "doc-456",
		},
		{
			name:     "invalid prefix",
			uri:      "file://documents/doc-456",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "chatrag://documents/doc-456/chunks",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractDocumentID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleModelsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists catalog with status", func(t *testing.T) {
		models := &mockModelService{states: map[string]domain.DownloadState{
			domain.DefaultLocalModelID: domain.Downloaded(),
			"multilingual-e5-base":     domain.Downloading(40),
		}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Models: models})
		require.NoError(t, err)

		result, err := server.handleModelsResource(ctx, makeReadResourceRequest("chatrag://models"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var infos []map[string]any
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &infos))
		require.Len(t, infos, len(domain.AllModels()))

		byID := make(map[string]map[string]any, len(infos))
		for _, info := range infos {
			byID[info["id"].(string)] = info
		}
		assert.Equal(t, "downloaded", byID[domain.DefaultLocalModelID]["status"])
		assert.Equal(t, "downloading", byID["multilingual-e5-base"]["status"])
		assert.InDelta(t, 40.0, byID["multilingual-e5-base"]["progress"], 1e-9)
		assert.Equal(t, "not_downloaded", byID["multilingual-e5-large"]["status"])
		assert.Equal(t, true, byID["multilingual-e5-large-instruct"]["instruct"])
	})

	t.Run("without model service status is unknown", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		result, err := server.handleModelsResource(ctx, makeReadResourceRequest("chatrag://models"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"status": "unknown"`)
	})
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil document service returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("chatrag://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns documents successfully", func(t *testing.T) {
		docs := &mockDocumentService{
			documents: []domain.Document{
				{ID: "doc-1", Filename: "README.md", CreatedAt: time.Now()},
				{ID: "doc-2", Filename: "guide.txt", CreatedAt: time.Now()},
			},
		}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Document: docs})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("chatrag://documents"))

		require.NoError(t, err)
		text := result.Contents[0].Text
		assert.Contains(t, text, "doc-1")
		assert.Contains(t, text, "README.md")
		assert.Contains(t, text, "chatrag://documents/doc-2")
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		docs := &mockDocumentService{err: errors.New("storage error")}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Document: docs})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest("chatrag://documents"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})

	t.Run("handles empty document list", func(t *testing.T) {
		docs := &mockDocumentService{documents: []domain.Document{}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Document: docs})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("chatrag://documents"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil document service returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("chatrag://documents/doc-123"))

		require.Error(t, err)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Document: &mockDocumentService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("chatrag://invalid/uri"))

		require.Error(t, err)
	})

	t.Run("returns content successfully", func(t *testing.T) {
		docs := &mockDocumentService{
			document: &domain.Document{ID: "doc-123", Content: "# Hello World\n\nThis is the document content."},
		}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Document: docs})
		require.NoError(t, err)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("chatrag://documents/doc-123"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "# Hello World\n\nThis is the document content.", result.Contents[0].Text)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
	})

	t.Run("unknown document returns not found", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.ErrNotFound}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Document: docs})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("chatrag://documents/missing"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting document content")
	})

	t.Run("returns error on get failure", func(t *testing.T) {
		docs := &mockDocumentService{err: errors.New("disk error")}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Document: docs})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("chatrag://documents/doc-123"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting document content")
	})
}
