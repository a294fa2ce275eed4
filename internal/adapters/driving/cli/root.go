// Package cli implements the chatrag command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/core/ports/driving"
	"github.com/custodia-labs/chatrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Services injected by main. Commands check for nil before use.
var (
	documentService    driving.DocumentService
	retrievalService   driving.RetrievalService
	modelService       driving.ModelService
	settingsService    driving.SettingsService
	embeddingValidator driven.EmbeddingValidator
	embedder           driven.EmbeddingProvider
	supportedExts      []string
)

// Services groups everything the commands need.
type Services struct {
	Document  driving.DocumentService
	Retrieval driving.RetrievalService
	Models    driving.ModelService
	Settings  driving.SettingsService
	Validator driven.EmbeddingValidator

	// Embedder is the active embedding provider, nil in keyword-only mode.
	Embedder driven.EmbeddingProvider

	// Extensions lists the file extensions ingest and watch accept.
	Extensions []string
}

var rootCmd = &cobra.Command{
	Use:   "chatrag",
	Short: "Local retrieval for chat clients",
	Long: `chatrag ingests documents into a local chunk store and retrieves the
passages most relevant to a query, using vector similarity, keyword overlap
or both fused with Reciprocal Rank Fusion.

Embeddings come from an on-device ONNX model or a remote provider
(OpenAI, Ollama, Gemini). Every query can print a full diagnostic trace.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	documentService = s.Document
	retrievalService = s.Retrieval
	modelService = s.Models
	settingsService = s.Settings
	embeddingValidator = s.Validator
	embedder = s.Embedder
	supportedExts = s.Extensions
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the command's context, or Background when the
// command is executed without one (as in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
