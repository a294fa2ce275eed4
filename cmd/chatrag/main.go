// Command chatrag ingests documents and retrieves the passages most
// relevant to a query for chat clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/chatrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/download/huggingface"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/storage/modelfs"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/chatrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/core/services"
	"github.com/custodia-labs/chatrag/internal/logger"
	"github.com/custodia-labs/chatrag/internal/normalisers"
	"github.com/custodia-labs/chatrag/internal/postprocessors/chunker"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configDir, err := file.DefaultConfigDir()
	if err != nil {
		return report(err)
	}
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return report(fmt.Errorf("opening config: %w", err))
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		logger.Warn("loading settings: %v (using defaults)", err)
		defaults := settingsService.GetDefaults()
		settings = &defaults
	}

	store, err := sqlite.NewStore(settings.Storage.DataDir)
	if err != nil {
		return report(fmt.Errorf("opening document store: %w", err))
	}
	defer store.Close()

	modelStore, err := modelfs.NewStore(settings.Storage.ModelsDir)
	if err != nil {
		return report(fmt.Errorf("opening model store: %w", err))
	}
	fetcher := huggingface.NewFetcher(huggingface.Config{
		BaseURL:   settings.Storage.ModelsBaseURL,
		UserAgent: "chatrag/" + version,
	})
	modelService := services.NewModelDownloadService(modelStore, fetcher)

	embedder := initEmbedder(ctx, settings, modelStore)
	if embedder != nil {
		defer embedder.Close()
	}

	registry := normalisers.DefaultRegistry()
	documentService := services.NewDocumentService(store.DocumentStore(), chunker.New(), registry, embedder)
	documentService.SetConcurrency(settings.Ingest.EmbedConcurrency)
	retrievalService := services.NewRetrievalService(store.DocumentStore(), embedder)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Document:   documentService,
		Retrieval:  retrievalService,
		Models:     modelService,
		Settings:   settingsService,
		Validator:  ai.NewConfigValidator(modelStore),
		Embedder:   embedder,
		Extensions: registry.SupportedExtensions(),
	})

	// Cobra prints command errors itself.
	return cli.Execute(ctx)
}

// initEmbedder loads the configured provider. Failure is not fatal: queries
// fall back to keyword retrieval and the reason is logged.
func initEmbedder(ctx context.Context, settings *domain.AppSettings, models driven.ModelStore) driven.EmbeddingProvider {
	provider, err := ai.InitEmbeddingProvider(ctx, &settings.Embedding, models)
	if err == nil {
		logger.Debug("embedding provider %s (%s), %d dims",
			provider.ProviderName(), provider.ModelName(), provider.Dimensions())
		return provider
	}

	switch {
	case errors.Is(err, domain.ErrMissingArtifact):
		logger.Debug("embedding model %s not downloaded; run 'chatrag models download'", settings.Embedding.Model)
	case errors.Is(err, domain.ErrLocalRuntimeUnavailable):
		logger.Debug("local inference runtime unavailable: %v", err)
	default:
		logger.Warn("embedding provider unavailable: %v", err)
	}
	return nil
}

func report(err error) error {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return err
}
