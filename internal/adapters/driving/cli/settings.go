package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/services"
)

const validateTimeout = 30 * time.Second

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure retrieval defaults and the embedding provider.

Settings are stored in config.toml under the user config directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsModeCmd = &cobra.Command{
	Use:   "mode [vector|keyword|hybrid]",
	Short: "Set the default retrieval mode",
	Long: `Set the retrieval mode used when 'chatrag query' is run without --mode.

Available modes:
  vector   - semantic similarity only (requires an embedding provider)
  keyword  - lexical overlap only (no setup required)
  hybrid   - vector and keyword fused with RRF (requires an embedding provider)

Without an argument the mode is chosen interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsMode,
}

var settingsRetrievalCmd = &cobra.Command{
	Use:   "retrieval",
	Short: "Set retrieval defaults",
	Long:  `Set the default top-k, minimum similarity and context token budget.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsRetrieval,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	Long: `Configure the embedding provider for vector retrieval.

With --provider the configuration is applied directly; otherwise the
provider, model and API key are prompted for.`,
	Args: cobra.NoArgs,
	RunE: runSettingsEmbedding,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check settings and test the embedding provider",
	Args:  cobra.NoArgs,
	RunE:  runSettingsValidate,
}

var (
	settingsProvider  string
	settingsModel     string
	settingsAPIKey    string
	settingsTopK      int
	settingsMinSim    float64
	settingsMaxTokens int
)

func init() {
	settingsEmbeddingCmd.Flags().StringVar(&settingsProvider, "provider", "", "local, openai, ollama or gemini")
	settingsEmbeddingCmd.Flags().StringVar(&settingsModel, "model", "", "model name (default depends on provider)")
	settingsEmbeddingCmd.Flags().StringVar(&settingsAPIKey, "api-key", "", "API key for cloud providers")

	settingsRetrievalCmd.Flags().IntVar(&settingsTopK, "top-k", domain.DefaultTopK, "default number of chunks to select")
	settingsRetrievalCmd.Flags().Float64Var(&settingsMinSim, "min-similarity", domain.DefaultMinSimilarity,
		"default minimum cosine similarity")
	settingsRetrievalCmd.Flags().IntVar(&settingsMaxTokens, "max-tokens", 0, "default context token budget (0 = unlimited)")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsModeCmd)
	settingsCmd.AddCommand(settingsRetrievalCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	r := settings.Retrieval
	cmd.Println("[Retrieval]")
	cmd.Printf("  Mode: %s\n", r.Mode.Description())
	cmd.Printf("  Top-K: %d\n", r.TopK)
	cmd.Printf("  Min similarity: %.3f\n", r.MinSimilarity)
	if r.MaxContextTokens > 0 {
		cmd.Printf("  Context budget: %d tokens\n", r.MaxContextTokens)
	} else {
		cmd.Println("  Context budget: unlimited")
	}
	cmd.Println()

	e := settings.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", e.Provider.Description())
	cmd.Printf("  Model: %s\n", e.Model)
	if e.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", e.BaseURL)
	}
	if e.Provider.RequiresAPIKey() {
		if e.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(e.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	if e.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %.1f req/s\n", e.RequestsPerSecond)
	}
	status := "configured"
	if !e.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	if embedder != nil && embedder.IsAvailable() {
		stats := embedder.Stats()
		cmd.Printf("  Active: %s (%s, %d dims, %d calls, %d failures)\n",
			embedder.ModelName(), embedder.ProviderName(), embedder.Dimensions(), stats.Calls, stats.Failures)
	} else {
		cmd.Println("  Active: none (keyword retrieval only)")
	}
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Embed concurrency: %d\n", settings.Ingest.EmbedConcurrency)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'chatrag settings embedding' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsMode(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var selected domain.RetrievalMode
	if len(args) == 1 {
		mode, err := domain.ParseRetrievalMode(args[0])
		if err != nil {
			return err
		}
		selected = mode
	} else {
		reader := bufio.NewReader(cmd.InOrStdin())
		cmd.Println("Select Retrieval Mode")
		cmd.Println("---------------------")
		modes := domain.AllRetrievalModes()
		for i, mode := range modes {
			cmd.Printf("  %d. %s\n", i+1, mode.Description())
		}
		cmd.Print("\nEnter choice: ")
		idx := parseChoice(readLine(reader), len(modes), 0)
		if idx == 0 {
			return errors.New("invalid selection")
		}
		selected = modes[idx-1]
	}

	if err := settingsService.SetRetrievalMode(selected); err != nil {
		return fmt.Errorf("failed to set retrieval mode: %w", err)
	}
	cmd.Printf("Retrieval mode set to: %s\n", selected.Description())

	if selected.UsesVector() {
		settings, _ := settingsService.Get() //nolint:errcheck // Best-effort check
		if settings != nil && !settings.Embedding.IsConfigured() {
			cmd.Println("\nNote: This mode requires an embedding provider.")
			cmd.Println("Run 'chatrag settings embedding' to configure.")
		}
	}
	return nil
}

func runSettingsRetrieval(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("top-k") && !flags.Changed("min-similarity") && !flags.Changed("max-tokens") {
		return errors.New("nothing to change (use --top-k, --min-similarity or --max-tokens)")
	}
	if flags.Changed("top-k") {
		settings.Retrieval.TopK = settingsTopK
	}
	if flags.Changed("min-similarity") {
		settings.Retrieval.MinSimilarity = settingsMinSim
	}
	if flags.Changed("max-tokens") {
		settings.Retrieval.MaxContextTokens = settingsMaxTokens
	}

	check := domain.RetrievalRequest{
		Query:            "check",
		Mode:             settings.Retrieval.Mode,
		TopK:             settings.Retrieval.TopK,
		MinSimilarity:    settings.Retrieval.MinSimilarity,
		MaxContextTokens: settings.Retrieval.MaxContextTokens,
	}
	if err := check.Validate(); err != nil {
		return err
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("Retrieval defaults updated.")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if settingsProvider != "" {
		provider := domain.EmbeddingProviderKind(strings.ToLower(settingsProvider))
		return applyEmbeddingProvider(cmd, provider, settingsModel, settingsAPIKey)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() && os.Getenv(services.EnvEmbeddingAPIKey) == "" {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	return applyEmbeddingProvider(cmd, selected, model, apiKey)
}

func applyEmbeddingProvider(cmd *cobra.Command, provider domain.EmbeddingProviderKind, model, apiKey string) error {
	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if err := validateEmbedding(cmd); err != nil {
		return err
	}

	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	cmd.Println("Restart chatrag for the new provider to take effect; run 'chatrag documents reembed' after switching models.")
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	cmd.Println("Settings are consistent.")

	return validateEmbedding(cmd)
}

// validateEmbedding tests the saved embedding configuration end to end.
func validateEmbedding(cmd *cobra.Command) error {
	if embeddingValidator == nil {
		return nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), validateTimeout)
	defer cancel()

	cmd.Print("Validating embedding configuration... ")
	if err := embeddingValidator.ValidateEmbedding(ctx, &settings.Embedding); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		if errors.Is(err, domain.ErrMissingArtifact) {
			cmd.Println("Run 'chatrag models download' to fetch the model.")
		}
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal, otherwise a
// plain line from reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
