package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/chatrag/internal/adapters/driving/tui/views/download"
	"github.com/custodia-labs/chatrag/internal/core/domain"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage local embedding models",
	Long: `List, download and delete the on-device embedding models.

Model arguments default to the configured local model.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available models and their status",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsStatusCmd = &cobra.Command{
	Use:   "status [model-id]",
	Short: "Show the download status of a model",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModelsStatus,
}

var modelsDownloadCmd = &cobra.Command{
	Use:   "download [model-id]",
	Short: "Download a model",
	Long: `Downloads the model's artifacts. Interrupted downloads resume from the
partial file on the next run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModelsDownload,
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete [model-id]",
	Short: "Delete a downloaded model",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModelsDelete,
}

func init() {
	modelsListCmd.Flags().BoolVar(&modelsJSON, "json", false, "output as JSON")
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsStatusCmd)
	modelsCmd.AddCommand(modelsDownloadCmd)
	modelsCmd.AddCommand(modelsDeleteCmd)
	rootCmd.AddCommand(modelsCmd)
}

// modelInfo is the list output for one catalog entry.
type modelInfo struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Dimensions   int                  `json:"dimensions"`
	ApproxSizeMB int                  `json:"approx_size_mb"`
	Quality      string               `json:"quality"`
	Instruct     bool                 `json:"instruct"`
	State        domain.DownloadState `json:"state"`
	SizeBytes    int64                `json:"size_bytes"`
}

func runModelsList(cmd *cobra.Command, _ []string) error {
	if modelService == nil {
		return errors.New("model service not configured")
	}

	catalog := domain.AllModels()
	infos := make([]modelInfo, len(catalog))
	for i := range catalog {
		d := &catalog[i]
		infos[i] = modelInfo{
			ID:           d.ID,
			Name:         d.DisplayName,
			Dimensions:   d.Dimensions,
			ApproxSizeMB: d.ApproxSizeMB,
			Quality:      d.Quality,
			Instruct:     d.IsInstruct,
			State:        modelService.GetStatus(d.ID),
			SizeBytes:    modelService.GetDownloadedSize(d.ID),
		}
	}

	if modelsJSON {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal models: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	active := activeLocalModel()
	cmd.Println("Models:")
	cmd.Println()
	for i := range infos {
		m := &infos[i]
		marker := " "
		if m.ID == active {
			marker = "*"
		}
		cmd.Printf("%s %s\n", marker, m.ID)
		cmd.Printf("    %s, %d dims, ~%d MB, quality: %s\n", m.Name, m.Dimensions, m.ApproxSizeMB, m.Quality)
		cmd.Printf("    Status: %s\n", m.State)
	}
	cmd.Println()
	cmd.Println("* configured model")
	return nil
}

func runModelsStatus(cmd *cobra.Command, args []string) error {
	if modelService == nil {
		return errors.New("model service not configured")
	}

	id, err := modelArg(args)
	if err != nil {
		return err
	}

	cmd.Printf("Model: %s\n", id)
	cmd.Printf("  Status: %s\n", modelService.GetStatus(id))
	if size := modelService.GetDownloadedSize(id); size > 0 {
		cmd.Printf("  On disk: %s\n", formatBytes(size))
	}
	return nil
}

func runModelsDownload(cmd *cobra.Command, args []string) error {
	if modelService == nil {
		return errors.New("model service not configured")
	}

	id, err := modelArg(args)
	if err != nil {
		return err
	}

	if modelService.IsDownloaded(id) {
		cmd.Printf("Model %s is already downloaded.\n", id)
		return nil
	}

	ctx := commandContext(cmd)
	if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if err := download.Run(ctx, modelService, id, f); err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		return nil
	}

	return downloadWithLines(cmd, id)
}

// downloadWithLines prints a line per 10% of progress, for pipes and logs.
func downloadWithLines(cmd *cobra.Command, id string) error {
	events, unsubscribe := modelService.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		last := -1
		for ev := range events {
			if ev.ModelID != id || ev.State.Phase != domain.DownloadDownloading {
				continue
			}
			if step := int(ev.State.Progress) / 10; step > last {
				last = step
				cmd.Printf("Downloading %s: %3.0f%%\n", id, ev.State.Progress)
			}
		}
	}()

	err := modelService.Download(commandContext(cmd), id)
	unsubscribe()
	<-done

	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	cmd.Printf("Model %s downloaded.\n", id)
	return nil
}

func runModelsDelete(cmd *cobra.Command, args []string) error {
	if modelService == nil {
		return errors.New("model service not configured")
	}

	id, err := modelArg(args)
	if err != nil {
		return err
	}

	if err := modelService.DeleteModel(id); err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	cmd.Printf("Model %s deleted.\n", id)
	return nil
}

// modelArg returns the model named in args, or the configured local model.
func modelArg(args []string) (string, error) {
	id := activeLocalModel()
	if len(args) > 0 {
		id = args[0]
	}
	if !domain.IsKnownModel(id) {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownModel, id)
	}
	return id, nil
}

// activeLocalModel returns the configured local model, or the default.
func activeLocalModel() string {
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && s != nil &&
			s.Embedding.Provider == domain.ProviderLocal && s.Embedding.Model != "" {
			return s.Embedding.Model
		}
	}
	return domain.DefaultLocalModelID
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
