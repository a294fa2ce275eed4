package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatrag/internal/adapters/driving/watch"
)

var (
	watchSkipInitial bool
	watchDebounce    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Ingest documents as they change",
	Long: `Ingests every supported file below the given directories, then watches
them and ingests files again when they are created or written.

Each write produces a new document; delete stale versions with
"chatrag documents delete".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "do not ingest existing files on start")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := commandContext(cmd)

	if !watchSkipInitial {
		paths, err := collectIngestPaths(args, supportedExts)
		if err != nil {
			return err
		}
		for _, path := range paths {
			report, err := documentService.IngestFile(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				cmd.PrintErrf("Failed %s: %v\n", path, err)
				continue
			}
			cmd.Printf("Ingested %s (%s)\n", report.Document.Filename, report.Document.ID)
		}
	}

	w, err := watch.New(documentService, supportedExts, watch.WithDebounce(watchDebounce))
	if err != nil {
		return err
	}
	defer w.Stop()

	for _, dir := range args {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range w.Results() {
			if res.Err != nil {
				cmd.PrintErrf("Failed %s: %v\n", res.Path, res.Err)
				continue
			}
			cmd.Printf("Ingested %s (%s)\n", res.Path, res.Report.Document.ID)
		}
	}()

	cmd.Printf("Watching %d directories. Press Ctrl+C to stop.\n", w.Dirs())
	err = w.Run(ctx)
	<-done

	if errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
