package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

var (
	ingestStdin bool
	ingestName  string
	ingestJSON  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Add documents to the chunk store",
	Long: `Normalises, chunks, stores and embeds documents.

Paths may be files or directories. Directories are walked recursively and
only files with a supported extension are ingested. Use --stdin with --name
to ingest text piped on standard input.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestStdin, "stdin", false, "read document text from standard input")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "filename to record for --stdin input")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output ingest reports as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := commandContext(cmd)

	if ingestStdin {
		if ingestName == "" {
			return errors.New("--name is required with --stdin")
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		report, err := documentService.Ingest(ctx, ingestName, string(data))
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", ingestName, err)
		}
		return outputIngestReports(cmd, []domain.IngestReport{*report})
	}

	if len(args) == 0 {
		return errors.New("no paths given (use --stdin to read from standard input)")
	}

	paths, err := collectIngestPaths(args, supportedExts)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cmd.Println("No supported files found.")
		return nil
	}

	reports := make([]domain.IngestReport, 0, len(paths))
	failed := 0
	for _, path := range paths {
		report, err := documentService.IngestFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			cmd.PrintErrf("Failed %s: %v\n", path, err)
			continue
		}
		reports = append(reports, *report)
	}

	if err := outputIngestReports(cmd, reports); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(paths))
	}
	return nil
}

// collectIngestPaths expands directories into the files below them that
// have one of exts. Explicit file arguments are kept as given.
func collectIngestPaths(args, exts []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if isSupportedFile(path, exts) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}

// isSupportedFile reports whether path has one of exts. An empty exts
// accepts every non-hidden file.
func isSupportedFile(path string, exts []string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	if len(exts) == 0 {
		return true
	}
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}

func outputIngestReports(cmd *cobra.Command, reports []domain.IngestReport) error {
	if ingestJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reports: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for i := range reports {
		r := &reports[i]
		cmd.Printf("Ingested %s (%s)\n", r.Document.Filename, r.Document.ID)
		cmd.Printf("  Chunks: %d, embedded: %d", r.Chunks, r.Embedded)
		if r.Failed > 0 {
			cmd.Printf(", failed: %d", r.Failed)
		}
		cmd.Printf(" in %s\n", r.Duration.Round(time.Millisecond))
	}
	return nil
}
