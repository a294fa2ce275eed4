package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/chatrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/chatrag/internal/adapters/driving/tui/views/trace"
	"github.com/custodia-labs/chatrag/internal/core/domain"
)

var (
	queryMode          string
	queryTopK          int
	queryMinSimilarity float64
	queryMaxTokens     int
	queryTrace         bool
	queryJSON          bool
	queryContextOnly   bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve the chunks most relevant to a query",
	Long: `Runs retrieval over every stored chunk.

Modes:
  vector   - cosine similarity between query and chunk embeddings
  keyword  - lexical overlap between query and chunk terms
  hybrid   - both rankings fused with Reciprocal Rank Fusion (k=60)

Flags not given on the command line fall back to the saved settings.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryMode, "mode", "m", "", "retrieval mode: vector, keyword or hybrid")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", domain.DefaultTopK, "maximum number of chunks to select")
	queryCmd.Flags().Float64Var(&queryMinSimilarity, "min-similarity", domain.DefaultMinSimilarity,
		"minimum cosine similarity for vector candidates")
	queryCmd.Flags().IntVar(&queryMaxTokens, "max-tokens", 0, "context token budget (0 = unlimited)")
	queryCmd.Flags().BoolVar(&queryTrace, "trace", false, "print the retrieval trace")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output result and trace as JSON")
	queryCmd.Flags().BoolVar(&queryContextOnly, "context", false, "print only the combined context")
	rootCmd.AddCommand(queryCmd)
}

// queryOutput is the JSON shape of a query.
type queryOutput struct {
	Result *domain.RetrievalResult `json:"result"`
	Trace  *domain.RagTrace        `json:"trace"`
	Error  string                  `json:"error,omitempty"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	req, err := buildRetrievalRequest(cmd, strings.Join(args, " "))
	if err != nil {
		return err
	}

	result, tr, err := retrievalService.Retrieve(commandContext(cmd), req)

	if queryJSON {
		out := queryOutput{Result: result, Trace: tr}
		if err != nil {
			out.Error = err.Error()
		}
		data, mErr := json.MarshalIndent(out, "", "  ")
		if mErr != nil {
			return fmt.Errorf("failed to marshal result: %w", mErr)
		}
		cmd.Println(string(data))
		return wrapQueryErr(err)
	}

	if queryTrace && tr != nil {
		cmd.Println(trace.Render(tr.Snapshot(), outputStyles(cmd)))
	}
	if err != nil {
		return wrapQueryErr(err)
	}

	if queryContextOnly {
		cmd.Println(result.CombinedContext)
		return nil
	}
	return outputQueryResult(cmd, result)
}

func wrapQueryErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("retrieval failed: %w", err)
}

// buildRetrievalRequest applies saved settings, then explicit flags.
func buildRetrievalRequest(cmd *cobra.Command, query string) (domain.RetrievalRequest, error) {
	defaults := domain.DefaultAppSettings().Retrieval
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && s != nil {
			defaults = s.Retrieval
		}
	}

	req := domain.RetrievalRequest{
		Query:            query,
		Mode:             defaults.Mode,
		TopK:             defaults.TopK,
		MinSimilarity:    defaults.MinSimilarity,
		MaxContextTokens: defaults.MaxContextTokens,
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		mode, err := domain.ParseRetrievalMode(queryMode)
		if err != nil {
			return req, err
		}
		req.Mode = mode
	}
	if flags.Changed("top-k") {
		req.TopK = queryTopK
	}
	if flags.Changed("min-similarity") {
		req.MinSimilarity = queryMinSimilarity
	}
	if flags.Changed("max-tokens") {
		req.MaxContextTokens = queryMaxTokens
	}
	if !req.Mode.IsValid() {
		req.Mode = domain.RetrievalModeHybrid
	}
	return req, nil
}

func outputQueryResult(cmd *cobra.Command, result *domain.RetrievalResult) error {
	if result.IsEmpty() {
		cmd.Println("No relevant chunks found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range result.Chunks {
		c := &result.Chunks[i]
		cmd.Printf("  [%d] %s #%d (fused %.4f)\n", c.Rank, c.DocumentFilename, c.Chunk.Position, c.FusedScore)
		if len(c.MatchedTerms) > 0 {
			cmd.Printf("      Terms: %s\n", strings.Join(c.MatchedTerms, ", "))
		}
		cmd.Printf("      %s\n", trace.Preview(c.Chunk.Content, 120))
		cmd.Println()
	}

	m := result.Metrics
	cmd.Printf("Selected %d of %d chunks in %s\n", m.Selected, m.ScannedChunks, m.Duration)
	if m.InContext < m.Selected {
		cmd.Printf("Note: %d chunks did not fit the context budget.\n", m.Selected-m.InContext)
	}
	if m.SkippedNoEmbedding > 0 {
		cmd.Printf("Note: %d chunks have no embedding; run 'chatrag documents reembed'.\n", m.SkippedNoEmbedding)
	}
	return nil
}

// outputStyles picks coloured styles when writing to a terminal.
func outputStyles(cmd *cobra.Command) *styles.Styles {
	if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return styles.DefaultStyles()
	}
	return styles.Plain()
}
