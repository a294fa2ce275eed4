package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatrag/internal/adapters/driving/tui/views/trace"
)

var documentCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Manage ingested documents",
	Long:    `List, view, delete or re-embed ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentReembedCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Embed chunks that have no embedding",
	Long: `Embeds every stored chunk that has no embedding, for example chunks
ingested in keyword-only mode or after a failed embedding call.`,
	Args: cobra.NoArgs,
	RunE: runDocumentReembed,
}

var (
	documentListJSON   bool
	documentShowChunks bool
)

func init() {
	documentListCmd.Flags().BoolVar(&documentListJSON, "json", false, "output as JSON")
	documentShowCmd.Flags().BoolVarP(&documentShowChunks, "chunks", "c", false, "list the document's chunks")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentReembedCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentListJSON {
		for i := range docs {
			docs[i].Content = ""
		}
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Filename: %s\n", docs[i].Filename)
		cmd.Printf("    Created:  %s\n", docs[i].CreatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := commandContext(cmd)
	docID := args[0]

	doc, err := documentService.Get(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	chunks, err := documentService.Chunks(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}

	embedded := 0
	for i := range chunks {
		if chunks[i].HasEmbedding() {
			embedded++
		}
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Filename: %s\n", doc.Filename)
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Length:   %d characters\n", len([]rune(doc.Content)))
	cmd.Printf("  Chunks:   %d (%d embedded)\n", len(chunks), embedded)

	if documentShowChunks {
		cmd.Println()
		for i := range chunks {
			c := &chunks[i]
			dims := "none"
			if c.HasEmbedding() {
				dims = fmt.Sprintf("%d dims", len(c.Embedding))
			}
			cmd.Printf("  [%d] %s (embedding: %s)\n", c.Position, c.ID, dims)
			cmd.Printf("      %s\n", trace.Preview(c.Content, 100))
		}
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	if err := documentService.Delete(commandContext(cmd), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document: %s\n", docID)
	return nil
}

func runDocumentReembed(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	n, err := documentService.ReembedMissing(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to re-embed chunks: %w", err)
	}

	if n == 0 {
		cmd.Println("All chunks already have embeddings.")
		return nil
	}
	cmd.Printf("Embedded %d chunks.\n", n)
	return nil
}
