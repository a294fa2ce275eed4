package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatrag/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so chat clients can call
the retrieve tool and read the models and documents resources.

By default the server speaks JSON-RPC over stdio. Use --port to serve
streamable HTTP instead, for example to test with MCP Inspector.

Examples:
  # Stdio mode (default)
  chatrag mcp serve

  # HTTP mode
  chatrag mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "chatrag": {
        "command": "/path/to/chatrag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(mcpPorts(), mcp.WithVersion(version))
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.Printf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}

func mcpPorts() *mcp.Ports {
	return &mcp.Ports{
		Retrieval: retrievalService,
		Document:  documentService,
		Models:    modelService,
		Settings:  settingsService,
	}
}
