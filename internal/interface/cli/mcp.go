package cli

import (
	"fmt"

	"github.com/neilberkman/pagecast/cmd/pagecast/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for AI assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio exposing
upload_pdf, convert_page, summarize_page, summary_audio and download_audio.

Configure in your client's config file:
  {
    "mcpServers": {
      "pagecast": {
        "command": "pagecast",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	version := rootCmd.Version
	if version == "" {
		version = "dev"
	}
	if err := mcp.StartServer(a.ctrl, cfg.DownloadDir, version); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
