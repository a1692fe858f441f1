package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/MrWong99/cynicast/internal/mcp"
)

var mcpAudioDir string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the studio as MCP tools on stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing the
generate_script and process_audio tools. Logs go to stderr.

process_audio reads files only from inside --audio-dir.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAudioDir, "audio-dir", "", "directory process_audio may read from (default: working directory)")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newStudio(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Shutdown(context.Background()) }()

	dir := mcpAudioDir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return err
		}
	}
	srv := mcp.NewServer(a, mcp.WithAudioDir(dir), mcp.WithVersion(version))
	return srv.Run(ctx, &mcpsdk.StdioTransport{})
}
