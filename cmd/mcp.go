package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/ctxpack/internal/mcpserver"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp [root] [right-root]",
	Short: "Serve the workspace as MCP tools on stdin/stdout",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := newWorkspace()
		if err := loadPanels(cmd.Context(), ws, args); err != nil {
			return err
		}
		srv := mcpserver.New(ws, newAssembler(), mcpserver.Options{
			MaxSearchBytes: cfg.MaxSearchBytes,
			DefaultTask:    cfg.Task,
			Logger:         logger,
		})
		logger.Debug("serving mcp on stdio", "panels", len(ws.Sections()))
		return srv.ServeStdio(Version)
	},
}
