package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentic-research/ctxpack/internal/highlight"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

func init() {
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <root> <term>",
	Short: "List files whose content contains term, ignoring case",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws := newWorkspace()
		if err := loadPanels(ctx, ws, args[:1]); err != nil {
			return err
		}
		p, err := ws.Project(workspace.Left)
		if err != nil {
			return err
		}
		hits := highlight.Search(ctx, p, args[1], cfg.MaxSearchBytes)
		paths := make([]string, 0, len(hits))
		for h := range hits {
			paths = append(paths, h)
		}
		sort.Strings(paths)
		for _, h := range paths {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), h); err != nil {
				return err
			}
		}
		return nil
	},
}
