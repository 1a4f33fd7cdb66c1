package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/ctxpack/internal/highlight"
	"github.com/agentic-research/ctxpack/internal/preset"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

func init() {
	f := presetSaveCmd.Flags()
	f.StringSliceVar(&fullPaths, "full", nil, "Paths to include with content")
	f.StringSliceVar(&pathOnly, "path", nil, "Paths to list without content")
	f.StringSliceVar(&ignorePaths, "ignore", nil, "Paths to exclude")

	presetCmd.AddCommand(presetSaveCmd, presetLoadCmd, presetListCmd, presetDeleteCmd)
	rootCmd.AddCommand(presetCmd)
}

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved selections",
	Long:  "Presets are stored relative to the project root in the SQLite database named by preset_db.",
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name> <root>",
	Short: "Save the selection given by --full/--path/--ignore under name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws := newWorkspace()
		if err := loadPanels(ctx, ws, args[1:]); err != nil {
			return err
		}
		if err := applyFlags(ws); err != nil {
			return err
		}
		p, err := ws.Project(workspace.Left)
		if err != nil {
			return err
		}

		store, err := preset.Open(cfg.PresetDB)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if err := store.Save(ctx, args[0], preset.Capture(p)); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved preset %s\n", args[0])
		return err
	},
}

var presetLoadCmd = &cobra.Command{
	Use:   "load <name> <root>",
	Short: "Apply a preset to root and show the included files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws := newWorkspace()
		if err := loadPanels(ctx, ws, args[1:]); err != nil {
			return err
		}
		if err := applyPreset(ctx, ws, args[0]); err != nil {
			return err
		}
		p, err := ws.Project(workspace.Left)
		if err != nil {
			return err
		}
		renderTree(cmd.OutOrStdout(), p, highlight.Filters{OnlyIncluded: true}, true)
		return nil
	},
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := preset.Open(cfg.PresetDB)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		infos, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "NAME\tENTRIES\tSAVED")
		for _, info := range infos {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Name, info.Entries, info.Saved.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := preset.Open(cfg.PresetDB)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return store.Delete(cmd.Context(), args[0])
	},
}
