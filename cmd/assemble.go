package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/ctxpack/internal/manifest"
	"github.com/agentic-research/ctxpack/internal/preset"
	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/selection"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

var (
	fullPaths    []string
	pathOnly     []string
	ignorePaths  []string
	taskText     string
	manifestPath string
	outPath      string
	presetName   string
)

func init() {
	f := assembleCmd.Flags()
	f.StringSliceVar(&fullPaths, "full", nil, "Paths to include with content (repeatable)")
	f.StringSliceVar(&pathOnly, "path", nil, "Paths to list without content (repeatable)")
	f.StringSliceVar(&ignorePaths, "ignore", nil, "Paths to exclude after --full/--path (repeatable)")
	f.StringVarP(&taskText, "task", "t", "", "Task description (default from config)")
	f.StringVarP(&manifestPath, "manifest", "m", "", "YAML manifest describing panels and selections")
	f.StringVarP(&outPath, "out", "o", "", "Write the context to a file instead of stdout")
	f.StringVar(&presetName, "preset", "", "Apply a saved preset to the left panel")
	rootCmd.AddCommand(assembleCmd)
}

var assembleCmd = &cobra.Command{
	Use:   "assemble [root] [right-root]",
	Short: "Print the selected files of one or two projects as a single context",
	Long: `Loads up to two project roots, applies the selection, and prints the task,
a tree of the included files and the content of every fully included file.

Paths given to --full, --path and --ignore may start with the root directory
name (proj/src) or be relative to the first root (src). Prefix a path with
left: or right: to address one panel when both roots share a name
(right:app/src).`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws := newWorkspace()
		task := cfg.Task

		if manifestPath != "" {
			m, err := manifest.Load(manifestPath)
			if err != nil {
				return err
			}
			if err := m.Apply(ctx, ws, cfg.MaxSearchBytes); err != nil {
				return err
			}
			if m.Task != "" {
				task = m.Task
			}
		}
		if err := loadPanels(ctx, ws, args); err != nil {
			return err
		}
		if len(args) == 0 && manifestPath == "" {
			return errors.New("nothing to assemble: give a root or --manifest")
		}

		if presetName != "" {
			if err := applyPreset(ctx, ws, presetName); err != nil {
				return err
			}
		}
		if err := applyFlags(ws); err != nil {
			return err
		}
		if taskText != "" {
			task = taskText
		}

		res := newAssembler().Assemble(ctx, task, ws.Sections())

		var w io.Writer = cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		if _, err := io.WriteString(w, res.Text); err != nil {
			return err
		}
		logger.Info("context assembled", "tokens", res.Tokens, "bytes", len(res.Text), "out", outPath)
		return nil
	},
}

func applyFlags(ws *workspace.Workspace) error {
	var errs []error
	for _, group := range []struct {
		paths []string
		state project.State
	}{
		{fullPaths, project.Full},
		{pathOnly, project.PathOnly},
		{ignorePaths, project.Ignore},
	} {
		for _, raw := range group.paths {
			p, path, err := resolve(ws, raw)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := selection.Set(p, path, group.state); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// resolve maps a user path onto a node path. A panel-qualified path such as
// right:app/x addresses that panel; otherwise the root-name prefix is matched
// across panels, then the path is taken relative to the left panel's root.
func resolve(ws *workspace.Workspace, raw string) (*project.Project, string, error) {
	if _, _, ok := workspace.SplitPanel(raw); ok {
		return ws.Resolve(raw)
	}
	if p, path, err := ws.Resolve(raw); err == nil {
		return p, path, nil
	}
	return ws.ResolveIn(workspace.Left, raw)
}

func applyPreset(ctx context.Context, ws *workspace.Workspace, name string) error {
	p, err := ws.Project(workspace.Left)
	if err != nil {
		return err
	}
	store, err := preset.Open(cfg.PresetDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	states, err := store.Load(ctx, name)
	if err != nil {
		return err
	}
	if missing := preset.Apply(p, states); len(missing) > 0 {
		logger.Warn("preset paths not in project", "preset", name, "missing", len(missing))
	}
	return nil
}
