package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agentic-research/ctxpack/internal/assemble"
	"github.com/agentic-research/ctxpack/internal/config"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to an HCL config file (default $CTXPACK_CONFIG or ./.ctxpack.hcl)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")
}

var rootCmd = &cobra.Command{
	Use:           "ctxpack",
	Short:         "Curate project files into a single context for a language model",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Path != "" {
			logger.Debug("config loaded", "path", cfg.Path)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newWorkspace() *workspace.Workspace {
	ws := workspace.New(cfg.Workspace())
	ws.Logger = logger
	return ws
}

func newAssembler() *assemble.Assembler {
	a := assemble.New()
	a.CharsPerToken = cfg.CharsPerToken
	a.Logger = logger
	return a
}

// loadPanels loads up to two roots into the left and right panels.
func loadPanels(ctx context.Context, ws *workspace.Workspace, roots []string) error {
	panels := workspace.Panels()
	if len(roots) > len(panels) {
		return fmt.Errorf("at most %d roots, got %d", len(panels), len(roots))
	}
	for i, root := range roots {
		if _, err := ws.LoadProject(ctx, panels[i], root); err != nil {
			return err
		}
	}
	return nil
}
