package cmd

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

var graphQuery string

func init() {
	graphCmd.Flags().StringVarP(&graphQuery, "query", "q", "", "JSONPath applied to the graph document, e.g. $.files[?(@.size > 1000)].path")
	rootCmd.AddCommand(graphCmd)
}

var graphCmd = &cobra.Command{
	Use:   "graph <root>",
	Short: "Print the import graph of a project as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := newWorkspace()
		if err := loadPanels(cmd.Context(), ws, args); err != nil {
			return err
		}
		p, err := ws.Project(workspace.Left)
		if err != nil {
			return err
		}
		var out any = graphDocument(p)
		if graphQuery != "" {
			x, err := jp.ParseString(graphQuery)
			if err != nil {
				return fmt.Errorf("parse query: %w", err)
			}
			out = x.Get(out)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), oj.JSON(out, &oj.Options{Indent: 2, Sort: true}))
		return err
	},
}

// graphDocument is the generic JSON form of a project's dependency graph.
func graphDocument(p *project.Project) map[string]any {
	files := make([]any, 0, len(p.Store.Files()))
	for _, f := range p.Store.Files() {
		n, _ := p.Store.GetNode(f)
		files = append(files, map[string]any{
			"path":         f,
			"size":         n.Size,
			"dependencies": anySlice(p.Deps.Dependencies(f)),
			"dependents":   anySlice(p.Deps.Dependents(f)),
		})
	}
	return map[string]any{
		"root":  p.Store.Root().Path,
		"edges": int64(p.Deps.EdgeCount()),
		"files": files,
	}
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
