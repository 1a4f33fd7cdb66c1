package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/agentic-research/ctxpack/internal/graph"
	"github.com/agentic-research/ctxpack/internal/highlight"
	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

var (
	showDeps        []string
	showDependents  []string
	searchTerm      string
	onlyHighlighted bool
	onlyIncluded    bool
	expandAll       bool
)

var (
	dirStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	fullStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pathStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	ignoreStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	highlightStyle = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("212"))
)

func init() {
	f := treeCmd.Flags()
	f.StringSliceVar(&fullPaths, "full", nil, "Paths to include with content")
	f.StringSliceVar(&pathOnly, "path", nil, "Paths to list without content")
	f.StringSliceVar(&ignorePaths, "ignore", nil, "Paths to exclude")
	f.StringSliceVar(&showDeps, "deps", nil, "Highlight what these files import")
	f.StringSliceVar(&showDependents, "dependents", nil, "Highlight what imports these files")
	f.StringVarP(&searchTerm, "search", "s", "", "Highlight files containing this text")
	f.BoolVar(&onlyHighlighted, "only-highlighted", false, "Show only highlighted files and their parents")
	f.BoolVar(&onlyIncluded, "only-included", false, "Show only included files and their parents")
	f.BoolVarP(&expandAll, "all", "a", false, "Expand every directory")
	rootCmd.AddCommand(treeCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree <root>",
	Short: "Show a project tree with selection and highlight markers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws := newWorkspace()
		if err := loadPanels(ctx, ws, args); err != nil {
			return err
		}
		if err := applyFlags(ws); err != nil {
			return err
		}
		for _, group := range []struct {
			files []string
			dir   highlight.Direction
		}{{showDeps, highlight.Dependencies}, {showDependents, highlight.Dependents}} {
			for _, raw := range group.files {
				p, path, err := resolve(ws, raw)
				if err != nil {
					return err
				}
				if err := highlight.Toggle(p, path, group.dir); err != nil {
					return err
				}
			}
		}

		p, err := ws.Project(workspace.Left)
		if err != nil {
			return err
		}
		if searchTerm != "" {
			hits := highlight.Search(ctx, p, searchTerm, cfg.MaxSearchBytes)
			logger.Debug("search", "term", searchTerm, "hits", len(hits))
		}
		renderTree(cmd.OutOrStdout(), p, highlight.Filters{
			OnlyHighlighted: onlyHighlighted,
			OnlyIncluded:    onlyIncluded,
		}, expandAll)
		return nil
	},
}

// renderTree writes the visible nodes of p. Collapsed directories hide their
// children unless all is set.
func renderTree(w io.Writer, p *project.Project, f highlight.Filters, all bool) {
	visible := highlight.VisibleSet(p, f)
	lit := highlight.Highlighted(p)

	var walk func(n *graph.Node, depth int)
	walk = func(n *graph.Node, depth int) {
		if _, ok := visible[n.Path]; !ok {
			return
		}
		_, _ = fmt.Fprintln(w, strings.Repeat("  ", depth)+line(p, n, lit))
		if !n.IsDir() || !(all || p.Expanded[n.Path]) {
			return
		}
		for _, c := range n.Children {
			child, err := p.Store.GetNode(c)
			if err != nil {
				continue
			}
			walk(child, depth+1)
		}
	}
	if root := p.Store.Root(); root != nil {
		walk(root, 0)
	}
}

func line(p *project.Project, n *graph.Node, lit map[string]struct{}) string {
	var badge string
	switch p.StateOf(n.Path) {
	case project.Full:
		badge = fullStyle.Render("[F]")
	case project.PathOnly:
		badge = pathStyle.Render("[P]")
	default:
		badge = ignoreStyle.Render("[ ]")
	}

	name := n.Name
	if n.IsDir() {
		name = dirStyle.Render(name + "/")
	} else if _, ok := lit[n.Path]; ok {
		name = highlightStyle.Render(name)
	}

	var marks []string
	if _, ok := p.SearchHits[n.Path]; ok {
		marks = append(marks, "match")
	}
	if h, ok := p.Highlights[n.Path]; ok {
		if h.ShowDependencies {
			marks = append(marks, fmt.Sprintf("imports %d", len(p.Deps.Dependencies(n.Path))))
		}
		if h.ShowDependents {
			marks = append(marks, fmt.Sprintf("imported by %d", len(p.Deps.Dependents(n.Path))))
		}
	}
	out := badge + " " + name
	if len(marks) > 0 {
		out += ignoreStyle.Render(" (" + strings.Join(marks, ", ") + ")")
	}
	return out
}
