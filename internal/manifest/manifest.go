// Package manifest reads a YAML description of a workspace (which roots to load
// and what to select in them) and replays it.
//
//	task: add retry to the client
//	panels:
//	  left:
//	    root: ./backend
//	    title: Backend
//	    select:
//	      - {path: src, state: full}
//	      - {path: src/gen, state: ignore}
//	    dependencies: [src/client.go]
//	    search: retry
//	filters:
//	  only_highlighted: true
package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/ctxpack/internal/highlight"
	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/selection"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

// Rule sets one path (relative to the panel root) to a state. Rules apply in order.
type Rule struct {
	Path  string `yaml:"path"`
	State string `yaml:"state"`
}

// Panel describes one panel's project.
type Panel struct {
	Root         string   `yaml:"root"`
	Title        string   `yaml:"title,omitempty"`
	Select       []Rule   `yaml:"select,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`
	Dependents   []string `yaml:"dependents,omitempty"`
	Search       string   `yaml:"search,omitempty"`
}

// Filters mirror highlight.Filters.
type Filters struct {
	OnlyHighlighted bool `yaml:"only_highlighted"`
	OnlyIncluded    bool `yaml:"only_included"`
}

type Manifest struct {
	Task    string           `yaml:"task,omitempty"`
	Panels  map[string]Panel `yaml:"panels"`
	Filters Filters          `yaml:"filters,omitempty"`

	dir string
}

// Parse decodes a manifest. Relative roots resolve against dir.
func Parse(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	for id, p := range m.Panels {
		if id != workspace.Left && id != workspace.Right {
			return nil, fmt.Errorf("manifest: panel %q: %w", id, workspace.ErrUnknownPanel)
		}
		if p.Root == "" {
			return nil, fmt.Errorf("manifest: panel %s: root is required", id)
		}
	}
	m.dir = dir
	return &m, nil
}

// Load reads and parses the manifest file at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// HighlightFilters converts the manifest filters.
func (m *Manifest) HighlightFilters() highlight.Filters {
	return highlight.Filters{
		OnlyHighlighted: m.Filters.OnlyHighlighted,
		OnlyIncluded:    m.Filters.OnlyIncluded,
	}
}

// Apply loads every panel into w and replays its selection, toggles and
// search. A failed load stops Apply; unknown paths in rules are collected and
// returned together after everything else has been applied.
func (m *Manifest) Apply(ctx context.Context, w *workspace.Workspace, maxSearchBytes int64) error {
	var errs []error
	for _, id := range workspace.Panels() {
		pc, ok := m.Panels[id]
		if !ok {
			continue
		}
		root := pc.Root
		if !filepath.IsAbs(root) && m.dir != "" {
			root = filepath.Join(m.dir, root)
		}
		p, err := w.LoadProject(ctx, id, root)
		if err != nil {
			return err
		}
		if pc.Title != "" {
			p.Title = pc.Title
		}

		for _, r := range pc.Select {
			st, err := project.ParseState(r.State)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.Path, err))
				continue
			}
			if err := selection.Set(p, abs(p, r.Path), st); err != nil {
				errs = append(errs, err)
			}
		}
		for _, f := range pc.Dependencies {
			if err := highlight.Toggle(p, abs(p, f), highlight.Dependencies); err != nil {
				errs = append(errs, err)
			}
		}
		for _, f := range pc.Dependents {
			if err := highlight.Toggle(p, abs(p, f), highlight.Dependents); err != nil {
				errs = append(errs, err)
			}
		}
		if pc.Search != "" {
			highlight.Search(ctx, p, pc.Search, maxSearchBytes)
		}
	}
	return errors.Join(errs...)
}

// abs turns a root-relative path into a node path; "", "." and "/" name the root.
func abs(p *project.Project, rel string) string {
	root := p.Store.Root().Path
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return root
	}
	return root + "/" + rel
}
