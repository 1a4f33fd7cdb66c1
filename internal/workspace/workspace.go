// Package workspace holds the two side-by-side project panels.
//
// A panel's project is replaced wholesale on every load; a failed load leaves
// the previous project in place. The workspace does no locking of its own.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/agentic-research/ctxpack/internal/assemble"
	"github.com/agentic-research/ctxpack/internal/ingest"
	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/source"
)

// Panel IDs, in assembly order.
const (
	Left  = "left"
	Right = "right"
)

var (
	ErrNoProject    = errors.New("no project loaded")
	ErrUnknownPanel = errors.New("unknown panel")
)

// Options configure how projects are loaded. ScanMaxBytes caps the files read
// for imports; 0 reads every file.
type Options struct {
	Exclude      []string
	DefaultState project.State
	ScanMaxBytes int64
}

// DefaultOptions uses the built-in exclusion set and Ignore as the default state.
func DefaultOptions() Options {
	return Options{
		Exclude:      ingest.DefaultExclude,
		DefaultState: project.Ignore,
	}
}

// Workspace maps panel IDs to loaded projects.
type Workspace struct {
	Options Options
	Logger  *slog.Logger

	// Open returns the Source for a root directory. Defaults to the OS filesystem.
	Open func(rootPath string) source.Source

	panels map[string]*project.Project
}

func New(opts Options) *Workspace {
	return &Workspace{
		Options: opts,
		Open:    func(root string) source.Source { return source.Open(root) },
		panels:  make(map[string]*project.Project),
	}
}

func (w *Workspace) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// Panels returns the panel IDs in assembly order.
func Panels() []string { return []string{Left, Right} }

func checkPanel(id string) error {
	if id != Left && id != Right {
		return fmt.Errorf("%q: %w", id, ErrUnknownPanel)
	}
	return nil
}

// LoadProject builds the tree and dependency graph of rootPath and installs it
// as the project of panel. On error the panel keeps its previous project.
func (w *Workspace) LoadProject(ctx context.Context, panel, rootPath string) (*project.Project, error) {
	if err := checkPanel(panel); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", rootPath, err)
	}
	rootName := filepath.Base(abs)

	src := w.Open(abs)
	e := ingest.NewEngine(src, w.Options.Exclude)
	e.Logger = w.Logger
	e.MaxBytes = w.Options.ScanMaxBytes

	store, err := e.Build(ctx, rootName)
	if err != nil {
		w.logger().Warn("load failed", "panel", panel, "root", abs, "err", err)
		return nil, fmt.Errorf("load %s: %w", rootPath, err)
	}
	deps := e.ScanDependencies(ctx, store)

	p := project.New(abs, store, deps, src, w.Options.DefaultState)
	p.Logger = w.Logger
	w.panels[panel] = p
	w.logger().Info("project loaded", "panel", panel, "root", abs, "nodes", store.Len(), "edges", deps.EdgeCount())
	return p, nil
}

// Clear drops the project of panel.
func (w *Workspace) Clear(panel string) error {
	if err := checkPanel(panel); err != nil {
		return err
	}
	delete(w.panels, panel)
	return nil
}

// Project returns the project loaded in panel.
func (w *Workspace) Project(panel string) (*project.Project, error) {
	if err := checkPanel(panel); err != nil {
		return nil, err
	}
	p, ok := w.panels[panel]
	if !ok {
		return nil, fmt.Errorf("panel %s: %w", panel, ErrNoProject)
	}
	return p, nil
}

// Lookup finds the project owning path. Panels are tried in order and the
// first whose root name prefixes path wins.
func (w *Workspace) Lookup(path string) (*project.Project, string, error) {
	for _, id := range Panels() {
		if p, ok := w.panels[id]; ok && p.Contains(path) {
			return p, id, nil
		}
	}
	return nil, "", fmt.Errorf("%s: %w", path, ErrNoProject)
}

// SplitPanel splits a panel-qualified reference such as "right:app/x.go".
// ok is false when ref carries no known panel prefix.
func SplitPanel(ref string) (panel, path string, ok bool) {
	id, rest, found := strings.Cut(ref, ":")
	if !found || checkPanel(id) != nil {
		return "", ref, false
	}
	return id, rest, true
}

// Resolve maps a reference to its project and node path. A panel-qualified
// reference addresses that panel directly, and its path may be given with or
// without the root name; anything else goes through Lookup.
func (w *Workspace) Resolve(ref string) (*project.Project, string, error) {
	panel, path, ok := SplitPanel(ref)
	if !ok {
		path = strings.Trim(path, "/")
		p, _, err := w.Lookup(path)
		if err != nil {
			return nil, "", err
		}
		return p, path, nil
	}
	p, err := w.Project(panel)
	if err != nil {
		return nil, "", err
	}
	return p, nodePath(p, path), nil
}

// ResolveIn is Resolve restricted to panel; an empty panel defers to Resolve.
func (w *Workspace) ResolveIn(panel, path string) (*project.Project, string, error) {
	if panel == "" {
		return w.Resolve(path)
	}
	if err := checkPanel(panel); err != nil {
		return nil, "", err
	}
	return w.Resolve(panel + ":" + path)
}

func nodePath(p *project.Project, path string) string {
	path = strings.Trim(filepath.ToSlash(path), "/")
	if p.Contains(path) {
		return path
	}
	root := p.Store.Root().Path
	if path == "" || path == "." {
		return root
	}
	return root + "/" + path
}

// SetTitle renames a panel's project in the assembled output.
func (w *Workspace) SetTitle(panel, title string) error {
	p, err := w.Project(panel)
	if err != nil {
		return err
	}
	p.Title = title
	return nil
}

// Sections returns the assembler input for every loaded panel, in panel order.
func (w *Workspace) Sections() []assemble.Section {
	var out []assemble.Section
	for _, id := range Panels() {
		if p, ok := w.panels[id]; ok {
			out = append(out, assemble.FromProject(p))
		}
	}
	return out
}
