package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentic-research/ctxpack/internal/graph"
	"github.com/agentic-research/ctxpack/internal/imports"
	"github.com/agentic-research/ctxpack/internal/source"
)

// DefaultExclude lists entry names that are never loaded.
var DefaultExclude = []string{
	".git", ".svn", ".hg", ".vscode", ".idea", ".DS_Store",
	"__pycache__", ".venv", "venv", "env", ".env",
	"dist", "build", "node_modules",
	"package-lock.json", "yarn.lock",
}

// Engine turns a Source into a node Store and a dependency graph.
type Engine struct {
	Source   source.Source
	Exclude  map[string]struct{}
	MaxBytes int64 // files larger than this are not scanned; 0 scans everything
	Logger   *slog.Logger
}

func NewEngine(src source.Source, exclude []string) *Engine {
	set := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		set[name] = struct{}{}
	}
	return &Engine{
		Source:  src,
		Exclude: set,
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Build enumerates the source into a fresh Store whose root node is named rootName.
// Any listing failure discards the partial tree; permission failures wrap
// source.ErrAccessDenied.
func (e *Engine) Build(ctx context.Context, rootName string) (*graph.Store, error) {
	store := graph.NewStore()
	root := &graph.Node{
		Name: rootName,
		Path: rootName,
		Kind: graph.Directory,
	}
	store.AddRoot(root)

	if err := e.buildDir(ctx, store, root, ""); err != nil {
		return nil, err
	}
	e.logger().Debug("tree built", "root", rootName, "nodes", store.Len())
	return store, nil
}

func (e *Engine) buildDir(ctx context.Context, store *graph.Store, dir *graph.Node, rel string) error {
	entries, err := e.Source.ListChildren(ctx, rel)
	if err != nil {
		return fmt.Errorf("build %s: %w", dir.Path, err)
	}
	for _, entry := range entries {
		if _, skip := e.Exclude[entry.Name]; skip {
			continue
		}
		childRel := entry.Name
		if rel != "" {
			childRel = rel + "/" + entry.Name
		}
		child := &graph.Node{
			Name: entry.Name,
			Path: dir.Path + "/" + entry.Name,
			Kind: graph.File,
			Size: entry.Size,
		}
		if entry.Dir {
			child.Kind = graph.Directory
			child.Size = 0
		}
		store.AddNode(child)
		dir.Children = append(dir.Children, child.Path)

		if entry.Dir {
			if err := e.buildDir(ctx, store, child, childRel); err != nil {
				return err
			}
		}
	}
	return nil
}

// ScanDependencies reads every file of store in ascending path order and
// records each resolvable import as an edge. Unreadable files, and files over
// MaxBytes when it is set, contribute no edges.
func (e *Engine) ScanDependencies(ctx context.Context, store *graph.Store) *graph.Deps {
	files := store.Files()
	deps := graph.NewDeps()
	root := store.Root()
	if root == nil {
		return deps
	}
	resolver := imports.NewResolver(root.Path, files)

	for _, f := range files {
		deps.AddFile(f)
	}
	for _, f := range files {
		n, _ := store.GetNode(f)
		if e.MaxBytes > 0 && n.Size > e.MaxBytes {
			e.logger().Debug("skip oversized file", "path", f, "size", n.Size)
			continue
		}
		text, err := e.Source.ReadText(ctx, store.RelPath(f))
		if err != nil {
			e.logger().Warn("skip unreadable file", "path", f, "err", err)
			continue
		}
		for _, lit := range imports.Extract(text) {
			if target, ok := resolver.Resolve(f, lit); ok {
				deps.AddEdge(f, target)
			}
		}
	}
	e.logger().Debug("dependencies scanned", "root", root.Path, "files", len(files), "edges", deps.EdgeCount())
	return deps
}
