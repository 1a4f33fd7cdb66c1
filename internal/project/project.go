// Package project holds the state of one loaded panel: the node tree, its
// dependency graph, and the user's selection and highlight choices.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentic-research/ctxpack/internal/graph"
	"github.com/agentic-research/ctxpack/internal/source"
)

var ErrUnknownState = errors.New("unknown selection state")

// State is the tri-state inclusion flag of a node.
type State int

const (
	Ignore State = iota
	PathOnly
	Full
)

func (s State) String() string {
	switch s {
	case Full:
		return "full"
	case PathOnly:
		return "path"
	default:
		return "ignore"
	}
}

// ParseState accepts "full", "path" (or "path-only"), and "ignore".
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return Full, nil
	case "path", "path-only", "pathonly":
		return PathOnly, nil
	case "ignore", "":
		return Ignore, nil
	}
	return Ignore, fmt.Errorf("%q: %w", s, ErrUnknownState)
}

// Included reports whether the state puts the node into the context.
func (s State) Included() bool { return s == Full || s == PathOnly }

// HighlightState is the per-file "show related files" toggle pair.
type HighlightState struct {
	ShowDependencies bool
	ShowDependents   bool
}

const textCacheSize = 512

// cachedText is a file's text together with the size and modification time
// it had when read. A stale stamp invalidates the entry.
type cachedText struct {
	size int64
	mod  time.Time
	text string
}

// Project is one loaded root directory and everything derived from it.
// It is not safe for concurrent mutation; callers serialize operations.
type Project struct {
	RootPath string
	Title    string
	Store    *graph.Store
	Deps     *graph.Deps
	Source   source.Source

	Selection  map[string]State
	Highlights map[string]*HighlightState
	SearchHits map[string]struct{}
	Expanded   map[string]bool

	Logger *slog.Logger

	texts *lru.Cache[string, cachedText]
}

// New creates a project with every node set to def. The root directory
// starts expanded and every other directory collapsed.
func New(rootPath string, store *graph.Store, deps *graph.Deps, src source.Source, def State) *Project {
	texts, _ := lru.New[string, cachedText](textCacheSize)
	p := &Project{
		RootPath:   rootPath,
		Store:      store,
		Deps:       deps,
		Source:     src,
		Selection:  make(map[string]State, store.Len()),
		Highlights: make(map[string]*HighlightState),
		SearchHits: make(map[string]struct{}),
		Expanded:   make(map[string]bool),
		texts:      texts,
	}
	for _, n := range store.Nodes() {
		p.Selection[n.Path] = def
		if n.IsDir() {
			p.Expanded[n.Path] = false
		}
	}
	if root := store.Root(); root != nil {
		p.Title = root.Name
		p.Expanded[root.Path] = true
	}
	return p
}

// Log returns the project's logger, or the default one.
func (p *Project) Log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// CachedText returns a file's current text. The cache is consulted only when
// the file's size and modification time are unchanged since it was read.
func (p *Project) CachedText(ctx context.Context, path string) (string, error) {
	rel := p.Store.RelPath(path)
	st, err := p.Source.Stat(ctx, rel)
	if err != nil {
		p.texts.Remove(path)
		return "", err
	}
	if c, ok := p.texts.Get(path); ok && c.size == st.Size && c.mod.Equal(st.ModTime) {
		return c.text, nil
	}
	text, err := p.Source.ReadText(ctx, rel)
	if err != nil {
		p.texts.Remove(path)
		return "", err
	}
	p.texts.Add(path, cachedText{size: st.Size, mod: st.ModTime, text: text})
	return text, nil
}

// ReadText reads a file's current text from the source, bypassing the cache.
func (p *Project) ReadText(ctx context.Context, path string) (string, error) {
	return p.Source.ReadText(ctx, p.Store.RelPath(path))
}

// Node returns the node at path.
func (p *Project) Node(path string) (*graph.Node, error) {
	n, err := p.Store.GetNode(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// StateOf returns the selection state of path.
func (p *Project) StateOf(path string) State {
	return p.Selection[path]
}

// Highlight returns the highlight state of a file, creating it if absent.
func (p *Project) Highlight(path string) *HighlightState {
	h, ok := p.Highlights[path]
	if !ok {
		h = &HighlightState{}
		p.Highlights[path] = h
	}
	return h
}

// Contains reports whether path lies inside this project (cross-panel lookup).
func (p *Project) Contains(path string) bool {
	root := p.Store.Root()
	if root == nil {
		return false
	}
	path = strings.TrimPrefix(path, "/")
	return path == root.Path || strings.HasPrefix(path, root.Path+"/")
}
