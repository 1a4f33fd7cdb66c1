// Package highlight tracks search hits and "show related files" toggles, and
// computes which nodes stay visible under the view filters.
package highlight

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/ctxpack/internal/project"
)

// DefaultMaxBytes is the search size cap.
const DefaultMaxBytes = 10 << 20

var ErrNotFile = errors.New("not a file")

// Direction selects which relation a toggle shows.
type Direction int

const (
	Dependencies Direction = iota
	Dependents
)

func (d Direction) String() string {
	if d == Dependents {
		return "dependents"
	}
	return "dependencies"
}

// ParseDirection accepts "dependencies"/"deps" and "dependents".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "dependencies", "deps", "imports":
		return Dependencies, nil
	case "dependents", "importers":
		return Dependents, nil
	}
	return Dependencies, fmt.Errorf("unknown direction %q", s)
}

// Toggle flips one relation flag of a file and reveals what it now shows.
func Toggle(p *project.Project, path string, dir Direction) error {
	n, err := p.Node(path)
	if err != nil {
		return err
	}
	if n.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotFile)
	}
	h := p.Highlight(n.Path)
	switch dir {
	case Dependencies:
		h.ShowDependencies = !h.ShowDependencies
		if h.ShowDependencies {
			Reveal(p, append([]string{n.Path}, p.Deps.Dependencies(n.Path)...))
		}
	case Dependents:
		h.ShowDependents = !h.ShowDependents
		if h.ShowDependents {
			Reveal(p, append([]string{n.Path}, p.Deps.Dependents(n.Path)...))
		}
	}
	return nil
}

// Search replaces the project's search hits with the files whose text
// contains term, ignoring case. Text is the file's current content; the
// project cache only serves files unchanged since they were last read. Files
// over maxBytes or unreadable are non-matching. An empty term just clears the
// hits.
func Search(ctx context.Context, p *project.Project, term string, maxBytes int64) map[string]struct{} {
	p.SearchHits = make(map[string]struct{})
	if term == "" {
		return p.SearchHits
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	needle := strings.ToLower(term)
	for _, f := range p.Store.Files() {
		n, _ := p.Store.GetNode(f)
		if n.Size > maxBytes {
			continue
		}
		text, err := p.CachedText(ctx, f)
		if err != nil {
			p.Log().Debug("search: unreadable file", "path", f, "err", err)
			continue
		}
		if int64(len(text)) > maxBytes {
			continue
		}
		if strings.Contains(strings.ToLower(text), needle) {
			p.SearchHits[f] = struct{}{}
		}
	}
	Reveal(p, sortedSet(p.SearchHits))
	return p.SearchHits
}

// Clear drops every relation toggle and the search hits.
func Clear(p *project.Project) {
	p.Highlights = make(map[string]*project.HighlightState)
	p.SearchHits = make(map[string]struct{})
}

// Reveal expands every ancestor directory of paths.
func Reveal(p *project.Project, paths []string) {
	for _, path := range paths {
		for _, a := range p.Store.Ancestors(path) {
			p.Expanded[a] = true
		}
	}
}

// Highlighted returns the nodes that are highlighted in their own right:
// search hits plus the toggled files and the relations they show.
func Highlighted(p *project.Project) map[string]struct{} {
	out := make(map[string]struct{}, len(p.SearchHits))
	for f := range p.SearchHits {
		out[f] = struct{}{}
	}
	for f, h := range p.Highlights {
		if h.ShowDependencies {
			out[f] = struct{}{}
			for _, d := range p.Deps.Dependencies(f) {
				out[d] = struct{}{}
			}
		}
		if h.ShowDependents {
			out[f] = struct{}{}
			for _, d := range p.Deps.Dependents(f) {
				out[d] = struct{}{}
			}
		}
	}
	return out
}

// Filters are the two view switches.
type Filters struct {
	OnlyHighlighted bool
	OnlyIncluded    bool
}

// Keepers computes both keeper sets as bitmaps of node IDs. Each set holds
// its seed nodes plus all of their ancestors.
func Keepers(p *project.Project) (highlighted, included *roaring.Bitmap) {
	highlighted = withAncestors(p, Highlighted(p))

	seeds := make(map[string]struct{})
	for path, st := range p.Selection {
		if st.Included() {
			seeds[path] = struct{}{}
		}
	}
	included = withAncestors(p, seeds)
	return highlighted, included
}

// VisibleSet returns the paths shown under f, recomputed from current state.
// With both filters the keeper sets intersect; with neither every node is visible.
func VisibleSet(p *project.Project, f Filters) map[string]struct{} {
	var bm *roaring.Bitmap
	switch {
	case f.OnlyHighlighted && f.OnlyIncluded:
		h, i := Keepers(p)
		bm = roaring.And(h, i)
	case f.OnlyHighlighted:
		bm, _ = Keepers(p)
	case f.OnlyIncluded:
		_, bm = Keepers(p)
	default:
		out := make(map[string]struct{}, p.Store.Len())
		for _, n := range p.Store.Nodes() {
			out[n.Path] = struct{}{}
		}
		return out
	}
	return toPaths(p, bm)
}

func withAncestors(p *project.Project, seeds map[string]struct{}) *roaring.Bitmap {
	bm := roaring.New()
	for path := range seeds {
		n, err := p.Store.GetNode(path)
		if err != nil {
			continue
		}
		bm.Add(n.ID)
		for _, a := range p.Store.Ancestors(n.Path) {
			an, _ := p.Store.GetNode(a)
			bm.Add(an.ID)
		}
	}
	return bm
}

func toPaths(p *project.Project, bm *roaring.Bitmap) map[string]struct{} {
	out := make(map[string]struct{}, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if n := p.Store.ByID(it.Next()); n != nil {
			out[n.Path] = struct{}{}
		}
	}
	return out
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
