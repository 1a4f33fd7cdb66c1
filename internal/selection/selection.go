// Package selection applies inclusion choices to a project tree.
//
// Setting a directory's state cascades the same value onto every descendant.
// Nothing aggregates upward: a directory keeps whatever was last set on it even
// after its children are edited individually.
package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agentic-research/ctxpack/internal/graph"
	"github.com/agentic-research/ctxpack/internal/project"
)

// Set assigns state to path and, if path is a directory, to all its descendants.
func Set(p *project.Project, path string, state project.State) error {
	n, err := p.Node(path)
	if err != nil {
		return err
	}
	if !n.IsDir() {
		p.Selection[n.Path] = state
		return nil
	}
	return p.Store.Walk(n.Path, func(d *graph.Node) bool {
		p.Selection[d.Path] = state
		return true
	})
}

// ApplyToSet calls Set for every path. Unknown paths do not stop the others;
// their errors are joined.
func ApplyToSet(p *project.Project, paths []string, state project.State) error {
	var errs []error
	for _, path := range paths {
		if err := Set(p, path, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Restore writes saved states back verbatim, without cascading.
// Paths no longer in the tree are skipped and returned.
func Restore(p *project.Project, states map[string]project.State) (missing []string) {
	for path, st := range states {
		if _, err := p.Store.GetNode(path); err != nil {
			missing = append(missing, path)
			continue
		}
		p.Selection[path] = st
	}
	sort.Strings(missing)
	return missing
}

// Snapshot copies the current state of every node.
func Snapshot(p *project.Project) map[string]project.State {
	out := make(map[string]project.State, len(p.Selection))
	for path, st := range p.Selection {
		out[path] = st
	}
	return out
}

// Collect returns the sorted file paths in Full and PathOnly state.
// Directories never contribute entries.
func Collect(p *project.Project) (full, pathOnly []string) {
	for _, f := range p.Store.Files() {
		switch p.Selection[f] {
		case project.Full:
			full = append(full, f)
		case project.PathOnly:
			pathOnly = append(pathOnly, f)
		}
	}
	return full, pathOnly
}

// SetByName is Set with the state given as text, for CLI and tool callers.
func SetByName(p *project.Project, path, state string) error {
	st, err := project.ParseState(state)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return Set(p, path, st)
}
