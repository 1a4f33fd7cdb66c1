// Package imports finds import-like string literals in source text and maps
// them onto project files.
//
// The scanner is a syntax-unaware heuristic: it matches inside comments and
// strings and across languages alike. Its false positives and negatives are
// part of the observable behavior and must not be corrected with real parsing.
package imports

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

var importRe = regexp.MustCompile("(?:from|require|import)\\s*\\(?\\s*[\"'`]([\\w@/.\\-]+)[\"'`]")

// Extract returns every import literal in text, in order of appearance.
func Extract(text string) []string {
	matches := importRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// IsRelative reports whether literal names a project file rather than a package.
func IsRelative(literal string) bool {
	return strings.HasPrefix(literal, "./") ||
		strings.HasPrefix(literal, "../") ||
		strings.HasPrefix(literal, "/")
}

// Candidate applies literal's segments to the directory containing base.
// ".." pops a component (never past a leading "/"), "." and empty segments are
// skipped. Candidate("/p/a/b.js", "../d") == "/p/d".
func Candidate(base, literal string) string {
	parts := strings.Split(base, "/")
	parts = parts[:len(parts)-1]
	for _, seg := range strings.Split(literal, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(parts) > 0 && !(len(parts) == 1 && parts[0] == "") {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}

// Resolver looks candidates up in one project's file set.
type Resolver struct {
	root  string
	files map[string]struct{}
	stems map[string]string // path without final extension -> path
}

// NewResolver indexes files. root is the project root node's path; literals
// starting with "/" are anchored there. On a stem collision the first path
// in ascending order wins.
func NewResolver(root string, files []string) *Resolver {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	r := &Resolver{
		root:  root,
		files: make(map[string]struct{}, len(sorted)),
		stems: make(map[string]string, len(sorted)),
	}
	for _, f := range sorted {
		r.files[f] = struct{}{}
		stem := stripExt(f)
		if _, ok := r.stems[stem]; !ok {
			r.stems[stem] = f
		}
	}
	return r
}

// Resolve maps an import literal found in base to a project file.
// Bare package names never resolve.
func (r *Resolver) Resolve(base, literal string) (string, bool) {
	if !IsRelative(literal) {
		return "", false
	}
	var cand string
	if strings.HasPrefix(literal, "/") {
		cand = Candidate(r.root+"/_", "."+literal)
	} else {
		cand = Candidate(base, literal)
	}

	if _, ok := r.files[cand]; ok {
		return cand, true
	}
	if p, ok := r.stems[stripExt(cand)]; ok {
		return p, true
	}
	index := cand + "/index"
	if _, ok := r.files[index]; ok {
		return index, true
	}
	if p, ok := r.stems[index]; ok {
		return p, true
	}
	return "", false
}

// stripExt removes the final extension of the last path segment only.
func stripExt(p string) string {
	ext := path.Ext(p)
	if ext == "" || strings.HasSuffix(p, "/"+ext) {
		return p
	}
	return strings.TrimSuffix(p, ext)
}
