package graph

import (
	"errors"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("node not found")

// Kind distinguishes files from directories.
type Kind int

const (
	File Kind = iota
	Directory
)

func (k Kind) String() string {
	if k == Directory {
		return "dir"
	}
	return "file"
}

// Node is one file or directory of a loaded project.
// Path is unique within a project and starts with the root directory's name.
type Node struct {
	ID       uint32   // arena ordinal, assigned in build order
	Name     string   // base name
	Path     string   // '/'-joined, e.g. "proj/src/a.js"
	Kind     Kind     // File or Directory
	Size     int64    // bytes as listed; 0 for directories
	Children []string // child paths in enumeration order (directories only)
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.Kind == Directory }

// Store is the node arena of one project: nodes indexed by path and by ordinal.
// It is built once per load and never mutated afterwards except through AddNode
// during the build.
type Store struct {
	root  string
	nodes map[string]*Node
	byID  []*Node
}

func NewStore() *Store {
	return &Store{nodes: make(map[string]*Node)}
}

// AddRoot registers the project root directory.
func (s *Store) AddRoot(n *Node) {
	s.root = n.Path
	s.AddNode(n)
}

// AddNode stores n and assigns its ordinal. Re-adding a path keeps the ordinal.
func (s *Store) AddNode(n *Node) {
	if old, ok := s.nodes[n.Path]; ok {
		n.ID = old.ID
		s.byID[n.ID] = n
		s.nodes[n.Path] = n
		return
	}
	n.ID = uint32(len(s.byID))
	s.byID = append(s.byID, n)
	s.nodes[n.Path] = n
}

// Root returns the root directory node, or nil for an empty store.
func (s *Store) Root() *Node {
	if s.root == "" {
		return nil
	}
	return s.nodes[s.root]
}

// GetNode returns the node at path. A leading slash is ignored.
func (s *Store) GetNode(path string) (*Node, error) {
	path = strings.TrimPrefix(path, "/")
	n, ok := s.nodes[path]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ByID returns the node with the given ordinal.
func (s *Store) ByID(id uint32) *Node {
	if int(id) >= len(s.byID) {
		return nil
	}
	return s.byID[id]
}

// ListChildren returns the child paths of a directory; "" or "/" is the root's parent.
func (s *Store) ListChildren(path string) ([]string, error) {
	if path == "" || path == "/" {
		if s.root == "" {
			return nil, nil
		}
		return []string{s.root}, nil
	}
	n, err := s.GetNode(path)
	if err != nil {
		return nil, err
	}
	return n.Children, nil
}

// Len is the number of nodes.
func (s *Store) Len() int { return len(s.byID) }

// Nodes returns every node in build order (parents before children).
func (s *Store) Nodes() []*Node {
	return s.byID
}

// Files returns the paths of all file nodes in ascending order.
func (s *Store) Files() []string {
	var out []string
	for _, n := range s.byID {
		if n.Kind == File {
			out = append(out, n.Path)
		}
	}
	sort.Strings(out)
	return out
}

// Walk visits the node at path and all its descendants, depth-first in
// enumeration order. fn returning false stops descent below that node.
func (s *Store) Walk(path string, fn func(n *Node) bool) error {
	n, err := s.GetNode(path)
	if err != nil {
		return err
	}
	s.walk(n, fn)
	return nil
}

func (s *Store) walk(n *Node, fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		if child, ok := s.nodes[c]; ok {
			s.walk(child, fn)
		}
	}
}

// Ancestors returns the paths of every directory above path, nearest first.
// Only paths present in the store are returned.
func (s *Store) Ancestors(path string) []string {
	var out []string
	for {
		i := strings.LastIndexByte(path, '/')
		if i < 0 {
			return out
		}
		path = path[:i]
		if _, ok := s.nodes[path]; ok {
			out = append(out, path)
		}
	}
}

// RelPath strips the root directory name from path.
func (s *Store) RelPath(path string) string {
	if path == s.root {
		return ""
	}
	return strings.TrimPrefix(path, s.root+"/")
}
