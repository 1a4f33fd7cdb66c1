package assemble

import (
	"sort"
	"strings"
)

type treeDir struct {
	dirs  map[string]*treeDir
	files map[string]bool // name -> path only
}

func newTreeDir() *treeDir {
	return &treeDir{dirs: map[string]*treeDir{}, files: map[string]bool{}}
}

// Tree renders relative file paths as a nested diagram rooted at "/".
// Directories come before files, each group alphabetical; path-only files
// carry PathOnlyMarker.
//
//	/
//	|-- src/
//	|   |-- a.js
//	|   |-- b.js [PATH ONLY]
//	|-- main.go
func Tree(full, pathOnly []string) string {
	root := newTreeDir()
	add := func(rel string, po bool) {
		parts := strings.Split(strings.Trim(rel, "/"), "/")
		d := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := d.dirs[part]
			if !ok {
				child = newTreeDir()
				d.dirs[part] = child
			}
			d = child
		}
		name := parts[len(parts)-1]
		if _, seen := d.files[name]; seen && !po {
			d.files[name] = false
			return
		}
		if _, seen := d.files[name]; !seen {
			d.files[name] = po
		}
	}
	for _, rel := range full {
		add(rel, false)
	}
	for _, rel := range pathOnly {
		add(rel, true)
	}

	var b strings.Builder
	b.WriteString("/\n")
	root.render(&b, 0)
	return b.String()
}

func (d *treeDir) render(b *strings.Builder, depth int) {
	indent := strings.Repeat("|   ", depth)

	dirs := make([]string, 0, len(d.dirs))
	for name := range d.dirs {
		dirs = append(dirs, name)
	}
	sort.Strings(dirs)
	for _, name := range dirs {
		b.WriteString(indent + "|-- " + name + "/\n")
		d.dirs[name].render(b, depth+1)
	}

	files := make([]string, 0, len(d.files))
	for name := range d.files {
		files = append(files, name)
	}
	sort.Strings(files)
	for _, name := range files {
		b.WriteString(indent + "|-- " + name)
		if d.files[name] {
			b.WriteString(PathOnlyMarker)
		}
		b.WriteString("\n")
	}
}
