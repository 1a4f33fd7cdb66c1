// Package source is the file-system capability the project model is built from.
// The core never touches the disk directly; it lists directories and reads file
// text through a Source.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// ErrAccessDenied is returned when a directory listing is refused.
var ErrAccessDenied = errors.New("access denied")

// ReadError reports a single unreadable file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Entry is one child returned by ListChildren, or the file described by Stat.
type Entry struct {
	Name    string
	Dir     bool
	Size    int64 // bytes; 0 for directories
	ModTime time.Time
}

// Source lists directories and reads files. Paths are slash-separated and
// relative to the source root; "" names the root itself.
type Source interface {
	ListChildren(ctx context.Context, dir string) ([]Entry, error)
	ReadText(ctx context.Context, file string) (string, error)
	Stat(ctx context.Context, file string) (Entry, error)
}

// BillySource adapts a billy.Filesystem to Source.
type BillySource struct {
	fs billy.Filesystem
}

// NewBillySource wraps an existing billy filesystem (memfs in tests).
func NewBillySource(fs billy.Filesystem) *BillySource {
	return &BillySource{fs: fs}
}

// Open returns a Source rooted at a directory on disk.
func Open(root string) *BillySource {
	return NewBillySource(osfs.New(root))
}

// ListChildren implements Source. Entries keep the filesystem's order.
func (s *BillySource) ListChildren(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.fs.ReadDir(fsPath(dir))
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("list %q: %w", dir, ErrAccessDenied)
		}
		return nil, fmt.Errorf("list %q: %w", dir, err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, entryOf(fi))
	}
	return entries, nil
}

// Stat implements Source.
func (s *BillySource) Stat(ctx context.Context, file string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, &ReadError{Path: file, Err: err}
	}
	fi, err := s.fs.Stat(fsPath(file))
	if err != nil {
		return Entry{}, &ReadError{Path: file, Err: err}
	}
	return entryOf(fi), nil
}

func entryOf(fi fs.FileInfo) Entry {
	e := Entry{Name: fi.Name(), Dir: fi.IsDir(), ModTime: fi.ModTime()}
	if !e.Dir {
		e.Size = fi.Size()
	}
	return e
}

// ReadText implements Source.
func (s *BillySource) ReadText(ctx context.Context, file string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ReadError{Path: file, Err: err}
	}
	b, err := util.ReadFile(s.fs, fsPath(file))
	if err != nil {
		return "", &ReadError{Path: file, Err: err}
	}
	return string(b), nil
}

func fsPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}
	return path.Clean(p)
}
