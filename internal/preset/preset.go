// Package preset persists named selections in SQLite.
//
// Paths are stored relative to the project root, so a preset saved from one
// checkout can be loaded into another with a different directory name.
package preset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/selection"
)

var ErrNotFound = errors.New("preset not found")

const schema = `
CREATE TABLE IF NOT EXISTS presets (
	name  TEXT PRIMARY KEY,
	saved INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS preset_entries (
	preset TEXT NOT NULL REFERENCES presets(name) ON DELETE CASCADE,
	path   TEXT NOT NULL,
	state  INTEGER NOT NULL,
	PRIMARY KEY (preset, path)
) WITHOUT ROWID;
`

// Store is a preset database.
type Store struct {
	db *sql.DB
}

// Info summarizes one saved preset.
type Info struct {
	Name    string
	Entries int
	Saved   time.Time
}

// Open opens (creating if needed) the preset database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("preset db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save writes states under name, replacing any preset with the same name.
func (s *Store) Save(ctx context.Context, name string, states map[string]project.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM presets WHERE name = ?`, name); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO presets (name, saved) VALUES (?, ?)`, name, time.Now().Unix()); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO preset_entries (preset, path, state) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	paths := make([]string, 0, len(states))
	for p := range states {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := stmt.ExecContext(ctx, name, p, int(states[p])); err != nil {
			return fmt.Errorf("save %s: %s: %w", name, p, err)
		}
	}
	return tx.Commit()
}

// Load returns the states saved under name.
func (s *Store) Load(ctx context.Context, name string) (map[string]project.State, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM presets WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, state FROM preset_entries WHERE preset = ?`, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]project.State)
	for rows.Next() {
		var path string
		var st int
		if err := rows.Scan(&path, &st); err != nil {
			return nil, err
		}
		out[path] = project.State(st)
	}
	return out, rows.Err()
}

// List returns every preset, by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, p.saved, COUNT(e.path)
		FROM presets p LEFT JOIN preset_entries e ON e.preset = p.name
		GROUP BY p.name, p.saved
		ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Info
	for rows.Next() {
		var info Info
		var saved int64
		if err := rows.Scan(&info.Name, &saved, &info.Entries); err != nil {
			return nil, err
		}
		info.Saved = time.Unix(saved, 0)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes the preset called name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return nil
}

// Capture returns the project's selection keyed by root-relative path.
func Capture(p *project.Project) map[string]project.State {
	out := make(map[string]project.State, len(p.Selection))
	for path, st := range selection.Snapshot(p) {
		out[p.Store.RelPath(path)] = st
	}
	return out
}

// Apply restores captured states onto p and returns the relative paths that
// no longer exist.
func Apply(p *project.Project, states map[string]project.State) []string {
	root := p.Store.Root().Path
	abs := make(map[string]project.State, len(states))
	for rel, st := range states {
		if rel == "" {
			abs[root] = st
			continue
		}
		abs[root+"/"+rel] = st
	}
	missing := selection.Restore(p, abs)
	for i, m := range missing {
		missing[i] = p.Store.RelPath(m)
	}
	return missing
}
