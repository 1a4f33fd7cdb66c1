// Package config loads ctxpack settings from an HCL file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/agentic-research/ctxpack/internal/assemble"
	"github.com/agentic-research/ctxpack/internal/highlight"
	"github.com/agentic-research/ctxpack/internal/ingest"
	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

// Environment variables consulted by Load.
const (
	EnvConfig   = "CTXPACK_CONFIG"
	EnvPresetDB = "CTXPACK_PRESET_DB"
	EnvTask     = "CTXPACK_TASK"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = ".ctxpack.hcl"

// File is the on-disk schema.
type File struct {
	Exclude          []string `hcl:"exclude,optional"`
	ExtraExclude     []string `hcl:"extra_exclude,optional"`
	DefaultSelection string   `hcl:"default_selection,optional"`
	MaxSearchBytes   int64    `hcl:"max_search_bytes,optional"`
	ScanMaxBytes     int64    `hcl:"scan_max_bytes,optional"`
	CharsPerToken    int      `hcl:"chars_per_token,optional"`
	PresetDB         string   `hcl:"preset_db,optional"`
	Task             string   `hcl:"task,optional"`
}

// Config is the resolved configuration.
type Config struct {
	Path           string // file the values came from; empty for defaults
	Exclude        []string
	DefaultState   project.State
	MaxSearchBytes int64
	ScanMaxBytes   int64 // 0 scans every file for imports
	CharsPerToken  int
	PresetDB       string
	Task           string
}

func Default() Config {
	return Config{
		Exclude:        append([]string(nil), ingest.DefaultExclude...),
		DefaultState:   project.Ignore,
		MaxSearchBytes: highlight.DefaultMaxBytes,
		CharsPerToken:  assemble.DefaultCharsPerToken,
		PresetDB:       defaultPresetDB(),
	}
}

// Load resolves the config file (path, then $CTXPACK_CONFIG, then
// ./.ctxpack.hcl if present), decodes it over the defaults, and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	src, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(path, src); err != nil {
			return Config{}, err
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	if v := os.Getenv(EnvPresetDB); v != "" {
		cfg.PresetDB = v
	}
	if v := os.Getenv(EnvTask); v != "" {
		cfg.Task = v
	}
	cfg.PresetDB = expandHome(cfg.PresetDB)
	return cfg, nil
}

func (c *Config) decode(path string, src []byte) error {
	var f File
	// hclsimple picks the syntax from the extension; force native HCL.
	name := path
	if !strings.HasSuffix(name, ".hcl") && !strings.HasSuffix(name, ".json") {
		name += ".hcl"
	}
	if err := hclsimple.Decode(name, src, nil, &f); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	c.Path = path

	if f.Exclude != nil {
		c.Exclude = f.Exclude
	}
	c.Exclude = append(c.Exclude, f.ExtraExclude...)
	if f.DefaultSelection != "" {
		st, err := project.ParseState(f.DefaultSelection)
		if err != nil {
			return fmt.Errorf("config %s: default_selection: %w", path, err)
		}
		c.DefaultState = st
	}
	if f.MaxSearchBytes > 0 {
		c.MaxSearchBytes = f.MaxSearchBytes
	}
	if f.ScanMaxBytes > 0 {
		c.ScanMaxBytes = f.ScanMaxBytes
	}
	if f.CharsPerToken > 0 {
		c.CharsPerToken = f.CharsPerToken
	}
	if f.PresetDB != "" {
		c.PresetDB = f.PresetDB
	}
	if f.Task != "" {
		c.Task = f.Task
	}
	return nil
}

// Workspace returns the load options derived from c.
func (c Config) Workspace() workspace.Options {
	return workspace.Options{
		Exclude:      c.Exclude,
		DefaultState: c.DefaultState,
		ScanMaxBytes: c.ScanMaxBytes,
	}
}

func defaultPresetDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ctxpack", "presets.db")
	}
	return filepath.Join(home, ".ctxpack", "presets.db")
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
