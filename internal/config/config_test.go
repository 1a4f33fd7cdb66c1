package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/ctxpack/internal/highlight"
	"github.com/agentic-research/ctxpack/internal/ingest"
	"github.com/agentic-research/ctxpack/internal/project"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvPresetDB, "")
	t.Setenv(EnvTask, "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, ingest.DefaultExclude, cfg.Exclude)
	assert.Equal(t, project.Ignore, cfg.DefaultState)
	assert.Equal(t, int64(highlight.DefaultMaxBytes), cfg.MaxSearchBytes)
	assert.Zero(t, cfg.ScanMaxBytes)
	assert.Zero(t, cfg.Workspace().ScanMaxBytes)
	assert.Equal(t, 4, cfg.CharsPerToken)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "ctx.hcl", `
extra_exclude     = ["coverage"]
default_selection = "path"
max_search_bytes  = 2048
scan_max_bytes    = 4096
chars_per_token   = 3
preset_db         = "/var/lib/ctx.db"
task              = "review"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Contains(t, cfg.Exclude, "node_modules")
	assert.Contains(t, cfg.Exclude, "coverage")
	assert.Equal(t, project.PathOnly, cfg.DefaultState)
	assert.Equal(t, int64(2048), cfg.MaxSearchBytes)
	assert.Equal(t, 3, cfg.CharsPerToken)
	assert.Equal(t, "/var/lib/ctx.db", cfg.PresetDB)
	assert.Equal(t, "review", cfg.Task)

	opts := cfg.Workspace()
	assert.Equal(t, project.PathOnly, opts.DefaultState)
	assert.Equal(t, int64(4096), opts.ScanMaxBytes)
}

func TestLoad_ReplaceExcludeAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "settings.conf", `exclude = ["vendor"]`)
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvTask, "from env")
	t.Setenv(EnvPresetDB, "/tmp/p.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor"}, cfg.Exclude)
	assert.Equal(t, "from env", cfg.Task)
	assert.Equal(t, "/tmp/p.db", cfg.PresetDB)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.hcl", `default_selection = "most"`))
	assert.ErrorIs(t, err, project.ErrUnknownState)

	_, err = Load(writeConfig(t, "syntax.hcl", `chars_per_token = `))
	assert.Error(t, err)
}
