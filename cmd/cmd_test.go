package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProject lays out files under <tmp>/proj and returns that directory.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "proj")
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI with a clean environment and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CTXPACK_CONFIG", "")
	t.Setenv("CTXPACK_TASK", "")
	if os.Getenv("CTXPACK_PRESET_DB") == "" {
		t.Setenv("CTXPACK_PRESET_DB", filepath.Join(t.TempDir(), "presets.db"))
	}
	t.Chdir(t.TempDir())

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

var jsProject = map[string]string{
	"src/a.js":          "import { b } from './b'\n",
	"src/b.js":          "export const b = 'needle'\n",
	"docs/readme.md":    "# docs\n",
	"node_modules/x.js": "ignored",
}

func TestAssembleCommand(t *testing.T) {
	root := writeProject(t, jsProject)

	out, err := run(t, "assemble", root, "--full", "src", "--path", "proj/docs", "--task", "explain b")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Task: explain b\n\n--- PROJECT: proj ---\n/\n"))
	assert.Contains(t, out, "|-- docs/\n|   |-- readme.md [PATH ONLY]\n|-- src/\n|   |-- a.js\n|   |-- b.js\n")
	assert.Contains(t, out, "========== File: src/a.js ==========\n\nimport { b } from './b'\n")
	assert.NotContains(t, out, "node_modules")
	assert.NotContains(t, out, "# docs")
}

func TestAssembleCommand_PanelQualifiedPaths(t *testing.T) {
	base := t.TempDir()
	roots := map[string]string{}
	for _, side := range []string{"old", "new"} {
		dir := filepath.Join(base, side, "app")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("from "+side+"\n"), 0o644))
		roots[side] = dir
	}

	out, err := run(t, "assemble", roots["old"], roots["new"], "--full", "right:app/a.js")
	require.NoError(t, err)
	assert.Contains(t, out, "from new\n")
	assert.NotContains(t, out, "from old")

	out, err = run(t, "assemble", roots["old"], roots["new"], "--full", "app/a.js", "--full", "right:a.js")
	require.NoError(t, err)
	assert.Contains(t, out, "from old\n")
	assert.Contains(t, out, "from new\n")

	_, err = run(t, "assemble", roots["old"], "--full", "right:app/a.js")
	assert.Error(t, err)
}

func TestAssembleCommand_OutFileAndErrors(t *testing.T) {
	root := writeProject(t, jsProject)
	dest := filepath.Join(t.TempDir(), "ctx.txt")

	out, err := run(t, "assemble", root, "--full", "src/b.js", "--out", dest)
	require.NoError(t, err)
	assert.Empty(t, out)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Task: No task description provided.")
	assert.Contains(t, string(data), "export const b = 'needle'")

	_, err = run(t, "assemble")
	assert.Error(t, err)

	_, err = run(t, "assemble", root, "--full", "src/missing.js")
	assert.Error(t, err)
}

func TestAssembleCommand_Manifest(t *testing.T) {
	root := writeProject(t, jsProject)
	manifest := filepath.Join(filepath.Dir(root), "ctx.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
task: from manifest
panels:
  left:
    root: proj
    title: Frontend
    select:
      - {path: src/a.js, state: full}
`), 0o644))

	out, err := run(t, "assemble", "--manifest", manifest)
	require.NoError(t, err)
	assert.Contains(t, out, "Task: from manifest\n\n--- PROJECT: Frontend ---")
	assert.Contains(t, out, "File: src/a.js")
	assert.NotContains(t, out, "File: src/b.js")
}

func TestGraphCommand(t *testing.T) {
	root := writeProject(t, jsProject)

	out, err := run(t, "graph", root)
	require.NoError(t, err)
	doc, err := oj.ParseString(out)
	require.NoError(t, err)
	m, ok := doc.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "proj", m["root"])
	assert.Equal(t, int64(1), m["edges"])

	out, err = run(t, "graph", root, "--query", "$.files[*].path")
	require.NoError(t, err)
	assert.Contains(t, out, `"proj/src/a.js"`)
	assert.Contains(t, out, `"proj/docs/readme.md"`)
	assert.NotContains(t, out, "dependents")
}

func TestSearchCommand(t *testing.T) {
	root := writeProject(t, jsProject)
	out, err := run(t, "search", root, "NEEDLE")
	require.NoError(t, err)
	assert.Equal(t, "proj/src/b.js\n", out)
}

func TestTreeCommand(t *testing.T) {
	root := writeProject(t, jsProject)

	out, err := run(t, "tree", root)
	require.NoError(t, err)
	assert.Contains(t, out, "src/")
	assert.NotContains(t, out, "a.js", "subdirectories start collapsed")

	out, err = run(t, "tree", root, "--deps", "src/a.js", "--only-highlighted")
	require.NoError(t, err)
	assert.Contains(t, out, "a.js")
	assert.Contains(t, out, "b.js")
	assert.Contains(t, out, "imports 1")
	assert.NotContains(t, out, "readme.md")
}

func TestPresetCommands(t *testing.T) {
	t.Setenv("CTXPACK_PRESET_DB", filepath.Join(t.TempDir(), "db", "presets.db"))
	root := writeProject(t, jsProject)

	out, err := run(t, "preset", "save", "review", root, "--full", "src")
	require.NoError(t, err)
	assert.Equal(t, "saved preset review\n", out)

	out, err = run(t, "preset", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "review")

	out, err = run(t, "preset", "load", "review", root)
	require.NoError(t, err)
	assert.Contains(t, out, "a.js")
	assert.NotContains(t, out, "readme.md")

	out, err = run(t, "assemble", root, "--preset", "review")
	require.NoError(t, err)
	assert.Contains(t, out, "File: src/b.js")

	_, err = run(t, "preset", "delete", "review")
	require.NoError(t, err)
	_, err = run(t, "preset", "delete", "review")
	assert.Error(t, err)
}
