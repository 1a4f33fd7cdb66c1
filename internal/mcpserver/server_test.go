package mcpserver

import (
	"context"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/ctxpack/internal/assemble"
	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/source"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

func newServer(t *testing.T) (*Server, *workspace.Workspace) {
	t.Helper()
	mem := memfs.New()
	for name, body := range map[string]string{
		"src/a.js": "import { b } from './b'",
		"src/b.js": "export const b = 'needle'",
		"notes.md": "nothing",
	} {
		require.NoError(t, util.WriteFile(mem, name, []byte(body), 0o644))
	}
	ws := workspace.New(workspace.DefaultOptions())
	ws.Open = func(string) source.Source { return source.NewBillySource(mem) }
	return New(ws, assemble.New(), Options{DefaultTask: "default"}), ws
}

func call(t *testing.T, s *Server, h handler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := s.locked(h)(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult, i int) string {
	t.Helper()
	require.Greater(t, len(res.Content), i)
	tc, ok := res.Content[i].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestTools_EndToEnd(t *testing.T) {
	s, ws := newServer(t)

	res := call(t, s, s.loadProject, map[string]any{"panel": "left", "root": "/w/proj"})
	require.False(t, res.IsError, text(t, res, 0))
	assert.Contains(t, text(t, res, 0), "3 files, 1 import edges")

	res = call(t, s, s.toggleHighlight, map[string]any{"path": "proj/src/a.js", "direction": "dependencies"})
	require.False(t, res.IsError)
	assert.Equal(t, "proj/src/a.js\nproj/src/b.js", text(t, res, 0))

	res = call(t, s, s.setSelection, map[string]any{"path": "proj/src", "state": "full"})
	require.False(t, res.IsError)
	assert.Equal(t, "proj/src: full", text(t, res, 0))

	res = call(t, s, s.applyToSet, map[string]any{"paths": []any{"proj/notes.md", "proj/gone", "other/x"}, "state": "path"})
	require.False(t, res.IsError)
	assert.Contains(t, text(t, res, 0), "set 1 of 3 paths to path")

	p, err := ws.Project(workspace.Left)
	require.NoError(t, err)
	assert.Equal(t, project.PathOnly, p.StateOf("proj/notes.md"))

	res = call(t, s, s.visible, map[string]any{"panel": "left", "only_included": true, "only_highlighted": true})
	assert.Equal(t, "ignore\tproj\nfull\tproj/src\nfull\tproj/src/a.js\nfull\tproj/src/b.js", text(t, res, 0))

	res = call(t, s, s.assemble, map[string]any{})
	out := text(t, res, 0)
	assert.Contains(t, out, "Task: default\n\n--- PROJECT: proj ---")
	assert.Contains(t, out, "|-- notes.md [PATH ONLY]")
	assert.Contains(t, text(t, res, 1), "estimated tokens: ")
}

func TestTools_SearchAndClear(t *testing.T) {
	s, ws := newServer(t)
	call(t, s, s.loadProject, map[string]any{"panel": "right", "root": "/w/proj"})

	res := call(t, s, s.search, map[string]any{"panel": "right", "term": "NEEDLE"})
	assert.Equal(t, "1 matches\nproj/src/b.js", text(t, res, 0))

	call(t, s, s.clearHighlights, map[string]any{"panel": "right"})
	p, err := ws.Project(workspace.Right)
	require.NoError(t, err)
	assert.Empty(t, p.SearchHits)

	call(t, s, s.clearPanel, map[string]any{"panel": "right"})
	_, err = ws.Project(workspace.Right)
	assert.ErrorIs(t, err, workspace.ErrNoProject)
}

func TestTools_PanelArgumentAddressesSameNamedRoots(t *testing.T) {
	fss := map[string]billy.Filesystem{"/old/app": memfs.New(), "/new/app": memfs.New()}
	for root, mem := range fss {
		require.NoError(t, util.WriteFile(mem, "a.js", []byte("import './b'"), 0o644))
		require.NoError(t, util.WriteFile(mem, "b.js", []byte(root), 0o644))
	}
	ws := workspace.New(workspace.DefaultOptions())
	ws.Open = func(root string) source.Source { return source.NewBillySource(fss[root]) }
	s := New(ws, assemble.New(), Options{})

	call(t, s, s.loadProject, map[string]any{"panel": "left", "root": "/old/app"})
	call(t, s, s.loadProject, map[string]any{"panel": "right", "root": "/new/app"})
	left, err := ws.Project(workspace.Left)
	require.NoError(t, err)
	right, err := ws.Project(workspace.Right)
	require.NoError(t, err)

	res := call(t, s, s.setSelection, map[string]any{"path": "app/a.js", "state": "full", "panel": "right"})
	require.False(t, res.IsError, text(t, res, 0))
	assert.Equal(t, "app/a.js: full", text(t, res, 0))
	assert.Equal(t, project.Full, right.StateOf("app/a.js"))
	assert.Equal(t, project.Ignore, left.StateOf("app/a.js"))

	res = call(t, s, s.applyToSet, map[string]any{"paths": []any{"b.js", "app/a.js"}, "state": "path", "panel": "right"})
	assert.Equal(t, "set 2 of 2 paths to path", text(t, res, 0))
	assert.Equal(t, project.PathOnly, right.StateOf("app/b.js"))
	assert.Equal(t, project.Ignore, left.StateOf("app/b.js"))

	res = call(t, s, s.toggleHighlight, map[string]any{"path": "app/a.js", "direction": "dependencies", "panel": "right"})
	require.False(t, res.IsError, text(t, res, 0))
	assert.True(t, right.Highlight("app/a.js").ShowDependencies)
	assert.Empty(t, left.Highlights)

	// Without a panel the first matching panel wins; a qualified path also works.
	call(t, s, s.setSelection, map[string]any{"path": "app/b.js", "state": "full"})
	assert.Equal(t, project.Full, left.StateOf("app/b.js"))
	call(t, s, s.setSelection, map[string]any{"path": "right:app/b.js", "state": "ignore"})
	assert.Equal(t, project.Ignore, right.StateOf("app/b.js"))

	res = call(t, s, s.setSelection, map[string]any{"path": "app/a.js", "state": "full", "panel": "middle"})
	assert.True(t, res.IsError)
}

func TestTools_Errors(t *testing.T) {
	s, _ := newServer(t)

	res := call(t, s, s.search, map[string]any{"panel": "left", "term": "x"})
	assert.True(t, res.IsError)

	res = call(t, s, s.loadProject, map[string]any{"panel": "middle", "root": "/w/proj"})
	assert.True(t, res.IsError)

	res = call(t, s, s.loadProject, map[string]any{"panel": "left"})
	assert.True(t, res.IsError)

	call(t, s, s.loadProject, map[string]any{"panel": "left", "root": "/w/proj"})
	res = call(t, s, s.toggleHighlight, map[string]any{"path": "proj/src", "direction": "dependents"})
	assert.True(t, res.IsError)

	res = call(t, s, s.setSelection, map[string]any{"path": "proj/src", "state": "most"})
	assert.True(t, res.IsError)
}

func TestMCP_RegistersTools(t *testing.T) {
	s, _ := newServer(t)
	assert.NotNil(t, s.MCP("test"))
}
