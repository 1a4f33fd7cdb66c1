// Package mcpserver exposes a workspace as MCP tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/ctxpack/internal/assemble"
	"github.com/agentic-research/ctxpack/internal/highlight"
	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/selection"
	"github.com/agentic-research/ctxpack/internal/workspace"
)

// Server serializes tool calls onto one workspace.
type Server struct {
	mu       sync.Mutex
	ws       *workspace.Workspace
	asm      *assemble.Assembler
	maxBytes int64
	task     string
	logger   *slog.Logger
}

// Options carry the non-workspace settings.
type Options struct {
	MaxSearchBytes int64
	DefaultTask    string
	Logger         *slog.Logger
}

func New(ws *workspace.Workspace, asm *assemble.Assembler, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ws: ws, asm: asm, maxBytes: opts.MaxSearchBytes, task: opts.DefaultTask, logger: logger}
}

// MCP builds the tool server.
func (s *Server) MCP(version string) *server.MCPServer {
	m := server.NewMCPServer("ctxpack", version, server.WithToolCapabilities(false))

	m.AddTool(mcp.NewTool("load_project",
		mcp.WithDescription("Load a directory into a panel, replacing what was there"),
		mcp.WithString("panel", mcp.Required(), mcp.Enum(workspace.Left, workspace.Right)),
		mcp.WithString("root", mcp.Required(), mcp.Description("directory to load")),
	), s.locked(s.loadProject))

	m.AddTool(mcp.NewTool("clear_panel",
		mcp.WithDescription("Unload a panel"),
		mcp.WithString("panel", mcp.Required(), mcp.Enum(workspace.Left, workspace.Right)),
	), s.locked(s.clearPanel))

	m.AddTool(mcp.NewTool("set_selection",
		mcp.WithDescription("Set a file or directory (and everything under it) to full, path or ignore"),
		mcp.WithString("path", mcp.Required(), mcp.Description("node path, starting with the root directory name")),
		mcp.WithString("state", mcp.Required(), mcp.Enum("full", "path", "ignore")),
		mcp.WithString("panel", mcp.Enum(workspace.Left, workspace.Right),
			mcp.Description("panel owning the path; needed when both panels share a root name")),
	), s.locked(s.setSelection))

	m.AddTool(mcp.NewTool("apply_to_set",
		mcp.WithDescription("Set many paths to one state"),
		mcp.WithArray("paths", mcp.Required(), mcp.WithStringItems()),
		mcp.WithString("state", mcp.Required(), mcp.Enum("full", "path", "ignore")),
		mcp.WithString("panel", mcp.Enum(workspace.Left, workspace.Right),
			mcp.Description("panel owning the path; needed when both panels share a root name")),
	), s.locked(s.applyToSet))

	m.AddTool(mcp.NewTool("toggle_highlight",
		mcp.WithDescription("Toggle highlighting of a file's dependencies or dependents"),
		mcp.WithString("path", mcp.Required()),
		mcp.WithString("direction", mcp.Required(), mcp.Enum("dependencies", "dependents")),
		mcp.WithString("panel", mcp.Enum(workspace.Left, workspace.Right),
			mcp.Description("panel owning the path; needed when both panels share a root name")),
	), s.locked(s.toggleHighlight))

	m.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Case-insensitive search of file contents in a panel"),
		mcp.WithString("panel", mcp.Required(), mcp.Enum(workspace.Left, workspace.Right)),
		mcp.WithString("term", mcp.Required()),
	), s.locked(s.search))

	m.AddTool(mcp.NewTool("clear_highlights",
		mcp.WithDescription("Drop search hits and relation highlights of a panel"),
		mcp.WithString("panel", mcp.Required(), mcp.Enum(workspace.Left, workspace.Right)),
	), s.locked(s.clearHighlights))

	m.AddTool(mcp.NewTool("visible",
		mcp.WithDescription("List the nodes shown under the view filters"),
		mcp.WithString("panel", mcp.Required(), mcp.Enum(workspace.Left, workspace.Right)),
		mcp.WithBoolean("only_highlighted"),
		mcp.WithBoolean("only_included"),
	), s.locked(s.visible))

	m.AddTool(mcp.NewTool("assemble",
		mcp.WithDescription("Assemble the selected files of both panels into one context text"),
		mcp.WithString("task", mcp.Description("task description placed at the top")),
	), s.locked(s.assemble))

	return m
}

// ServeStdio runs the tool server on stdin/stdout until EOF.
func (s *Server) ServeStdio(version string) error {
	return server.ServeStdio(s.MCP(version))
}

type handler func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// locked runs h under the server mutex and turns errors into tool errors.
func (s *Server) locked(h handler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		res, err := h(ctx, req)
		if err != nil {
			s.logger.Debug("tool failed", "tool", req.Params.Name, "err", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return res, nil
	}
}

func (s *Server) loadProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	panel, err := req.RequireString("panel")
	if err != nil {
		return nil, err
	}
	root, err := req.RequireString("root")
	if err != nil {
		return nil, err
	}
	p, err := s.ws.LoadProject(ctx, panel, root)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("loaded %s into %s: %d files, %d import edges",
		p.Title, panel, len(p.Store.Files()), p.Deps.EdgeCount())), nil
}

func (s *Server) clearPanel(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	panel, err := req.RequireString("panel")
	if err != nil {
		return nil, err
	}
	if err := s.ws.Clear(panel); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText("cleared " + panel), nil
}

func (s *Server) setSelection(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return nil, err
	}
	state, err := req.RequireString("state")
	if err != nil {
		return nil, err
	}
	p, path, err := s.ws.ResolveIn(req.GetString("panel", ""), path)
	if err != nil {
		return nil, err
	}
	if err := selection.SetByName(p, path, state); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", path, p.StateOf(path))), nil
}

func (s *Server) applyToSet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := req.RequireStringSlice("paths")
	if err != nil {
		return nil, err
	}
	name, err := req.RequireString("state")
	if err != nil {
		return nil, err
	}
	state, err := project.ParseState(name)
	if err != nil {
		return nil, err
	}

	// Group by owning project so each panel gets one ApplyToSet call.
	panel := req.GetString("panel", "")
	byProject := make(map[*project.Project][]string)
	var order []*project.Project
	var unknown []error
	for _, ref := range paths {
		p, path, err := s.ws.ResolveIn(panel, ref)
		if err != nil {
			unknown = append(unknown, err)
			continue
		}
		if _, seen := byProject[p]; !seen {
			order = append(order, p)
		}
		byProject[p] = append(byProject[p], path)
	}
	var msgs []string
	for _, p := range order {
		err := selection.ApplyToSet(p, byProject[p], state)
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				msgs = append(msgs, e.Error())
			}
		}
	}
	for _, err := range unknown {
		msgs = append(msgs, err.Error())
	}
	applied := len(paths) - len(msgs)
	text := fmt.Sprintf("set %d of %d paths to %s", applied, len(paths), state)
	if len(msgs) > 0 {
		text += "\n" + strings.Join(msgs, "\n")
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) toggleHighlight(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return nil, err
	}
	name, err := req.RequireString("direction")
	if err != nil {
		return nil, err
	}
	dir, err := highlight.ParseDirection(name)
	if err != nil {
		return nil, err
	}
	p, path, err := s.ws.ResolveIn(req.GetString("panel", ""), path)
	if err != nil {
		return nil, err
	}
	if err := highlight.Toggle(p, path, dir); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(strings.Join(sorted(highlight.Highlighted(p)), "\n")), nil
}

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.panelProject(req)
	if err != nil {
		return nil, err
	}
	term := req.GetString("term", "")
	hits := highlight.Search(ctx, p, term, s.maxBytes)
	return mcp.NewToolResultText(fmt.Sprintf("%d matches\n%s", len(hits), strings.Join(sorted(hits), "\n"))), nil
}

func (s *Server) clearHighlights(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.panelProject(req)
	if err != nil {
		return nil, err
	}
	highlight.Clear(p)
	return mcp.NewToolResultText("highlights cleared"), nil
}

func (s *Server) visible(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.panelProject(req)
	if err != nil {
		return nil, err
	}
	f := highlight.Filters{
		OnlyHighlighted: req.GetBool("only_highlighted", false),
		OnlyIncluded:    req.GetBool("only_included", false),
	}
	var lines []string
	for _, path := range sorted(highlight.VisibleSet(p, f)) {
		lines = append(lines, fmt.Sprintf("%s\t%s", p.StateOf(path), path))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) assemble(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := req.GetString("task", s.task)
	res := s.asm.Assemble(ctx, task, s.ws.Sections())
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(res.Text),
			mcp.NewTextContent(fmt.Sprintf("estimated tokens: %d", res.Tokens)),
		},
	}, nil
}

func (s *Server) panelProject(req mcp.CallToolRequest) (*project.Project, error) {
	panel, err := req.RequireString("panel")
	if err != nil {
		return nil, err
	}
	return s.ws.Project(panel)
}

func sorted(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
