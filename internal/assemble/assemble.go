// Package assemble serializes the selected files of one or more projects into
// the final context text.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/agentic-research/ctxpack/internal/project"
	"github.com/agentic-research/ctxpack/internal/selection"
)

const (
	// DefaultCharsPerToken is the divisor of the token estimate.
	DefaultCharsPerToken = 4
	// NoTask replaces an empty task description.
	NoTask = "No task description provided."
	// PathOnlyMarker follows path-only entries in the tree diagram.
	PathOnlyMarker = " [PATH ONLY]"
)

// Section is one project's contribution: the files to list and how to read them.
type Section struct {
	Title    string
	Full     []string // file paths whose content is emitted
	PathOnly []string // file paths listed in the tree only
	Rel      func(path string) string
	Read     func(ctx context.Context, path string) (string, error)
}

// FromProject collects a project's current selection.
func FromProject(p *project.Project) Section {
	full, pathOnly := selection.Collect(p)
	return Section{
		Title:    p.Title,
		Full:     full,
		PathOnly: pathOnly,
		Rel:      p.Store.RelPath,
		Read:     p.ReadText,
	}
}

// Result is the assembled text and its token estimate.
type Result struct {
	Text   string
	Tokens int
}

// Assembler renders sections.
type Assembler struct {
	CharsPerToken int
	Logger        *slog.Logger
}

func New() *Assembler {
	return &Assembler{CharsPerToken: DefaultCharsPerToken}
}

// Assemble writes the task line, then each section with at least one
// included file. Full files are read in path order; a failed read is replaced
// by an inline placeholder and the rest continue.
func (a *Assembler) Assemble(ctx context.Context, task string, sections []Section) Result {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if task == "" {
		task = NoTask
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task)
	tokens := 0

	for _, s := range sections {
		if len(s.Full) == 0 && len(s.PathOnly) == 0 {
			continue
		}
		full := sortedCopy(s.Full)

		fmt.Fprintf(&b, "--- PROJECT: %s ---\n", s.Title)
		b.WriteString(Tree(s.rels(full), s.rels(s.PathOnly)))
		fmt.Fprintf(&b, "\n--- FILE CONTENT for %s ---\n", s.Title)

		for _, path := range full {
			rel := s.rel(path)
			fmt.Fprintf(&b, "\n%s File: %s %s\n\n", banner, rel, banner)
			content, err := s.Read(ctx, path)
			if err != nil {
				logger.Warn("assemble: unreadable file", "path", path, "err", err)
				fmt.Fprintf(&b, "[Could not read file: %v]\n", err)
				continue
			}
			b.WriteString(content)
			tokens += a.Estimate(content)
		}
		b.WriteString("\n")
	}
	return Result{Text: b.String(), Tokens: tokens}
}

// Estimate is ceil(characters / CharsPerToken) for one file's content.
// Characters are UTF-16 code units, so a character outside the Basic
// Multilingual Plane (most emoji) counts as two.
func (a *Assembler) Estimate(content string) int {
	cpt := a.CharsPerToken
	if cpt <= 0 {
		cpt = DefaultCharsPerToken
	}
	n := utf16Len(content)
	return (n + cpt - 1) / cpt
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

var banner = strings.Repeat("=", 10)

func (s Section) rel(path string) string {
	if s.Rel == nil {
		return path
	}
	return s.Rel(path)
}

func (s Section) rels(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, s.rel(p))
	}
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
