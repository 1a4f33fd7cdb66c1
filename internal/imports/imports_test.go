package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	text := `import React from "react";
import { b } from './b';
const c = require("../lib/c.js");
const lazy = import('./lazy');
import "./side-effect.css";
// from '@scope/pkg/sub'
from __future__ import annotations
`
	got := Extract(text)
	assert.Equal(t, []string{
		"react",
		"./b",
		"../lib/c.js",
		"./lazy",
		"./side-effect.css",
		"@scope/pkg/sub",
	}, got)
}

func TestExtract_HeuristicMatchesAnywhere(t *testing.T) {
	// Matches inside string literals and comments are kept on purpose.
	text := `msg := "please import './not-real'"` + "\n" + "# reimport `./x`"
	assert.Equal(t, []string{"./not-real", "./x"}, Extract(text))
	assert.Nil(t, Extract("no imports here"))
}

func TestCandidate(t *testing.T) {
	tests := []struct {
		base, lit, want string
	}{
		{"/p/a/b.js", "./c", "/p/a/c"},
		{"/p/a/b.js", "../d", "/p/d"},
		{"proj/src/a.js", "./b", "proj/src/b"},
		{"proj/src/deep/a.js", "../../x/./y", "proj/x/y"},
		{"/p/a.js", "../../../z", "/z"},
		{"proj/a.js", "./lib//util", "proj/lib/util"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Candidate(tt.base, tt.lit), "%s + %s", tt.base, tt.lit)
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver("proj", []string{
		"proj/src/a.js",
		"proj/src/b.js",
		"proj/src/b.ts",
		"proj/src/lib/index.js",
		"proj/src/data.json",
		"proj/config.js",
	})

	tests := []struct {
		name, base, lit, want string
		ok                    bool
	}{
		{"exact", "proj/src/a.js", "./data.json", "proj/src/data.json", true},
		{"extension agnostic", "proj/src/a.js", "./b", "proj/src/b.js", true},
		{"own extension stripped", "proj/src/a.js", "./b.mjs", "proj/src/b.js", true},
		{"index", "proj/src/a.js", "./lib", "proj/src/lib/index.js", true},
		{"parent", "proj/src/lib/index.js", "../../config", "proj/config.js", true},
		{"root anchored", "proj/src/lib/index.js", "/config", "proj/config.js", true},
		{"self", "proj/src/a.js", "./a", "proj/src/a.js", true},
		{"bare package", "proj/src/a.js", "react", "", false},
		{"missing", "proj/src/a.js", "./nope", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.base, tt.lit)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
