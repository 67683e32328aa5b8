// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter_PlainMode(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	assert.True(t, p.Plain())
	p.Title("hidden")
	p.Success("created")
	p.Warning("careful")
	p.Field("parent", "bread-ocean-maple")
	p.Field("empty", "")

	assert.Equal(t, "OK: created\nWARN: careful\nparent\tbread-ocean-maple\n", buf.String())
}

func TestPrinter_StyledModeKeepsText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	assert.False(t, p.Plain())
	p.Title("Lineage")
	p.Success("created")
	p.Box("bread-ocean-maple", "sourdough")

	out := buf.String()
	for _, want := range []string{"Lineage", "created", "bread-ocean-maple", "sourdough", string(IconSuccess)} {
		assert.Contains(t, out, want)
	}
}

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconTarget, IconBullet} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

func TestIsTerminal_File(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	assert.False(t, IsTerminal(f))
}

func TestRenderTree_Chain(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, false)

	out := p.RenderTree(
		[]TreeNode{{ID: "c", Target: true}, {ID: "b"}, {ID: "a", Label: "root"}},
		[]TreeEdge{{From: "b", To: "c"}, {From: "a", To: "b"}},
		false,
	)

	want := strings.Join([]string{
		"a (root)",
		"└── b",
		"    └── * c",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestRenderTree_SiblingsAndSharedChild(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, false)

	out := p.RenderTree(
		[]TreeNode{{ID: "root", Target: true}, {ID: "x"}, {ID: "y"}, {ID: "z"}},
		[]TreeEdge{
			{From: "root", To: "x"},
			{From: "root", To: "y"},
			{From: "x", To: "z"},
			{From: "y", To: "z"},
		},
		true,
	)

	want := strings.Join([]string{
		"* root",
		"├── x",
		"│   └── z",
		"└── y",
		"    └── z (shown above)",
		"… tree truncated at 4 nodes",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestRenderTree_CycleTerminates(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, false)

	out := p.RenderTree(
		[]TreeNode{{ID: "a", Target: true}, {ID: "b"}},
		[]TreeEdge{{From: "a", To: "b"}, {From: "b", To: "a"}},
		false,
	)

	assert.Equal(t, "* a\n└── b\n    └── * a (shown above)\n", out)
}

func TestRenderRows(t *testing.T) {
	rows := []Row{
		{ID: "bread-ocean-maple", Name: "Herman", Category: "sourdough", Where: "47.61,-122.33"},
		{ID: "amber-cedar-delta", Category: "kombucha", Where: "0.00,0.00"},
	}

	plain := NewPrinter(&bytes.Buffer{}, false).RenderRows(rows)
	assert.Equal(t,
		"bread-ocean-maple\tsourdough\t47.61,-122.33\tHerman\namber-cedar-delta\tkombucha\t0.00,0.00\t\n",
		plain)

	styled := NewPrinter(&bytes.Buffer{}, true).RenderRows(rows)
	assert.Contains(t, styled, "Herman")
	assert.Contains(t, styled, "2 starters")
}
