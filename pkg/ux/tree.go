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
	"fmt"
	"strings"
)

// TreeNode is a node to render.
type TreeNode struct {
	ID     string
	Label  string
	Target bool
}

// TreeEdge links parent ID to child ID.
type TreeEdge struct {
	From string
	To   string
}

// Row is one line of a summary table.
type Row struct {
	ID       string
	Name     string
	Category string
	Where    string
}

// RenderTree draws nodes as an indented tree.
//
// Description:
//
//	Roots are nodes without an incoming edge, in input order. A node
//	reachable along several paths is drawn in full once; later occurrences
//	are marked "(shown above)". Nodes left unvisited because every one of
//	them has a parent (a cycle) are drawn as extra roots.
func (p *Printer) RenderTree(nodes []TreeNode, edges []TreeEdge, truncated bool) string {
	byID := make(map[string]TreeNode, len(nodes))
	children := make(map[string][]string)
	hasParent := make(map[string]bool)
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, e := range edges {
		children[e.From] = append(children[e.From], e.To)
		hasParent[e.To] = true
	}

	var b strings.Builder
	visited := make(map[string]bool, len(nodes))

	var walk func(id, prefix string, last, root bool)
	walk = func(id, prefix string, last, root bool) {
		connector, childPrefix := "", ""
		if !root {
			connector = "├── "
			childPrefix = prefix + "│   "
			if last {
				connector = "└── "
				childPrefix = prefix + "    "
			}
		}

		b.WriteString(p.connector(prefix + connector))
		b.WriteString(p.label(byID[id], id))
		if visited[id] {
			b.WriteString(p.muted(" (shown above)"))
			b.WriteString("\n")
			return
		}
		b.WriteString("\n")
		visited[id] = true

		kids := children[id]
		for i, kid := range kids {
			walk(kid, childPrefix, i == len(kids)-1, false)
		}
	}

	for _, n := range nodes {
		if !hasParent[n.ID] && !visited[n.ID] {
			walk(n.ID, "", true, true)
		}
	}
	for _, n := range nodes {
		if !visited[n.ID] {
			walk(n.ID, "", true, true)
		}
	}

	if truncated {
		b.WriteString(p.warn(fmt.Sprintf("… tree truncated at %d nodes", len(nodes))))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderRows draws a summary table, one starter per line.
func (p *Printer) RenderRows(rows []Row) string {
	var b strings.Builder
	if p.plain {
		for _, r := range rows {
			fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", r.ID, r.Category, r.Where, r.Name)
		}
		return b.String()
	}

	for _, r := range rows {
		fmt.Fprintf(&b, "%s %s  %s  %s",
			IconBullet.Render(),
			Styles.Highlight.Render(r.ID),
			Styles.Muted.Render(fmt.Sprintf("%-16s", r.Category)),
			Styles.Muted.Render(r.Where))
		if r.Name != "" {
			fmt.Fprintf(&b, "  %s", r.Name)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s\n", Styles.Muted.Render(fmt.Sprintf("%d starters", len(rows))))
	return b.String()
}

func (p *Printer) label(n TreeNode, id string) string {
	text := id
	if n.Label != "" {
		text = id + " " + p.muted("("+n.Label+")")
	}
	if !n.Target {
		return text
	}
	if p.plain {
		return "* " + text
	}
	return IconTarget.Render() + " " + Styles.Highlight.Render(id) + strings.TrimPrefix(text, id)
}

func (p *Printer) connector(s string) string {
	if p.plain || s == "" {
		return s
	}
	return Styles.Connector.Render(s)
}

func (p *Printer) muted(s string) string {
	if p.plain {
		return s
	}
	return Styles.Muted.Render(s)
}

func (p *Printer) warn(s string) string {
	if p.plain {
		return s
	}
	return Styles.Warning.Render(s)
}
