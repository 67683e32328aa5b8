// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/AleutianAI/trackmystarter/pkg/ux"
	"github.com/AleutianAI/trackmystarter/services/lineage"
	"github.com/AleutianAI/trackmystarter/services/lineage/storage"
)

func summaryRows(items []lineage.SummaryResponse) []ux.Row {
	rows := make([]ux.Row, 0, len(items))
	for _, s := range items {
		rows = append(rows, ux.Row{
			ID:       s.Identifier,
			Name:     s.Name,
			Category: string(s.Category),
			Where:    where(s.Location),
		})
	}
	return rows
}

// treeView converts an API tree into renderable nodes. Each label is the
// category, prefixed by the name when there is one.
func treeView(t *lineage.TreeResponse) ([]ux.TreeNode, []ux.TreeEdge) {
	nodes := make([]ux.TreeNode, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		label := string(n.Category)
		if n.Name != "" {
			label = n.Name + ", " + label
		}
		nodes = append(nodes, ux.TreeNode{ID: n.Identifier, Label: label, Target: n.IsTarget})
	}

	edges := make([]ux.TreeEdge, 0, len(t.Edges))
	for _, e := range t.Edges {
		edges = append(edges, ux.TreeEdge{From: e.From, To: e.To})
	}
	return nodes, edges
}

func where(loc storage.Location) string {
	return fmt.Sprintf("%.2f,%.2f", loc.Lat(), loc.Lng())
}
