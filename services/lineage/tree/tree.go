// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tree reconstructs the lineage around a starter.
//
// Starters only store a pointer to their parent. Given any starter, the
// Reconstructor walks that pointer upward to collect the ancestor chain,
// then walks the children index breadth-first to collect the descendant
// subtree. The result is a deduplicated node list and edge list capped at
// MaxNodes, with a flag telling the caller whether the cap cut it short.
//
// Parent pointers are acyclic when written through the service, but the
// walks never assume it: a node is registered at most once and only newly
// registered nodes are expanded, so a corrupted cycle terminates.
package tree

import (
	"github.com/AleutianAI/trackmystarter/services/lineage/storage"
	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// Node is one starter in a reconstructed tree.
type Node struct {
	// Key is the internal store key. Never serialized.
	Key string `json:"-"`

	Words    words.Triple     `json:"words"`
	Name     string           `json:"name,omitempty"`
	Category storage.Category `json:"category"`
	IsTarget bool             `json:"is_target"`
	Location storage.Location `json:"location"`
}

// Edge links a parent to a child by encoded identifier.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Tree is the reconstruction result.
type Tree struct {
	// Nodes in registration order: target, ancestors nearest first, then
	// descendants breadth-first.
	Nodes []Node `json:"nodes"`

	// Edges in the order they were discovered.
	Edges []Edge `json:"edges"`

	// Truncated is true when a starter of the lineage was left out because
	// the node cap was reached.
	Truncated bool `json:"truncated"`
}

// registry holds nodes keyed by internal key. First insertion wins.
type registry struct {
	index map[string]int
	nodes []Node
	max   int
}

func newRegistry(max int) *registry {
	return &registry{
		index: make(map[string]int, max),
		nodes: make([]Node, 0, max),
		max:   max,
	}
}

// add registers s and reports whether it was added. An already registered
// key keeps its original entry and target flag; a full registry accepts
// nothing.
func (r *registry) add(s *storage.Starter, isTarget bool) bool {
	if r.has(s.Key) || r.full() {
		return false
	}
	r.index[s.Key] = len(r.nodes)
	r.nodes = append(r.nodes, Node{
		Key:      s.Key,
		Words:    s.Words,
		Name:     s.Name,
		Category: s.Category,
		IsTarget: isTarget,
		Location: s.Location,
	})
	return true
}

func (r *registry) has(key string) bool {
	_, ok := r.index[key]
	return ok
}

func (r *registry) full() bool {
	return len(r.nodes) >= r.max
}

// edgeSet accumulates edges, ignoring repeated ordered pairs.
type edgeSet struct {
	seen  map[Edge]struct{}
	edges []Edge
}

func newEdgeSet() *edgeSet {
	return &edgeSet{seen: make(map[Edge]struct{})}
}

// add records from -> to unless that ordered pair is already present.
func (e *edgeSet) add(from, to *storage.Starter) {
	edge := Edge{From: from.Words.String(), To: to.Words.String()}
	if _, ok := e.seen[edge]; ok {
		return
	}
	e.seen[edge] = struct{}{}
	e.edges = append(e.edges, edge)
}
