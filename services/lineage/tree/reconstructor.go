// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tree

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AleutianAI/trackmystarter/services/lineage/storage"
	"github.com/AleutianAI/trackmystarter/services/lineage/telemetry"
)

// DefaultMaxNodes caps the number of nodes in a reconstructed tree.
const DefaultMaxNodes = 100

// ErrNilTarget is returned by Build when no target is given.
var ErrNilTarget = errors.New("target starter must not be nil")

// Reconstructor rebuilds lineage trees from a store.
//
// Thread Safety: Safe for concurrent use. Each Build owns its own state.
type Reconstructor struct {
	store    storage.Reader
	maxNodes int
	pageSize int
	logger   *slog.Logger
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithMaxNodes sets the node cap. Non-positive values are ignored.
func WithMaxNodes(n int) Option {
	return func(r *Reconstructor) {
		if n > 0 {
			r.maxNodes = n
		}
	}
}

// WithChildrenPage sets how many children are fetched per node.
func WithChildrenPage(n int) Option {
	return func(r *Reconstructor) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithLogger sets the logger used for absorbed lookup failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconstructor) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Reconstructor reading from store.
func New(store storage.Reader, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		store:    store,
		maxNodes: DefaultMaxNodes,
		pageSize: storage.DefaultChildrenPage,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build reconstructs the tree around target.
//
// Description:
//
//	Registers target, walks its ancestors upward, then walks its
//	descendants breadth-first, registering at most the node cap. The tree
//	is marked truncated only when a starter that belongs to it had to be
//	left out; filling the cap exactly is not truncation. Lookup failures during
//	either walk end that walk (or that branch) and are logged, never
//	returned: the result is simply less complete.
//
// Inputs:
//
//	ctx - Passed to every store call.
//	target - The starter the caller asked about. Must not be nil.
//
// Outputs:
//
//	*Tree - The reconstructed tree. Never nil when err is nil.
//	error - ErrNilTarget only.
//
// Thread Safety: Safe for concurrent use.
func (r *Reconstructor) Build(ctx context.Context, target *storage.Starter) (*Tree, error) {
	if target == nil {
		return nil, ErrNilTarget
	}

	start := time.Now()
	ctx, span := startBuildSpan(ctx, target)
	defer span.End()

	logger := telemetry.LoggerWithTrace(ctx, r.logger).With(
		slog.String("target", target.Words.String()),
	)

	nodes := newRegistry(r.maxNodes)
	edges := newEdgeSet()
	nodes.add(target, true)

	ancestors, ancestorsCut := r.walkAncestors(ctx, logger, target, nodes, edges)
	descendantsCut := r.walkDescendants(ctx, logger, target, nodes, edges)
	truncated := ancestorsCut || descendantsCut

	result := &Tree{
		Nodes:     nodes.nodes,
		Edges:     edges.edges,
		Truncated: truncated,
	}
	if result.Edges == nil {
		result.Edges = []Edge{}
	}

	setBuildSpanResult(span, len(result.Nodes), len(result.Edges), ancestors, truncated)
	recordBuildMetrics(ctx, time.Since(start), len(result.Nodes), len(result.Edges), truncated)
	return result, nil
}

// walkAncestors follows parent pointers upward. It returns how many
// ancestors were registered and whether an unregistered ancestor was left
// out because the registry was full.
func (r *Reconstructor) walkAncestors(ctx context.Context, logger *slog.Logger, target *storage.Starter, nodes *registry, edges *edgeSet) (int, bool) {
	added := 0
	current := target
	for current.ParentKey != "" {
		parent, err := r.store.FindByKey(ctx, current.ParentKey)
		if err != nil {
			logLookupFailure(logger, "ancestor", current, err)
			return added, false
		}

		if nodes.has(parent.Key) {
			// The pointers loop back on themselves. Keep the edge and stop
			// climbing.
			edges.add(parent, current)
			logger.Warn("parent cycle detected",
				slog.String("starter", current.Words.String()),
				slog.String("parent", parent.Words.String()))
			return added, false
		}
		if !nodes.add(parent, false) {
			return added, true
		}
		added++
		edges.add(parent, current)
		current = parent
	}
	return added, false
}

// walkDescendants expands children breadth-first from target and reports
// whether a new child was dropped because the registry was full.
//
// Queued nodes are still expanded once the registry is full: a child that
// is already registered only adds an edge, and the first new child ends the
// walk as truncated. Only registered nodes are ever queued, so the walk
// makes at most one children query per node.
func (r *Reconstructor) walkDescendants(ctx context.Context, logger *slog.Logger, target *storage.Starter, nodes *registry, edges *edgeSet) bool {
	queue := []*storage.Starter{target}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := r.store.FindChildren(ctx, current.Key, r.pageSize)
		if err != nil {
			logLookupFailure(logger, "descendant", current, err)
			continue
		}

		for _, child := range children {
			if nodes.has(child.Key) {
				edges.add(current, child)
				continue
			}
			if !nodes.add(child, false) {
				return true
			}
			edges.add(current, child)
			queue = append(queue, child)
		}
	}
	return false
}

func logLookupFailure(logger *slog.Logger, walk string, at *storage.Starter, err error) {
	level := slog.LevelWarn
	if errors.Is(err, storage.ErrNotFound) {
		level = slog.LevelDebug
	}
	logger.Log(context.Background(), level, "lineage lookup failed, walk stopped",
		slog.String("walk", walk),
		slog.String("starter", at.Words.String()),
		slog.String("error", err.Error()))
}
