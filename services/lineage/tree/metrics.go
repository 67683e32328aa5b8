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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/trackmystarter/services/lineage/storage"
)

// Package-level tracer and meter for tree reconstruction.
var (
	tracer = otel.Tracer("lineage.tree")
	meter  = otel.Meter("lineage.tree")
)

var (
	buildLatency   metric.Float64Histogram
	buildTotal     metric.Int64Counter
	nodesReturned  metric.Int64Histogram
	edgesReturned  metric.Int64Histogram
	truncatedTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"lineage_tree_build_duration_seconds",
			metric.WithDescription("Duration of lineage tree reconstruction"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"lineage_tree_build_total",
			metric.WithDescription("Total number of lineage tree reconstructions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesReturned, err = meter.Int64Histogram(
			"lineage_tree_nodes",
			metric.WithDescription("Number of nodes per reconstructed tree"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesReturned, err = meter.Int64Histogram(
			"lineage_tree_edges",
			metric.WithDescription("Number of edges per reconstructed tree"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		truncatedTotal, err = meter.Int64Counter(
			"lineage_tree_truncated_total",
			metric.WithDescription("Reconstructions that hit the node cap"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordBuildMetrics(ctx context.Context, duration time.Duration, nodeCount, edgeCount int, truncated bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("truncated", truncated))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)
	nodesReturned.Record(ctx, int64(nodeCount))
	edgesReturned.Record(ctx, int64(edgeCount))
	if truncated {
		truncatedTotal.Add(ctx, 1)
	}
}

func startBuildSpan(ctx context.Context, target *storage.Starter) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Reconstructor.Build",
		trace.WithAttributes(
			attribute.String("lineage.target", target.Words.String()),
			attribute.Bool("lineage.target_is_root", target.IsRoot()),
		),
	)
}

func setBuildSpanResult(span trace.Span, nodeCount, edgeCount, ancestors int, truncated bool) {
	span.SetAttributes(
		attribute.Int("lineage.node_count", nodeCount),
		attribute.Int("lineage.edge_count", edgeCount),
		attribute.Int("lineage.ancestor_count", ancestors),
		attribute.Bool("lineage.truncated", truncated),
	)
}
