// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lineage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "lineage"
	metricsSubsystem = "starters"
)

// Starter kinds used as label values.
const (
	KindRoot       = "root"
	KindDescendant = "descendant"
)

// Allocation outcomes used as label values.
const (
	OutcomeAllocated = "allocated"
	OutcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors for starter operations.
//
// # Fields
//
//   - CreatedTotal: starters persisted, by kind (root, descendant)
//   - AllocationAttempts: draws needed per allocation, by outcome
//   - InsertRetriesTotal: inserts that lost a uniqueness race and redrew
//   - LookupsTotal: identifier lookups, by operation and result
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	CreatedTotal       *prometheus.CounterVec
	AllocationAttempts *prometheus.HistogramVec
	InsertRetriesTotal prometheus.Counter
	LookupsTotal       *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer. Registering twice with the same registry
// panics, so call once per registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "created_total",
				Help:      "Starters created, by kind.",
			},
			[]string{"kind"},
		),
		AllocationAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "allocation_attempts",
				Help:      "Identifier draws needed per allocation.",
				Buckets:   []float64{1, 2, 3, 5, 10, 25, 100, 1000},
			},
			[]string{"outcome"},
		),
		InsertRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "insert_retries_total",
				Help:      "Inserts retried after an identifier collision.",
			},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "lookups_total",
				Help:      "Identifier lookups, by operation and result.",
			},
			[]string{"operation", "result"},
		),
	}
}

// observeAllocation is an identity.Observer.
func (m *Metrics) observeAllocation(attempts int, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeAllocated
	if !ok {
		outcome = OutcomeFailed
	}
	m.AllocationAttempts.WithLabelValues(outcome).Observe(float64(attempts))
}

func (m *Metrics) created(kind string) {
	if m == nil {
		return
	}
	m.CreatedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) insertRetried() {
	if m == nil {
		return
	}
	m.InsertRetriesTotal.Inc()
}

func (m *Metrics) lookup(operation, result string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(operation, result).Inc()
}
