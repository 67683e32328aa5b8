// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package identity allocates collision-free starter identifiers.
//
// The allocator is an optimistic fast path: it redraws until the store says
// a candidate is free. The store's unique identifier index remains the
// authority, and callers redraw again when an insert reports a duplicate.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// DefaultMaxAttempts bounds the redraw loop.
const DefaultMaxAttempts = 1000

// ErrAllocationExhausted is returned when no free identifier was found
// within the attempt ceiling.
var ErrAllocationExhausted = errors.New("identifier allocation exhausted")

// ExistsFunc reports whether an identifier is already taken.
type ExistsFunc func(ctx context.Context, id words.Triple) (bool, error)

// Observer receives the number of draws an allocation used.
// ok is false when the allocation failed.
type Observer func(attempts int, ok bool)

// Allocator draws identifiers from a word list.
//
// Thread Safety: Safe for concurrent use if Rand is.
type Allocator struct {
	// Words is the source word list. Required.
	Words *words.List

	// MaxAttempts is the draw ceiling. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Rand is the random source. Nil uses math/rand/v2.
	Rand words.IntN

	// Observe, if set, is called once per Allocate.
	Observe Observer
}

// New creates an Allocator with default settings.
func New(list *words.List) *Allocator {
	return &Allocator{Words: list, MaxAttempts: DefaultMaxAttempts}
}

// Allocate returns an identifier for which exists reports false.
//
// Description:
//
//	Draws a candidate, asks exists, and redraws while the candidate is
//	taken. When requiredFirst is non-empty every candidate starts with it.
//	Only read queries are issued; the caller persists the winner.
//
// Inputs:
//
//	ctx - Checked before every draw.
//	exists - Existence check against the store. Must not be nil.
//	requiredFirst - Optional fixed first word.
//
// Outputs:
//
//	words.Triple - A currently free identifier.
//	error - ErrAllocationExhausted after MaxAttempts taken draws, the
//	        context error, or the wrapped error from exists.
//
// Thread Safety: Safe for concurrent use.
func (a *Allocator) Allocate(ctx context.Context, exists ExistsFunc, requiredFirst string) (words.Triple, error) {
	if a.Words == nil {
		return words.Triple{}, fmt.Errorf("%w: allocator has no word list", words.ErrConfiguration)
	}

	maxAttempts := a.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			a.observe(attempt-1, false)
			return words.Triple{}, err
		}

		candidate := a.Words.RandomTriple(a.Rand, requiredFirst)
		taken, err := exists(ctx, candidate)
		if err != nil {
			a.observe(attempt, false)
			return words.Triple{}, fmt.Errorf("check identifier %s: %w", candidate, err)
		}
		if !taken {
			a.observe(attempt, true)
			return candidate, nil
		}
	}

	a.observe(maxAttempts, false)
	return words.Triple{}, fmt.Errorf("%w: %d candidates taken", ErrAllocationExhausted, maxAttempts)
}

func (a *Allocator) observe(attempts int, ok bool) {
	if a.Observe != nil {
		a.Observe(attempts, ok)
	}
}
