// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package identity

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// takenSet is an in-memory existence check.
type takenSet map[words.Triple]bool

func (s takenSet) exists(_ context.Context, id words.Triple) (bool, error) {
	return s[id], nil
}

func newTestAllocator(t *testing.T, ws ...string) *Allocator {
	t.Helper()
	list, err := words.NewList(ws, words.DefaultWordLength)
	require.NoError(t, err)
	a := New(list)
	a.Rand = rand.New(rand.NewPCG(42, 99)).IntN
	return a
}

func TestAllocate_NeverReturnsTaken(t *testing.T) {
	a := newTestAllocator(t, "bread", "ocean", "maple", "tiger")
	taken := takenSet{}

	// 4^3 = 64 identifiers; allocate half of them.
	for i := 0; i < 32; i++ {
		id, err := a.Allocate(context.Background(), taken.exists, "")
		require.NoError(t, err)
		require.False(t, taken[id], "allocated taken identifier %s", id)
		taken[id] = true
	}
	assert.Len(t, taken, 32)
}

func TestAllocate_ExhaustedNamespace(t *testing.T) {
	ws := []string{"bread", "ocean"}
	a := newTestAllocator(t, ws...)
	a.MaxAttempts = 50

	taken := takenSet{}
	for _, w1 := range ws {
		for _, w2 := range ws {
			for _, w3 := range ws {
				taken[words.Triple{w1, w2, w3}] = true
			}
		}
	}

	_, err := a.Allocate(context.Background(), taken.exists, "")
	assert.ErrorIs(t, err, ErrAllocationExhausted)
}

func TestAllocate_FillsNamespaceThenExhausts(t *testing.T) {
	a := newTestAllocator(t, "bread", "ocean")
	taken := takenSet{}

	for len(taken) < 8 {
		id, err := a.Allocate(context.Background(), taken.exists, "")
		require.NoError(t, err)
		require.False(t, taken[id])
		taken[id] = true
	}

	_, err := a.Allocate(context.Background(), taken.exists, "")
	assert.ErrorIs(t, err, ErrAllocationExhausted)
}

func TestAllocate_RequiredFirstWord(t *testing.T) {
	a := newTestAllocator(t, "ocean", "maple", "tiger", "quilt")
	taken := takenSet{}

	for i := 0; i < 10; i++ {
		id, err := a.Allocate(context.Background(), taken.exists, "bread")
		require.NoError(t, err)
		assert.Equal(t, "bread", id[0])
		taken[id] = true
	}
}

func TestAllocate_ExistsError(t *testing.T) {
	a := newTestAllocator(t, "bread")
	boom := errors.New("store down")

	_, err := a.Allocate(context.Background(), func(context.Context, words.Triple) (bool, error) {
		return false, boom
	}, "")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAllocationExhausted)
}

func TestAllocate_ContextCanceled(t *testing.T) {
	a := newTestAllocator(t, "bread")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Allocate(ctx, takenSet{}.exists, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAllocate_NoWordList(t *testing.T) {
	a := &Allocator{}
	_, err := a.Allocate(context.Background(), takenSet{}.exists, "")
	assert.ErrorIs(t, err, words.ErrConfiguration)
}

func TestAllocate_Observer(t *testing.T) {
	a := newTestAllocator(t, "bread")
	a.MaxAttempts = 3

	var gotAttempts int
	var gotOK bool
	a.Observe = func(attempts int, ok bool) {
		gotAttempts, gotOK = attempts, ok
	}

	_, err := a.Allocate(context.Background(), takenSet{}.exists, "")
	require.NoError(t, err)
	assert.Equal(t, 1, gotAttempts)
	assert.True(t, gotOK)

	taken := takenSet{{"bread", "bread", "bread"}: true}
	_, err = a.Allocate(context.Background(), taken.exists, "")
	require.ErrorIs(t, err, ErrAllocationExhausted)
	assert.Equal(t, 3, gotAttempts)
	assert.False(t, gotOK)
}
