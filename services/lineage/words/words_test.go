// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package words

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetShared clears the process-wide cache between tests.
func resetShared(t *testing.T) {
	t.Helper()
	sharedMu.Lock()
	sharedList = nil
	sharedMu.Unlock()
	t.Cleanup(func() {
		sharedMu.Lock()
		sharedList = nil
		sharedMu.Unlock()
	})
}

func cachedList() *List {
	sharedMu.RLock()
	defer sharedMu.RUnlock()
	return sharedList
}

func writeWords(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// Codec Tests
// =============================================================================

func TestEncode(t *testing.T) {
	got := Encode(Triple{"bread", "ocean", "maple"})
	assert.Equal(t, "bread-ocean-maple", got)
	assert.Len(t, got, 3*DefaultWordLength+2)
}

func TestDecode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	list, err := NewList([]string{"bread", "ocean", "maple", "tiger", "quilt", "amber"}, DefaultWordLength)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		triple := list.RandomTriple(rng.IntN, "")
		decoded, ok := Decode(Encode(triple))
		require.True(t, ok)
		assert.Equal(t, triple, decoded)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Triple
		ok    bool
	}{
		{"canonical", "bread-ocean-maple", Triple{"bread", "ocean", "maple"}, true},
		{"no separators", "breadoceanmaple", Triple{"bread", "ocean", "maple"}, true},
		{"uppercase", "BREAD-Ocean-mApLe", Triple{"bread", "ocean", "maple"}, true},
		{"extra separators", "--bread--ocean-maple-", Triple{"bread", "ocean", "maple"}, true},
		{"separator placement ignored", "bre-adoce-anmaple", Triple{"bread", "ocean", "maple"}, true},
		{"length 14", "breadoceanmapl", Triple{}, false},
		{"length 16", "breadoceanmaples", Triple{}, false},
		{"two chars", "xx", Triple{}, false},
		{"empty", "", Triple{}, false},
		{"only separators", "-----", Triple{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_DoesNotCheckDictionary(t *testing.T) {
	got, ok := Decode("zzzzz-qqqqq-xxxxx")
	require.True(t, ok)
	assert.Equal(t, Triple{"zzzzz", "qqqqq", "xxxxx"}, got)
}

func TestDecodeLength(t *testing.T) {
	got, ok := DecodeLength("cat-dog-owl", 3)
	require.True(t, ok)
	assert.Equal(t, Triple{"cat", "dog", "owl"}, got)

	_, ok = DecodeLength("cat-dog-owl", 0)
	assert.False(t, ok)
}

func TestTriple_Helpers(t *testing.T) {
	tr := Triple{"bread", "ocean", "maple"}
	assert.Equal(t, "bread-ocean-maple", tr.String())
	assert.Equal(t, []string{"bread", "ocean", "maple"}, tr.Slice())
	assert.Equal(t, "bread", tr.First())
	assert.False(t, tr.IsZero())
	assert.True(t, Triple{}.IsZero())
}

// =============================================================================
// List Tests
// =============================================================================

func TestNewList_Validation(t *testing.T) {
	_, err := NewList(nil, DefaultWordLength)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewList([]string{"bread", "toolong"}, DefaultWordLength)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewList([]string{"br3ad"}, DefaultWordLength)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewList([]string{"bread"}, 0)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRandomTriple_RequiredFirst(t *testing.T) {
	list, err := NewList([]string{"ocean", "maple", "tiger"}, DefaultWordLength)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 100; i++ {
		tr := list.RandomTriple(rng.IntN, "bread")
		assert.Equal(t, "bread", tr[0])
		assert.Contains(t, list.Words(), tr[1])
		assert.Contains(t, list.Words(), tr[2])
	}
}

func TestRandomTriple_DrawsWithReplacement(t *testing.T) {
	list, err := NewList([]string{"ocean"}, DefaultWordLength)
	require.NoError(t, err)

	assert.Equal(t, Triple{"ocean", "ocean", "ocean"}, list.RandomTriple(nil, ""))
}

func TestList_Accessors(t *testing.T) {
	list, err := NewList([]string{"ocean", "maple"}, DefaultWordLength)
	require.NoError(t, err)

	assert.Equal(t, 2, list.Len())
	assert.Equal(t, DefaultWordLength, list.WordLength())
	assert.Equal(t, "maple", list.Word(1))

	ws := list.Words()
	ws[0] = "mutated"
	assert.Equal(t, "ocean", list.Word(0))
}

// =============================================================================
// Source Tests
// =============================================================================

func TestLoad_NormalizesAndSkips(t *testing.T) {
	dir := t.TempDir()
	path := writeWords(t, dir, "# header\n  Bread \n\nOCEAN\n\tmaple\n")

	list, err := Load(Source{Override: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"bread", "ocean", "maple"}, list.Words())
}

func TestLoad_Precedence(t *testing.T) {
	overrideDir := t.TempDir()
	deployDir := t.TempDir()
	rootDir := t.TempDir()

	override := writeWords(t, overrideDir, "ocean\n")
	deploy := writeWords(t, deployDir, "maple\n")
	writeWords(t, rootDir, "tiger\n")

	list, err := Load(Source{Override: override, DeploymentPath: deploy, AppRoot: rootDir})
	require.NoError(t, err)
	assert.Equal(t, []string{"ocean"}, list.Words())

	list, err = Load(Source{DeploymentPath: deploy, AppRoot: rootDir})
	require.NoError(t, err)
	assert.Equal(t, []string{"maple"}, list.Words())

	list, err = Load(Source{DeploymentPath: filepath.Join(deployDir, "missing.txt"), AppRoot: rootDir})
	require.NoError(t, err)
	assert.Equal(t, []string{"tiger"}, list.Words())
}

func TestLoad_OverrideDoesNotFallThrough(t *testing.T) {
	rootDir := t.TempDir()
	writeWords(t, rootDir, "tiger\n")

	_, err := Load(Source{Override: filepath.Join(rootDir, "nope.txt"), AppRoot: rootDir})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(Source{AppRoot: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), FileName)
}

func TestLoad_Empty(t *testing.T) {
	path := writeWords(t, t.TempDir(), "# nothing here\n\n")
	_, err := Load(Source{Override: path})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestLoad_MalformedWord(t *testing.T) {
	path := writeWords(t, t.TempDir(), "bread\nsourdough\n")
	_, err := Load(Source{Override: path})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoad_ShippedList(t *testing.T) {
	list, err := Load(Source{AppRoot: filepath.Join("..", "..", "..")})
	require.NoError(t, err)
	assert.Greater(t, list.Len(), 100)
	assert.Equal(t, DefaultWordLength, list.WordLength())
}

func TestParse(t *testing.T) {
	list, err := Parse(strings.NewReader("cat\ndog\n"), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Len())
}

func TestDefaultSource(t *testing.T) {
	t.Setenv(EnvWordsFile, "/tmp/custom.txt")
	src := DefaultSource()
	assert.Equal(t, "/tmp/custom.txt", src.Override)
	assert.Equal(t, []string{"/tmp/custom.txt"}, src.Candidates())

	t.Setenv(EnvWordsFile, "")
	src = DefaultSource()
	assert.Equal(t, []string{DeploymentPath, FileName}, src.Candidates())
}

func TestShared_CachesFirstSuccess(t *testing.T) {
	resetShared(t)

	first := writeWords(t, t.TempDir(), "ocean\n")
	second := writeWords(t, t.TempDir(), "maple\n")

	list, err := Shared(Source{Override: first})
	require.NoError(t, err)
	assert.NotNil(t, cachedList())

	again, err := Shared(Source{Override: second})
	require.NoError(t, err)
	assert.Same(t, list, again)
	assert.Equal(t, []string{"ocean"}, again.Words())
}

func TestShared_FailureNotCached(t *testing.T) {
	resetShared(t)

	dir := t.TempDir()
	_, err := Shared(Source{AppRoot: dir})
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Nil(t, cachedList())

	writeWords(t, dir, "ocean\n")
	list, err := Shared(Source{AppRoot: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())
}

func TestShared_Concurrent(t *testing.T) {
	resetShared(t)
	path := writeWords(t, t.TempDir(), "ocean\nmaple\n")

	var wg sync.WaitGroup
	results := make([]*List, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := Shared(Source{Override: path})
			if err == nil {
				results[i] = l
			}
		}(i)
	}
	wg.Wait()

	for _, l := range results {
		require.NotNil(t, l)
		assert.Same(t, results[0], l)
	}
}
