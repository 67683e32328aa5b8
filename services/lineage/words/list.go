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
	"fmt"
	"math/rand/v2"
)

// IntN returns a uniform random integer in [0, n).
//
// math/rand/v2's rand.IntN satisfies it and is safe for concurrent use.
// Tests substitute a seeded *rand.Rand's IntN method.
type IntN func(n int) int

// List is an immutable word list.
//
// Thread Safety: Safe for concurrent reads. Never mutated after NewList.
type List struct {
	words      []string
	wordLength int
}

// NewList builds a List from already-normalized tokens.
//
// Every token must be wordLength lowercase ASCII letters. An empty token
// slice is a configuration error.
func NewList(tokens []string, wordLength int) (*List, error) {
	if wordLength <= 0 {
		return nil, fmt.Errorf("%w: word length must be positive, got %d", ErrConfiguration, wordLength)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no words", ErrConfiguration)
	}
	for i, w := range tokens {
		if !isCanonical(w, wordLength) {
			return nil, fmt.Errorf("%w: word %d %q is not %d lowercase letters",
				ErrConfiguration, i+1, w, wordLength)
		}
	}

	ws := make([]string, len(tokens))
	copy(ws, tokens)
	return &List{words: ws, wordLength: wordLength}, nil
}

// Len returns the number of words.
func (l *List) Len() int {
	return len(l.words)
}

// WordLength returns the canonical per-word length.
func (l *List) WordLength() int {
	return l.wordLength
}

// Word returns the word at index i.
func (l *List) Word(i int) string {
	return l.words[i]
}

// Words returns a copy of all words.
func (l *List) Words() []string {
	out := make([]string, len(l.words))
	copy(out, l.words)
	return out
}

// Decode parses an identifier using this list's word length.
func (l *List) Decode(param string) (Triple, bool) {
	return DecodeLength(param, l.wordLength)
}

// RandomTriple draws an identifier from the list.
//
// Description:
//
//	Draws three independent uniform picks with replacement. When
//	requiredFirst is non-empty, the first slot is fixed to it and only the
//	remaining two slots are drawn. This is how descendants visibly share
//	their lineage's first word; it is a hint, not a uniqueness guarantee.
//
// Inputs:
//
//	intn - Random source. Nil uses math/rand/v2.
//	requiredFirst - Optional fixed first word.
//
// Outputs:
//
//	Triple - The drawn identifier.
//
// Thread Safety: Safe for concurrent use if intn is.
func (l *List) RandomTriple(intn IntN, requiredFirst string) Triple {
	if intn == nil {
		intn = rand.IntN
	}

	var t Triple
	start := 0
	if requiredFirst != "" {
		t[0] = requiredFirst
		start = 1
	}
	for i := start; i < TripleSize; i++ {
		t[i] = l.words[intn(len(l.words))]
	}
	return t
}

// isCanonical reports whether w is exactly n lowercase ASCII letters.
func isCanonical(w string, n int) bool {
	if len(w) != n {
		return false
	}
	for i := 0; i < len(w); i++ {
		if w[i] < 'a' || w[i] > 'z' {
			return false
		}
	}
	return true
}
