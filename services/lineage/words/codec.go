// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package words implements three-word starter identifiers.
//
// An identifier is an ordered triple of lowercase words drawn from a fixed
// word list. Its wire form joins the words with hyphens, for example
// "bread-ocean-maple". Hyphens are optional on input: Decode strips them
// and splits the remainder into three equal chunks, so "breadoceanmaple"
// decodes to the same triple.
//
// The word list is loaded once per process (see Shared) and never mutated
// afterwards, so it is safe for unsynchronized concurrent reads.
package words

import (
	"strings"
)

const (
	// Separator joins the words of an encoded identifier.
	Separator = "-"

	// DefaultWordLength is the canonical per-word length of the shipped
	// word list. Encoded identifiers are 3*5+2 = 17 characters long.
	DefaultWordLength = 5

	// TripleSize is the number of words in an identifier.
	TripleSize = 3
)

// Triple is a three-word starter identifier.
type Triple [TripleSize]string

// String returns the canonical hyphen-joined form.
func (t Triple) String() string {
	return Encode(t)
}

// Slice returns the words as a slice, in order.
func (t Triple) Slice() []string {
	return []string{t[0], t[1], t[2]}
}

// First returns the lineage word shared by descendants.
func (t Triple) First() string {
	return t[0]
}

// IsZero reports whether no word is set.
func (t Triple) IsZero() bool {
	return t == Triple{}
}

// Encode joins the triple with Separator.
//
// For canonical-length words the result is exactly 3*L+2 characters.
func Encode(t Triple) string {
	return strings.Join(t[:], Separator)
}

// Decode parses an identifier using DefaultWordLength.
//
// Returns ok=false when the input is malformed. It never returns an error:
// an unparseable identifier is a normal outcome for user input.
func Decode(param string) (Triple, bool) {
	return DecodeLength(param, DefaultWordLength)
}

// DecodeLength parses an identifier whose words are wordLength long.
//
// Description:
//
//	Lowercases the input, removes every separator, and requires the
//	remainder to be exactly 3*wordLength bytes. The remainder is split into
//	three contiguous chunks in order. Chunks are not checked against the
//	word list; only a store lookup establishes that an identifier exists.
//
// Inputs:
//
//	param - Raw identifier, e.g. "Bread-Ocean-Maple" or "breadoceanmaple".
//	wordLength - Canonical per-word length. Must be positive.
//
// Outputs:
//
//	Triple - The decoded words (zero value when ok is false).
//	bool - False if the stripped length is wrong or wordLength <= 0.
//
// Thread Safety: Safe for concurrent use.
func DecodeLength(param string, wordLength int) (Triple, bool) {
	if wordLength <= 0 {
		return Triple{}, false
	}

	cleaned := strings.ReplaceAll(strings.ToLower(param), Separator, "")
	if len(cleaned) != TripleSize*wordLength {
		return Triple{}, false
	}

	var t Triple
	for i := range t {
		t[i] = cleaned[i*wordLength : (i+1)*wordLength]
	}
	return t, true
}
