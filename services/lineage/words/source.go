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
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

const (
	// EnvWordsFile overrides the word list location.
	EnvWordsFile = "WORDS_FILE"

	// DeploymentPath is where container images ship the word list.
	DeploymentPath = "/app/words.txt"

	// FileName is the word list file name under the application root.
	FileName = "words.txt"
)

// Source describes where to find the word list.
//
// Paths are tried in order: Override, DeploymentPath, AppRoot/words.txt.
// Empty entries are skipped.
type Source struct {
	// Override is an explicit path. When set it is the only path tried,
	// so a typo fails loudly instead of silently falling through.
	Override string `yaml:"file"`

	// DeploymentPath is the fixed in-image location.
	DeploymentPath string `yaml:"deployment_path"`

	// AppRoot is the application root directory.
	AppRoot string `yaml:"app_root"`

	// WordLength is the canonical per-word length (default 5).
	WordLength int `yaml:"word_length"`
}

// DefaultSource returns the standard lookup chain.
//
// WORDS_FILE populates Override. AppRoot is the working directory.
func DefaultSource() Source {
	return Source{
		Override:       os.Getenv(EnvWordsFile),
		DeploymentPath: DeploymentPath,
		AppRoot:        ".",
		WordLength:     DefaultWordLength,
	}
}

// Candidates returns the paths Load will try, in order.
func (s Source) Candidates() []string {
	if s.Override != "" {
		return []string{s.Override}
	}
	var out []string
	if s.DeploymentPath != "" {
		out = append(out, s.DeploymentPath)
	}
	if s.AppRoot != "" {
		out = append(out, filepath.Join(s.AppRoot, FileName))
	}
	return out
}

// Load reads the word list from the first existing candidate path.
//
// Description:
//
//	Lines are trimmed and lowercased. Blank lines and lines starting with
//	"#" are skipped. Every remaining token must be WordLength lowercase
//	ASCII letters.
//
// Outputs:
//
//	*List - The loaded list.
//	error - ErrConfiguration (wrapped) when no candidate exists, the file is
//	        unreadable, empty, or contains a malformed word.
//
// Thread Safety: Safe for concurrent use. Does not touch the shared cache.
func Load(src Source) (*List, error) {
	wordLength := src.WordLength
	if wordLength == 0 {
		wordLength = DefaultWordLength
	}

	candidates := src.Candidates()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no word list path configured", ErrConfiguration)
	}

	for _, path := range candidates {
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrConfiguration, path, err)
		}
		list, err := parse(f, wordLength)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return list, nil
	}

	return nil, fmt.Errorf("%w: word list not found (tried %s)",
		ErrConfiguration, strings.Join(candidates, ", "))
}

// Parse reads a word list from r.
func Parse(r io.Reader, wordLength int) (*List, error) {
	return parse(r, wordLength)
}

func parse(r io.Reader, wordLength int) (*List, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		word := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		if !isCanonical(word, wordLength) {
			return nil, fmt.Errorf("%w: line %d: %q is not %d lowercase letters",
				ErrConfiguration, line, word, wordLength)
		}
		tokens = append(tokens, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrConfiguration, err)
	}
	return NewList(tokens, wordLength)
}

// Process-wide word list cache.
var (
	sharedMu    sync.RWMutex
	sharedList  *List
	sharedGroup singleflight.Group
)

// Shared returns the process-wide word list, loading it on first use.
//
// Description:
//
//	The first successful Load is cached for the life of the process and
//	returned to every later caller regardless of src. Concurrent first
//	callers share a single load. A failed load is not cached, so a later
//	call may succeed once the file is in place.
//
// Thread Safety: Safe for concurrent use.
func Shared(src Source) (*List, error) {
	sharedMu.RLock()
	list := sharedList
	sharedMu.RUnlock()
	if list != nil {
		return list, nil
	}

	v, err, _ := sharedGroup.Do("words", func() (any, error) {
		sharedMu.RLock()
		cached := sharedList
		sharedMu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		loaded, err := Load(src)
		if err != nil {
			return nil, err
		}

		sharedMu.Lock()
		sharedList = loaded
		sharedMu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*List), nil
}
