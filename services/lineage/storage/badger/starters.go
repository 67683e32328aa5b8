// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/trackmystarter/services/lineage/storage"
	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// Key prefixes.
const (
	prefixStarter = "starter/"
	prefixIdent   = "ident/"
	prefixChild   = "child/"
)

func starterKey(key string) []byte {
	return []byte(prefixStarter + key)
}

func identKey(id words.Triple) []byte {
	return []byte(prefixIdent + id.String())
}

func childPrefix(parentKey string) []byte {
	return []byte(prefixChild + parentKey + "/")
}

func childKey(parentKey, key string) []byte {
	return append(childPrefix(parentKey), key...)
}

// Store implements storage.Store on BadgerDB.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a starter store over db.
func NewStore(db *DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// FindByIdentifier resolves the identifier index, then loads the document.
func (s *Store) FindByIdentifier(ctx context.Context, id words.Triple) (*storage.Starter, error) {
	var found *storage.Starter
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(identKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		found, err = getStarter(txn, string(key))
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindByKey loads a document by internal key.
func (s *Store) FindByKey(ctx context.Context, key string) (*storage.Starter, error) {
	var found *storage.Starter
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		found, err = getStarter(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindChildren returns up to limit children of parentKey in creation order.
//
// Keys are UUIDv7, so the children index iterates in creation order.
func (s *Store) FindChildren(ctx context.Context, parentKey string, limit int) ([]*storage.Starter, error) {
	if limit <= 0 {
		limit = storage.DefaultChildrenPage
	}

	var children []*storage.Starter
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		prefix := childPrefix(parentKey)
		keys := make([]string, 0, 8)

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(keys) < limit; it.Next() {
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		it.Close()

		children = make([]*storage.Starter, 0, len(keys))
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			child, err := getStarter(txn, key)
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("dangling child index entry",
					slog.String("parent_key", parentKey),
					slog.String("child_key", key))
				continue
			}
			if err != nil {
				return err
			}
			children = append(children, child)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

// Exists reports whether the identifier index holds id.
func (s *Store) Exists(ctx context.Context, id words.Triple) (bool, error) {
	var exists bool
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(identKey(id))
		switch {
		case err == nil:
			exists = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	return exists, err
}

// Insert persists a new starter.
//
// Description:
//
//	Assigns a UUIDv7 key and a UTC creation time when the record has none,
//	and writes them back to st. The document, identifier index entry, and
//	children index entry are written in one transaction.
//
// Outputs:
//
//	string - The starter's key.
//	error - storage.ErrDuplicateIdentifier when the identifier is taken or a
//	        concurrent insert won the race; storage.ErrParentNotFound when
//	        ParentKey does not resolve; storage.ErrInvalidRecord for a
//	        record without words or whose Key is already stored.
//
// Thread Safety: Safe for concurrent use.
func (s *Store) Insert(ctx context.Context, st *storage.Starter) (string, error) {
	if st == nil || st.Words.IsZero() {
		return "", fmt.Errorf("%w: identifier is required", storage.ErrInvalidRecord)
	}

	rec := *st
	if rec.Key == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}
		rec.Key = id.String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	if rec.Location.Type == "" {
		rec.Location.Type = storage.PointType
	}

	doc, err := json.Marshal(&rec)
	if err != nil {
		return "", fmt.Errorf("encode starter: %w", err)
	}

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(identKey(rec.Words))
		if err == nil {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateIdentifier, rec.Words)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		_, err = txn.Get(starterKey(rec.Key))
		if err == nil {
			return fmt.Errorf("%w: key %s already exists", storage.ErrInvalidRecord, rec.Key)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if rec.ParentKey != "" {
			_, err := txn.Get(starterKey(rec.ParentKey))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", storage.ErrParentNotFound, rec.ParentKey)
			}
			if err != nil {
				return err
			}
			if err := txn.Set(childKey(rec.ParentKey, rec.Key), nil); err != nil {
				return err
			}
		}

		if err := txn.Set(starterKey(rec.Key), doc); err != nil {
			return err
		}
		return txn.Set(identKey(rec.Words), []byte(rec.Key))
	})
	if errors.Is(err, badger.ErrConflict) {
		return "", fmt.Errorf("%w: %w", storage.ErrDuplicateIdentifier, err)
	}
	if err != nil {
		return "", err
	}

	st.Key = rec.Key
	st.CreatedAt = rec.CreatedAt
	st.Location.Type = rec.Location.Type
	s.logger.Debug("starter inserted",
		slog.String("identifier", rec.Words.String()),
		slog.Bool("root", rec.IsRoot()))
	return rec.Key, nil
}

// ListSummaries returns up to limit summaries in creation order.
func (s *Store) ListSummaries(ctx context.Context, limit int) ([]storage.Summary, error) {
	if limit <= 0 {
		limit = storage.DefaultSummaryLimit
	}

	summaries := make([]storage.Summary, 0, 64)
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		prefix := []byte(prefixStarter)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(summaries) < limit; it.Next() {
			var st storage.Starter
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &st)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			summaries = append(summaries, storage.Summary{
				Words:    st.Words,
				Name:     st.Name,
				Category: st.Category,
				Location: st.Location,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// Count returns the number of starter documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		prefix := []byte(prefixStarter)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Ping checks that a read transaction can be opened.
func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("database is closed")
	}
	return s.db.WithReadTxn(ctx, func(*badger.Txn) error { return nil })
}

// getStarter loads and decodes the document stored under key.
func getStarter(txn *badger.Txn, key string) (*storage.Starter, error) {
	if key == "" || strings.Contains(key, "/") {
		return nil, fmt.Errorf("%w: key %q", storage.ErrNotFound, key)
	}

	item, err := txn.Get(starterKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: key %s", storage.ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	var st storage.Starter
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	}); err != nil {
		return nil, fmt.Errorf("decode starter %s: %w", key, err)
	}
	return &st, nil
}
