// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage defines the starter record and the store contract used by
// the lineage core.
//
// Implementations live in subpackages (see storage/badger). The core only
// depends on the interfaces here, so tests can substitute in-memory fakes.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// Page and listing bounds.
const (
	// DefaultChildrenPage is the maximum children returned per FindChildren call.
	DefaultChildrenPage = 100

	// DefaultSummaryLimit caps ListSummaries.
	DefaultSummaryLimit = 10000
)

// Sentinel errors for store implementations.
var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("starter not found")

	// ErrDuplicateIdentifier is returned by Insert when the identifier is
	// already assigned. Callers redraw and retry.
	ErrDuplicateIdentifier = errors.New("identifier already assigned")

	// ErrParentNotFound is returned by Insert when ParentKey does not
	// reference an existing starter.
	ErrParentNotFound = errors.New("parent starter not found")

	// ErrInvalidRecord is returned by Insert for a record missing required fields.
	ErrInvalidRecord = errors.New("invalid starter record")
)

// Category is the kind of fermentation culture.
type Category string

const (
	CategorySourdough       Category = "sourdough"
	CategoryFriendshipBread Category = "friendship_bread"
	CategoryKefirMilk       Category = "kefir_milk"
	CategoryKefirWater      Category = "kefir_water"
	CategoryKombucha        Category = "kombucha"
	CategoryGingerBug       Category = "ginger_bug"
	CategoryJun             Category = "jun"
	CategoryOther           Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategorySourdough,
	CategoryFriendshipBread,
	CategoryKefirMilk,
	CategoryKefirWater,
	CategoryKombucha,
	CategoryGingerBug,
	CategoryJun,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PointType is the GeoJSON geometry type of every Location.
const PointType = "Point"

// Location is a GeoJSON point. Coordinates are [longitude, latitude].
type Location struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPoint builds a Location from latitude and longitude.
func NewPoint(lat, lng float64) Location {
	return Location{Type: PointType, Coordinates: [2]float64{lng, lat}}
}

// Lat returns the latitude.
func (l Location) Lat() float64 { return l.Coordinates[1] }

// Lng returns the longitude.
func (l Location) Lng() float64 { return l.Coordinates[0] }

// Starter is a persisted fermentation culture.
//
// Key is assigned by the store and is never exposed outside the service.
type Starter struct {
	Key           string       `json:"key"`
	Words         words.Triple `json:"words"`
	Name          string       `json:"name,omitempty"`
	Category      Category     `json:"category"`
	CategoryOther string       `json:"category_other,omitempty"`
	Location      Location     `json:"location"`
	ParentKey     string       `json:"parent_key,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// IsRoot reports whether the starter has no parent.
func (s *Starter) IsRoot() bool {
	return s.ParentKey == ""
}

// Summary is the projection returned by ListSummaries.
type Summary struct {
	Words    words.Triple
	Name     string
	Category Category
	Location Location
}

// Reader is the read side used by tree reconstruction.
type Reader interface {
	// FindByIdentifier returns the starter with the given words, or ErrNotFound.
	FindByIdentifier(ctx context.Context, id words.Triple) (*Starter, error)

	// FindByKey returns the starter with the given internal key, or ErrNotFound.
	FindByKey(ctx context.Context, key string) (*Starter, error)

	// FindChildren returns up to limit starters whose ParentKey is parentKey.
	FindChildren(ctx context.Context, parentKey string, limit int) ([]*Starter, error)
}

// Store is the full store contract.
type Store interface {
	Reader

	// Exists reports whether an identifier is assigned.
	Exists(ctx context.Context, id words.Triple) (bool, error)

	// Insert persists a new starter and returns its key. Key and CreatedAt
	// are assigned when empty. Returns ErrDuplicateIdentifier or
	// ErrParentNotFound on constraint violations.
	Insert(ctx context.Context, s *Starter) (string, error)

	// ListSummaries returns up to limit summaries ordered by creation.
	ListSummaries(ctx context.Context, limit int) ([]Summary, error)

	// Count returns the number of stored starters.
	Count(ctx context.Context) (int, error)
}
