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
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/trackmystarter/services/lineage/storage"
	"github.com/AleutianAI/trackmystarter/services/lineage/tree"
)

// MaxTextLength bounds the free-text request fields.
const MaxTextLength = 120

// starterValidate is the validator for request types. Custom tags are
// registered in init().
var starterValidate *validator.Validate

func init() {
	starterValidate = validator.New()
	_ = starterValidate.RegisterValidation("starter_category", validateCategory)
}

// validateCategory accepts only the known culture categories.
func validateCategory(fl validator.FieldLevel) bool {
	return storage.Category(fl.Field().String()).Valid()
}

// CreateStarterRequest is the body for POST /api/starters and
// POST /api/starters/:words/descendants.
//
// Lat and Lng are pointers so that a zero coordinate is distinguishable
// from a missing one.
type CreateStarterRequest struct {
	// Name is an optional display name.
	Name string `json:"name" validate:"max=120"`

	// Category is the culture kind. Required.
	Category storage.Category `json:"category" validate:"required,starter_category"`

	// CategoryOther describes the culture when Category is "other". It is
	// dropped for any other category.
	CategoryOther string `json:"category_other" validate:"max=120"`

	// Lat is the latitude in degrees. Required.
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`

	// Lng is the longitude in degrees. Required.
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

// Validate checks field constraints.
func (r *CreateStarterRequest) Validate() error {
	return starterValidate.Struct(r)
}

// StarterResponse is a single starter as returned by the API.
type StarterResponse struct {
	Identifier       string           `json:"identifier"`
	Words            []string         `json:"words"`
	Name             string           `json:"name,omitempty"`
	Category         storage.Category `json:"category"`
	CategoryOther    string           `json:"category_other,omitempty"`
	Location         storage.Location `json:"location"`
	ParentIdentifier string           `json:"parent_identifier,omitempty"`
	ParentWords      []string         `json:"parent_words,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// SummaryResponse is one entry of GET /api/starters.
type SummaryResponse struct {
	Identifier string           `json:"identifier"`
	Words      []string         `json:"words"`
	Name       string           `json:"name,omitempty"`
	Category   storage.Category `json:"category"`
	Location   storage.Location `json:"location"`
}

// TreeNodeResponse is one node of a lineage tree.
type TreeNodeResponse struct {
	Identifier string           `json:"identifier"`
	Words      []string         `json:"words"`
	Name       string           `json:"name,omitempty"`
	Category   storage.Category `json:"category"`
	IsTarget   bool             `json:"is_target"`
	Location   storage.Location `json:"location"`
}

// TreeResponse is the body of GET /api/starters/:words/tree.
type TreeResponse struct {
	Nodes     []TreeNodeResponse `json:"nodes"`
	Edges     []tree.Edge        `json:"edges"`
	Truncated bool               `json:"truncated"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Ready       bool   `json:"ready"`
	StoreOK     bool   `json:"store_ok"`
	WordsLoaded bool   `json:"words_loaded"`
	Error       string `json:"error,omitempty"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the machine-readable error code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}

func toStarterResponse(s *storage.Starter, parent *storage.Starter) *StarterResponse {
	resp := &StarterResponse{
		Identifier:    s.Words.String(),
		Words:         s.Words.Slice(),
		Name:          s.Name,
		Category:      s.Category,
		CategoryOther: s.CategoryOther,
		Location:      s.Location,
		CreatedAt:     s.CreatedAt,
	}
	if parent != nil {
		resp.ParentIdentifier = parent.Words.String()
		resp.ParentWords = parent.Words.Slice()
	}
	return resp
}

func toSummaryResponse(s storage.Summary) SummaryResponse {
	return SummaryResponse{
		Identifier: s.Words.String(),
		Words:      s.Words.Slice(),
		Name:       s.Name,
		Category:   s.Category,
		Location:   s.Location,
	}
}

func toTreeResponse(t *tree.Tree) *TreeResponse {
	resp := &TreeResponse{
		Nodes:     make([]TreeNodeResponse, 0, len(t.Nodes)),
		Edges:     t.Edges,
		Truncated: t.Truncated,
	}
	for _, n := range t.Nodes {
		resp.Nodes = append(resp.Nodes, TreeNodeResponse{
			Identifier: n.Words.String(),
			Words:      n.Words.Slice(),
			Name:       n.Name,
			Category:   n.Category,
			IsTarget:   n.IsTarget,
			Location:   n.Location,
		})
	}
	if resp.Edges == nil {
		resp.Edges = []tree.Edge{}
	}
	return resp
}
