// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lineage provides the starter lineage HTTP service.
//
// The service exposes endpoints for:
//   - Listing starter summaries
//   - Looking up a starter by its three-word identifier
//   - Reconstructing the lineage tree around a starter
//   - Creating root starters and descendants of existing ones
package lineage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/trackmystarter/services/lineage/identity"
	"github.com/AleutianAI/trackmystarter/services/lineage/storage"
	"github.com/AleutianAI/trackmystarter/services/lineage/tree"
	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// ServiceConfig configures the lineage service.
type ServiceConfig struct {
	// MaxTreeNodes caps tree reconstruction.
	// Default: 100
	MaxTreeNodes int `yaml:"max_tree_nodes"`

	// ChildrenPageSize is how many children are read per node.
	// Default: 100
	ChildrenPageSize int `yaml:"children_page_size"`

	// SummaryLimit caps ListSummaries.
	// Default: 10000
	SummaryLimit int `yaml:"summary_limit"`

	// AllocationMaxAttempts bounds the draws per allocation.
	// Default: 1000
	AllocationMaxAttempts int `yaml:"allocation_max_attempts"`

	// InsertRetries is how many times an insert that collided with a
	// concurrent writer is redrawn before giving up.
	// Default: 5
	InsertRetries int `yaml:"insert_retries"`
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxTreeNodes:          tree.DefaultMaxNodes,
		ChildrenPageSize:      storage.DefaultChildrenPage,
		SummaryLimit:          storage.DefaultSummaryLimit,
		AllocationMaxAttempts: identity.DefaultMaxAttempts,
		InsertRetries:         5,
	}
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRand sets the random source used for identifier draws.
func WithRand(intn words.IntN) ServiceOption {
	return func(s *Service) { s.rand = intn }
}

// Service implements the starter operations.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Its only state is immutable after
//	construction; uniqueness under concurrent creates is enforced by the
//	store's insert transaction.
type Service struct {
	config    ServiceConfig
	store     storage.Store
	words     *words.List
	allocator *identity.Allocator
	tree      *tree.Reconstructor
	metrics   *Metrics
	logger    *slog.Logger
	rand      words.IntN
}

// NewService creates a lineage service.
//
// Description:
//
//	Wires the identity allocator and tree reconstructor over store. Zero
//	config fields fall back to DefaultServiceConfig values.
//
// Inputs:
//
//	store - Persistence. Must not be nil.
//	list - Loaded word list. Must not be nil.
//	config - Service limits.
//	opts - Optional metrics, logger and random source.
//
// Outputs:
//
//	*Service - The service.
//	error - ErrNilStore, or words.ErrConfiguration for a nil list.
func NewService(store storage.Store, list *words.List, config ServiceConfig, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if list == nil {
		return nil, fmt.Errorf("%w: no word list loaded", words.ErrConfiguration)
	}

	defaults := DefaultServiceConfig()
	if config.MaxTreeNodes <= 0 {
		config.MaxTreeNodes = defaults.MaxTreeNodes
	}
	if config.ChildrenPageSize <= 0 {
		config.ChildrenPageSize = defaults.ChildrenPageSize
	}
	if config.SummaryLimit <= 0 {
		config.SummaryLimit = defaults.SummaryLimit
	}
	if config.AllocationMaxAttempts <= 0 {
		config.AllocationMaxAttempts = defaults.AllocationMaxAttempts
	}
	if config.InsertRetries <= 0 {
		config.InsertRetries = defaults.InsertRetries
	}

	s := &Service{
		config: config,
		store:  store,
		words:  list,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.allocator = &identity.Allocator{
		Words:       list,
		MaxAttempts: config.AllocationMaxAttempts,
		Rand:        s.rand,
		Observe:     s.metrics.observeAllocation,
	}
	s.tree = tree.New(store,
		tree.WithMaxNodes(config.MaxTreeNodes),
		tree.WithChildrenPage(config.ChildrenPageSize),
		tree.WithLogger(s.logger),
	)
	return s, nil
}

// Words returns the service's word list.
func (s *Service) Words() *words.List {
	return s.words
}

// ParseIdentifier decodes raw with the service's word length.
//
// Returns ErrInvalidIdentifier when raw is malformed. No store lookup is
// made.
func (s *Service) ParseIdentifier(raw string) (words.Triple, error) {
	id, ok := s.words.Decode(raw)
	if !ok {
		return words.Triple{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	return id, nil
}

// ListSummaries returns summaries of all starters, capped at SummaryLimit.
// The result is never nil.
func (s *Service) ListSummaries(ctx context.Context) ([]SummaryResponse, error) {
	summaries, err := s.store.ListSummaries(ctx, s.config.SummaryLimit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}

	resp := make([]SummaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		resp = append(resp, toSummaryResponse(sum))
	}
	return resp, nil
}

// GetStarter returns the starter named by raw.
//
// Description:
//
//	Decodes raw, loads the starter and resolves its parent's identifier.
//	A parent record that no longer resolves is omitted from the response
//	rather than failing the request.
//
// Inputs:
//
//	ctx - Passed to the store.
//	raw - Identifier as received, hyphens optional.
//
// Outputs:
//
//	*StarterResponse - The starter.
//	error - ErrInvalidIdentifier, ErrNotFound, or a wrapped store error.
//
// Thread Safety: Safe for concurrent use.
func (s *Service) GetStarter(ctx context.Context, raw string) (*StarterResponse, error) {
	st, err := s.find(ctx, "get", raw)
	if err != nil {
		return nil, err
	}

	var parent *storage.Starter
	if !st.IsRoot() {
		parent, err = s.store.FindByKey(ctx, st.ParentKey)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.logger.Debug("parent record missing",
				slog.String("identifier", st.Words.String()))
			parent = nil
		case err != nil:
			return nil, fmt.Errorf("resolve parent of %s: %w", st.Words, err)
		}
	}
	return toStarterResponse(st, parent), nil
}

// GetTree reconstructs the lineage tree around the starter named by raw.
//
// Returns ErrInvalidIdentifier or ErrNotFound for the target only; lookup
// failures during traversal shrink the tree instead of failing it.
func (s *Service) GetTree(ctx context.Context, raw string) (*TreeResponse, error) {
	st, err := s.find(ctx, "tree", raw)
	if err != nil {
		return nil, err
	}

	t, err := s.tree.Build(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("build tree for %s: %w", st.Words, err)
	}
	return toTreeResponse(t), nil
}

// CreateStarter creates a root starter.
//
// Outputs:
//
//	*StarterResponse - The persisted starter.
//	error - ErrValidation, identity.ErrAllocationExhausted, or a wrapped
//	        store error.
func (s *Service) CreateStarter(ctx context.Context, req *CreateStarterRequest) (*StarterResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.create(ctx, req, nil)
}

// CreateDescendant creates a starter whose parent is the starter named by
// rawParent.
//
// Description:
//
//	The new identifier reuses the parent's first word so a lineage is
//	recognizable at a glance. The parent identifier is decoded before the
//	body is validated, so a malformed parent is always reported as
//	ErrInvalidIdentifier.
//
// Outputs:
//
//	*StarterResponse - The persisted starter with parent fields set.
//	error - ErrInvalidIdentifier, ErrValidation, ErrNotFound,
//	        identity.ErrAllocationExhausted, or a wrapped store error.
//
// Thread Safety: Safe for concurrent use.
func (s *Service) CreateDescendant(ctx context.Context, rawParent string, req *CreateStarterRequest) (*StarterResponse, error) {
	parentID, err := s.ParseIdentifier(rawParent)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	parent, err := s.store.FindByIdentifier(ctx, parentID)
	if err != nil {
		return nil, s.lookupError("descendant", parentID, err)
	}
	s.metrics.lookup("descendant", "found")
	return s.create(ctx, req, parent)
}

// Ready reports whether the store is reachable and the word list loaded.
// Both checks always run. A missing word list matches
// words.ErrConfiguration and a failed ping matches ErrStoreUnavailable; when
// both fail the returned error matches both.
func (s *Service) Ready(ctx context.Context) error {
	var wordsErr, storeErr error
	if s.words == nil || s.words.Len() == 0 {
		wordsErr = fmt.Errorf("%w: word list not loaded", words.ErrConfiguration)
	}
	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			storeErr = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}
	return errors.Join(wordsErr, storeErr)
}

// find decodes raw and loads the starter it names.
func (s *Service) find(ctx context.Context, operation, raw string) (*storage.Starter, error) {
	id, err := s.ParseIdentifier(raw)
	if err != nil {
		s.metrics.lookup(operation, "invalid")
		return nil, err
	}

	st, err := s.store.FindByIdentifier(ctx, id)
	if err != nil {
		return nil, s.lookupError(operation, id, err)
	}
	s.metrics.lookup(operation, "found")
	return st, nil
}

func (s *Service) lookupError(operation string, id words.Triple, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		s.metrics.lookup(operation, "not_found")
		return fmt.Errorf("%w: %s: %w", ErrNotFound, id, err)
	}
	s.metrics.lookup(operation, "error")
	return fmt.Errorf("find %s: %w", id, err)
}

// create allocates an identifier and persists the starter, redrawing when
// a concurrent insert claims the same identifier first.
func (s *Service) create(ctx context.Context, req *CreateStarterRequest, parent *storage.Starter) (*StarterResponse, error) {
	requiredFirst := ""
	parentKey := ""
	kind := KindRoot
	if parent != nil {
		requiredFirst = parent.Words.First()
		parentKey = parent.Key
		kind = KindDescendant
	}

	categoryOther := ""
	if req.Category == storage.CategoryOther {
		categoryOther = req.CategoryOther
	}

	for attempt := 1; ; attempt++ {
		id, err := s.allocator.Allocate(ctx, s.store.Exists, requiredFirst)
		if err != nil {
			return nil, fmt.Errorf("allocate identifier: %w", err)
		}

		st := &storage.Starter{
			Words:         id,
			Name:          req.Name,
			Category:      req.Category,
			CategoryOther: categoryOther,
			Location:      storage.NewPoint(*req.Lat, *req.Lng),
			ParentKey:     parentKey,
		}

		_, err = s.store.Insert(ctx, st)
		switch {
		case err == nil:
			s.metrics.created(kind)
			s.logger.Info("starter created",
				slog.String("identifier", id.String()),
				slog.String("kind", kind),
				slog.Int("insert_attempts", attempt))
			return toStarterResponse(st, parent), nil

		case errors.Is(err, storage.ErrDuplicateIdentifier):
			if attempt >= s.config.InsertRetries {
				return nil, fmt.Errorf("%w: %d inserts collided: %w", identity.ErrAllocationExhausted, attempt, err)
			}
			s.metrics.insertRetried()
			s.logger.Info("identifier collided on insert, redrawing",
				slog.String("identifier", id.String()),
				slog.Int("attempt", attempt))

		case errors.Is(err, storage.ErrParentNotFound):
			return nil, fmt.Errorf("%w: parent vanished: %w", ErrNotFound, err)

		default:
			return nil, fmt.Errorf("insert starter: %w", err)
		}
	}
}

func validateRequest(req *CreateStarterRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
