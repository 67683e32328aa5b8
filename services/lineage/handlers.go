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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/trackmystarter/services/lineage/identity"
	"github.com/AleutianAI/trackmystarter/services/lineage/telemetry"
	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// ServiceVersion is the lineage service version.
const ServiceVersion = "1.0.0"

// Handlers contains the HTTP handlers for the lineage service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleListStarters handles GET /api/starters.
//
// Response:
//
//	200 OK: []SummaryResponse (may be empty)
//	500 Internal Server Error: Store failure
func (h *Handlers) HandleListStarters(c *gin.Context) {
	logger := h.requestLogger(c, "HandleListStarters")

	resp, err := h.svc.ListSummaries(c.Request.Context())
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Debug("Listed starters", "count", len(resp))
	c.JSON(http.StatusOK, resp)
}

// HandleGetStarter handles GET /api/starters/:words.
//
// Path Parameters:
//
//	words: Identifier, hyphens optional (required)
//
// Response:
//
//	200 OK: StarterResponse
//	400 Bad Request: Malformed identifier
//	404 Not Found: No starter with that identifier
func (h *Handlers) HandleGetStarter(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetStarter")

	resp, err := h.svc.GetStarter(c.Request.Context(), c.Param("words"))
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleGetTree handles GET /api/starters/:words/tree.
//
// Description:
//
//	Returns the target starter, its ancestors and its descendants as a
//	node list and edge list, capped at the configured node limit.
//
// Response:
//
//	200 OK: TreeResponse
//	400 Bad Request: Malformed identifier
//	404 Not Found: No starter with that identifier
func (h *Handlers) HandleGetTree(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetTree")

	resp, err := h.svc.GetTree(c.Request.Context(), c.Param("words"))
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Info("Tree reconstructed",
		"identifier", c.Param("words"),
		"nodes", len(resp.Nodes),
		"edges", len(resp.Edges),
		"truncated", resp.Truncated)
	c.JSON(http.StatusOK, resp)
}

// HandleCreateStarter handles POST /api/starters.
//
// Request Body:
//
//	CreateStarterRequest
//
// Response:
//
//	201 Created: StarterResponse
//	400 Bad Request: Invalid body or validation failure
//	503 Service Unavailable: No free identifier could be allocated
func (h *Handlers) HandleCreateStarter(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCreateStarter")

	var req CreateStarterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.svc.CreateStarter(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// HandleCreateDescendant handles POST /api/starters/:words/descendants.
//
// Request Body:
//
//	CreateStarterRequest
//
// Response:
//
//	201 Created: StarterResponse with parent_identifier set
//	400 Bad Request: Malformed parent identifier, invalid body or validation failure
//	404 Not Found: Parent does not exist
//	503 Service Unavailable: No free identifier could be allocated
func (h *Handlers) HandleCreateDescendant(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCreateDescendant")

	parent := c.Param("words")
	if _, err := h.svc.ParseIdentifier(parent); err != nil {
		h.writeError(c, logger, err)
		return
	}

	var req CreateStarterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.svc.CreateDescendant(c.Request.Context(), parent, &req)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /ready.
//
// Response:
//
//	200 OK: ReadyResponse (Ready=true)
//	503 Service Unavailable: ReadyResponse (Ready=false)
func (h *Handlers) HandleReady(c *gin.Context) {
	err := h.svc.Ready(c.Request.Context())

	resp := ReadyResponse{
		Ready:       err == nil,
		WordsLoaded: !errors.Is(err, words.ErrConfiguration),
		StoreOK:     !errors.Is(err, ErrStoreUnavailable),
	}
	if err != nil {
		resp.Error = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// requestLogger returns a logger tagged with the request ID, handler name
// and trace context.
func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	requestID := getOrCreateRequestID(c)
	return telemetry.LoggerWithTrace(c.Request.Context(), slog.Default()).With(
		"request_id", requestID,
		"handler", handler,
	)
}

// writeError maps err to a status and ErrorResponse and writes it.
func (h *Handlers) writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Error = "Request validation failed"
		resp.Details = verrs.Error()
	}

	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		logger.Error("Request failed", "error", err, "code", code)
		resp.Error = "Internal error"
	case status == http.StatusServiceUnavailable:
		logger.Warn("Request unavailable", "error", err, "code", code)
	default:
		logger.Info("Request rejected", "error", err, "code", code)
	}

	c.JSON(status, resp)
}

// errorStatus maps service errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidIdentifier):
		return http.StatusBadRequest, "INVALID_IDENTIFIER"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, identity.ErrAllocationExhausted):
		return http.StatusServiceUnavailable, "ALLOCATION_EXHAUSTED"
	case errors.Is(err, words.ErrConfiguration):
		return http.StatusServiceUnavailable, "CONFIGURATION_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDKey, requestID)
	c.Header(RequestIDHeader, requestID)
	return requestID
}
