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
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RegisterRoutes registers the starter routes with the router.
//
// Description:
//
//	Registers the /starters endpoints on rg. Create endpoints additionally
//	pass through RateLimit(writeLimiter); a nil limiter disables it.
//
// Inputs:
//
//	rg - Gin router group (typically /api)
//	handlers - The handlers instance
//	writeLimiter - Limiter for create endpoints (optional)
//
// Endpoints:
//
//	GET  /api/starters - List starter summaries
//	GET  /api/starters/:words - Get a starter
//	GET  /api/starters/:words/tree - Reconstruct its lineage tree
//	POST /api/starters - Create a root starter
//	POST /api/starters/:words/descendants - Create a descendant
//
// Example:
//
//	svc, _ := lineage.NewService(store, list, lineage.DefaultServiceConfig())
//	handlers := lineage.NewHandlers(svc)
//
//	api := router.Group("/api")
//	lineage.RegisterRoutes(api, handlers, nil)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers, writeLimiter *rate.Limiter) {
	starters := rg.Group("/starters")
	{
		starters.GET("", handlers.HandleListStarters)
		starters.GET("/:words", handlers.HandleGetStarter)
		starters.GET("/:words/tree", handlers.HandleGetTree)

		writes := starters.Group("", RateLimit(writeLimiter))
		writes.POST("", handlers.HandleCreateStarter)
		writes.POST("/:words/descendants", handlers.HandleCreateDescendant)
	}
}

// RegisterHealthRoutes registers /health and /ready on r.
func RegisterHealthRoutes(r gin.IRoutes, handlers *Handlers) {
	r.GET("/health", handlers.HandleHealth)
	r.GET("/ready", handlers.HandleReady)
}
