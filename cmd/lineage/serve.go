// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/trackmystarter/services/lineage"
	"github.com/AleutianAI/trackmystarter/services/lineage/config"
	badgerstore "github.com/AleutianAI/trackmystarter/services/lineage/storage/badger"
	"github.com/AleutianAI/trackmystarter/services/lineage/telemetry"
	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		port  int
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lineage HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != 0 {
				a.cfg.Server.Port = port
			}
			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable gin debug mode")
	return cmd
}

// serve runs the API until ctx is cancelled.
//
// Description:
//
//	Telemetry starts first so spans and metrics cover startup. The word
//	list is loaded before the listener opens: a missing list stops the
//	process instead of serving requests that cannot allocate. The HTTP
//	server and the value log GC share an errgroup; either failing stops
//	both.
func (a *app) serve(ctx context.Context) error {
	logger := a.logger.Slog()

	shutdownTelemetry, err := telemetry.Init(ctx, a.cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	list, err := words.Shared(a.cfg.Words)
	if err != nil {
		return fmt.Errorf("load word list: %w", err)
	}

	storeCfg := a.cfg.Storage
	storeCfg.Logger = logger.With(slog.String("component", "badger"))
	db, err := badgerstore.Open(storeCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", slog.String("error", err.Error()))
		}
	}()

	svc, err := lineage.NewService(
		badgerstore.NewStore(db, logger),
		list,
		a.cfg.Lineage,
		lineage.WithLogger(logger),
		lineage.WithMetrics(lineage.NewMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return err
	}

	httpMetrics, err := telemetry.NewMetrics(otel.Meter("lineage.http"))
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	metricsHandler := telemetry.MetricsHandler()
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	router := newRouter(a.cfg.Server, a.cfg.Telemetry.ServiceName, lineage.NewHandlers(svc), httpMetrics, metricsHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting lineage server",
			slog.String("address", srv.Addr),
			slog.Int("words", list.Len()),
			slog.Bool("in_memory", db.InMemory()),
			slog.String("log_file", a.logger.FilePath()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down lineage server")
		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if storeCfg.GCInterval > 0 {
		gc, err := badgerstore.NewGCRunner(db, storeCfg.GCInterval, storeCfg.GCDiscardRatio, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return gc.Run(gctx) })
	}

	return g.Wait()
}

// newRouter builds the gin engine.
//
// Routes:
//
//	GET /health, GET /ready - probes
//	GET /metrics - Prometheus scrape endpoint
//	/api/starters/... - lineage API
func newRouter(cfg config.ServerConfig, serviceName string, h *lineage.Handlers, m *telemetry.Metrics, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(telemetry.GinMetrics(m))
	router.Use(lineage.RequestID())
	router.Use(lineage.CORS(cfg.AllowedOrigins))

	lineage.RegisterHealthRoutes(router, h)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := router.Group("/api")
	lineage.RegisterRoutes(api, h, lineage.NewWriteLimiter(cfg.WriteRateLimit, cfg.WriteBurst))
	return router
}
