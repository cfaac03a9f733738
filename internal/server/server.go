// Package server exposes the dashboard views as a read-only JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/docket/internal/aggregate"
	"github.com/ppiankov/docket/internal/config"
	"github.com/ppiankov/docket/internal/dataset"
	"github.com/ppiankov/docket/internal/integrity"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/query"
	"github.com/ppiankov/docket/internal/worker"
)

// limiterIdle is how long a client bucket survives without requests
const limiterIdle = 10 * time.Minute

// Server serves one immutable dataset snapshot
type Server struct {
	cfg        config.ServerConfig
	snap       *dataset.Snapshot
	roster     model.Roster
	aggregator *aggregate.Aggregator
	engine     *query.Engine
	checker    *integrity.Checker
	params     *paramValidator
	limiter    *worker.Limiter
	metrics    *Metrics
	logger     *zap.Logger
}

// New creates a server for snap
func New(snap *dataset.Snapshot, roster model.Roster, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	checker, err := integrity.NewChecker(roster, cfg.Integrity, logger)
	if err != nil {
		return nil, fmt.Errorf("create checker: %w", err)
	}
	params, err := newParamValidator(roster)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics()
	metrics.DatasetRecords.Set(float64(len(snap.Records)))

	return &Server{
		cfg:        cfg.Server,
		snap:       snap,
		roster:     roster,
		aggregator: aggregate.NewAggregator(roster),
		engine:     query.NewEngine(snap.Records),
		checker:    checker,
		params:     params,
		limiter:    worker.NewLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst),
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(requestID)
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))
	router.Use(instrument(s.metrics))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	router.Get("/health", s.health)
	router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(s.limiter, s.metrics))

		r.Get("/overview", s.overview)
		r.Get("/justices", s.justices)
		r.Get("/agreement", s.agreement)
		r.Get("/splits", s.splits)
		r.Get("/decision-types", s.decisionTypes)
		r.Get("/cases", s.cases)
		r.Get("/integrity", s.integrity)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router
}

// Serve listens on the configured address until ctx is done, then shuts
// down gracefully
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr), zap.Int("records", len(s.snap.Records)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := s.limiter.Sweep(limiterIdle); n > 0 {
					s.logger.Debug("swept idle clients", zap.Int("count", n))
				}
			}
		}
	})

	return g.Wait()
}
