// Package api serves the placement view of the clusters in a store over
// HTTP. It is read-only: every mutation goes through clusterctl.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/clusterplan/internal/api/handler"
	mw "github.com/edvin/clusterplan/internal/api/middleware"
	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/store"
)

type Server struct {
	router  chi.Router
	logger  zerolog.Logger
	store   store.Store
	catalog *catalog.Catalog
	bundles catalog.BundleSource
}

func NewServer(logger zerolog.Logger, st store.Store, cat *catalog.Catalog, bundles catalog.BundleSource) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		logger:  logger,
		store:   st,
		catalog: cat,
		bundles: bundles,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	cluster := handler.NewCluster(s.store, s.catalog, s.bundles)
	s.router.Get("/clusters", cluster.List)
	s.router.Get("/clusters/{name}", cluster.Get)
	s.router.Get("/clusters/{name}/placement", cluster.Placement)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReadyz reports whether the store answers a listing.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status := http.StatusOK
	if _, err := s.store.List(ctx); err != nil {
		checks["store"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
