package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/health", s.handleHealth)

	r.Post("/query", s.handleQuery)
	r.Post("/message", s.handleMessage)

	// Nearby search takes query parameters on the collection so that every
	// path segment under /vendors stays a category.
	r.Get("/vendors", s.handleNearby)
	r.Get("/vendors/{category}", s.handleVendors)
	r.Get("/test-vendors/{category}", s.handleTestVendors)

	r.Get("/map/{category}", s.handleMapPage)
	r.Get("/popup/{category}", s.handlePopupPage)

	return r
}
