// Package api serves the query, vendor and map endpoints used by the chat
// widget and its map pages.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mspro-labs/eco-buddy/internal/assistant"
	"mspro-labs/eco-buddy/internal/config"
	"mspro-labs/eco-buddy/internal/overpass"
	"mspro-labs/eco-buddy/internal/scraper"
	"mspro-labs/eco-buddy/internal/vendors"
)

// QueryService answers chat questions.
type QueryService interface {
	Answer(ctx context.Context, req assistant.Request) (string, error)
}

// NearbySearcher finds shops around a point.
type NearbySearcher interface {
	Search(ctx context.Context, p overpass.SearchParams) (*overpass.Result, error)
}

// Deps are the collaborators behind the handlers. Nil Assistant, Nearby or
// Fetcher disable the features that need them.
type Deps struct {
	Assistant QueryService
	Catalog   *vendors.Catalog
	Nearby    NearbySearcher
	Fetcher   scraper.Fetcher
	Selectors config.Selectors
	// DefaultRadius is used by nearby searches without a radius, in meters.
	DefaultRadius int
	// PublicURL prefixes the vendor URL baked into popup pages. Empty keeps
	// it relative to this server.
	PublicURL string
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	cfg        config.ServerConfig
	deps       Deps
	renderer   *vendors.Renderer
	metrics    *Metrics
	router     http.Handler
	httpServer *http.Server
}

// NewServer wires the router.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Catalog == nil {
		deps.Catalog = vendors.Default()
	}
	if deps.DefaultRadius <= 0 {
		deps.DefaultRadius = overpass.DefaultRadius
	}
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		renderer: vendors.NewRenderer(deps.Catalog),
		metrics:  NewMetrics(),
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.requestTimeout() + 5*time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.TimeoutSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.cfg.TimeoutSecs) * time.Second
}
