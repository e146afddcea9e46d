package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mspro-labs/eco-buddy/internal/assistant"
	"mspro-labs/eco-buddy/internal/models"
	"mspro-labs/eco-buddy/internal/overpass"
	"mspro-labs/eco-buddy/internal/scraper"
	"mspro-labs/eco-buddy/internal/web"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if s.deps.Assistant == nil {
		s.metrics.QueriesTotal.WithLabelValues("unavailable").Inc()
		writeJSON(w, http.StatusOK, models.QueryResponse{Error: "assistant is not configured"})
		return
	}

	answer, err := s.deps.Assistant.Answer(r.Context(), req)
	if err != nil {
		zap.L().Error("query failed", zap.String("query", req.Query), zap.Error(err))
		s.metrics.QueriesTotal.WithLabelValues("error").Inc()
		// Clients only check for the presence of the field.
		writeJSON(w, http.StatusOK, models.QueryResponse{Error: "failed to answer the question"})
		return
	}

	s.metrics.QueriesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, models.QueryResponse{Answer: answer})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg models.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := scraper.HandleMessage(r.Context(), msg, s.deps.Fetcher, s.deps.Selectors)
	switch {
	case errors.Is(err, scraper.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, "unknown action")
	case errors.Is(err, scraper.ErrNoPage):
		writeError(w, http.StatusBadRequest, "html or url is required")
	case err != nil:
		zap.L().Error("message failed", zap.String("url", msg.URL), zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not read the page")
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	vs, resolved := s.deps.Catalog.Lookup(chi.URLParam(r, "category"))

	pins := make([]models.VendorPin, 0, len(vs))
	for _, v := range vs {
		pins = append(pins, models.VendorPin{Lat: v.Lat, Lng: v.Lng, Name: v.Name, Rating: v.Rating, Type: v.Category})
	}
	center := s.deps.Catalog.Center
	writeJSON(w, http.StatusOK, models.VendorsResponse{
		Category: resolved,
		Center:   models.LatLng{Lat: center.Lat, Lng: center.Lng},
		Vendors:  pins,
	})
}

func (s *Server) handleTestVendors(w http.ResponseWriter, r *http.Request) {
	category := strings.ToLower(chi.URLParam(r, "category"))
	vs, resolved := s.deps.Catalog.Lookup(category)
	zap.L().Debug("vendor probe", zap.String("category", category), zap.String("resolved", resolved))
	writeJSON(w, http.StatusOK, models.TestVendorsResponse{Category: category, Resolved: resolved, Count: len(vs)})
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	if s.deps.Nearby == nil {
		writeError(w, http.StatusServiceUnavailable, "nearby search is not configured")
		return
	}

	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	radius := s.deps.DefaultRadius
	if raw := q.Get("radius"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "radius must be a positive integer")
			return
		}
		radius = n
	}

	res, err := s.deps.Nearby.Search(r.Context(), overpass.SearchParams{
		Lat: lat, Lon: lon, Radius: radius, Query: q.Get("query"),
	})
	if err != nil {
		zap.L().Error("nearby search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMapPage(w http.ResponseWriter, r *http.Request) {
	page := web.NewMapPage(s.renderer, chi.URLParam(r, "category"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.RenderMapPage(w, page); err != nil {
		zap.L().Error("template error", zap.Error(err))
	}
}

func (s *Server) handlePopupPage(w http.ResponseWriter, r *http.Request) {
	page := web.NewPopupPage(s.deps.PublicURL, chi.URLParam(r, "category"), s.deps.Catalog.City)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.RenderPopupPage(w, page); err != nil {
		zap.L().Error("template error", zap.Error(err))
	}
}
