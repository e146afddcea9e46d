package vendors

import (
	"fmt"

	"github.com/google/uuid"
)

// MarkerKind distinguishes the center marker from vendor markers.
type MarkerKind string

const (
	CenterMarker MarkerKind = "center"
	VendorMarker MarkerKind = "vendor"
)

// Marker is a pin placed on a Map.
type Marker struct {
	ID          string     `json:"id"`
	Kind        MarkerKind `json:"kind"`
	Point       Point      `json:"point"`
	Title       string     `json:"title"`
	Address     string     `json:"address,omitempty"`
	Description string     `json:"description,omitempty"`
	Rating      float64    `json:"rating,omitempty"`
	DistanceKm  string     `json:"distanceKm,omitempty"`
}

// Map is the marker layer of a map surface.
type Map struct {
	Center  Point
	Zoom    int
	markers []Marker
}

// NewMap returns an empty map centered on a point.
func NewMap(center Point, zoom int) *Map {
	return &Map{Center: center, Zoom: zoom}
}

// AddMarker places a marker and returns its id.
func (m *Map) AddMarker(mk Marker) string {
	if mk.ID == "" {
		mk.ID = uuid.NewString()
	}
	m.markers = append(m.markers, mk)
	return mk.ID
}

// ClearMarkers removes every marker.
func (m *Map) ClearMarkers() {
	m.markers = nil
}

// Markers returns a copy of the placed markers.
func (m *Map) Markers() []Marker {
	out := make([]Marker, len(m.markers))
	copy(out, m.markers)
	return out
}

// Renderer places catalog vendors on a map.
type Renderer struct {
	Catalog *Catalog
}

// NewRenderer returns a renderer over a catalog.
func NewRenderer(c *Catalog) *Renderer {
	return &Renderer{Catalog: c}
}

// Render replaces all markers with the center plus the vendors of category
// and returns the category actually shown.
func (r *Renderer) Render(m *Map, category string) string {
	m.ClearMarkers()

	m.AddMarker(Marker{
		Kind:  CenterMarker,
		Point: r.Catalog.Center,
		Title: fmt.Sprintf("You are here (%s City Center)", r.Catalog.City),
	})

	vs, resolved := r.Catalog.Lookup(category)
	for _, v := range vs {
		m.AddMarker(Marker{
			Kind:        VendorMarker,
			Point:       v.Point(),
			Title:       v.Name,
			Address:     v.Address,
			Description: v.Description,
			Rating:      v.Rating,
			DistanceKm:  r.Catalog.DistanceFromCenter(v),
		})
	}
	return resolved
}

// Card is a list entry for a vendor.
type Card struct {
	Name        string
	Description string
	Address     string
	DistanceKm  string
}

// Cards lists the vendors of a category with their distance from the center.
func (r *Renderer) Cards(category string) []Card {
	vs, _ := r.Catalog.Lookup(category)
	cards := make([]Card, 0, len(vs))
	for _, v := range vs {
		cards = append(cards, Card{
			Name:        v.Name,
			Description: v.Description,
			Address:     v.Address,
			DistanceKm:  r.Catalog.DistanceFromCenter(v),
		})
	}
	return cards
}
