package web

import (
	"embed"
	"html/template"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"mspro-labs/eco-buddy/internal/vendors"
)

// Embed the 'templates' directory.
// The path is relative to this file (internal/web/web.go).
//
//go:embed templates
var Assets embed.FS

// DefaultZoom shows the whole city.
const DefaultZoom = 12

// Helper for templates
var funcMap = template.FuncMap{
	"title": titleCase,
}

var pages = template.Must(template.New("pages").Funcs(funcMap).ParseFS(Assets, "templates/*.html"))

// MapPage is the embedded map variant: markers are baked into the page.
type MapPage struct {
	Category string
	City     string
	Center   vendors.Point
	Zoom     int
	Markers  []vendors.Marker
	Cards    []vendors.Card
}

// NewMapPage renders a category onto a fresh map and collects the page data.
func NewMapPage(r *vendors.Renderer, category string) MapPage {
	m := vendors.NewMap(r.Catalog.Center, DefaultZoom)
	resolved := r.Render(m, category)
	return MapPage{
		Category: resolved,
		City:     r.Catalog.City,
		Center:   m.Center,
		Zoom:     m.Zoom,
		Markers:  m.Markers(),
		Cards:    r.Cards(resolved),
	}
}

// RenderMapPage writes the embedded map page.
func RenderMapPage(w io.Writer, p MapPage) error {
	if err := pages.ExecuteTemplate(w, "map.html", p); err != nil {
		return eris.Wrap(err, "web: render map page")
	}
	return nil
}

// PopupPage is the popup map variant: the page fetches its vendors itself.
type PopupPage struct {
	Category   string
	City       string
	VendorsURL string
}

// NewPopupPage points a popup page at the vendors endpoint of apiBase.
func NewPopupPage(apiBase, category, city string) PopupPage {
	cat := strings.ToLower(strings.TrimSpace(category))
	return PopupPage{
		Category:   cat,
		City:       city,
		VendorsURL: strings.TrimRight(apiBase, "/") + "/vendors/" + cat,
	}
}

// RenderPopupPage writes the popup map page.
func RenderPopupPage(w io.Writer, p PopupPage) error {
	if err := pages.ExecuteTemplate(w, "popup.html", p); err != nil {
		return eris.Wrap(err, "web: render popup page")
	}
	return nil
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
