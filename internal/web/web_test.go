package web

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/eco-buddy/internal/vendors"
)

func TestNewMapPage(t *testing.T) {
	r := vendors.NewRenderer(vendors.Default())

	p := NewMapPage(r, "Clothing")
	assert.Equal(t, "clothing", p.Category)
	assert.Equal(t, "Hyderabad", p.City)
	assert.Equal(t, vendors.CityCenter, p.Center)
	assert.Len(t, p.Markers, 3)
	assert.Len(t, p.Cards, 2)

	p = NewMapPage(r, "soap")
	assert.Equal(t, vendors.GeneralCategory, p.Category)
}

func TestRenderMapPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMapPage(&buf, NewMapPage(vendors.NewRenderer(vendors.Default()), "home")))
	out := buf.String()

	assert.Contains(t, out, "<title>Eco-Friendly Home Vendors in Hyderabad</title>")
	assert.Contains(t, out, "https://unpkg.com/leaflet@1.7.1/dist/leaflet.js")
	assert.Contains(t, out, "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	assert.Contains(t, out, "© OpenStreetMap contributors")
	assert.Contains(t, out, "marker-icon-2x-")
	assert.Contains(t, out, "<h3>Eco Home Store</h3>")
	assert.Contains(t, out, "1.1 km from city center")
	assert.Contains(t, out, `"title":"Green Living"`)
	assert.Contains(t, out, "You are here (Hyderabad City Center)")
}

func TestRenderMapPageEscapesCatalogText(t *testing.T) {
	c, err := vendors.NewCatalog("Hyderabad", vendors.CityCenter, []vendors.Vendor{
		{Name: `<script>alert("x")</script>`, Category: "general", Lat: 17.4, Lng: 78.5},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderMapPage(&buf, NewMapPage(vendors.NewRenderer(c), "general")))
	assert.False(t, strings.Contains(buf.String(), `<script>alert("x")</script>`))
}

func TestRenderPopupPage(t *testing.T) {
	p := NewPopupPage("http://127.0.0.1:8000/", " Beauty ", "Hyderabad")
	assert.Equal(t, "http://127.0.0.1:8000/vendors/beauty", p.VendorsURL)

	var buf bytes.Buffer
	require.NoError(t, RenderPopupPage(&buf, p))
	out := buf.String()

	assert.Contains(t, out, "Eco-Friendly Beauty Vendors in Hyderabad")
	assert.Contains(t, out, `"http://127.0.0.1:8000/vendors/beauty"`)
	assert.Contains(t, out, "Error loading vendor data. Please try again.")
	assert.Contains(t, out, "p.style.color = 'red'")
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Electronics", titleCase("electronics"))
	assert.Equal(t, "", titleCase(""))
}
