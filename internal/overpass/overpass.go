// Package overpass searches OpenStreetMap for shops near a point through the
// Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"mspro-labs/eco-buddy/internal/vendors"
)

const (
	// DefaultBaseURL is the public Overpass interpreter.
	DefaultBaseURL = "https://overpass-api.de/api/interpreter"
	// DefaultRadius is the search radius in meters.
	DefaultRadius = 5000
	// metersPerDegree approximates one degree of latitude.
	metersPerDegree = 111000.0
)

// keywordFilters map query keywords to shop tag filters. Order matters: the
// first keyword contained in the query wins.
var keywordFilters = []struct {
	keyword string
	filter  string
}{
	{"repair", `["shop"~"repair|service",i]`},
	{"car", `["shop"~"car_repair|auto",i]`},
	{"water bottle", `["shop"~"supermarket|convenience|drinks|water",i]`},
	{"bottle", `["shop"~"supermarket|convenience|drinks|water",i]`},
}

// SearchParams describe a nearby search.
type SearchParams struct {
	Lat    float64
	Lon    float64
	Radius int
	Query  string
}

// Vendor is one shop found near the search origin.
type Vendor struct {
	Name       string   `json:"name"`
	Shop       string   `json:"shop"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Relevance  int      `json:"relevance"`
}

// Result is the ranked search response.
type Result struct {
	Vendors []Vendor `json:"vendors"`
	Count   int      `json:"count"`
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom interpreter URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client talks to an Overpass interpreter.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an Overpass client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShopFilter picks the Overpass tag filter for a free-text query.
func ShopFilter(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, kf := range keywordFilters {
		if strings.Contains(q, kf.keyword) {
			return kf.filter
		}
	}
	if q != "" {
		return fmt.Sprintf(`["shop"~"%s",i]`, qlString.Replace(regexp.QuoteMeta(q)))
	}
	return `["shop"]`
}

// qlString escapes text for a double-quoted Overpass QL string.
var qlString = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// BoundingBox returns south, west, north, east around a point.
func BoundingBox(lat, lon float64, radiusMeters int) (float64, float64, float64, float64) {
	d := float64(radiusMeters) / metersPerDegree
	return lat - d, lon - d, lat + d, lon + d
}

// BuildQuery renders the Overpass QL for a search.
func BuildQuery(p SearchParams) string {
	s, w, n, e := BoundingBox(p.Lat, p.Lon, p.Radius)
	filter := ShopFilter(p.Query)
	bbox := fmt.Sprintf("(%f,%f,%f,%f)", s, w, n, e)

	var sb strings.Builder
	sb.WriteString("[out:json][timeout:25];\n(\n")
	for _, kind := range []string{"node", "way", "relation"} {
		fmt.Fprintf(&sb, "  %s%s%s;\n", kind, filter, bbox)
	}
	sb.WriteString(");\nout center;\n")
	return sb.String()
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type element struct {
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *latLon           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type response struct {
	Elements []element `json:"elements"`
}

// Search queries the interpreter and ranks the shops it returns.
func (c *Client) Search(ctx context.Context, p SearchParams) (*Result, error) {
	if p.Radius <= 0 {
		p.Radius = DefaultRadius
	}
	q := BuildQuery(p)
	zap.L().Debug("overpass query", zap.String("ql", q))

	form := url.Values{"data": {q}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var data response
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, eris.Wrap(err, "overpass: unmarshal response")
	}

	ranked := Rank(p, toVendors(data.Elements))
	return &Result{Vendors: ranked, Count: len(ranked)}, nil
}

func toVendors(elements []element) []Vendor {
	out := make([]Vendor, 0, len(elements))
	for _, el := range elements {
		v := Vendor{Name: tagOr(el.Tags, "name"), Shop: tagOr(el.Tags, "shop")}
		if el.Center != nil {
			lat, lon := el.Center.Lat, el.Center.Lon
			v.Lat, v.Lon = &lat, &lon
		} else {
			v.Lat, v.Lon = el.Lat, el.Lon
		}
		out = append(out, v)
	}
	return out
}

func tagOr(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok && v != "" {
		return v
	}
	return "Unknown"
}

// Rank scores vendors against the query and sorts them by relevance, then
// distance from the origin. Vendors without coordinates sort last.
func Rank(p SearchParams, vs []Vendor) []Vendor {
	q := strings.ToLower(strings.TrimSpace(p.Query))
	origin := vendors.Point{Lat: p.Lat, Lng: p.Lon}

	for i := range vs {
		v := &vs[i]
		v.Relevance, v.DistanceKm = 0, nil
		if v.Lat == nil || v.Lon == nil {
			continue
		}
		d := vendors.Haversine(origin, vendors.Point{Lat: *v.Lat, Lng: *v.Lon})
		v.DistanceKm = &d
		if q == "" {
			continue
		}
		if strings.Contains(strings.ToLower(v.Name), q) {
			v.Relevance++
		}
		if strings.Contains(strings.ToLower(v.Shop), q) {
			v.Relevance++
		}
	}

	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if a.DistanceKm == nil || b.DistanceKm == nil {
			return a.DistanceKm != nil && b.DistanceKm == nil
		}
		return *a.DistanceKm < *b.DistanceKm
	})
	return vs
}
