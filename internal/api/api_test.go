package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/eco-buddy/internal/assistant"
	"mspro-labs/eco-buddy/internal/config"
	"mspro-labs/eco-buddy/internal/models"
	"mspro-labs/eco-buddy/internal/overpass"
)

type fakeAssistant struct {
	answer string
	err    error
	got    assistant.Request
}

func (f *fakeAssistant) Answer(_ context.Context, req assistant.Request) (string, error) {
	f.got = req
	return f.answer, f.err
}

type fakeNearby struct {
	got overpass.SearchParams
	err error
}

func (f *fakeNearby) Search(_ context.Context, p overpass.SearchParams) (*overpass.Result, error) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return &overpass.Result{Vendors: []overpass.Vendor{{Name: "Refill Point", Shop: "water"}}, Count: 1}, nil
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	cfg := config.ServerConfig{AllowedOrigins: []string{"chrome-extension://*"}, TimeoutSecs: 5}
	srv := httptest.NewServer(NewServer(cfg, deps).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestQuery(t *testing.T) {
	fa := &fakeAssistant{answer: "Pick the bamboo one. Find local vendors for home products in Hyderabad"}
	srv := newTestServer(t, Deps{Assistant: fa})

	body := `{"query":"Is this eco-friendly?","context":{"name":"Bamboo Brush","asin":"B07XYZ1234"}}`
	resp, err := http.Post(srv.URL+"/query", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.QueryResponse
	decode(t, resp, &out)
	assert.Equal(t, fa.answer, out.Answer)
	assert.Empty(t, out.Error)
	assert.Equal(t, "Bamboo Brush", fa.got.Context.Name)
	assert.Equal(t, "B07XYZ1234", fa.got.Context.ASIN)
}

func TestQueryErrors(t *testing.T) {
	fa := &fakeAssistant{err: errors.New("model unavailable")}
	srv := newTestServer(t, Deps{Assistant: fa})

	resp, err := http.Post(srv.URL+"/query", "application/json", strings.NewReader(`{"query":"hi","context":{}}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out models.QueryResponse
	decode(t, resp, &out)
	assert.Empty(t, out.Answer)
	assert.NotEmpty(t, out.Error)

	resp, err = http.Post(srv.URL+"/query", "application/json", strings.NewReader(`{not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/query", "application/json", strings.NewReader(`{"query":"  "}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVendors(t *testing.T) {
	srv := newTestServer(t, Deps{})

	resp, err := http.Get(srv.URL + "/vendors/Electronics")
	require.NoError(t, err)
	var out models.VendorsResponse
	decode(t, resp, &out)
	assert.Equal(t, "electronics", out.Category)
	assert.Equal(t, 17.385, out.Center.Lat)
	require.Len(t, out.Vendors, 2)
	assert.Equal(t, "EcoTech Solutions", out.Vendors[0].Name)
	assert.Equal(t, "electronics", out.Vendors[0].Type)

	resp, err = http.Get(srv.URL + "/vendors/soap")
	require.NoError(t, err)
	decode(t, resp, &out)
	assert.Equal(t, "general", out.Category)
}

func TestVendorsCategoryNamedLikeRoute(t *testing.T) {
	srv := newTestServer(t, Deps{Nearby: &fakeNearby{}})

	resp, err := http.Get(srv.URL + "/vendors/nearby")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out models.VendorsResponse
	decode(t, resp, &out)
	assert.Equal(t, "general", out.Category)
	assert.NotEmpty(t, out.Vendors)

	resp, err = http.Get(srv.URL + "/test-vendors/nearby")
	require.NoError(t, err)
	var probe models.TestVendorsResponse
	decode(t, resp, &probe)
	assert.Equal(t, "general", probe.Resolved)
}

func TestTestVendors(t *testing.T) {
	srv := newTestServer(t, Deps{})

	resp, err := http.Get(srv.URL + "/test-vendors/soap")
	require.NoError(t, err)
	var out models.TestVendorsResponse
	decode(t, resp, &out)
	assert.Equal(t, models.TestVendorsResponse{Category: "soap", Resolved: "general", Count: 2}, out)
}

func TestNearby(t *testing.T) {
	fn := &fakeNearby{}
	srv := newTestServer(t, Deps{Nearby: fn, DefaultRadius: 2500})

	resp, err := http.Get(srv.URL + "/vendors?lat=17.385&lon=78.4867&query=bottle")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out overpass.Result
	decode(t, resp, &out)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, overpass.SearchParams{Lat: 17.385, Lon: 78.4867, Radius: 2500, Query: "bottle"}, fn.got)

	resp, err = http.Get(srv.URL + "/vendors?lat=17.385&lon=78.4867&radius=900")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 900, fn.got.Radius)

	resp, err = http.Get(srv.URL + "/vendors?lat=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fn.err = errors.New("overpass: unexpected status 429")
	resp, err = http.Get(srv.URL + "/vendors?lat=1&lon=2")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestNearbyDisabled(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Get(srv.URL + "/vendors?lat=1&lon=2")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMessage(t *testing.T) {
	srv := newTestServer(t, Deps{Selectors: config.DefaultSelectors()})

	body := `{"action":"getProductInfo","url":"https://www.amazon.in/dp/B08N5WRWNW","html":"<span id=\"productTitle\">Jute Bag</span>"}`
	resp, err := http.Post(srv.URL+"/message", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		ProductInfo struct {
			Name string `json:"name"`
			ASIN string `json:"asin"`
		} `json:"productInfo"`
	}
	decode(t, resp, &out)
	assert.Equal(t, "Jute Bag", out.ProductInfo.Name)
	assert.Equal(t, "B08N5WRWNW", out.ProductInfo.ASIN)

	resp, err = http.Post(srv.URL+"/message", "application/json", strings.NewReader(`{"action":"ping"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/message", "application/json", strings.NewReader(`{"action":"getProductInfo","url":"https://www.amazon.in/dp/B08N5WRWNW"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "no fetcher configured")
}

func TestPages(t *testing.T) {
	srv := newTestServer(t, Deps{})

	resp, err := http.Get(srv.URL + "/map/beauty")
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(page), "Natural Beauty Hub")

	resp, err = http.Get(srv.URL + "/popup/beauty")
	require.NoError(t, err)
	page, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(page), `"/vendors/beauty"`)
}

func TestHealthMetricsAndCORS(t *testing.T) {
	srv := newTestServer(t, Deps{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health map[string]string
	decode(t, resp, &health)
	assert.Equal(t, "ok", health["status"])

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/vendors/home", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "chrome-extension://abcdef", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/vendors/{category}",status="200"}`)
}
