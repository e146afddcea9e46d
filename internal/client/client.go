// Package client calls the query and vendor API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"mspro-labs/eco-buddy/internal/models"
)

// DefaultBaseURL is where the local query server listens.
const DefaultBaseURL = "http://127.0.0.1:8000"

// ErrAPI is returned when a query response carries an error field.
var ErrAPI = eris.New("client: api returned an error")

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client talks to the query server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL; empty means DefaultBaseURL. The default
// HTTP client has no timeout: a request lasts until its context is done.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// MapURL is the embedded map page for a category.
func (c *Client) MapURL(category string) string {
	return c.baseURL + "/map/" + url.PathEscape(category)
}

// Query sends one question with the current page context.
func (c *Client) Query(ctx context.Context, query string, pc models.ProductContext) (string, error) {
	payload, err := json.Marshal(models.QueryRequest{Query: query, Context: pc})
	if err != nil {
		return "", eris.Wrap(err, "client: encode query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "client: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	var out models.QueryResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", eris.Wrapf(ErrAPI, "client: %s", out.Error)
	}
	return out.Answer, nil
}

// ProductInfo asks the server to read a page, from inline HTML when given,
// otherwise by fetching pageURL.
func (c *Client) ProductInfo(ctx context.Context, pageURL, html string) (models.ProductContext, error) {
	payload, err := json.Marshal(models.Message{Action: models.ActionGetProductInfo, URL: pageURL, HTML: html})
	if err != nil {
		return models.ProductContext{}, eris.Wrap(err, "client: encode message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/message", bytes.NewReader(payload))
	if err != nil {
		return models.ProductContext{}, eris.Wrap(err, "client: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	var out models.MessageResponse
	if err := c.do(req, &out); err != nil {
		return models.ProductContext{}, err
	}
	return out.ProductInfo, nil
}

// Vendors fetches the vendor pins of a category.
func (c *Client) Vendors(ctx context.Context, category string) (*models.VendorsResponse, error) {
	var out models.VendorsResponse
	if err := c.get(ctx, "/vendors/"+url.PathEscape(category), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestVendors probes the vendor lookup for a category.
func (c *Client) TestVendors(ctx context.Context, category string) (*models.TestVendorsResponse, error) {
	var out models.TestVendorsResponse
	if err := c.get(ctx, "/test-vendors/"+url.PathEscape(category), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "client: create request")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "client: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "client: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("client: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "client: unmarshal response")
	}
	return nil
}
