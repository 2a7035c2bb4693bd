// Package search resolves free-text place queries against an external
// geocoding endpoint.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/memomap/memomap/internal/geo"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
)

// Result is one geocoded place candidate.
type Result struct {
	Position    model.Position
	DisplayName string
}

// nominatimResult mirrors the geocoder's JSON response. Coordinates arrive
// as strings.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Client queries a Nominatim-style geocoding endpoint. Lookups never fail
// from the caller's point of view: transport errors, bad payloads, and empty
// responses all come back as an empty result list, logged but not surfaced.
type Client struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
	log        *logging.SlogManager
}

// New creates a new search client.
func New(endpoint string, maxResults int, timeout time.Duration, logManager *logging.SlogManager) *Client {
	if maxResults <= 0 {
		maxResults = 8
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		log:        logManager,
	}
}

// Search geocodes a free-text query. A non-nil viewport biases results
// toward the visible map area without excluding matches outside it.
func (c *Client) Search(ctx context.Context, query string, viewport *geo.Viewport) []Result {
	logger := c.log.Logger()

	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", c.maxResults))
	if viewport != nil && viewport.Valid() {
		params.Set("viewbox", viewport.ViewboxParam())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		logger.Error("Search request build failed", "query", query, "error", err)
		return []Result{}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Search request failed", "query", query, "error", err)
		return []Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("Search returned non-OK status", "query", query, "status", resp.StatusCode)
		return []Result{}
	}

	var raw []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		logger.Warn("Search response decode failed", "query", query, "error", err)
		return []Result{}
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		pos, err := geo.PositionFromString(r.Lat + "," + r.Lon)
		if err != nil {
			logger.Debug("Skipping result with bad coordinates", "lat", r.Lat, "lon", r.Lon)
			continue
		}
		results = append(results, Result{
			Position:    pos,
			DisplayName: r.DisplayName,
		})
		if len(results) == c.maxResults {
			break
		}
	}

	logger.Debug("Search complete", "query", query, "results", len(results))
	return results
}
