// Package geocode wraps the Nominatim geocoding service. Provider timeouts
// and service errors never surface as errors; both collapse to a not-found
// result so callers stay on the failure-as-value path.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lox/cityweather/internal/httputil"
	"github.com/lox/cityweather/internal/metrics"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

const userAgent = "cityweather/1.0"

type Coordinates struct {
	Lat float64
	Lon float64
}

type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a Nominatim client. An empty baseURL selects the public
// openstreetmap.org endpoint.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  httputil.NewClient(),
	}
}

// Geocode resolves a free-text place name to coordinates. Returns ok=false
// when the place is unknown or the provider call fails for any reason.
func (c *Client) Geocode(ctx context.Context, name string) (Coordinates, bool) {
	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", c.baseURL, url.QueryEscape(name))

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if !c.get(ctx, "forward", u, &results) {
		return Coordinates{}, false
	}
	if len(results) == 0 {
		return Coordinates{}, false
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lon: lon}, true
}

// ReverseCity resolves coordinates to a settlement name, preferring the
// richest label available: city, then town, then village.
func (c *Client) ReverseCity(ctx context.Context, lat, lon float64) (string, bool) {
	u := fmt.Sprintf("%s/reverse?lat=%f&lon=%f&format=json", c.baseURL, lat, lon)

	var result struct {
		Address struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
		} `json:"address"`
	}
	if !c.get(ctx, "reverse", u, &result) {
		return "", false
	}

	for _, name := range []string{result.Address.City, result.Address.Town, result.Address.Village} {
		if name != "" {
			return name, true
		}
	}
	return "", false
}

func (c *Client) get(ctx context.Context, kind, u string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("geocode: %s lookup: %v", kind, err)
		metrics.GeocodeLookupsTotal.WithLabelValues(kind, "error").Inc()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("geocode: %s lookup: status %d", kind, resp.StatusCode)
		metrics.GeocodeLookupsTotal.WithLabelValues(kind, "error").Inc()
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Printf("geocode: %s decode: %v", kind, err)
		metrics.GeocodeLookupsTotal.WithLabelValues(kind, "error").Inc()
		return false
	}

	metrics.GeocodeLookupsTotal.WithLabelValues(kind, "ok").Inc()
	return true
}
