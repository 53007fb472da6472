// Package weatherclient is a client for the weather backend that serves the
// map configuration and per-layer GeoJSON overlays.
package weatherclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// MapConfig is the document served at /api/config.
type MapConfig struct {
	AccessToken   string    `json:"mapbox_access_token"`
	DefaultCenter []float64 `json:"default_center,omitempty"`
	DefaultZoom   float64   `json:"default_zoom,omitempty"`
	DefaultPitch  float64   `json:"default_pitch,omitempty"`
}

// BackendError is an application-level failure reported in a response body's
// "error" field.
type BackendError struct {
	Path    string
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %s", e.Path, e.Message)
}

// Client provides access to the weather backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the backend at baseURL.
func New(baseURL string) *Client {
	return NewWithHTTP(baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewWithHTTP creates a client with a custom HTTP client.
func NewWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Config fetches the map configuration.
func (c *Client) Config(ctx context.Context) (MapConfig, error) {
	body, _, err := c.get(ctx, "/api/config")
	if err != nil {
		return MapConfig{}, err
	}
	var cfg MapConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return MapConfig{}, fmt.Errorf("decoding /api/config: %w", err)
	}
	return cfg, nil
}

// Layer fetches the overlay data for a layer identifier.
// A body carrying an "error" field yields a *BackendError regardless of the
// HTTP status.
func (c *Client) Layer(ctx context.Context, layerID string) (*geojson.FeatureCollection, error) {
	path := "/api/weather/layers/" + url.PathEscape(layerID)
	body, status, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error != nil {
		return nil, &BackendError{Path: path, Status: status, Message: *probe.Error}
	}
	if status != http.StatusOK {
		return nil, &BackendError{Path: path, Status: status, Message: http.StatusText(status)}
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return fc, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading %s: %w", path, err)
	}
	return body, resp.StatusCode, nil
}
