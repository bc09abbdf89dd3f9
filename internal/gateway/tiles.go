// Tile-status client: asks the tile server whether a georeferenced pyramid
// exists for a map and what extent it covers.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// TileStatus describes a generated tile pyramid.
type TileStatus struct {
	Bounds  orb.Bound `json:"-"`
	MinZoom int       `json:"minzoom"`
	MaxZoom int       `json:"maxzoom"`
}

// tileStatusWire is the endpoint's JSON shape; bounds arrive as a
// "minLng,minLat,maxLng,maxLat" string.
type tileStatusWire struct {
	Bounds  string `json:"bounds"`
	MinZoom int    `json:"minzoom"`
	MaxZoom int    `json:"maxzoom"`
}

// TileClient queries the tile-status endpoint.
type TileClient struct {
	baseURL string
	http    *http.Client
}

// NewTileClient constructs a tile-status client.
func NewTileClient(baseURL string, httpClient *http.Client) *TileClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &TileClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

// Status fetches the tile pyramid status for mapID. ErrNotFound means no
// tiles have been generated yet.
func (c *TileClient) Status(ctx context.Context, mapID string) (*TileStatus, error) {
	url := fmt.Sprintf("%s/tiles/%s/status", c.baseURL, mapID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if err := mapStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var wire tileStatusWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode tile status: %v", ErrRemoteUnavailable, err)
	}
	bounds, err := parseBounds(wire.Bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	return &TileStatus{Bounds: bounds, MinZoom: wire.MinZoom, MaxZoom: wire.MaxZoom}, nil
}

// parseBounds parses "minLng,minLat,maxLng,maxLat" into an orb.Bound.
func parseBounds(s string) (orb.Bound, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("malformed bounds %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("malformed bounds %q: %v", s, err)
		}
		vals[i] = f
	}
	b := orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return orb.Bound{}, fmt.Errorf("inverted bounds %q", s)
	}
	return b, nil
}
