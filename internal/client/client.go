// Package client is a small typed client for the hexpath HTTP API. The
// probe command uses it to drive sessions against a running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Tile mirrors one entry of a session map.
type Tile struct {
	Q       int      `json:"q"`
	R       int      `json:"r"`
	S       int      `json:"s"`
	Terrain string   `json:"terrain"`
	Cost    *float64 `json:"cost"`
	HasRoad bool     `json:"has_road"`
}

// Passable reports whether the tile can be entered.
func (t Tile) Passable() bool { return t.Cost != nil }

// Coord is an axial coordinate.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// MapView mirrors GET /api/v1/session/{id}.
type MapView struct {
	ID     string `json:"id"`
	Radius int    `json:"radius"`
	Player Coord  `json:"player"`
	Tiles  []Tile `json:"tiles"`
}

// PathView mirrors the path preview and move responses.
type PathView struct {
	Path     []Coord  `json:"path"`
	Cost     *float64 `json:"cost"`
	Expanded int      `json:"expanded"`
	Reached  bool     `json:"reached"`
	Player   Coord    `json:"player"`
}

// MergeReport mirrors the generate report.
type MergeReport struct {
	Applied        int `json:"applied"`
	OutOfRange     int `json:"out_of_range"`
	UnknownTerrain int `json:"unknown_terrain"`
	Duplicates     int `json:"duplicates"`
}

// GenerateResult mirrors POST /api/v1/session/{id}/generate.
type GenerateResult struct {
	Source string      `json:"source"`
	Report MergeReport `json:"report"`
	Map    MapView     `json:"map"`
}

// Status mirrors GET /api/v1/status.
type Status struct {
	Name         string `json:"name"`
	Sessions     int    `json:"sessions"`
	LLMEnabled   bool   `json:"llm_enabled"`
	Cache        bool   `json:"cache"`
	CacheEntries int    `json:"cache_entries"`
	Generations  int    `json:"generations"`
	Started      string `json:"started"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// Client talks to one hexpath server.
type Client struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// New creates a Client for baseURL. adminKey may be empty.
func New(baseURL, adminKey string) *Client {
	return &Client{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AdminKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.AdminKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func sessionPath(id, suffix string) string {
	return "/api/v1/session/" + url.PathEscape(id) + suffix
}

// Status fetches server status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession starts a session with the given radius.
func (c *Client) CreateSession(ctx context.Context, radius int) (*MapView, error) {
	var m MapView
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", map[string]int{"radius": radius}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Session fetches the current map of a session.
func (c *Client) Session(ctx context.Context, id string) (*MapView, error) {
	var m MapView
	if err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteSession ends a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

// Paint sets the terrain of one tile.
func (c *Client) Paint(ctx context.Context, id string, at Coord, terrain string) (*MapView, error) {
	in := map[string]any{"q": at.Q, "r": at.R, "terrain": terrain}
	var m MapView
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "/paint"), in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ToggleRoad flips the road on one tile.
func (c *Client) ToggleRoad(ctx context.Context, id string, at Coord) (*MapView, error) {
	var m MapView
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "/road"), at, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Path previews a path from the player to goal.
func (c *Client) Path(ctx context.Context, id string, goal Coord) (*PathView, error) {
	q := url.Values{}
	q.Set("q", strconv.Itoa(goal.Q))
	q.Set("r", strconv.Itoa(goal.R))
	var p PathView
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "/path?"+q.Encode()), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Move walks the player to goal if it is reachable.
func (c *Client) Move(ctx context.Context, id string, goal Coord) (*PathView, error) {
	var p PathView
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "/move"), goal, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Generate regenerates the session map from a description.
func (c *Client) Generate(ctx context.Context, id, description string) (*GenerateResult, error) {
	var g GenerateResult
	in := map[string]string{"description": description}
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "/generate"), in, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Purge drops cache entries older than days. Needs the admin key.
func (c *Client) Purge(ctx context.Context, days int) (int64, error) {
	var out struct {
		Removed int64 `json:"removed"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/admin/purge?days="+strconv.Itoa(days), nil, &out)
	return out.Removed, err
}

// WaitReady polls the status endpoint with exponential backoff until it
// answers or ctx ends.
func (c *Client) WaitReady(ctx context.Context) error {
	backoff := 500 * time.Millisecond
	maxBackoff := 15 * time.Second
	for {
		if _, err := c.Status(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for API: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
