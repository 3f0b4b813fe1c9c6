// Package api provides the HTTP API for editor sessions: map editing, path
// previews, player movement and terrain generation.
// Session endpoints are public. Admin endpoints require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexpath/internal/editor"
	"github.com/talgya/hexpath/internal/llm"
	"github.com/talgya/hexpath/internal/path"
	"github.com/talgya/hexpath/internal/persistence"
	"github.com/talgya/hexpath/internal/world"
)

const maxBodyBytes = 64 << 10

// Proposal sources reported by the generate endpoint.
const (
	SourceCache = "cache"
	SourceLLM   = "llm"
	SourceNoise = "noise"
	SourceError = "error"
)

// Server serves editor sessions over HTTP.
type Server struct {
	Sessions      *editor.Registry
	LLM           *llm.Client
	DB            *persistence.DB // Proposal cache. Nil disables caching.
	Port          int
	AdminKey      string   // Bearer token for admin endpoints. Empty = admin disabled.
	CORSOrigins   []string // Allowed in addition to localhost dev servers.
	DefaultRadius int
	GenConfig     func(radius int) world.GenConfig // Noise fallback settings.

	// Generate requests per IP per minute. Zero means 6.
	GeneratePerMinute int

	Metrics *Metrics

	started time.Time
	limiter *RateLimiter
	httpSrv *http.Server
}

// Handler builds the routed, instrumented handler. Start calls it; tests
// use it with httptest.
func (s *Server) Handler() http.Handler {
	if s.Sessions == nil {
		s.Sessions = editor.NewRegistry(0)
	}
	if s.Metrics == nil {
		s.Metrics = NewMetrics(s.Sessions.Len)
	}
	if s.GenConfig == nil {
		s.GenConfig = func(radius int) world.GenConfig {
			cfg := world.DefaultGenConfig()
			cfg.Radius = radius
			return cfg
		}
	}
	if s.DefaultRadius == 0 {
		s.DefaultRadius = editor.DefaultRadius
	}
	if s.GeneratePerMinute == 0 {
		s.GeneratePerMinute = 6
	}
	if s.limiter == nil {
		s.limiter = NewRateLimiter(s.GeneratePerMinute, time.Minute)
	}
	if s.started.IsZero() {
		s.started = time.Now()
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/terrains", s.handleTerrains)
	mux.HandleFunc("GET /api/v1/generations", s.handleGenerations)
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)

	// Session endpoints.
	mux.HandleFunc("GET /api/v1/session/{id}", s.withSession(s.handleGetSession))
	mux.HandleFunc("DELETE /api/v1/session/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/v1/session/{id}/path", s.withSession(s.handlePath))
	mux.HandleFunc("POST /api/v1/session/{id}/paint", s.withSession(s.handlePaint))
	mux.HandleFunc("POST /api/v1/session/{id}/road", s.withSession(s.handleRoad))
	mux.HandleFunc("POST /api/v1/session/{id}/move", s.withSession(s.handleMove))
	mux.HandleFunc("POST /api/v1/session/{id}/radius", s.withSession(s.handleRadius))
	mux.HandleFunc("POST /api/v1/session/{id}/reset", s.withSession(s.handleReset))
	mux.HandleFunc("POST /api/v1/session/{id}/generate",
		RateLimitMiddleware(s.limiter, s.withSession(s.handleGenerate)))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("POST /api/v1/admin/purge", s.adminOnly(s.handlePurge))

	mux.Handle("GET /metrics", s.Metrics.Handler())

	return s.Metrics.Instrument(corsMiddleware(s.CORSOrigins, mux))
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "llm", s.LLM.Enabled(), "cache", s.DB != nil)

	go s.limiter.RunCleanup(ctx)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(extra []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range extra {
		allowedOrigins[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no HEXPATH_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *editor.Session)

// withSession resolves the {id} path value, answering 404 for unknown IDs.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.Sessions.Get(r.PathValue("id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		next(w, r, sess)
	}
}

// ── Wire types ─────────────────────────────────────────────────────────

type tileJSON struct {
	Q       int           `json:"q"`
	R       int           `json:"r"`
	S       int           `json:"s"`
	Terrain world.Terrain `json:"terrain"`
	Cost    *float64      `json:"cost"` // null when impassable
	HasRoad bool          `json:"has_road"`
}

type mapJSON struct {
	ID     string         `json:"id"`
	Radius int            `json:"radius"`
	Player world.HexCoord `json:"player"`
	Tiles  []tileJSON     `json:"tiles"`
}

type pathJSON struct {
	Path     []world.HexCoord `json:"path"`
	Cost     *float64         `json:"cost"`
	Expanded int              `json:"expanded"`
	Reached  bool             `json:"reached"`
	Player   world.HexCoord   `json:"player"`
}

type coordRequest struct {
	Q *int `json:"q"`
	R *int `json:"r"`
}

func (c coordRequest) coord() (world.HexCoord, bool) {
	if c.Q == nil || c.R == nil {
		return world.HexCoord{}, false
	}
	return world.NewHexCoord(*c.Q, *c.R), true
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func snapshotJSON(snap editor.Snapshot) mapJSON {
	coords := world.Disk(world.Origin, snap.Radius)
	tiles := make([]tileJSON, 0, len(coords))
	for _, c := range coords {
		h := snap.Map.Get(c)
		if h == nil {
			continue
		}
		tiles = append(tiles, tileJSON{
			Q:       c.Q,
			R:       c.R,
			S:       c.S(),
			Terrain: h.Terrain(),
			Cost:    finite(h.Cost()),
			HasRoad: h.HasRoad(),
		})
	}
	return mapJSON{ID: snap.ID, Radius: snap.Radius, Player: snap.Player, Tiles: tiles}
}

func resultJSON(res path.Result, player world.HexCoord) pathJSON {
	p := res.Path
	if p == nil {
		p = []world.HexCoord{}
	}
	return pathJSON{
		Path:     p,
		Cost:     finite(res.Cost),
		Expanded: res.Expanded,
		Reached:  res.Reached,
		Player:   player,
	}
}

// decodeBody reads a JSON body into dst. An empty body is allowed when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
	return false
}

// ── Handlers ───────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":        "hexpath",
		"sessions":    s.Sessions.Len(),
		"llm_enabled": s.LLM.Enabled(),
		"cache":       s.DB != nil,
		"started":     humanize.Time(s.started),
	}
	if s.DB != nil {
		if stats, err := s.DB.Stats(); err == nil {
			status["cache_entries"] = stats.Entries
			status["generations"] = stats.Generations
		} else {
			slog.Warn("cache stats failed", "error", err)
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleTerrains(w http.ResponseWriter, r *http.Request) {
	type terrainEntry struct {
		Name     world.Terrain `json:"name"`
		Label    string        `json:"label"`
		Cost     *float64      `json:"cost"`
		Blocking bool          `json:"blocking"`
	}
	all := world.AllTerrains()
	entries := make([]terrainEntry, 0, len(all))
	for _, t := range all {
		entries = append(entries, terrainEntry{
			Name:     t,
			Label:    t.Label(),
			Cost:     finite(t.BaseCost()),
			Blocking: t.Blocking(),
		})
	}
	writeJSON(w, map[string]any{
		"terrains":  entries,
		"road_cost": world.RoadCost,
	})
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "generation log disabled", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 200)
	}
	gens, err := s.DB.RecentGenerations(limit)
	if err != nil {
		slog.Error("recent generations", "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, gens)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Radius *int `json:"radius"`
	}
	if !decodeBody(w, r, &req, true) {
		return
	}
	radius := s.DefaultRadius
	if req.Radius != nil {
		radius = *req.Radius
	}
	sess := s.Sessions.Create(radius)
	slog.Info("session created", "id", sess.ID, "radius", sess.Radius(), "live", s.Sessions.Len())

	w.Header().Set("Location", "/api/v1/session/"+sess.ID)
	writeJSONStatus(w, http.StatusCreated, snapshotJSON(sess.Snapshot()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess *editor.Session) {
	writeJSON(w, snapshotJSON(sess.Snapshot()))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.Delete(r.PathValue("id")) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request, sess *editor.Session) {
	q, errQ := strconv.Atoi(r.URL.Query().Get("q"))
	rr, errR := strconv.Atoi(r.URL.Query().Get("r"))
	if errQ != nil || errR != nil {
		http.Error(w, "q and r query parameters must be integers", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res := sess.Preview(world.NewHexCoord(q, rr))
	s.Metrics.ObserveSearch(res, time.Since(start))
	writeJSON(w, resultJSON(res, sess.Snapshot().Player))
}

func (s *Server) handlePaint(w http.ResponseWriter, r *http.Request, sess *editor.Session) {
	var req struct {
		coordRequest
		Terrain string `json:"terrain"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}
	c, ok := req.coord()
	if !ok {
		http.Error(w, "q and r are required", http.StatusBadRequest)
		return
	}
	t, ok := world.ParseTerrain(req.Terrain)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown terrain %q", req.Terrain), http.StatusBadRequest)
		return
	}
	if err := sess.Paint(c, t); err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, snapshotJSON(sess.Snapshot()))
}

func (s *Server) handleRoad(w http.ResponseWriter, r *http.Request, sess *editor.Session) {
	var req coordRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	c, ok := req.coord()
	if !ok {
		http.Error(w, "q and r are required", http.StatusBadRequest)
		return
	}
	if err := sess.ToggleRoad(c); err != nil {
		writeEditError(w, err)
		return
	}
	writeJSON(w, snapshotJSON(sess.Snapshot()))
}

func writeEditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, world.ErrOutOfBounds):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, world.ErrBlocked):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request, sess *editor.Session) {
	var req coordRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	c, ok := req.coord()
	if !ok {
		http.Error(w, "q and r are required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res := sess.Move(c)
	s.Metrics.ObserveSearch(res, time.Since(start))
	writeJSON(w, resultJSON(res, sess.Snapshot().Player))
}

func (s *Server) handleRadius(w http.ResponseWriter, r *http.Request, sess *editor.Session) {
	var req struct {
		Delta int `json:"delta"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}
	radius, changed := sess.Resize(req.Delta)
	writeJSON(w, map[string]any{
		"radius":  radius,
		"changed": changed,
		"map":     snapshotJSON(sess.Snapshot()),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sess *editor.Session) {
	sess.Reset()
	writeJSON(w, snapshotJSON(sess.Snapshot()))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, sess *editor.Session) {
	var req struct {
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &req, false) {
		return
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		http.Error(w, "description is required", http.StatusBadRequest)
		return
	}

	// The LLM call runs outside the session lock; only the merge takes it.
	radius := sess.Radius()
	proposals, source, err := s.proposalsFor(r.Context(), desc, radius)
	if err != nil {
		s.Metrics.ObserveGenerate(SourceError)
		slog.Warn("terrain generation failed", "session", sess.ID, "error", err)
		http.Error(w, "terrain generation failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.Metrics.ObserveGenerate(source)

	rep := sess.Regenerate(proposals)
	slog.Info("terrain generated",
		"session", sess.ID,
		"source", source,
		"proposals", len(proposals),
		"applied", rep.Applied,
		"out_of_range", rep.OutOfRange,
		"unknown_terrain", rep.UnknownTerrain,
	)
	if s.DB != nil {
		err := s.DB.LogGeneration(persistence.Generation{
			SessionID:   sess.ID,
			Description: desc,
			Radius:      radius,
			Source:      source,
			Applied:     rep.Applied,
		})
		if err != nil {
			slog.Warn("generation log failed", "error", err)
		}
	}

	writeJSON(w, map[string]any{
		"source": source,
		"report": rep,
		"map":    snapshotJSON(sess.Snapshot()),
	})
}

// proposalsFor picks a proposal source: the cache, then the LLM (whose
// result is cached), then offline noise.
func (s *Server) proposalsFor(ctx context.Context, desc string, radius int) ([]world.Proposal, string, error) {
	if s.DB != nil {
		cached, ok, err := s.DB.GetProposals(desc, radius)
		if err != nil {
			slog.Warn("cache lookup failed", "error", err)
		} else if ok {
			return cached, SourceCache, nil
		}
	}

	if s.LLM.Enabled() {
		proposals, err := llm.GenerateTerrain(ctx, s.LLM, desc, radius)
		if err != nil {
			return nil, SourceError, err
		}
		if s.DB != nil {
			if err := s.DB.PutProposals(desc, radius, proposals); err != nil {
				slog.Warn("cache store failed", "error", err)
			}
		}
		return proposals, SourceLLM, nil
	}

	cfg := s.GenConfig(radius)
	cfg.Seed += descriptionSeed(desc)
	return editor.NoiseTerrain(cfg), SourceNoise, nil
}

// descriptionSeed gives each description its own stable noise field.
func descriptionSeed(desc string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(desc)))
	return int64(h.Sum64() >> 1)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "cache disabled", http.StatusServiceUnavailable)
		return
	}
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}
	n, err := s.DB.Purge(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		slog.Error("cache purge", "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	slog.Info("cache purged", "removed", n, "older_than_days", days)
	writeJSON(w, map[string]any{"removed": n})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
