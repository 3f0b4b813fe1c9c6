// Package editor holds map-editing sessions: one grid, one player, and the
// edit and movement operations a map editor front end drives.
package editor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hexpath/internal/path"
	"github.com/talgya/hexpath/internal/world"
)

// Radius bounds for editor maps.
const (
	MinRadius     = 2
	MaxRadius     = 12
	DefaultRadius = 6
)

// Session owns one map. All operations hold the session lock, so edits and
// searches never overlap.
type Session struct {
	ID string

	mu       sync.Mutex
	m        *world.Map
	player   world.HexCoord
	lastUsed time.Time
}

// Snapshot is a consistent copy of session state.
type Snapshot struct {
	ID     string
	Map    *world.Map
	Player world.HexCoord
	Radius int
}

// NewSession creates a session with a fresh plains map. The radius is
// clamped to [MinRadius, MaxRadius].
func NewSession(radius int) *Session {
	return &Session{
		ID:       uuid.NewString(),
		m:        world.Generate(clampRadius(radius)),
		player:   world.Origin,
		lastUsed: time.Now(),
	}
}

func clampRadius(r int) int {
	return max(MinRadius, min(MaxRadius, r))
}

func (s *Session) touch() {
	s.lastUsed = time.Now()
}

// LastUsed returns when the session last handled an operation.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Paint sets the terrain of one tile.
func (s *Session) Paint(c world.HexCoord, t world.Terrain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.m.SetTerrain(c, t)
}

// ToggleRoad flips the road on one tile.
func (s *Session) ToggleRoad(c world.HexCoord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.m.ToggleRoad(c)
}

// Preview searches from the player to goal without moving.
func (s *Session) Preview(goal world.HexCoord) path.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return path.Search(s.player, goal, s.m)
}

// Move searches from the player to goal and, if a path exists, moves the
// player to the goal. An unreachable goal leaves the player where it was.
func (s *Session) Move(goal world.HexCoord) path.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	res := path.Search(s.player, goal, s.m)
	if res.Reached {
		s.player = goal
	}
	return res
}

// Resize grows or shrinks the map by delta within the radius bounds. A real
// change regenerates a blank map and returns the player to the origin.
// It returns the resulting radius and whether anything changed.
func (s *Session) Resize(delta int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	next := clampRadius(s.m.Radius + delta)
	if next == s.m.Radius {
		return next, false
	}
	s.m = world.Generate(next)
	s.player = world.Origin
	return next, true
}

// Reset regenerates a blank map at the current radius.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.m = world.Generate(s.m.Radius)
	s.player = world.Origin
}

// Regenerate replaces the map with a fresh one carrying the proposals.
func (s *Session) Regenerate(proposals []world.Proposal) world.MergeReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	m := world.Generate(s.m.Radius)
	rep := world.ApplyProposals(m, proposals)
	s.m = m
	s.player = world.Origin
	return rep
}

// Radius returns the current map radius.
func (s *Session) Radius() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Radius
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:     s.ID,
		Map:    s.m.Clone(),
		Player: s.player,
		Radius: s.m.Radius,
	}
}
