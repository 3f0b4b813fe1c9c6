package world

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfBounds is returned when a mutation targets a coordinate that
	// is not part of the map.
	ErrOutOfBounds = errors.New("coordinate not in map")

	// ErrBlocked is returned when a road is toggled on blocking terrain.
	ErrBlocked = errors.New("tile is blocking terrain")
)

// Hex represents a single tile on the map. Its cost is always derived
// from terrain and road; there is no way to set it directly.
type Hex struct {
	Coord HexCoord

	terrain Terrain
	hasRoad bool
	cost    float64
}

func newHex(c HexCoord, t Terrain, road bool) *Hex {
	h := &Hex{Coord: c}
	h.set(t, road)
	return h
}

// set is the single place tile state changes.
func (h *Hex) set(t Terrain, road bool) {
	if t.Blocking() {
		road = false
	}
	h.terrain = t
	h.hasRoad = road
	h.cost = CostFor(t, road)
}

// Terrain returns the tile's terrain kind.
func (h *Hex) Terrain() Terrain { return h.terrain }

// HasRoad reports whether the tile carries a road.
func (h *Hex) HasRoad() bool { return h.hasRoad }

// Cost returns the cost of entering the tile, or Blocked.
func (h *Hex) Cost() float64 { return h.cost }

// Blocked reports whether the tile can never be entered.
func (h *Hex) Blocked() bool { return math.IsInf(h.cost, 1) }

// Map holds the complete hex grid.
type Map struct {
	Hexes  map[HexCoord]*Hex // All hexes keyed by coordinate
	Radius int
}

// Generate creates a map covering every coordinate with
// max(|q|, |r|, |s|) <= radius, all plains without roads.
func Generate(radius int) *Map {
	if radius < 0 {
		radius = 0
	}
	m := &Map{
		Hexes:  make(map[HexCoord]*Hex, 1+3*radius*(radius+1)),
		Radius: radius,
	}
	for q := -radius; q <= radius; q++ {
		r1 := max(-radius, -q-radius)
		r2 := min(radius, -q+radius)
		for r := r1; r <= r2; r++ {
			c := HexCoord{Q: q, R: r}
			m.Hexes[c] = newHex(c, TerrainPlains, false)
		}
	}
	return m
}

// Get returns the hex at the given coordinate, or nil if out of bounds.
func (m *Map) Get(coord HexCoord) *Hex {
	return m.Hexes[coord]
}

// Passable reports whether coord is on the map and not blocked.
func (m *Map) Passable(coord HexCoord) bool {
	h := m.Hexes[coord]
	return h != nil && !h.Blocked()
}

// SetTerrain paints terrain onto one tile. The road survives unless the new
// terrain is blocking.
func (m *Map) SetTerrain(coord HexCoord, t Terrain) error {
	h := m.Hexes[coord]
	if h == nil {
		return fmt.Errorf("set terrain at %s: %w", coord, ErrOutOfBounds)
	}
	h.set(t, h.hasRoad)
	return nil
}

// ToggleRoad flips the road flag on one passable tile.
func (m *Map) ToggleRoad(coord HexCoord) error {
	h := m.Hexes[coord]
	if h == nil {
		return fmt.Errorf("toggle road at %s: %w", coord, ErrOutOfBounds)
	}
	if h.terrain.Blocking() {
		return fmt.Errorf("toggle road at %s: %w", coord, ErrBlocked)
	}
	h.set(h.terrain, !h.hasRoad)
	return nil
}

// reset overwrites a tile's terrain and road in one step.
func (m *Map) reset(coord HexCoord, t Terrain, road bool) bool {
	h := m.Hexes[coord]
	if h == nil {
		return false
	}
	h.set(t, road)
	return true
}

// InBounds returns true if the coordinate is within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	return Distance(coord, Origin) <= m.Radius
}

// HexCount returns the total number of hexes in the map.
func (m *Map) HexCount() int {
	return len(m.Hexes)
}

// Clone returns a deep copy of the map.
func (m *Map) Clone() *Map {
	out := &Map{
		Hexes:  make(map[HexCoord]*Hex, len(m.Hexes)),
		Radius: m.Radius,
	}
	for c, h := range m.Hexes {
		cp := *h
		out.Hexes[c] = &cp
	}
	return out
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, hexes=%d)", m.Radius, m.HexCount())
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(m *Map) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, hex := range m.Hexes {
		counts[hex.terrain]++
	}
	return counts
}

// RoadCount returns the number of tiles carrying a road.
func RoadCount(m *Map) int {
	n := 0
	for _, hex := range m.Hexes {
		if hex.hasRoad {
			n++
		}
	}
	return n
}
