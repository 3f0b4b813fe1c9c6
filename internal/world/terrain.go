package world

import (
	"fmt"
	"math"
	"strings"
)

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainPlains        Terrain = iota // Default passable terrain
	TerrainForest                       // Light forest
	TerrainDenseForest                  // Heavy forest
	TerrainMountain                     // Slow but passable
	TerrainWater                        // Impassable
	TerrainSand                         // Slightly slower than plains
	TerrainWall                         // Indestructible obstacle
	TerrainSmallBuilding                // Passable, plains cost
	TerrainBigBuilding                  // Passable, plains cost
)

// NumTerrains is the size of the closed terrain set.
const NumTerrains = int(TerrainBigBuilding) + 1

// Blocked is the cost of an impassable tile.
var Blocked = math.Inf(1)

// RoadCost replaces the base cost of any passable tile carrying a road.
const RoadCost = 0.75

// MinStepCost is the cheapest cost of entering any tile.
const MinStepCost = RoadCost

type terrainInfo struct {
	name  string // wire name
	label string
	cost  float64
}

var terrainTable = [NumTerrains]terrainInfo{
	TerrainPlains:        {"PLAINS", "Plains", 1},
	TerrainForest:        {"FOREST", "Light Forest", 2},
	TerrainDenseForest:   {"DENSE_FOREST", "Dense Forest", 3},
	TerrainMountain:      {"MOUNTAIN", "Mountain", 4},
	TerrainWater:         {"WATER", "Water", math.Inf(1)},
	TerrainSand:          {"SAND", "Sand", 1.5},
	TerrainWall:          {"WALL", "Wall", math.Inf(1)},
	TerrainSmallBuilding: {"SMALL_BUILDING", "Small Building", 1},
	TerrainBigBuilding:   {"BIG_BUILDING", "Big Building", 1},
}

// Valid reports whether t is one of the known terrain kinds.
func (t Terrain) Valid() bool {
	return int(t) < NumTerrains
}

// BaseCost returns the traversal cost of t without a road, or Blocked.
// Unknown values are treated as blocking.
func (t Terrain) BaseCost() float64 {
	if !t.Valid() {
		return Blocked
	}
	return terrainTable[t].cost
}

// Blocking reports whether t can never be entered.
func (t Terrain) Blocking() bool {
	return math.IsInf(t.BaseCost(), 1)
}

// String returns the wire name (e.g. "DENSE_FOREST").
func (t Terrain) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Terrain(%d)", uint8(t))
	}
	return terrainTable[t].name
}

// Label returns a human-readable name for the terrain.
func (t Terrain) Label() string {
	if !t.Valid() {
		return "Unknown"
	}
	return terrainTable[t].label
}

// MarshalText encodes the wire name.
func (t Terrain) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal terrain: unknown value %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a wire name. Unknown names are an error here;
// fail-soft callers use ParseTerrain instead.
func (t *Terrain) UnmarshalText(b []byte) error {
	v, ok := ParseTerrain(string(b))
	if !ok {
		return fmt.Errorf("unmarshal terrain: unknown name %q", string(b))
	}
	*t = v
	return nil
}

// ParseTerrain looks up a terrain by wire name, case-insensitively.
// It returns TerrainPlains and false for unknown names.
func ParseTerrain(name string) (Terrain, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, info := range terrainTable {
		if info.name == name {
			return Terrain(i), true
		}
	}
	return TerrainPlains, false
}

// AllTerrains returns every terrain kind in declaration order.
func AllTerrains() []Terrain {
	out := make([]Terrain, NumTerrains)
	for i := range out {
		out[i] = Terrain(i)
	}
	return out
}

// CostFor derives a tile's cost from its terrain and road flag. Roads never
// lower the cost of blocking terrain.
func CostFor(t Terrain, hasRoad bool) float64 {
	base := t.BaseCost()
	if math.IsInf(base, 1) {
		return Blocked
	}
	if hasRoad {
		return RoadCost
	}
	return base
}
