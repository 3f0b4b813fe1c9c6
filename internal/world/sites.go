// Building site placement: picks spread-out passable tiles for buildings
// that generated roads can later connect.
package world

import (
	"math/rand"
	"sort"
)

// SiteSize categorizes building scale.
type SiteSize uint8

const (
	SiteSmall SiteSize = iota
	SiteBig
)

// Site is a generated building location.
type Site struct {
	Coord HexCoord
	Size  SiteSize
	Score float64 // Desirability score
}

// Terrain returns the building terrain for the site's size.
func (s Site) Terrain() Terrain {
	if s.Size == SiteBig {
		return TerrainBigBuilding
	}
	return TerrainSmallBuilding
}

const minSiteDist = 3

// PlaceSites finds up to n building locations on passable, non-origin tiles,
// at least minSiteDist apart. The best-scoring site becomes a big building.
func PlaceSites(m *Map, n int, seed int64) []Site {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed + 200))

	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored

	coords := make([]HexCoord, 0, len(m.Hexes))
	for coord := range m.Hexes {
		coords = append(coords, coord)
	}
	sortCoords(coords) // fixed rng draw order

	for _, coord := range coords {
		hex := m.Hexes[coord]
		if coord == Origin || hex.Blocked() {
			continue
		}
		if s := siteScore(m, coord, hex); s > 0 {
			// Small jitter so equal scores don't always favour the same corner.
			candidates = append(candidates, scored{coord, s + rng.Float64()*0.01})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		a, b := candidates[i].coord, candidates[j].coord
		if a.Q != b.Q {
			return a.Q < b.Q
		}
		return a.R < b.R
	})

	var sites []Site
	for _, c := range candidates {
		if len(sites) >= n {
			break
		}
		if tooClose(c.coord, sites, minSiteDist) {
			continue
		}
		size := SiteSmall
		if len(sites) == 0 {
			size = SiteBig
		}
		sites = append(sites, Site{Coord: c.coord, Size: size, Score: c.score})
	}
	return sites
}

// siteScore evaluates how desirable a hex is for a building.
// Prefers open plains with mostly passable surroundings.
func siteScore(m *Map, coord HexCoord, hex *Hex) float64 {
	score := 0.0

	switch hex.terrain {
	case TerrainPlains:
		score += 3.0
	case TerrainSand:
		score += 1.5
	case TerrainForest:
		score += 1.0
	default:
		return 0
	}

	open := 0
	for _, nc := range coord.Neighbors() {
		if m.Passable(nc) {
			open++
		}
	}
	if open < 2 {
		return 0
	}
	score += float64(open) * 0.25

	// Mild preference for tiles away from the rim.
	if m.Radius > 0 {
		score += clamp01(1 - float64(Distance(coord, Origin))/float64(m.Radius))
	}
	return score
}

func tooClose(coord HexCoord, existing []Site, minDist int) bool {
	for _, s := range existing {
		if Distance(coord, s.Coord) < minDist {
			return true
		}
	}
	return false
}
