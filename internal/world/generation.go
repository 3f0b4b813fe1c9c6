// Offline terrain generation using layered simplex noise.
// Produces the same proposal batches an external terrain service would, so
// the map can be regenerated without one.
package world

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds noise generation parameters.
type GenConfig struct {
	Radius      int     // Hex grid radius
	Seed        int64   // Random seed (0 = random)
	WaterLevel  float64 // Elevation threshold for water (0.0–1.0)
	MountainLvl float64 // Elevation threshold for mountains (0.0–1.0)
	Sites       int     // Building sites to place
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:      6,
		Seed:        0,
		WaterLevel:  0.28,
		MountainLvl: 0.74,
		Sites:       4,
	}
}

// SmallTestConfig returns a tiny deterministic map for tests.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:      4,
		Seed:        42,
		WaterLevel:  0.30,
		MountainLvl: 0.75,
		Sites:       3,
	}
}

// NoiseProposals generates a terrain batch for a map of cfg.Radius and the
// building sites it placed. Only non-plains tiles are proposed. Roads are
// left to the caller, which can connect sites with a pathfinder.
func NoiseProposals(cfg GenConfig) ([]Proposal, []Site) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	m := Generate(cfg.Radius)
	for coord := range m.Hexes {
		if coord == Origin {
			continue
		}
		x, y := coord.ToPixel(1)
		elev := octaveNoise(elevNoise, x, y, 4, 0.12, 0.5)
		moist := octaveNoise(moistNoise, x, y, 3, 0.09, 0.5)
		m.reset(coord, deriveTerrain(elev, moist, cfg), false)
	}

	sites := PlaceSites(m, cfg.Sites, seed)
	for _, s := range sites {
		m.reset(s.Coord, s.Terrain(), false)
	}

	coords := make([]HexCoord, 0, len(m.Hexes))
	for c, h := range m.Hexes {
		if h.terrain != TerrainPlains {
			coords = append(coords, c)
		}
	}
	sortCoords(coords)

	proposals := make([]Proposal, 0, len(coords))
	for _, c := range coords {
		proposals = append(proposals, NewProposal(c, m.Hexes[c].terrain, false))
	}
	return proposals, sites
}

// deriveTerrain determines terrain type from elevation and moisture.
func deriveTerrain(elev, moist float64, cfg GenConfig) Terrain {
	if elev < cfg.WaterLevel {
		return TerrainWater
	}
	if elev > cfg.MountainLvl {
		return TerrainMountain
	}
	if moist > 0.68 {
		return TerrainDenseForest
	}
	if moist > 0.55 {
		return TerrainForest
	}
	if moist < 0.3 {
		return TerrainSand
	}
	return TerrainPlains
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// sortCoords orders coordinates by q then r so generated batches are stable.
func sortCoords(cs []HexCoord) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Q != cs[j].Q {
			return cs[i].Q < cs[j].Q
		}
		return cs[i].R < cs[j].R
	})
}

// clamp01 keeps noise-derived scores inside [0, 1].
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
