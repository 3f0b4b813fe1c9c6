package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseProposals_Deterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a, sitesA := NoiseProposals(cfg)
	b, sitesB := NoiseProposals(cfg)

	assert.Equal(t, a, b)
	assert.Equal(t, sitesA, sitesB)
}

func TestNoiseProposals_InRangeAndKnown(t *testing.T) {
	cfg := SmallTestConfig()
	ps, _ := NoiseProposals(cfg)

	for _, p := range ps {
		assert.LessOrEqual(t, Distance(p.Coord(), Origin), cfg.Radius)
		assert.NotEqual(t, Origin, p.Coord())
		require.NotNil(t, p.Terrain)
		tr, ok := ParseTerrain(*p.Terrain)
		assert.True(t, ok, *p.Terrain)
		assert.NotEqual(t, TerrainPlains, tr)
	}

	m := Generate(cfg.Radius)
	rep := ApplyProposals(m, ps)
	assert.Equal(t, len(ps), rep.Applied)
	assert.Zero(t, rep.OutOfRange)
	assert.Zero(t, rep.UnknownTerrain)
}

func TestNoiseProposals_Sites(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 7
	ps, sites := NoiseProposals(cfg)
	require.NotEmpty(t, sites)
	assert.LessOrEqual(t, len(sites), cfg.Sites)
	assert.Equal(t, SiteBig, sites[0].Size)

	m := Generate(cfg.Radius)
	ApplyProposals(m, ps)
	for i, s := range sites {
		assert.Equal(t, s.Terrain(), m.Get(s.Coord).Terrain(), "site %d", i)
		for _, o := range sites[i+1:] {
			assert.GreaterOrEqual(t, Distance(s.Coord, o.Coord), minSiteDist)
		}
	}
}

func TestDeriveTerrain(t *testing.T) {
	cfg := DefaultGenConfig()
	assert.Equal(t, TerrainWater, deriveTerrain(0.1, 0.5, cfg))
	assert.Equal(t, TerrainMountain, deriveTerrain(0.9, 0.5, cfg))
	assert.Equal(t, TerrainDenseForest, deriveTerrain(0.5, 0.8, cfg))
	assert.Equal(t, TerrainForest, deriveTerrain(0.5, 0.6, cfg))
	assert.Equal(t, TerrainSand, deriveTerrain(0.5, 0.1, cfg))
	assert.Equal(t, TerrainPlains, deriveTerrain(0.5, 0.45, cfg))
}

func TestPlaceSites_OpenMap(t *testing.T) {
	m := Generate(5)
	sites := PlaceSites(m, 4, 1)
	require.Len(t, sites, 4)
	for _, s := range sites {
		assert.NotEqual(t, Origin, s.Coord)
		assert.NotNil(t, m.Get(s.Coord))
	}
	assert.Nil(t, PlaceSites(m, 0, 1))
}
