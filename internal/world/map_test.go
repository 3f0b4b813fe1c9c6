package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_TileCount(t *testing.T) {
	for r := 0; r <= 8; r++ {
		m := Generate(r)
		assert.Equal(t, 3*r*r+3*r+1, m.HexCount(), "radius %d", r)
		assert.Equal(t, r, m.Radius)

		for c, h := range m.Hexes {
			assert.Equal(t, c, h.Coord)
			assert.LessOrEqual(t, Distance(c, Origin), r)
			assert.True(t, m.InBounds(c))
			assert.Equal(t, TerrainPlains, h.Terrain())
			assert.False(t, h.HasRoad())
			assert.Equal(t, 1.0, h.Cost())
			assert.False(t, h.Blocked())
		}
	}
}

func TestGenerate_NegativeRadius(t *testing.T) {
	m := Generate(-3)
	assert.Equal(t, 0, m.Radius)
	assert.Equal(t, 1, m.HexCount())
	assert.NotNil(t, m.Get(Origin))
}

func TestGet_Absent(t *testing.T) {
	m := Generate(2)
	assert.Nil(t, m.Get(NewHexCoord(3, 0)))
	assert.False(t, m.Passable(NewHexCoord(3, 0)))
	assert.False(t, m.InBounds(NewHexCoord(3, 0)))
}

func TestSetTerrain_RecomputesCost(t *testing.T) {
	m := Generate(2)
	c := NewHexCoord(1, 0)

	require.NoError(t, m.SetTerrain(c, TerrainMountain))
	assert.Equal(t, 4.0, m.Get(c).Cost())

	require.NoError(t, m.ToggleRoad(c))
	assert.Equal(t, RoadCost, m.Get(c).Cost())

	// Road survives a passable repaint.
	require.NoError(t, m.SetTerrain(c, TerrainSand))
	assert.True(t, m.Get(c).HasRoad())
	assert.Equal(t, RoadCost, m.Get(c).Cost())

	// Blocking terrain clears it.
	require.NoError(t, m.SetTerrain(c, TerrainWall))
	assert.False(t, m.Get(c).HasRoad())
	assert.True(t, m.Get(c).Blocked())

	require.NoError(t, m.SetTerrain(c, TerrainSand))
	assert.False(t, m.Get(c).HasRoad())
	assert.Equal(t, 1.5, m.Get(c).Cost())
}

func TestSetTerrain_TouchesOneTile(t *testing.T) {
	m := Generate(2)
	c := NewHexCoord(0, 1)
	require.NoError(t, m.SetTerrain(c, TerrainWater))

	for coord, h := range m.Hexes {
		if coord == c {
			continue
		}
		assert.Equal(t, TerrainPlains, h.Terrain(), "tile %s changed", coord)
	}
}

func TestToggleRoad_Idempotent(t *testing.T) {
	m := Generate(2)
	c := NewHexCoord(-1, 1)
	require.NoError(t, m.SetTerrain(c, TerrainForest))
	assert.Equal(t, 2.0, m.Get(c).Cost())

	require.NoError(t, m.ToggleRoad(c))
	assert.True(t, m.Get(c).HasRoad())
	assert.Equal(t, RoadCost, m.Get(c).Cost())
	assert.Less(t, m.Get(c).Cost(), 2.0)

	require.NoError(t, m.ToggleRoad(c))
	assert.False(t, m.Get(c).HasRoad())
	assert.Equal(t, 2.0, m.Get(c).Cost())
}

func TestMutations_OutOfBounds(t *testing.T) {
	m := Generate(1)
	before := m.Clone()
	c := NewHexCoord(5, 5)

	assert.ErrorIs(t, m.SetTerrain(c, TerrainWall), ErrOutOfBounds)
	assert.ErrorIs(t, m.ToggleRoad(c), ErrOutOfBounds)
	assert.Nil(t, m.Get(c))
	assert.Equal(t, before.HexCount(), m.HexCount())
}

func TestToggleRoad_OnBlocking(t *testing.T) {
	m := Generate(1)
	c := NewHexCoord(1, 0)
	require.NoError(t, m.SetTerrain(c, TerrainWater))

	assert.ErrorIs(t, m.ToggleRoad(c), ErrBlocked)
	assert.False(t, m.Get(c).HasRoad())
	assert.True(t, m.Get(c).Blocked())
}

func TestCostInvariant_AnySequence(t *testing.T) {
	m := Generate(1)
	c := NewHexCoord(0, -1)
	for _, tr := range AllTerrains() {
		for i := 0; i < 3; i++ {
			require.NoError(t, m.SetTerrain(c, tr))
			_ = m.ToggleRoad(c)
			h := m.Get(c)
			assert.Equal(t, CostFor(h.Terrain(), h.HasRoad()), h.Cost(), "%s step %d", tr, i)
			if tr.Blocking() {
				assert.False(t, h.HasRoad())
			}
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	m := Generate(2)
	cp := m.Clone()
	require.NoError(t, m.SetTerrain(NewHexCoord(1, 0), TerrainWall))

	assert.Equal(t, TerrainPlains, cp.Get(NewHexCoord(1, 0)).Terrain())
	assert.Equal(t, m.HexCount(), cp.HexCount())
}

func TestTerrainAndRoadCounts(t *testing.T) {
	m := Generate(1)
	require.NoError(t, m.SetTerrain(NewHexCoord(1, 0), TerrainForest))
	require.NoError(t, m.ToggleRoad(NewHexCoord(0, 1)))

	counts := TerrainCounts(m)
	assert.Equal(t, 6, counts[TerrainPlains])
	assert.Equal(t, 1, counts[TerrainForest])
	assert.Equal(t, 1, RoadCount(m))
	assert.Equal(t, "Map(radius=1, hexes=7)", m.String())
}
