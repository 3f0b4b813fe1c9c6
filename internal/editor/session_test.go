package editor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexpath/internal/world"
)

func TestNewSession_ClampsRadius(t *testing.T) {
	assert.Equal(t, MinRadius, NewSession(0).Radius())
	assert.Equal(t, MaxRadius, NewSession(99).Radius())
	assert.Equal(t, 5, NewSession(5).Radius())

	a, b := NewSession(3), NewSession(3)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, world.Origin, a.Snapshot().Player)
}

func TestSession_MoveAndPreview(t *testing.T) {
	s := NewSession(3)
	goal := world.NewHexCoord(2, 0)

	res := s.Preview(goal)
	require.True(t, res.Reached)
	assert.Equal(t, world.Origin, s.Snapshot().Player, "preview does not move")

	res = s.Move(goal)
	require.True(t, res.Reached)
	assert.Equal(t, 2.0, res.Cost)
	assert.Equal(t, goal, s.Snapshot().Player)

	// Back home; the path now starts at the new position.
	res = s.Move(world.Origin)
	require.True(t, res.Reached)
	assert.Equal(t, goal, res.Path[0])
}

func TestSession_MoveUnreachable(t *testing.T) {
	s := NewSession(3)
	goal := world.NewHexCoord(1, 0)
	require.NoError(t, s.Paint(goal, world.TerrainWater))

	res := s.Move(goal)
	assert.False(t, res.Reached)
	assert.Nil(t, res.Path)
	assert.Equal(t, world.Origin, s.Snapshot().Player)

	res = s.Move(world.NewHexCoord(10, 0))
	assert.False(t, res.Reached)
}

func TestSession_PaintAndRoad(t *testing.T) {
	s := NewSession(2)
	c := world.NewHexCoord(1, -1)
	require.NoError(t, s.Paint(c, world.TerrainForest))
	require.NoError(t, s.ToggleRoad(c))

	h := s.Snapshot().Map.Get(c)
	assert.Equal(t, world.TerrainForest, h.Terrain())
	assert.Equal(t, world.RoadCost, h.Cost())

	assert.ErrorIs(t, s.Paint(world.NewHexCoord(7, 7), world.TerrainWall), world.ErrOutOfBounds)
	assert.ErrorIs(t, s.ToggleRoad(world.NewHexCoord(7, 7)), world.ErrOutOfBounds)
}

func TestSession_Resize(t *testing.T) {
	s := NewSession(MinRadius)
	require.True(t, s.Move(world.NewHexCoord(1, 0)).Reached)
	require.NoError(t, s.Paint(world.NewHexCoord(0, 1), world.TerrainWall))

	r, changed := s.Resize(-1)
	assert.False(t, changed)
	assert.Equal(t, MinRadius, r)
	assert.Equal(t, world.NewHexCoord(1, 0), s.Snapshot().Player, "no-op resize keeps state")

	r, changed = s.Resize(+1)
	assert.True(t, changed)
	assert.Equal(t, MinRadius+1, r)
	snap := s.Snapshot()
	assert.Equal(t, world.Origin, snap.Player)
	assert.Equal(t, 3*r*r+3*r+1, snap.Map.HexCount())
	assert.Equal(t, world.TerrainPlains, snap.Map.Get(world.NewHexCoord(0, 1)).Terrain())

	r, _ = s.Resize(100)
	assert.Equal(t, MaxRadius, r)
}

func TestSession_Reset(t *testing.T) {
	s := NewSession(4)
	require.NoError(t, s.Paint(world.NewHexCoord(1, 0), world.TerrainMountain))
	require.True(t, s.Move(world.NewHexCoord(2, 0)).Reached)

	s.Reset()
	snap := s.Snapshot()
	assert.Equal(t, 4, snap.Radius)
	assert.Equal(t, world.Origin, snap.Player)
	assert.Equal(t, world.TerrainPlains, snap.Map.Get(world.NewHexCoord(1, 0)).Terrain())
}

func TestSession_Regenerate(t *testing.T) {
	s := NewSession(3)
	require.True(t, s.Move(world.NewHexCoord(1, 1)).Reached)

	wall := "WALL"
	rep := s.Regenerate([]world.Proposal{
		{Q: 0, R: 0, Terrain: &wall},
		{Q: 1, R: 0, Terrain: &wall},
		{Q: 40, R: 0, Terrain: &wall},
	})
	assert.Equal(t, 2, rep.Applied)
	assert.Equal(t, 1, rep.OutOfRange)

	snap := s.Snapshot()
	assert.Equal(t, world.Origin, snap.Player)
	assert.False(t, snap.Map.Get(world.Origin).Blocked())
	assert.True(t, snap.Map.Get(world.NewHexCoord(1, 0)).Blocked())
}

func TestSession_SnapshotIsolated(t *testing.T) {
	s := NewSession(2)
	snap := s.Snapshot()
	require.NoError(t, s.Paint(world.NewHexCoord(1, 0), world.TerrainWall))
	assert.False(t, snap.Map.Get(world.NewHexCoord(1, 0)).Blocked())
}

func TestSession_ConcurrentUse(t *testing.T) {
	s := NewSession(5)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := world.NewHexCoord(i%3, 1)
			for j := 0; j < 50; j++ {
				_ = s.Paint(c, world.TerrainForest)
				_ = s.ToggleRoad(c)
				s.Preview(world.NewHexCoord(-4, 2))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, s.Radius())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(time.Minute)
	s := reg.Create(4)

	got, ok := reg.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, reg.Len())

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	// Nothing is idle yet.
	assert.Zero(t, reg.Sweep())

	reg.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, reg.Sweep())
	assert.Zero(t, reg.Len())

	s2 := reg.Create(2)
	assert.True(t, reg.Delete(s2.ID))
	assert.False(t, reg.Delete(s2.ID))
}

func TestRegistry_NoTTL(t *testing.T) {
	reg := NewRegistry(0)
	reg.Create(2)
	reg.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	assert.Zero(t, reg.Sweep())
	assert.Equal(t, 1, reg.Len())
}

func TestNoiseTerrain_RoadsConnectSites(t *testing.T) {
	cfg := world.SmallTestConfig()
	cfg.Radius = 6
	proposals := NoiseTerrain(cfg)
	_, sites := world.NoiseProposals(cfg)

	m := world.Generate(cfg.Radius)
	rep := world.ApplyProposals(m, proposals)
	assert.Zero(t, rep.OutOfRange)
	assert.Zero(t, rep.UnknownTerrain)

	for _, p := range proposals {
		if p.HasRoad != nil && *p.HasRoad {
			assert.False(t, m.Get(p.Coord()).Blocked(), "road on blocked tile %s", p.Coord())
		}
	}
	for _, site := range sites {
		assert.Equal(t, site.Terrain(), m.Get(site.Coord).Terrain())
	}
	assert.False(t, m.Get(world.Origin).HasRoad())
}
