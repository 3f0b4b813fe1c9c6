package path

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexpath/internal/world"
)

func hc(q, r int) world.HexCoord { return world.NewHexCoord(q, r) }

func TestFindPath_StraightLine(t *testing.T) {
	m := world.Generate(2)
	p := FindPath(hc(0, 0), hc(2, 0), m)

	assert.Equal(t, []world.HexCoord{hc(0, 0), hc(1, 0), hc(2, 0)}, p)
	cost, ok := PathCost(m, p)
	assert.True(t, ok)
	assert.Equal(t, 2.0, cost)
}

func TestFindPath_RoutesAroundBlock(t *testing.T) {
	m := world.Generate(2)
	require.NoError(t, m.SetTerrain(hc(1, 0), world.TerrainWall))

	res := Search(hc(0, 0), hc(2, 0), m)
	require.True(t, res.Reached)
	require.Len(t, res.Path, 4)
	assert.Equal(t, hc(0, 0), res.Path[0])
	assert.Equal(t, hc(2, 0), res.Path[3])
	assert.NotContains(t, res.Path, hc(1, 0))
	assert.Equal(t, 3.0, res.Cost)

	cost, ok := PathCost(m, res.Path)
	assert.True(t, ok)
	assert.Equal(t, 3.0, cost)
}

func TestFindPath_GoalBlockedOrAbsent(t *testing.T) {
	m := world.Generate(2)
	require.NoError(t, m.SetTerrain(hc(2, 0), world.TerrainWater))

	res := Search(hc(0, 0), hc(2, 0), m)
	assert.Nil(t, res.Path)
	assert.False(t, res.Reached)
	assert.Zero(t, res.Expanded, "no search when goal is blocked")
	assert.True(t, math.IsInf(res.Cost, 1))

	assert.Nil(t, FindPath(hc(0, 0), hc(3, 0), m))
	assert.Nil(t, FindPath(hc(0, 0), hc(0, 0), nil))
}

func TestFindPath_EnclosedGoal(t *testing.T) {
	m := world.Generate(4)
	goal := hc(2, -1)
	for _, c := range world.Ring(goal, 1) {
		require.NoError(t, m.SetTerrain(c, world.TerrainWall))
	}

	res := Search(hc(-2, 1), goal, m)
	assert.Nil(t, res.Path)
	assert.False(t, res.Reached)
	assert.Positive(t, res.Expanded)

	// Open one gap and the goal becomes reachable through it.
	gap := goal.Neighbor(world.DirWest)
	require.NoError(t, m.SetTerrain(gap, world.TerrainPlains))
	p := FindPath(hc(-2, 1), goal, m)
	require.NotNil(t, p)
	assert.Contains(t, p, gap)
}

func TestFindPath_StartEqualsGoal(t *testing.T) {
	m := world.Generate(1)
	assert.Equal(t, []world.HexCoord{hc(1, 0)}, FindPath(hc(1, 0), hc(1, 0), m))

	cost, ok := PathCost(m, []world.HexCoord{hc(1, 0)})
	assert.True(t, ok)
	assert.Zero(t, cost)
}

func TestFindPath_StartNotCharged(t *testing.T) {
	m := world.Generate(2)
	require.NoError(t, m.SetTerrain(hc(0, 0), world.TerrainMountain))
	res := Search(hc(0, 0), hc(1, 0), m)
	assert.Equal(t, 1.0, res.Cost)
}

func TestFindPath_PrefersRoad(t *testing.T) {
	// A band of mountains with one road through it.
	m := world.Generate(3)
	for r := -3; r <= 3; r++ {
		c := hc(0, r)
		if m.Get(c) != nil {
			require.NoError(t, m.SetTerrain(c, world.TerrainMountain))
		}
	}
	require.NoError(t, m.ToggleRoad(hc(0, -2)))

	p := FindPath(hc(-2, 0), hc(2, 0), m)
	require.NotNil(t, p)
	assert.Contains(t, p, hc(0, -2))
}

func TestFindPath_RerunAfterMutation(t *testing.T) {
	m := world.Generate(2)
	first := FindPath(hc(0, 0), hc(2, 0), m)
	require.Len(t, first, 3)

	require.NoError(t, m.SetTerrain(hc(1, 0), world.TerrainWall))
	second := FindPath(hc(0, 0), hc(2, 0), m)
	require.Len(t, second, 4)

	require.NoError(t, m.SetTerrain(hc(1, 0), world.TerrainPlains))
	assert.Equal(t, first, FindPath(hc(0, 0), hc(2, 0), m))
}

func TestFindPath_Deterministic(t *testing.T) {
	m := randomMap(t, 5, 3)
	a := FindPath(hc(-4, 2), hc(4, -2), m)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a, FindPath(hc(-4, 2), hc(4, -2), m))
	}
}

// TestFindPath_Optimal compares A* against an exhaustive Bellman-Ford style
// relaxation on random maps.
func TestFindPath_Optimal(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		m := randomMap(t, 4, seed)
		rng := rand.New(rand.NewSource(seed))
		coords := world.Disk(world.Origin, 4)

		for i := 0; i < 8; i++ {
			start := coords[rng.Intn(len(coords))]
			goal := coords[rng.Intn(len(coords))]
			if m.Get(start).Blocked() {
				continue
			}
			want := bruteForceCost(m, start, goal)

			res := Search(start, goal, m)
			if math.IsInf(want, 1) {
				assert.Nil(t, res.Path, "seed %d %s->%s", seed, start, goal)
				continue
			}
			require.True(t, res.Reached, "seed %d %s->%s", seed, start, goal)
			assert.InDelta(t, want, res.Cost, 1e-9, "seed %d %s->%s", seed, start, goal)

			cost, ok := PathCost(m, res.Path)
			assert.True(t, ok)
			assert.InDelta(t, res.Cost, cost, 1e-9)
			assert.Equal(t, start, res.Path[0])
			assert.Equal(t, goal, res.Path[len(res.Path)-1])
		}
	}
}

func TestHeuristicScale_Options(t *testing.T) {
	m := randomMap(t, 5, 11)
	start, goal := hc(-5, 0), hc(5, 0)
	want := bruteForceCost(m, start, goal)
	if math.IsInf(want, 1) {
		t.Skip("random map disconnected")
	}

	dijkstra := Search(start, goal, m, WithHeuristicScale(0))
	assert.InDelta(t, want, dijkstra.Cost, 1e-9)

	scaled := Search(start, goal, m)
	assert.InDelta(t, want, scaled.Cost, 1e-9)
	assert.LessOrEqual(t, scaled.Expanded, dijkstra.Expanded)

	unit := Search(start, goal, m, WithUnitHeuristic())
	require.True(t, unit.Reached)
	assert.GreaterOrEqual(t, unit.Cost+1e-9, want)

	ignored := Search(start, goal, m, WithHeuristicScale(-1))
	assert.InDelta(t, want, ignored.Cost, 1e-9)
}

func TestPathCost_Invalid(t *testing.T) {
	m := world.Generate(2)
	require.NoError(t, m.SetTerrain(hc(1, 0), world.TerrainWater))

	_, ok := PathCost(m, nil)
	assert.False(t, ok)
	_, ok = PathCost(m, []world.HexCoord{hc(0, 0), hc(2, 0)})
	assert.False(t, ok, "non-adjacent step")
	_, ok = PathCost(m, []world.HexCoord{hc(0, 0), hc(1, 0)})
	assert.False(t, ok, "blocked tile")
	_, ok = PathCost(m, []world.HexCoord{hc(2, 0), hc(3, 0)})
	assert.False(t, ok, "off map")
}

// randomMap paints random terrain and roads, keeping the origin open.
func randomMap(t *testing.T, radius int, seed int64) *world.Map {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	m := world.Generate(radius)
	terrains := world.AllTerrains()
	for _, c := range world.Disk(world.Origin, radius) {
		if c == world.Origin {
			continue
		}
		require.NoError(t, m.SetTerrain(c, terrains[rng.Intn(len(terrains))]))
		if rng.Intn(4) == 0 {
			_ = m.ToggleRoad(c)
		}
	}
	return m
}

// bruteForceCost relaxes every edge until nothing changes.
func bruteForceCost(m *world.Map, start, goal world.HexCoord) float64 {
	if !m.Passable(goal) {
		return math.Inf(1)
	}
	dist := map[world.HexCoord]float64{}
	for c := range m.Hexes {
		dist[c] = math.Inf(1)
	}
	dist[start] = 0
	for changed := true; changed; {
		changed = false
		for c, d := range dist {
			if math.IsInf(d, 1) {
				continue
			}
			for _, n := range c.Neighbors() {
				if !m.Passable(n) {
					continue
				}
				if nd := d + m.Get(n).Cost(); nd < dist[n] {
					dist[n] = nd
					changed = true
				}
			}
		}
	}
	return dist[goal]
}
