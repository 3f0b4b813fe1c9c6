package editor

import (
	"github.com/talgya/hexpath/internal/path"
	"github.com/talgya/hexpath/internal/world"
)

// NoiseTerrain builds a complete offline proposal batch: noise terrain and
// buildings from world.NoiseProposals, plus roads linking the origin to the
// first site and each site to the next.
func NoiseTerrain(cfg world.GenConfig) []world.Proposal {
	proposals, sites := world.NoiseProposals(cfg)
	if len(sites) == 0 {
		return proposals
	}

	m := world.Generate(cfg.Radius)
	world.ApplyProposals(m, proposals)

	stops := make([]world.HexCoord, 0, len(sites)+1)
	stops = append(stops, world.Origin)
	for _, s := range sites {
		stops = append(stops, s.Coord)
	}

	roads := make(map[world.HexCoord]bool)
	var order []world.HexCoord
	for i := 1; i < len(stops); i++ {
		for _, c := range path.FindPath(stops[i-1], stops[i], m) {
			if c == world.Origin || roads[c] {
				continue
			}
			roads[c] = true
			order = append(order, c)
			// Later segments can reuse roads already laid.
			_ = m.ToggleRoad(c)
		}
	}

	for _, c := range order {
		proposals = append(proposals, world.NewProposal(c, m.Get(c).Terrain(), true))
	}
	return proposals
}
