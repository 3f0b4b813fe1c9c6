package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/hexpath/internal/world"
)

// maxTerrainTokens bounds the reply; a radius-12 map lists a few hundred hexes.
const maxTerrainTokens = 8192

const terrainSystem = `You design hex grid maps for a pathfinding sandbox. Reply with a JSON array only, no prose and no code fences.`

// GenerateTerrain asks Haiku for a map matching description and returns the
// decoded proposals. Malformed entries are dropped; a reply with no JSON
// array at all is an error.
func GenerateTerrain(ctx context.Context, client *Client, description string, radius int) ([]world.Proposal, error) {
	if !client.Enabled() {
		return nil, ErrDisabled
	}

	text, err := client.Complete(ctx, terrainSystem, terrainPrompt(description, radius), maxTerrainTokens)
	if err != nil {
		return nil, fmt.Errorf("generate terrain: %w", err)
	}

	proposals, skipped, err := world.DecodeProposals([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("decode terrain: %w", err)
	}
	if skipped > 0 {
		slog.Warn("dropped malformed proposals", "skipped", skipped, "kept", len(proposals))
	}
	return proposals, nil
}

func terrainPrompt(description string, radius int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a hex grid map with a radius of %d.\n", radius)
	b.WriteString("The grid uses axial coordinates (q, r); a hex is on the map when max(|q|, |r|, |q+r|) <= radius.\n")
	fmt.Fprintf(&b, "The map should match this description: %q.\n\n", description)

	b.WriteString("Available terrain types:\n")
	for _, t := range world.AllTerrains() {
		if t.Blocking() {
			fmt.Fprintf(&b, "- %s (impassable)\n", t)
			continue
		}
		fmt.Fprintf(&b, "- %s (cost %g)\n", t, t.BaseCost())
	}

	fmt.Fprintf(&b, "\nYou can also set \"hasRoad\": true on passable hexes. Roads cost %g to enter.\n", world.RoadCost)
	b.WriteString("Make the map interesting and playable.\n")
	b.WriteString("Do not wall off the center (0,0); it is the player start.\n")
	b.WriteString("Return a JSON array of objects {\"q\": int, \"r\": int, \"terrain\": string, \"hasRoad\": bool} ")
	b.WriteString("for hexes with specific terrain or roads. Any hex not listed defaults to PLAINS.\n")
	return b.String()
}
