package world

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoProposals is returned when a payload contains no JSON array at all.
var ErrNoProposals = errors.New("no proposal array found")

// Proposal is one externally suggested tile assignment. Terrain and HasRoad
// are optional; missing values default to plains and no road.
type Proposal struct {
	Q       int     `json:"q"`
	R       int     `json:"r"`
	Terrain *string `json:"terrain,omitempty"`
	HasRoad *bool   `json:"hasRoad,omitempty"`
}

// NewProposal builds a fully specified proposal.
func NewProposal(c HexCoord, t Terrain, road bool) Proposal {
	name := t.String()
	return Proposal{Q: c.Q, R: c.R, Terrain: &name, HasRoad: &road}
}

// Coord returns the proposal's coordinate.
func (p Proposal) Coord() HexCoord {
	return HexCoord{Q: p.Q, R: p.R}
}

// MergeReport summarises what ApplyProposals did with a batch.
type MergeReport struct {
	Applied        int `json:"applied"`
	OutOfRange     int `json:"out_of_range"`
	UnknownTerrain int `json:"unknown_terrain"`
	Duplicates     int `json:"duplicates"`
}

// ApplyProposals writes each in-range proposal onto m, in order, so a later
// duplicate wins. Out-of-range coordinates are ignored and unknown terrain
// names fall back to plains. Afterwards the origin is forced back to plains
// without a road so the start tile is always enterable.
func ApplyProposals(m *Map, proposals []Proposal) MergeReport {
	var rep MergeReport
	seen := make(map[HexCoord]bool, len(proposals))

	for _, p := range proposals {
		c := p.Coord()
		if m.Get(c) == nil {
			rep.OutOfRange++
			continue
		}
		if seen[c] {
			rep.Duplicates++
		}
		seen[c] = true

		t := TerrainPlains
		if p.Terrain != nil {
			var ok bool
			if t, ok = ParseTerrain(*p.Terrain); !ok {
				rep.UnknownTerrain++
			}
		}
		road := p.HasRoad != nil && *p.HasRoad

		m.reset(c, t, road)
		rep.Applied++
	}

	m.reset(Origin, TerrainPlains, false)
	return rep
}

// DecodeProposals extracts a proposal batch from a JSON payload. The array
// may be wrapped in prose or a markdown fence. Entries without integer q and
// r are dropped and counted in skipped; a wrong-typed terrain or hasRoad is
// treated as absent.
func DecodeProposals(data []byte) (proposals []Proposal, skipped int, err error) {
	start := bytes.IndexByte(data, '[')
	end := bytes.LastIndexByte(data, ']')
	if start < 0 || end < start {
		return nil, 0, ErrNoProposals
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data[start:end+1], &entries); err != nil {
		return nil, 0, fmt.Errorf("decode proposals: %w", err)
	}

	proposals = make([]Proposal, 0, len(entries))
	for _, raw := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			skipped++
			continue
		}

		var p Proposal
		if !decodeField(fields["q"], &p.Q) || !decodeField(fields["r"], &p.R) {
			skipped++
			continue
		}
		var name string
		if decodeField(fields["terrain"], &name) {
			p.Terrain = &name
		}
		var road bool
		if decodeField(fields["hasRoad"], &road) {
			p.HasRoad = &road
		}
		proposals = append(proposals, p)
	}
	return proposals, skipped, nil
}

func decodeField(raw json.RawMessage, dst any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
