// Package world provides the hex grid, terrain, and the editable map.
// Uses axial coordinates (q, r) for the hex grid; s is derived.
package world

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// NewHexCoord returns the coordinate (q, r, -q-r).
func NewHexCoord(q, r int) HexCoord {
	return HexCoord{Q: q, R: r}
}

// Origin is the center of every generated map and the player start.
var Origin = HexCoord{}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Add returns h+b in axial space.
func (h HexCoord) Add(b HexCoord) HexCoord {
	return HexCoord{Q: h.Q + b.Q, R: h.R + b.R}
}

// Scale multiplies an axial vector by k.
func (h HexCoord) Scale(k int) HexCoord {
	return HexCoord{Q: h.Q * k, R: h.R * k}
}

// String returns the "q,r" key form.
func (h HexCoord) String() string {
	return strconv.Itoa(h.Q) + "," + strconv.Itoa(h.R)
}

// ParseHexCoord parses the "q,r" form produced by String.
func ParseHexCoord(s string) (HexCoord, error) {
	qs, rs, ok := strings.Cut(s, ",")
	if !ok {
		return HexCoord{}, fmt.Errorf("parse hex coord %q: missing comma", s)
	}
	q, err := strconv.Atoi(strings.TrimSpace(qs))
	if err != nil {
		return HexCoord{}, fmt.Errorf("parse hex coord %q: %w", s, err)
	}
	r, err := strconv.Atoi(strings.TrimSpace(rs))
	if err != nil {
		return HexCoord{}, fmt.Errorf("parse hex coord %q: %w", s, err)
	}
	return HexCoord{Q: q, R: r}, nil
}

// Direction indices into HexNeighborDirections. Road rendering relies on
// the index of each direction, so the order is fixed.
const (
	DirEast = iota
	DirNorthEast
	DirNorthWest
	DirWest
	DirSouthWest
	DirSouthEast
)

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates in direction order.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Neighbor returns the adjacent coordinate in direction dir (0..5, wrapping).
func (h HexCoord) Neighbor(dir int) HexCoord {
	return h.Add(HexNeighborDirections[((dir%6)+6)%6])
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	return (abs(a.Q-b.Q) + abs(a.R-b.R) + abs(a.S()-b.S())) / 2
}

// Ring returns the coordinates at exactly distance k from center, walking
// the six sides starting from the south-west corner. Ring(c, 0) is [c].
func Ring(center HexCoord, k int) []HexCoord {
	if k <= 0 {
		return []HexCoord{center}
	}
	res := make([]HexCoord, 0, 6*k)
	cur := center.Add(HexNeighborDirections[DirSouthWest].Scale(k))
	for side := 0; side < 6; side++ {
		for step := 0; step < k; step++ {
			res = append(res, cur)
			cur = cur.Neighbor(side)
		}
	}
	return res
}

// Disk returns all coordinates within distance k of center.
func Disk(center HexCoord, k int) []HexCoord {
	if k < 0 {
		return nil
	}
	res := make([]HexCoord, 0, 1+3*k*(k+1))
	for q := -k; q <= k; q++ {
		for r := max(-k, -q-k); r <= min(k, -q+k); r++ {
			res = append(res, center.Add(HexCoord{Q: q, R: r}))
		}
	}
	return res
}

// ToPixel converts to pixel coordinates for a pointy-top layout.
// size is the hex radius (corner to center) in pixels.
func (h HexCoord) ToPixel(size float64) (x, y float64) {
	x = size * (math.Sqrt(3)*float64(h.Q) + math.Sqrt(3)/2*float64(h.R))
	y = size * 1.5 * float64(h.R)
	return x, y
}

// FromPixel returns the hex containing the pixel (x, y) for a pointy-top
// layout of the given size. It is the inverse of ToPixel.
func FromPixel(x, y, size float64) HexCoord {
	q := (math.Sqrt(3)/3*x - y/3) / size
	r := (2.0 / 3.0 * y) / size
	return roundCube(q, r, -q-r)
}

// roundCube rounds fractional cube coordinates to the nearest hex. The
// component with the largest rounding error is recomputed from the other
// two so that q+r+s stays zero.
func roundCube(fq, fr, fs float64) HexCoord {
	q := math.Round(fq)
	r := math.Round(fr)
	s := math.Round(fs)

	dq := math.Abs(q - fq)
	dr := math.Abs(r - fr)
	ds := math.Abs(s - fs)

	switch {
	case dq > dr && dq > ds:
		q = -r - s
	case dr > ds:
		r = -q - s
	}
	return HexCoord{Q: int(q), R: int(r)}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
