// Package path finds least-cost movement paths across a world.Map.
//
// Moving into a tile costs that tile's cost regardless of where the move
// came from, so the start tile is never charged. Blocked and off-map tiles
// are never entered. Every call allocates its own search state; the map is
// only read.
package path

import (
	"math"

	"github.com/zyedidia/generic/heap"
	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/hexpath/internal/world"
)

// Result is the outcome of one search.
type Result struct {
	Path     []world.HexCoord // start..goal inclusive, nil if unreachable
	Cost     float64          // sum of entered tile costs, +Inf if unreachable
	Expanded int              // nodes moved to the closed set
	Reached  bool
}

// Option customizes a search.
type Option func(*options)

type options struct {
	heuristicScale float64
}

// WithUnitHeuristic uses plain hex distance as the heuristic. It overestimates
// when roads cost less than one per step, so paths over roads may be
// slightly suboptimal.
func WithUnitHeuristic() Option {
	return func(o *options) { o.heuristicScale = 1 }
}

// WithHeuristicScale multiplies hex distance by scale. Zero turns A* into
// Dijkstra. Negative values are ignored.
func WithHeuristicScale(scale float64) Option {
	return func(o *options) {
		if scale >= 0 {
			o.heuristicScale = scale
		}
	}
}

// FindPath returns the cheapest path from start to goal inclusive, or nil if
// the goal is off the map, blocked, or unreachable.
func FindPath(start, goal world.HexCoord, m *world.Map) []world.HexCoord {
	return Search(start, goal, m).Path
}

// FindPathWith is FindPath with options.
func FindPathWith(start, goal world.HexCoord, m *world.Map, opts ...Option) []world.HexCoord {
	return Search(start, goal, m, opts...).Path
}

// node is the per-coordinate search record, created on first discovery.
type node struct {
	coord  world.HexCoord
	g, h   float64
	parent *node
}

func (n *node) f() float64 { return n.g + n.h }

// entry is a frontier item. Improving a node pushes a fresh entry; older
// entries for the same node are recognized by their larger g and skipped.
type entry struct {
	n   *node
	g   float64
	f   float64
	h   float64
	seq uint64
}

func less(a, b entry) bool {
	if a.f != b.f {
		return a.f < b.f
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}

// Search runs A* from start to goal and reports the path and search stats.
func Search(start, goal world.HexCoord, m *world.Map, opts ...Option) Result {
	unreachable := Result{Cost: math.Inf(1)}
	if m == nil || !m.Passable(goal) {
		return unreachable
	}

	o := options{heuristicScale: world.MinStepCost}
	for _, opt := range opts {
		opt(&o)
	}
	heuristic := func(c world.HexCoord) float64 {
		return float64(world.Distance(c, goal)) * o.heuristicScale
	}

	open := heap.New[entry](less)
	closed := mapset.New[world.HexCoord]()
	nodes := make(map[world.HexCoord]*node)
	var seq uint64

	push := func(n *node) {
		seq++
		open.Push(entry{n: n, g: n.g, f: n.f(), h: n.h, seq: seq})
	}

	first := &node{coord: start, g: 0, h: heuristic(start)}
	nodes[start] = first
	push(first)

	expanded := 0
	for open.Size() > 0 {
		e, _ := open.Pop()
		cur := e.n
		if closed.Has(cur.coord) || e.g > cur.g {
			continue
		}
		if cur.coord == goal {
			return Result{
				Path:     reconstruct(cur),
				Cost:     cur.g,
				Expanded: expanded,
				Reached:  true,
			}
		}

		closed.Put(cur.coord)
		expanded++

		for _, nc := range cur.coord.Neighbors() {
			if closed.Has(nc) {
				continue
			}
			tile := m.Get(nc)
			if tile == nil || tile.Blocked() {
				continue
			}

			tentative := cur.g + tile.Cost()
			nb, seen := nodes[nc]
			if !seen {
				nb = &node{coord: nc, g: math.Inf(1), h: heuristic(nc)}
				nodes[nc] = nb
			}
			if tentative < nb.g {
				nb.g = tentative
				nb.parent = cur
				push(nb)
			}
		}
	}

	unreachable.Expanded = expanded
	return unreachable
}

// reconstruct follows parent links back to the start and reverses them.
func reconstruct(n *node) []world.HexCoord {
	var out []world.HexCoord
	for ; n != nil; n = n.parent {
		out = append(out, n.coord)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// PathCost sums the cost of every tile entered after the first. It reports
// false, with an infinite cost, if the path is empty, has a non-adjacent
// step, or enters a blocked or off-map tile.
func PathCost(m *world.Map, p []world.HexCoord) (float64, bool) {
	if len(p) == 0 {
		return math.Inf(1), false
	}
	total := 0.0
	for i := 1; i < len(p); i++ {
		if world.Distance(p[i-1], p[i]) != 1 {
			return math.Inf(1), false
		}
		tile := m.Get(p[i])
		if tile == nil || tile.Blocked() {
			return math.Inf(1), false
		}
		total += tile.Cost()
	}
	return total, true
}
