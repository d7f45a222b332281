package engine

import (
	"sort"

	"github.com/vogtb/go-formula/internal/value"
)

// state colors a node for cycle detection
type state uint8

const (
	stateWhite state = iota // pending
	stateGray               // on the evaluation stack
	stateBlack              // evaluated
)

// node is a formula cell. Nodes live in an arena and refer to each other by
// position, never by pointer.
type node struct {
	pos        value.Position
	content    string
	formula    *compiledFormula
	compileErr error
	refs       []ResolvedRange
	reads      []value.Position
	watches    []value.Position

	state  state
	cyclic bool
	redo   bool
	cell   EvaluatedCell

	spill  *value.Zone
	matrix value.Matrix
}

// graph owns the arena, the reverse "readers" index, the dirty set and the
// volatile set.
type graph struct {
	nodes    []*node
	free     []int
	index    map[value.Position]int
	readers  map[value.Position]map[int]struct{}
	dirty    map[value.Position]struct{}
	volatile map[int]struct{}
}

func newGraph() *graph {
	return &graph{
		index:    make(map[value.Position]int),
		readers:  make(map[value.Position]map[int]struct{}),
		dirty:    make(map[value.Position]struct{}),
		volatile: make(map[int]struct{}),
	}
}

// add stores n in a free arena slot and returns its index
func (g *graph) add(n *node) int {
	var idx int
	if len(g.free) > 0 {
		idx = g.free[len(g.free)-1]
		g.free = g.free[:len(g.free)-1]
		g.nodes[idx] = n
	} else {
		idx = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	g.index[n.pos] = idx
	return idx
}

// remove frees the slot of idx and drops all its index entries
func (g *graph) remove(idx int) {
	n := g.nodes[idx]
	g.unwatch(idx, n.reads)
	g.unwatch(idx, n.watches)
	delete(g.index, n.pos)
	delete(g.dirty, n.pos)
	delete(g.volatile, idx)
	g.nodes[idx] = nil
	g.free = append(g.free, idx)
}

func (g *graph) lookup(pos value.Position) (int, bool) {
	idx, ok := g.index[pos]
	return idx, ok
}

// watch registers idx as a reader of every position
func (g *graph) watch(idx int, positions []value.Position) {
	for _, p := range positions {
		if g.readers[p] == nil {
			g.readers[p] = make(map[int]struct{})
		}
		g.readers[p][idx] = struct{}{}
	}
}

func (g *graph) unwatch(idx int, positions []value.Position) {
	for _, p := range positions {
		if readers, ok := g.readers[p]; ok {
			delete(readers, idx)
			if len(readers) == 0 {
				delete(g.readers, p)
			}
		}
	}
}

// markDirty flags a node for recomputation. Returns false if it already was.
// A node currently being evaluated is flagged to run again once it finishes.
func (g *graph) markDirty(idx int) bool {
	n := g.nodes[idx]
	if _, dirty := g.dirty[n.pos]; dirty {
		return false
	}
	g.dirty[n.pos] = struct{}{}
	if n.state == stateGray {
		n.redo = true
	} else {
		n.state = stateWhite
	}
	return true
}

// invalidate marks every node that transitively reads one of the positions
// as dirty, except skip. Spilled zones of invalidated anchors are followed
// too, since their values go stale with the anchor.
func (g *graph) invalidate(skip int, positions ...value.Position) {
	queue := append([]value.Position(nil), positions...)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for idx := range g.readers[p] {
			if idx == skip || !g.markDirty(idx) {
				continue
			}
			n := g.nodes[idx]
			queue = append(queue, n.pos)
			if n.spill != nil {
				for q := range n.spill.Positions(n.pos.SheetID) {
					queue = append(queue, q)
				}
			}
		}
	}
}

// sortedDirty returns the dirty set in deterministic order (by sheet, then
// row, then column)
func (g *graph) sortedDirty() []value.Position {
	dirty := make([]value.Position, 0, len(g.dirty))
	for p := range g.dirty {
		dirty = append(dirty, p)
	}
	sort.Slice(dirty, func(i, j int) bool {
		return dirty[i].Less(dirty[j])
	})
	return dirty
}

// expand lists every cell of the valid resolved ranges
func expand(refs []ResolvedRange) []value.Position {
	seen := make(map[value.Position]struct{})
	var positions []value.Position
	for _, ref := range refs {
		if ref.InvalidSheet || ref.InvalidRange {
			continue
		}
		for p := range ref.Zone.Positions(ref.SheetID) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			positions = append(positions, p)
		}
	}
	return positions
}
