package engine

import (
	"fmt"

	"github.com/vogtb/go-formula/internal/value"
)

// spill claims the zone an array result needs, anchored at the formula's
// own cell, and returns the anchor's value. The anchor gets #SPILL! when a
// cell of the zone holds content or belongs to another claim.
func (e *Evaluator) spill(idx int, m value.Matrix) value.Value {
	n := e.graph.nodes[idx]
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		e.releaseSpill(idx)
		return value.Error(value.ErrorCodeValue, "The function returned an empty array.")
	}
	zone := value.ZoneAt(n.pos.Col, n.pos.Row, rows, cols)
	positions := collect(zone, n.pos.SheetID)

	// watch the attempted zone so freeing a blocking cell re-runs the anchor
	e.graph.unwatch(idx, n.watches)
	n.watches = positions
	e.graph.watch(idx, n.watches)

	if blocked, ok := e.blockingCell(idx, positions); ok {
		e.releaseSpill(idx)
		return value.Error(value.ErrorCodeSpill,
			fmt.Sprintf("Array result was not expanded because it would overwrite data in %s.", blocked))
	}
	for _, p := range n.reads {
		if zone.Contains(p.Col, p.Row) && p.SheetID == n.pos.SheetID && p != n.pos {
			e.releaseSpill(idx)
			return value.Error(value.ErrorCodeCycle, "Circular reference")
		}
	}

	previous := n.spill
	if previous != nil && *previous != zone {
		e.releaseSpill(idx)
	}
	for _, p := range positions {
		if p != n.pos {
			e.claims[p] = idx
		}
	}
	n.spill = &zone
	n.matrix = m
	e.graph.invalidate(idx, positions[1:]...)
	return m[0][0]
}

// blockingCell finds the first cell of the zone, other than the anchor, that
// holds content or is claimed by another anchor
func (e *Evaluator) blockingCell(idx int, positions []value.Position) (value.Position, bool) {
	anchor := e.graph.nodes[idx].pos
	for _, p := range positions {
		if p == anchor {
			continue
		}
		if owner, claimed := e.claims[p]; claimed && owner != idx {
			return p, true
		}
		if e.store.CellKind(p) != CellEmpty {
			return p, true
		}
	}
	return value.Position{}, false
}

// releaseSpill drops the node's claim and invalidates the readers of the
// zone it covered
func (e *Evaluator) releaseSpill(idx int) {
	n := e.graph.nodes[idx]
	if n.spill == nil {
		return
	}
	positions := collect(*n.spill, n.pos.SheetID)
	for _, p := range positions {
		if owner, ok := e.claims[p]; ok && owner == idx {
			delete(e.claims, p)
		}
	}
	n.spill = nil
	n.matrix = nil
	e.graph.invalidate(idx, positions...)
}

// spilledCell returns the value an anchor spilled into pos, if it still does
func (e *Evaluator) spilledCell(pos value.Position) (EvaluatedCell, bool) {
	idx, ok := e.claims[pos]
	if !ok {
		return EvaluatedCell{}, false
	}
	n := e.graph.nodes[idx]
	if n.spill == nil || n.matrix == nil {
		return EvaluatedCell{}, false
	}
	v := n.matrix[pos.Row-n.spill.Top][pos.Col-n.spill.Left]
	format := e.store.Format(pos)
	if format == "" {
		format = n.cell.Format
	}
	return EvaluatedCell{Value: v, Format: format}, true
}

// IsSpillTarget reports whether pos currently shows part of another cell's
// array result.
func (e *Evaluator) IsSpillTarget(pos value.Position) bool {
	e.flush()
	_, ok := e.claims[pos]
	return ok
}

// SpillZone returns the zone a formula's array result covers, anchor
// included.
func (e *Evaluator) SpillZone(pos value.Position) (value.Zone, bool) {
	e.flush()
	idx, ok := e.graph.lookup(pos)
	if !ok || e.graph.nodes[idx].spill == nil {
		return value.Zone{}, false
	}
	return *e.graph.nodes[idx].spill, true
}

// CopyContent returns the raw content a copy of pos should carry. Spill
// targets copy as empty so the anchor formula is not duplicated.
func (e *Evaluator) CopyContent(pos value.Position) string {
	if e.IsSpillTarget(pos) {
		return ""
	}
	return e.store.RawContent(pos)
}

func collect(zone value.Zone, sheetID string) []value.Position {
	positions := make([]value.Position, 0, zone.Rows()*zone.Cols())
	for p := range zone.Positions(sheetID) {
		positions = append(positions, p)
	}
	return positions
}
