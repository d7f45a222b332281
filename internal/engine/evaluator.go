// Package engine is the dependency graph and evaluator: it owns the compiled
// unit of every formula cell, memoizes results, detects cycles, spills array
// results and recomputes only what a change affects.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vogtb/go-formula/internal/compiler"
	"github.com/vogtb/go-formula/internal/functions"
	"github.com/vogtb/go-formula/internal/value"
)

const defaultMaxPasses = 4

// EvaluatedCell is an immutable snapshot of a cell's computed value and
// display format.
type EvaluatedCell struct {
	Value  value.Value
	Format string
}

func (c EvaluatedCell) Kind() value.Kind {
	return c.Value.Kind
}

// Error returns the cell's error, nil if it holds a value.
func (c EvaluatedCell) Error() *value.CellError {
	return c.Value.Err
}

// Options configure an Evaluator. Zero values pick defaults.
type Options struct {
	Logger *slog.Logger
	Clock  functions.Clock
	Rand   functions.RandomGenerator
	// MaxPasses bounds how many times, per formula cell, a flush may
	// recompute before giving up.
	MaxPasses int
}

// Evaluator computes cells on demand and keeps them up to date as content
// changes. It is not safe for concurrent use; callers serialize changes and
// reads.
type Evaluator struct {
	store    Store
	registry *functions.Registry
	units    *unitCache
	graph    *graph
	claims   map[value.Position]int
	stack    []int
	logger   *slog.Logger
	context  *functions.Context

	maxPasses int
}

// New creates an evaluator over store. Formula cells are registered through
// ContentChanged or StructureChanged, or lazily when first read.
func New(store Store, registry *functions.Registry, opts Options) *Evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := functions.NewContext(logger)
	if opts.Clock != nil {
		ctx.Clock = opts.Clock
	}
	if opts.Rand != nil {
		ctx.Rand = opts.Rand
	}
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = defaultMaxPasses
	}
	return &Evaluator{
		store:     store,
		registry:  registry,
		units:     newUnitCache(registry),
		graph:     newGraph(),
		claims:    make(map[value.Position]int),
		logger:    logger,
		context:   ctx,
		maxPasses: maxPasses,
	}
}

// Evaluate returns the up-to-date value of a cell.
func (e *Evaluator) Evaluate(pos value.Position) EvaluatedCell {
	e.flush()
	return e.cellAt(pos)
}

// ContentChanged tells the evaluator that the raw content of the given
// cells changed. Their readers are invalidated and new formulas are
// registered; nothing is computed until the next read.
func (e *Evaluator) ContentChanged(positions ...value.Position) {
	for _, pos := range positions {
		if idx, ok := e.graph.lookup(pos); ok {
			e.removeNode(idx)
		}
		e.graph.invalidate(-1, pos)
		if e.store.CellKind(pos) == CellFormula {
			idx := e.register(pos)
			e.graph.markDirty(idx)
		}
	}
}

// StructureChanged drops every formula registered on the sheet, re-resolves
// the references of all other formulas (the sheet may have been created,
// renamed or deleted) and re-registers the sheet's formulas.
func (e *Evaluator) StructureChanged(sheetID string) {
	var onSheet, others []int
	for idx, n := range e.graph.nodes {
		switch {
		case n == nil:
		case n.pos.SheetID == sheetID:
			onSheet = append(onSheet, idx)
		default:
			others = append(others, idx)
		}
	}
	var removed []value.Position
	for _, idx := range onSheet {
		removed = append(removed, e.graph.nodes[idx].pos)
		e.removeNode(idx)
	}
	e.graph.invalidate(-1, removed...)

	for _, idx := range others {
		n := e.graph.nodes[idx]
		e.graph.unwatch(idx, n.reads)
		n.refs = e.resolveRefs(n.pos, n.formula)
		n.reads = expand(n.refs)
		e.graph.watch(idx, n.reads)
		if e.graph.markDirty(idx) {
			e.graph.invalidate(idx, n.pos)
		}
	}

	positions := removed
	if lister, ok := e.store.(SheetLister); ok {
		positions = lister.Positions(sheetID)
	}
	for _, pos := range positions {
		if _, exists := e.graph.lookup(pos); exists || e.store.CellKind(pos) != CellFormula {
			continue
		}
		e.graph.markDirty(e.register(pos))
	}
}

// Recompute re-dirties every cell holding a volatile function (NOW, RAND...)
// and recomputes them along with their readers.
func (e *Evaluator) Recompute() {
	for idx := range e.graph.volatile {
		if e.graph.markDirty(idx) {
			e.graph.invalidate(idx, e.graph.nodes[idx].pos)
		}
	}
	e.flush()
}

// GetReferencedPositions lists every cell a formula reads, ranges expanded,
// in row-major order. Non-formula cells read nothing.
func (e *Evaluator) GetReferencedPositions(pos value.Position) []value.Position {
	idx, ok := e.graph.lookup(pos)
	if !ok {
		if e.store.CellKind(pos) != CellFormula {
			return nil
		}
		idx = e.register(pos)
	}
	positions := slices.Clone(e.graph.nodes[idx].reads)
	slices.SortFunc(positions, func(a, b value.Position) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return positions
}

// EvaluateAdHoc evaluates canonical formula text as if it were written in a
// cell of the given sheet, without registering anything. Parse and compile
// failures are returned as errors; evaluation errors come back as values.
func (e *Evaluator) EvaluateAdHoc(sheetID, formulaText string) (value.Operand, error) {
	unit, nf, err := compiler.CompileText(formulaText, e.registry)
	if err != nil {
		return value.Operand{}, err
	}
	e.flush()
	pos := value.Position{SheetID: sheetID}
	cf := &compiledFormula{unit: unit, nf: nf, deps: compiler.DependenciesOf(nf)}
	refs := e.resolveRefs(pos, cf)
	return unit.Execute(e.env(pos, cf, refs)), nil
}

// flush recomputes the dirty set in deterministic order until it is empty.
// Spill claims can dirty cells that were already computed, hence the loop.
func (e *Evaluator) flush() {
	budget := e.maxPasses * (len(e.graph.index) + 1)
	for len(e.graph.dirty) > 0 {
		for _, pos := range e.graph.sortedDirty() {
			if _, dirty := e.graph.dirty[pos]; !dirty {
				continue
			}
			idx, ok := e.graph.lookup(pos)
			if !ok {
				delete(e.graph.dirty, pos)
				continue
			}
			if budget == 0 {
				e.abandon()
				return
			}
			budget--
			e.computeNode(idx)
		}
	}
}

// abandon gives up on a flush that does not converge
func (e *Evaluator) abandon() {
	dirty := e.graph.sortedDirty()
	e.logger.Warn("evaluation did not converge", "pending", len(dirty), "max_passes", e.maxPasses)
	for _, pos := range dirty {
		delete(e.graph.dirty, pos)
		idx, ok := e.graph.lookup(pos)
		if !ok {
			continue
		}
		n := e.graph.nodes[idx]
		n.state = stateBlack
		n.cell = errorCell(value.ErrorCodeOther, "Evaluation did not converge.")
	}
}

// register compiles the formula at pos and adds it to the graph
func (e *Evaluator) register(pos value.Position) int {
	content := e.store.RawContent(pos)
	n := &node{pos: pos, content: content}
	cf, err := e.units.acquire(content)
	if err != nil {
		n.compileErr = err
		e.logger.Debug("formula failed to compile", "position", pos.String(), "error", err)
	} else {
		n.formula = cf
		n.refs = e.resolveRefs(pos, cf)
		n.reads = expand(n.refs)
	}
	idx := e.graph.add(n)
	e.graph.watch(idx, n.reads)
	if cf != nil && cf.unit.Volatile {
		e.graph.volatile[idx] = struct{}{}
	}
	return idx
}

func (e *Evaluator) removeNode(idx int) {
	n := e.graph.nodes[idx]
	e.releaseSpill(idx)
	if n.formula != nil {
		e.units.release(n.formula.nf.Shape)
	}
	e.graph.remove(idx)
}

func (e *Evaluator) resolveRefs(pos value.Position, cf *compiledFormula) []ResolvedRange {
	if cf == nil {
		return nil
	}
	refs := make([]ResolvedRange, len(cf.deps.References))
	for i, text := range cf.deps.References {
		refs[i] = e.store.ResolveRange(pos.SheetID, text)
	}
	return refs
}

// computeNode evaluates a node unless it is already evaluated. Re-entering a
// node that is on the stack marks every node from it to the top as cyclic.
func (e *Evaluator) computeNode(idx int) EvaluatedCell {
	n := e.graph.nodes[idx]
	switch n.state {
	case stateBlack:
		return n.cell
	case stateGray:
		e.markCycle(idx)
		return cycleCell()
	}

	delete(e.graph.dirty, n.pos)
	n.state = stateGray
	n.cyclic = false
	e.stack = append(e.stack, idx)
	cell := e.execute(idx)
	e.stack = e.stack[:len(e.stack)-1]

	if n.cyclic {
		e.releaseSpill(idx)
		cell = cycleCell()
	}
	n.cell = cell
	if n.redo {
		n.redo = false
		n.state = stateWhite
	} else {
		n.state = stateBlack
	}
	return cell
}

func (e *Evaluator) markCycle(idx int) {
	for i := len(e.stack) - 1; i >= 0; i-- {
		e.graph.nodes[e.stack[i]].cyclic = true
		if e.stack[i] == idx {
			return
		}
	}
}

func (e *Evaluator) execute(idx int) EvaluatedCell {
	n := e.graph.nodes[idx]
	if n.compileErr != nil {
		e.releaseSpill(idx)
		return compileErrorCell(n.compileErr)
	}

	result := n.formula.unit.Execute(e.env(n.pos, n.formula, n.refs))
	var v value.Value
	if result.IsMatrix() {
		v = e.spill(idx, result.Matrix)
	} else {
		e.releaseSpill(idx)
		e.graph.unwatch(idx, n.watches)
		n.watches = nil
		v = result.Value
	}
	if v.IsEmpty() {
		v = value.Number(0).WithFormat(v.Format)
	}
	if v.IsError() {
		return EvaluatedCell{Value: v}
	}
	return EvaluatedCell{Value: v, Format: e.resolveFormat(n, v)}
}

// resolveFormat applies the format precedence: explicit cell format, then
// the format carried by the value, then the first dependency format that
// resolves to something.
func (e *Evaluator) resolveFormat(n *node, v value.Value) string {
	if f := e.store.Format(n.pos); f != "" {
		return f
	}
	if v.Format != "" {
		return v.Format
	}
	for _, source := range n.formula.unit.DependenciesFormat {
		if !source.IsReference() {
			if source.Format != "" {
				return source.Format
			}
			continue
		}
		if source.Ref >= len(n.refs) {
			continue
		}
		ref := n.refs[source.Ref]
		if ref.InvalidSheet || ref.InvalidRange {
			continue
		}
		at := value.Position{SheetID: ref.SheetID, Col: ref.Zone.Left, Row: ref.Zone.Top}
		if f := e.formatAt(at); f != "" {
			return f
		}
	}
	return ""
}

// formatAt is the display format of a cell without forcing nodes that are
// still being evaluated
func (e *Evaluator) formatAt(pos value.Position) string {
	if idx, ok := e.graph.lookup(pos); ok && e.graph.nodes[idx].state == stateGray {
		return e.store.Format(pos)
	}
	return e.cellAt(pos).Format
}

// env builds the execution environment of a formula at pos
func (e *Evaluator) env(pos value.Position, cf *compiledFormula, refs []ResolvedRange) *compiler.Env {
	ctx := e.context.At(pos)
	ctx.Locale = e.store.Locale()
	return &compiler.Env{
		Deps:    cf.deps,
		SheetID: pos.SheetID,
		ResolveRef: func(i int, meta bool) value.Operand {
			return e.resolveRef(cf.deps.References[i], refs[i], meta, false)
		},
		EnsureRange: func(i int) value.Operand {
			return e.resolveRef(cf.deps.References[i], refs[i], false, true)
		},
		Context: ctx,
	}
}

func (e *Evaluator) resolveRef(text string, ref ResolvedRange, meta, asRange bool) value.Operand {
	desc := &value.Reference{
		Text:         text,
		SheetID:      ref.SheetID,
		SheetName:    ref.SheetName,
		Zone:         ref.Zone,
		InvalidSheet: ref.InvalidSheet,
		InvalidRange: ref.InvalidRange,
	}
	if meta {
		return value.Operand{Ref: desc}
	}
	if err := desc.Err(); err != nil {
		return value.Operand{Value: value.FromError(err), Ref: desc}
	}
	if ref.Zone.IsSingleCell() && !asRange {
		pos := value.Position{SheetID: ref.SheetID, Col: ref.Zone.Left, Row: ref.Zone.Top}
		return value.Operand{Value: e.valueAt(pos), Ref: desc}
	}
	m := value.NewMatrix(ref.Zone.Rows(), ref.Zone.Cols())
	for p := range ref.Zone.Positions(ref.SheetID) {
		m[p.Row-ref.Zone.Top][p.Col-ref.Zone.Left] = e.valueAt(p)
	}
	return value.Operand{Matrix: m, Ref: desc}
}

// valueAt is a cell's value as seen by a formula reading it. Its format
// travels along so functions returning it unchanged keep it.
func (e *Evaluator) valueAt(pos value.Position) value.Value {
	cell := e.cellAt(pos)
	v := cell.Value
	if v.Format == "" {
		v.Format = cell.Format
	}
	return v
}

// cellAt computes a cell if needed: formula nodes, spilled values, then
// literal content.
func (e *Evaluator) cellAt(pos value.Position) EvaluatedCell {
	if idx, ok := e.graph.lookup(pos); ok {
		return e.computeNode(idx)
	}
	if anchor, ok := e.claims[pos]; ok {
		e.computeNode(anchor)
		if cell, still := e.spilledCell(pos); still {
			return cell
		}
	}
	switch e.store.CellKind(pos) {
	case CellFormula:
		return e.computeNode(e.register(pos))
	case CellLiteral:
		v := inferLiteral(e.store.RawContent(pos))
		format := e.store.Format(pos)
		if format == "" {
			format = v.Format
		}
		return EvaluatedCell{Value: v, Format: format}
	}
	return EvaluatedCell{Value: value.Empty(), Format: e.store.Format(pos)}
}

func cycleCell() EvaluatedCell {
	return errorCell(value.ErrorCodeCycle, "Circular reference")
}

func errorCell(code value.ErrorCode, message string) EvaluatedCell {
	return EvaluatedCell{Value: value.Error(code, message)}
}

// compileErrorCell turns a parse or compile failure into the cell's error.
// Unknown functions are #NAME?, everything else is #BAD_EXPR.
func compileErrorCell(err error) EvaluatedCell {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) && compileErr.Kind == compiler.ErrUnknownFunction {
		return errorCell(value.ErrorCodeName, compileErr.Message)
	}
	return errorCell(value.ErrorCodeBadExpr, fmt.Sprint(err))
}
