package engine

import (
	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/value"
)

// CellKind is what a cell's raw content is.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellLiteral
	CellFormula
)

func (k CellKind) String() string {
	switch k {
	case CellLiteral:
		return "literal"
	case CellFormula:
		return "formula"
	}
	return "empty"
}

// KindOf classifies raw cell content.
func KindOf(content string) CellKind {
	switch {
	case content == "":
		return CellEmpty
	case content[0] == '=':
		return CellFormula
	}
	return CellLiteral
}

// CellStore is the cell storage the evaluator reads from. Raw content is
// always in the canonical locale.
type CellStore interface {
	RawContent(pos value.Position) string
	// Format is the explicit display format of a cell, "" if none.
	Format(pos value.Position) string
	Locale() locale.Locale
	CellKind(pos value.Position) CellKind
}

// ResolvedRange is a reference resolved against the workbook.
type ResolvedRange struct {
	SheetID      string
	SheetName    string
	Zone         value.Zone
	InvalidSheet bool
	InvalidRange bool
}

// RangeResolver turns reference text such as "Sheet2!A1:B3" into a zone,
// relative to the sheet the formula lives on.
type RangeResolver interface {
	ResolveRange(sheetID, rangeText string) ResolvedRange
}

// Store is everything the evaluator consumes.
type Store interface {
	CellStore
	RangeResolver
}

// SheetLister is implemented by stores that can enumerate the non-empty
// cells of a sheet. StructureChanged uses it to re-register every formula of
// a sheet.
type SheetLister interface {
	Positions(sheetID string) []value.Position
}
