package value

import (
	"fmt"
	"iter"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Position addresses one cell. Col and Row are zero-based.
type Position struct {
	SheetID string
	Col     int
	Row     int
}

// String renders the position in A1 notation, without the sheet.
func (p Position) String() string {
	return CellName(p.Col, p.Row)
}

// Less orders positions by sheet, then row, then column.
func (p Position) Less(other Position) bool {
	if p.SheetID != other.SheetID {
		return p.SheetID < other.SheetID
	}
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Col < other.Col
}

// Zone is an inclusive rectangle of zero-based coordinates.
type Zone struct {
	Top    int
	Left   int
	Bottom int
	Right  int
}

// ZoneAt returns the rows x cols zone anchored at (col, row).
func ZoneAt(col, row, rows, cols int) Zone {
	return Zone{Top: row, Left: col, Bottom: row + rows - 1, Right: col + cols - 1}
}

func (z Zone) Rows() int {
	return z.Bottom - z.Top + 1
}

func (z Zone) Cols() int {
	return z.Right - z.Left + 1
}

func (z Zone) IsSingleCell() bool {
	return z.Top == z.Bottom && z.Left == z.Right
}

func (z Zone) Contains(col, row int) bool {
	return row >= z.Top && row <= z.Bottom && col >= z.Left && col <= z.Right
}

func (z Zone) Intersects(other Zone) bool {
	return z.Left <= other.Right && other.Left <= z.Right &&
		z.Top <= other.Bottom && other.Top <= z.Bottom
}

// String renders the zone in A1 notation ("B2" or "A1:C3").
func (z Zone) String() string {
	if z.IsSingleCell() {
		return CellName(z.Left, z.Top)
	}
	return CellName(z.Left, z.Top) + ":" + CellName(z.Right, z.Bottom)
}

// Positions yields every cell of the zone on the given sheet in row-major
// order.
func (z Zone) Positions(sheetID string) iter.Seq[Position] {
	return func(yield func(Position) bool) {
		for row := z.Top; row <= z.Bottom; row++ {
			for col := z.Left; col <= z.Right; col++ {
				if !yield(Position{SheetID: sheetID, Col: col, Row: row}) {
					return
				}
			}
		}
	}
}

// CellName renders zero-based coordinates as "A1". Out-of-grid coordinates
// render as "#REF".
func CellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return "#REF"
	}
	return name
}

// ParseCell parses "A1", "$A$1", "a$1"... into zero-based coordinates.
func ParseCell(text string) (col, row int, err error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), "$", "")
	if cleaned == "" {
		return 0, 0, fmt.Errorf("empty cell reference")
	}
	c, r, err := excelize.CellNameToCoordinates(strings.ToUpper(cleaned))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cell reference %q: %w", text, err)
	}
	return c - 1, r - 1, nil
}

// ParseZone parses "A1" or "A1:B2" (corners in any order).
func ParseZone(text string) (Zone, error) {
	left, right, isRange := strings.Cut(text, ":")
	c1, r1, err := ParseCell(left)
	if err != nil {
		return Zone{}, err
	}
	if !isRange {
		return Zone{Top: r1, Left: c1, Bottom: r1, Right: c1}, nil
	}
	c2, r2, err := ParseCell(right)
	if err != nil {
		return Zone{}, err
	}
	return Zone{
		Top:    min(r1, r2),
		Left:   min(c1, c2),
		Bottom: max(r1, r2),
		Right:  max(c1, c2),
	}, nil
}

// SplitReference splits "Sheet1!A1:B2" or "'My Sheet'!A1" into the sheet name
// (unquoted, empty when absent) and the range text.
func SplitReference(text string) (sheetName, rangeText string) {
	idx := strings.LastIndex(text, "!")
	if idx < 0 {
		return "", text
	}
	sheetName = text[:idx]
	rangeText = text[idx+1:]
	if len(sheetName) >= 2 && strings.HasPrefix(sheetName, "'") && strings.HasSuffix(sheetName, "'") {
		sheetName = strings.ReplaceAll(sheetName[1:len(sheetName)-1], "''", "'")
	}
	return sheetName, rangeText
}

// QuoteSheetName quotes a sheet name when it contains anything other than
// letters, digits, dots and underscores.
func QuoteSheetName(name string) string {
	for _, r := range name {
		if !(r == '_' || r == '.' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}
