// Package store holds workbook cells for the evaluator: sheets, raw
// canonical contents, explicit formats and the workbook locale.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vogtb/go-formula/internal/engine"
	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/value"
)

// cellKey addresses a cell within a sheet
type cellKey struct {
	col int
	row int
}

type sheet struct {
	id      string
	name    string
	cells   map[cellKey]string
	formats map[cellKey]string
}

func newSheet(id, name string) *sheet {
	return &sheet{
		id:      id,
		name:    name,
		cells:   make(map[cellKey]string),
		formats: make(map[cellKey]string),
	}
}

// MemoryStore keeps a workbook in memory. Sheets are identified by UUIDs and
// looked up by case-insensitive name.
type MemoryStore struct {
	mu     sync.RWMutex
	sheets map[string]*sheet
	order  []string
	names  map[string]string
	locale locale.Locale
}

var _ engine.Store = (*MemoryStore)(nil)
var _ engine.SheetLister = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store using the canonical locale.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sheets: make(map[string]*sheet),
		names:  make(map[string]string),
		locale: locale.Canonical(),
	}
}

// AddSheet creates a sheet and returns its ID.
func (s *MemoryStore) AddSheet(name string) (string, error) {
	return s.addSheet(uuid.NewString(), name)
}

func (s *MemoryStore) addSheet(id, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		return "", NewApplicationError(InvalidArgument, "sheet name cannot be empty")
	}
	key := strings.ToLower(name)
	if _, exists := s.names[key]; exists {
		return "", NewApplicationError(AlreadyExists, "sheet %q already exists", name)
	}
	s.sheets[id] = newSheet(id, name)
	s.order = append(s.order, id)
	s.names[key] = id
	return id, nil
}

// RemoveSheet deletes a sheet and all its cells. The last sheet cannot be
// removed.
func (s *MemoryStore) RemoveSheet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.sheets[id]
	if !ok {
		return NewApplicationError(NotFound, "sheet %s not found", id)
	}
	if len(s.sheets) == 1 {
		return NewApplicationError(FailedPrecondition, "cannot remove the last sheet")
	}
	delete(s.names, strings.ToLower(sh.name))
	delete(s.sheets, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// RenameSheet renames a sheet, keeping its ID.
func (s *MemoryStore) RenameSheet(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.sheets[id]
	if !ok {
		return NewApplicationError(NotFound, "sheet %s not found", id)
	}
	if strings.TrimSpace(name) == "" {
		return NewApplicationError(InvalidArgument, "sheet name cannot be empty")
	}
	key := strings.ToLower(name)
	if other, exists := s.names[key]; exists && other != id {
		return NewApplicationError(AlreadyExists, "sheet %q already exists", name)
	}
	delete(s.names, strings.ToLower(sh.name))
	sh.name = name
	s.names[key] = id
	return nil
}

// SheetID looks a sheet up by name.
func (s *MemoryStore) SheetID(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[strings.ToLower(name)]
	return id, ok
}

// SheetName returns the name of a sheet.
func (s *MemoryStore) SheetName(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.sheets[id]
	if !ok {
		return "", false
	}
	return sh.name, true
}

// Sheets returns sheet IDs in creation order.
func (s *MemoryStore) Sheets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Set stores canonical raw content. Empty content clears the cell.
func (s *MemoryStore) Set(pos value.Position, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.sheetFor(pos)
	if err != nil {
		return err
	}
	key := cellKey{col: pos.Col, row: pos.Row}
	if content == "" {
		delete(sh.cells, key)
		return nil
	}
	sh.cells[key] = content
	return nil
}

// SetFormat stores an explicit display format. An empty format clears it.
func (s *MemoryStore) SetFormat(pos value.Position, format string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.sheetFor(pos)
	if err != nil {
		return err
	}
	key := cellKey{col: pos.Col, row: pos.Row}
	if format == "" {
		delete(sh.formats, key)
		return nil
	}
	sh.formats[key] = format
	return nil
}

// SetLocale validates and changes the workbook locale.
func (s *MemoryStore) SetLocale(l locale.Locale) error {
	if err := locale.Validate(l); err != nil {
		return NewApplicationError(InvalidArgument, "%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = l
	return nil
}

func (s *MemoryStore) sheetFor(pos value.Position) (*sheet, error) {
	if pos.Col < 0 || pos.Row < 0 {
		return nil, NewApplicationError(InvalidArgument, "invalid cell position %d,%d", pos.Col, pos.Row)
	}
	sh, ok := s.sheets[pos.SheetID]
	if !ok {
		return nil, NewApplicationError(NotFound, "sheet %s not found", pos.SheetID)
	}
	return sh, nil
}

func (s *MemoryStore) RawContent(pos value.Position) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sh, ok := s.sheets[pos.SheetID]; ok {
		return sh.cells[cellKey{col: pos.Col, row: pos.Row}]
	}
	return ""
}

func (s *MemoryStore) Format(pos value.Position) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sh, ok := s.sheets[pos.SheetID]; ok {
		return sh.formats[cellKey{col: pos.Col, row: pos.Row}]
	}
	return ""
}

func (s *MemoryStore) Locale() locale.Locale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

func (s *MemoryStore) CellKind(pos value.Position) engine.CellKind {
	return engine.KindOf(s.RawContent(pos))
}

// ResolveRange resolves reference text relative to sheetID. Unknown sheets
// and malformed ranges are flagged rather than rejected.
func (s *MemoryStore) ResolveRange(sheetID, rangeText string) engine.ResolvedRange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, cells := value.SplitReference(rangeText)
	resolved := engine.ResolvedRange{SheetID: sheetID, SheetName: name}
	if name != "" {
		id, ok := s.names[strings.ToLower(name)]
		if !ok {
			resolved.InvalidSheet = true
			return resolved
		}
		resolved.SheetID = id
	}
	sh, ok := s.sheets[resolved.SheetID]
	if !ok {
		resolved.InvalidSheet = true
		return resolved
	}
	resolved.SheetName = sh.name

	zone, err := value.ParseZone(cells)
	if err != nil {
		resolved.InvalidRange = true
		return resolved
	}
	resolved.Zone = zone
	return resolved
}

// Positions lists the non-empty cells of a sheet in row-major order.
func (s *MemoryStore) Positions(sheetID string) []value.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.sheets[sheetID]
	if !ok {
		return nil
	}
	positions := make([]value.Position, 0, len(sh.cells))
	for key := range sh.cells {
		positions = append(positions, value.Position{SheetID: sheetID, Col: key.col, Row: key.row})
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Less(positions[j])
	})
	return positions
}

// Formats lists the explicitly formatted cells of a sheet.
func (s *MemoryStore) Formats(sheetID string) map[value.Position]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.sheets[sheetID]
	if !ok {
		return nil
	}
	formats := make(map[value.Position]string, len(sh.formats))
	for key, f := range sh.formats {
		formats[value.Position{SheetID: sheetID, Col: key.col, Row: key.row}] = f
	}
	return formats
}
