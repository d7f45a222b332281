// Package workbook reads and writes YAML workbook documents. Documents hold
// content as the user typed it in the document's locale; loading converts it
// to canonical form before it reaches a store.
package workbook

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vogtb/go-formula/internal/canonical"
	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/store"
	"github.com/vogtb/go-formula/internal/value"
)

// Document is a workbook file.
//
//	locale: fr_FR
//	sheets:
//	  - name: Sheet1
//	    cells:
//	      A1: 1,5
//	      A2: =SOMME(A1;2)
//	    formats:
//	      A1: "0.00"
type Document struct {
	Locale string  `yaml:"locale,omitempty"`
	Sheets []Sheet `yaml:"sheets"`
}

// Sheet is one sheet of a document. Cells and formats are keyed by A1 name.
type Sheet struct {
	Name    string            `yaml:"name"`
	Cells   map[string]string `yaml:"cells,omitempty"`
	Formats map[string]string `yaml:"formats,omitempty"`
}

// Target receives a loaded document. Both stores implement it.
type Target interface {
	SheetID(name string) (string, bool)
	AddSheet(name string) (string, error)
	Set(pos value.Position, content string) error
	SetFormat(pos value.Position, format string) error
	SetLocale(l locale.Locale) error
}

// Source is read when exporting a document.
type Source interface {
	Sheets() []string
	SheetName(id string) (string, bool)
	Positions(sheetID string) []value.Position
	RawContent(pos value.Position) string
	Formats(sheetID string) map[value.Position]string
}

// Parse decodes a YAML document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, store.NewApplicationError(store.InvalidArgument, "invalid workbook: %v", err)
	}
	if len(doc.Sheets) == 0 {
		return nil, store.NewApplicationError(store.InvalidArgument, "workbook has no sheets")
	}
	return &doc, nil
}

// Load reads and decodes the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Encode renders a document as YAML.
func Encode(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// Apply canonicalizes every cell from the document locale and writes the
// document into t. Sheets that already exist in t are reused. It returns the
// sheet IDs in document order.
func (d *Document) Apply(t Target, locales *locale.Registry) ([]string, error) {
	loc, err := d.locale(locales)
	if err != nil {
		return nil, err
	}
	if err := t.SetLocale(loc); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(d.Sheets))
	for _, sh := range d.Sheets {
		id, ok := t.SheetID(sh.Name)
		if !ok {
			if id, err = t.AddSheet(sh.Name); err != nil {
				return nil, err
			}
		}
		for _, name := range sortedKeys(sh.Cells) {
			pos, err := position(id, sh.Name, name)
			if err != nil {
				return nil, err
			}
			if err := t.Set(pos, canonical.CanonicalizeContent(sh.Cells[name], loc)); err != nil {
				return nil, err
			}
		}
		for _, name := range sortedKeys(sh.Formats) {
			pos, err := position(id, sh.Name, name)
			if err != nil {
				return nil, err
			}
			if err := t.SetFormat(pos, sh.Formats[name]); err != nil {
				return nil, err
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (d *Document) locale(locales *locale.Registry) (locale.Locale, error) {
	if d.Locale == "" {
		return locale.Canonical(), nil
	}
	loc, ok := locales.Lookup(d.Locale)
	if !ok {
		return locale.Locale{}, store.NewApplicationError(store.InvalidArgument, "unknown locale %q", d.Locale)
	}
	return loc, nil
}

// Snapshot exports the contents of src, localized to loc.
func Snapshot(src Source, loc locale.Locale) *Document {
	doc := &Document{Locale: loc.Code}
	for _, id := range src.Sheets() {
		name, _ := src.SheetName(id)
		sh := Sheet{Name: name}
		for _, pos := range src.Positions(id) {
			if sh.Cells == nil {
				sh.Cells = make(map[string]string)
			}
			sh.Cells[pos.String()] = canonical.LocalizeContent(src.RawContent(pos), loc)
		}
		for pos, format := range src.Formats(id) {
			if sh.Formats == nil {
				sh.Formats = make(map[string]string)
			}
			sh.Formats[pos.String()] = format
		}
		doc.Sheets = append(doc.Sheets, sh)
	}
	return doc
}

func position(sheetID, sheetName, cell string) (value.Position, error) {
	col, row, err := value.ParseCell(cell)
	if err != nil {
		return value.Position{}, store.NewApplicationError(store.InvalidArgument, "sheet %q: invalid cell %q", sheetName, cell)
	}
	return value.Position{SheetID: sheetID, Col: col, Row: row}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
