package store

import (
	"database/sql"
	"errors"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vogtb/go-formula/internal/engine"
	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/value"
)

// SchemaVersion is the current schema version
const SchemaVersion = "1"

// SQLiteStore persists a workbook in SQLite. Reads are served from an
// in-memory copy loaded at open time; every mutation is written through.
type SQLiteStore struct {
	*MemoryStore

	mu sync.Mutex
	db *sql.DB
}

var _ engine.Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the workbook database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, NewApplicationError(Internal, "failed to open %s: %v", path, err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sheets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			ordinal INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS cells (
			sheet_id TEXT NOT NULL,
			col INTEGER NOT NULL,
			row INTEGER NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			format TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (sheet_id, col, row),
			FOREIGN KEY (sheet_id) REFERENCES sheets(id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, NewApplicationError(Internal, "failed to create schema: %v", err)
	}

	s := &SQLiteStore{MemoryStore: NewMemoryStore(), db: db}

	version, err := s.metadata("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadata("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, NewApplicationError(FailedPrecondition, "unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// load copies the database into the in-memory store
func (s *SQLiteStore) load() error {
	encoded, err := s.metadata("locale")
	if err != nil {
		return err
	}
	if encoded != "" {
		var l locale.Locale
		if err := yaml.Unmarshal([]byte(encoded), &l); err != nil {
			return NewApplicationError(Internal, "invalid stored locale: %v", err)
		}
		if err := s.MemoryStore.SetLocale(l); err != nil {
			return err
		}
	}
	if err := s.loadSheets(); err != nil {
		return err
	}
	return s.loadCells()
}

func (s *SQLiteStore) loadSheets() error {
	rows, err := s.db.Query("SELECT id, name FROM sheets ORDER BY ordinal")
	if err != nil {
		return NewApplicationError(Internal, "failed to load sheets: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return NewApplicationError(Internal, "failed to load sheets: %v", err)
		}
		if _, err := s.MemoryStore.addSheet(id, name); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return NewApplicationError(Internal, "failed to load sheets: %v", err)
	}
	return nil
}

func (s *SQLiteStore) loadCells() error {
	rows, err := s.db.Query("SELECT sheet_id, col, row, content, format FROM cells")
	if err != nil {
		return NewApplicationError(Internal, "failed to load cells: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos value.Position
		var content, format string
		if err := rows.Scan(&pos.SheetID, &pos.Col, &pos.Row, &content, &format); err != nil {
			return NewApplicationError(Internal, "failed to load cells: %v", err)
		}
		if err := s.MemoryStore.Set(pos, content); err != nil {
			return err
		}
		if err := s.MemoryStore.SetFormat(pos, format); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return NewApplicationError(Internal, "failed to load cells: %v", err)
	}
	return nil
}

func (s *SQLiteStore) AddSheet(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.MemoryStore.AddSheet(name)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec("INSERT INTO sheets (id, name, ordinal) VALUES (?, ?, (SELECT COALESCE(MAX(ordinal), 0) + 1 FROM sheets))", id, name)
	if err != nil {
		_ = s.MemoryStore.RemoveSheet(id)
		return "", NewApplicationError(Internal, "failed to add sheet %q: %v", name, err)
	}
	return id, nil
}

func (s *SQLiteStore) RemoveSheet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.MemoryStore.RemoveSheet(id); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return NewApplicationError(Internal, "failed to remove sheet: %v", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	if _, err := tx.Exec("DELETE FROM cells WHERE sheet_id = ?", id); err != nil {
		return NewApplicationError(Internal, "failed to remove sheet cells: %v", err)
	}
	if _, err := tx.Exec("DELETE FROM sheets WHERE id = ?", id); err != nil {
		return NewApplicationError(Internal, "failed to remove sheet: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return NewApplicationError(Internal, "failed to remove sheet: %v", err)
	}
	return nil
}

func (s *SQLiteStore) RenameSheet(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.MemoryStore.RenameSheet(id, name); err != nil {
		return err
	}
	if _, err := s.db.Exec("UPDATE sheets SET name = ? WHERE id = ?", name, id); err != nil {
		return NewApplicationError(Internal, "failed to rename sheet: %v", err)
	}
	return nil
}

func (s *SQLiteStore) Set(pos value.Position, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.MemoryStore.Set(pos, content); err != nil {
		return err
	}
	return s.persistCell(pos)
}

func (s *SQLiteStore) SetFormat(pos value.Position, format string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.MemoryStore.SetFormat(pos, format); err != nil {
		return err
	}
	return s.persistCell(pos)
}

// persistCell writes the in-memory state of a cell, deleting the row when
// the cell has neither content nor format
func (s *SQLiteStore) persistCell(pos value.Position) error {
	content := s.MemoryStore.RawContent(pos)
	format := s.MemoryStore.Format(pos)
	var err error
	if content == "" && format == "" {
		_, err = s.db.Exec("DELETE FROM cells WHERE sheet_id = ? AND col = ? AND row = ?", pos.SheetID, pos.Col, pos.Row)
	} else {
		_, err = s.db.Exec(`
			INSERT INTO cells (sheet_id, col, row, content, format) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(sheet_id, col, row) DO UPDATE SET content = excluded.content, format = excluded.format
		`, pos.SheetID, pos.Col, pos.Row, content, format)
	}
	if err != nil {
		return NewApplicationError(Internal, "failed to store cell %s: %v", pos, err)
	}
	return nil
}

// SetLocale changes and persists the workbook locale.
func (s *SQLiteStore) SetLocale(l locale.Locale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.MemoryStore.SetLocale(l); err != nil {
		return err
	}
	encoded, err := yaml.Marshal(l)
	if err != nil {
		return NewApplicationError(Internal, "failed to encode locale: %v", err)
	}
	return s.setMetadata("locale", string(encoded))
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) metadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", NewApplicationError(Internal, "failed to read metadata %s: %v", key, err)
	}
	return v, nil
}

func (s *SQLiteStore) setMetadata(key, v string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, v)
	if err != nil {
		return NewApplicationError(Internal, "failed to write metadata %s: %v", key, err)
	}
	return nil
}
