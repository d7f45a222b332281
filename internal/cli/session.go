package cli

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vogtb/go-formula/internal/config"
	"github.com/vogtb/go-formula/internal/engine"
	"github.com/vogtb/go-formula/internal/formula"
	"github.com/vogtb/go-formula/internal/functions"
	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/store"
	"github.com/vogtb/go-formula/internal/value"
	"github.com/vogtb/go-formula/internal/workbook"
)

// workbookStore is what a command loads workbooks into and evaluates from
type workbookStore interface {
	engine.Store
	engine.SheetLister
	workbook.Target
	workbook.Source
}

var (
	_ workbookStore = (*store.MemoryStore)(nil)
	_ workbookStore = (*store.SQLiteStore)(nil)
)

// session is the per-invocation state shared by all commands
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	locales  *locale.Registry
	registry *functions.Registry
	locale   locale.Locale
}

func newSession(cfg *config.Config, logger *slog.Logger) (*session, error) {
	locales := locale.NewDefaultRegistry()
	loc, ok := locales.Lookup(cfg.Locale)
	if !ok {
		return nil, fmt.Errorf("unknown locale %q (see 'formula locales')", cfg.Locale)
	}

	registry := functions.NewDefaultRegistry()
	names, err := functions.LoadStarlarkFunctions(cfg.FunctionsDir, registry, logger)
	if err != nil {
		// broken function files are reported but do not stop the session
		logger.Warn("some functions failed to load", "dir", cfg.FunctionsDir, "error", err)
	}
	if len(names) > 0 {
		logger.Debug("loaded functions", "dir", cfg.FunctionsDir, "count", len(names))
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		locales:  locales,
		registry: registry,
		locale:   loc,
	}, nil
}

// openStore opens the configured store. In-memory stores are always fresh;
// persistent ones keep what earlier runs loaded.
func (s *session) openStore(persistent bool) (workbookStore, func() error, error) {
	if persistent && s.cfg.Store != "" {
		st, err := store.OpenSQLite(s.cfg.Store)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	}
	return store.NewMemoryStore(), func() error { return nil }, nil
}

// load applies a workbook file to st
func (s *session) load(path string, st workbookStore) error {
	doc, err := workbook.Load(path)
	if err != nil {
		return err
	}
	if _, err := doc.Apply(&tokenGuard{Target: st, max: s.cfg.MaxTokens}, s.locales); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.logger.Debug("loaded workbook", "path", path, "sheets", len(doc.Sheets))
	return nil
}

// evaluator builds an evaluator over st and registers every sheet's formulas
func (s *session) evaluator(st workbookStore) *engine.Evaluator {
	ev := engine.New(st, s.registry, engine.Options{
		Logger:    s.logger,
		MaxPasses: s.cfg.MaxPasses,
	})
	for _, id := range st.Sheets() {
		ev.StructureChanged(id)
	}
	return ev
}

// cellResult is one evaluated cell, rendered for the session locale
type cellResult struct {
	Sheet   string
	Cell    string
	Content string
	Value   string
	Format  string
	Message string
}

// evaluateAll evaluates every content cell and every cell a spilled array
// covers, in sheet order then row-major order.
func (s *session) evaluateAll(st workbookStore, ev *engine.Evaluator) []cellResult {
	var results []cellResult
	for _, id := range st.Sheets() {
		name, _ := st.SheetName(id)

		seen := make(map[value.Position]struct{})
		var positions []value.Position
		add := func(p value.Position) {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				positions = append(positions, p)
			}
		}
		for _, pos := range st.Positions(id) {
			add(pos)
			if zone, ok := ev.SpillZone(pos); ok {
				for p := range zone.Positions(id) {
					add(p)
				}
			}
		}
		sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })

		for _, pos := range positions {
			cell := ev.Evaluate(pos)
			r := cellResult{
				Sheet:   name,
				Cell:    pos.String(),
				Content: localize(st.RawContent(pos), s.locale),
				Value:   display(cell.Value, cell.Format, s.locale),
				Format:  cell.Format,
			}
			if err := cell.Error(); err != nil {
				r.Message = err.Message
			}
			results = append(results, r)
		}
	}
	return results
}

// tokenGuard rejects formulas that tokenize into more than max tokens
// before they reach the store
type tokenGuard struct {
	workbook.Target
	max int
}

func (g *tokenGuard) Set(pos value.Position, content string) error {
	if err := checkTokens(content, locale.Canonical(), g.max); err != nil {
		return fmt.Errorf("%s: %w", pos, err)
	}
	return g.Target.Set(pos, content)
}

func checkTokens(content string, loc locale.Locale, limit int) error {
	if engine.KindOf(content) != engine.CellFormula {
		return nil
	}
	if n := len(formula.Tokenize(content, loc)); n > limit {
		return store.NewApplicationError(store.InvalidArgument, "formula has %d tokens, more than the limit of %d", n, limit)
	}
	return nil
}
