package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vogtb/go-formula/internal/compiler"
	"github.com/vogtb/go-formula/internal/engine"
	"github.com/vogtb/go-formula/internal/value"
)

func newDepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps WORKBOOK CELL",
		Short: "Show what a formula cell reads",
		Long: `Print the shape of a formula, the cells it reads (ranges expanded) and
where its display format comes from. CELL is "A1" (first sheet) or
"Sheet!A1".`,
		Example: `  formula deps budget.yaml B4
  formula deps budget.yaml "'Q1 2024'!C3"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			st, closeStore, err := s.openStore(false)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			if err := s.load(args[0], st); err != nil {
				return err
			}
			pos, err := cellPosition(st, args[1])
			if err != nil {
				return err
			}
			content := st.RawContent(pos)
			if engine.KindOf(content) != engine.CellFormula {
				return fmt.Errorf("%s does not hold a formula", args[1])
			}

			unit, nf, err := compiler.CompileText(content, s.registry)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Formula: %s\n", localize(content, s.locale))
			_, _ = fmt.Fprintf(w, "Shape:   %s\n", unit.Shape)
			_, _ = fmt.Fprintf(w, "Format:  %s\n", describeFormats(unit.DependenciesFormat, nf.References))

			ev := s.evaluator(st)
			var rows []table.Row
			for _, p := range ev.GetReferencedPositions(pos) {
				name, _ := st.SheetName(p.SheetID)
				cell := ev.Evaluate(p)
				rows = append(rows, table.Row{name + "!" + p.String(), display(cell.Value, cell.Format, s.locale)})
			}
			renderTable(w, s.cfg.Output, "", table.Row{"Reads", "Value"}, rows)
			return nil
		},
	}
}

// cellPosition resolves "A1" or "Sheet!A1" in st
func cellPosition(st workbookStore, text string) (value.Position, error) {
	sheets := st.Sheets()
	if len(sheets) == 0 {
		return value.Position{}, fmt.Errorf("workbook has no sheets")
	}
	sheetID := sheets[0]
	name, cell := value.SplitReference(text)
	if name != "" {
		id, ok := st.SheetID(name)
		if !ok {
			return value.Position{}, fmt.Errorf("sheet %q not found", name)
		}
		sheetID = id
	}
	col, row, err := value.ParseCell(cell)
	if err != nil {
		return value.Position{}, err
	}
	return value.Position{SheetID: sheetID, Col: col, Row: row}, nil
}

func describeFormats(formats []compiler.FormatSource, refs []string) string {
	if len(formats) == 0 {
		return "(none)"
	}
	parts := make([]string, len(formats))
	for i, f := range formats {
		if f.IsReference() {
			parts[i] = "format of " + refs[f.Ref]
		} else {
			parts[i] = fmt.Sprintf("%q", f.Format)
		}
	}
	return strings.Join(parts, ", then ")
}
