package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vogtb/go-formula/internal/canonical"
)

func newCalcCommand() *cobra.Command {
	var sheetName string

	cmd := &cobra.Command{
		Use:   "calc FORMULA [workbook.yaml]",
		Short: "Evaluate one formula",
		Long: `Evaluate a formula typed in the configured locale, optionally against a
workbook. References without a sheet name point into the first sheet, or
the sheet given with --sheet. Nothing is written to the workbook.`,
		Example: `  formula calc "=SUM(1,2)"
  formula calc --locale fr_FR "=SOMME(1,5;2)"
  formula calc "=SUM(A1:A3)" budget.yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			if err := checkTokens(args[0], s.locale, s.cfg.MaxTokens); err != nil {
				return err
			}
			text := canonical.CanonicalizeContent(args[0], s.locale)

			st, closeStore, err := s.openStore(len(args) == 1)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			if len(args) == 2 {
				if err := s.load(args[1], st); err != nil {
					return err
				}
			}
			if len(st.Sheets()) == 0 {
				if _, err := st.AddSheet("Sheet1"); err != nil {
					return err
				}
			}

			sheetID := st.Sheets()[0]
			if sheetName != "" {
				id, ok := st.SheetID(sheetName)
				if !ok {
					return fmt.Errorf("sheet %q not found", sheetName)
				}
				sheetID = id
			}

			result, err := s.evaluator(st).EvaluateAdHoc(sheetID, text)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), displayOperand(result, s.locale))
			return nil
		},
	}
	cmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet unqualified references point into")
	return cmd
}
