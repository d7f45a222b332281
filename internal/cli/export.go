package cli

import (
	"github.com/spf13/cobra"

	"github.com/vogtb/go-formula/internal/workbook"
)

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [workbook.yaml]",
		Short: "Rewrite a workbook in the configured locale",
		Long: `Load a workbook (or the --store database) and write it back as YAML with
every number, date and formula rendered in the configured locale.`,
		Example: `  # Translate a French workbook to US English
  formula export --locale en_US budget-fr.yaml > budget.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			st, closeStore, err := s.openStore(len(args) == 0)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			if len(args) == 1 {
				if err := s.load(args[0], st); err != nil {
					return err
				}
			}
			out, err := workbook.Encode(workbook.Snapshot(st, s.locale))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
