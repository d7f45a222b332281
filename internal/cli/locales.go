package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newLocalesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "locales",
		Short: "List supported locales",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			var rows []table.Row
			for _, l := range s.locales.List() {
				rows = append(rows, table.Row{
					l.Code, l.DisplayName(), l.DecimalSeparator, fmt.Sprintf("%q", l.ThousandsSeparator),
					l.FormulaArgSeparator, l.DateFormat, l.TimeFormat,
				})
			}
			renderTable(cmd.OutOrStdout(), s.cfg.Output, "",
				table.Row{"Code", "Name", "Decimal", "Thousands", "Arguments", "Date", "Time"}, rows)
			return nil
		},
	}
}

func newFunctionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List available functions",
		Long: `List built-in functions and the Starlark functions loaded from the
functions directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			var rows []table.Row
			for _, name := range s.registry.Names() {
				d, _ := s.registry.Lookup(name)
				maxArgs := "∞"
				if m := d.MaxArgs(); m >= 0 {
					maxArgs = fmt.Sprint(m)
				}
				args := make([]string, len(d.Args))
				for i, a := range d.Args {
					args[i] = a.Name
					if a.IsOptional() {
						args[i] = "[" + a.Name + "]"
					}
					if a.Repeating {
						args[i] += "..."
					}
				}
				volatile := ""
				if d.Volatile {
					volatile = "volatile"
				}
				rows = append(rows, table.Row{
					fmt.Sprintf("%s(%s)", name, strings.Join(args, ", ")),
					fmt.Sprintf("%d..%s", d.MinArgs(), maxArgs),
					volatile,
					d.Description,
				})
			}
			renderTable(cmd.OutOrStdout(), s.cfg.Output, "", table.Row{"Function", "Args", "", "Description"}, rows)
			return nil
		},
	}
}
