package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vogtb/go-formula/internal/canonical"
	"github.com/vogtb/go-formula/internal/formula"
)

func newTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens FORMULA",
		Short: "Print the tokens of a formula",
		Long: `Tokenize a formula with the separators of the configured locale. The
tokenizer never fails: characters it cannot classify become UNKNOWN tokens.`,
		Example: `  formula tokens "=SUM(A1:B2, 3)"
  formula tokens --locale fr_FR "=SOMME(1,5;2)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			if err := checkTokens(args[0], s.locale, s.cfg.MaxTokens); err != nil {
				return err
			}
			tokens := formula.Tokenize(args[0], s.locale)
			rows := make([]table.Row, 0, len(tokens))
			for _, tok := range tokens {
				rows = append(rows, table.Row{tok.Kind, tok.Text, tok.Span.Start, tok.Span.End})
			}
			renderTable(cmd.OutOrStdout(), s.cfg.Output, "", table.Row{"Kind", "Text", "Start", "End"}, rows)
			return nil
		},
	}
}

func newCanonicalizeCommand() *cobra.Command {
	var numbersOnly bool

	cmd := &cobra.Command{
		Use:   "canonicalize CONTENT",
		Short: "Convert content from the configured locale to canonical form",
		Example: `  formula canonicalize --locale fr_FR "=SOMME(1,5;2)"
  formula canonicalize --locale de_DE "15.01.2024"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			out := canonical.CanonicalizeContent(args[0], s.locale)
			if numbersOnly {
				out = canonical.CanonicalizeNumberContent(args[0], s.locale)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&numbersOnly, "numbers-only", false, "Leave dates untouched")
	return cmd
}

func newLocalizeCommand() *cobra.Command {
	var numbersOnly bool

	cmd := &cobra.Command{
		Use:   "localize CONTENT",
		Short: "Convert canonical content to the configured locale",
		Example: `  formula localize --locale fr_FR "=SUM(1.5,2)"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			out := canonical.LocalizeContent(args[0], s.locale)
			if numbersOnly {
				out = canonical.LocalizeNumberContent(args[0], s.locale)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&numbersOnly, "numbers-only", false, "Leave dates untouched")
	return cmd
}
