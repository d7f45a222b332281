package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newEvalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "eval [workbook.yaml...]",
		Short: "Evaluate workbooks",
		Long: `Load one or more YAML workbooks and print every evaluated cell.

Each workbook gets its own in-memory store and evaluator and they are
evaluated in parallel. With --store, workbooks are loaded into the SQLite
store instead and evaluated together with what it already holds; without
files, the store is evaluated as is.`,
		Example: `  # Evaluate a workbook
  formula eval budget.yaml

  # Evaluate a French workbook, displaying values in German
  formula eval --locale de_DE budget-fr.yaml

  # Load into a persistent store
  formula eval --store book.db budget.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			if s.cfg.Store != "" {
				return runEvalStore(cmd, s, args)
			}
			if len(args) == 0 {
				return fmt.Errorf("at least one workbook is required without --store")
			}
			return runEvalFiles(cmd, s, args)
		},
	}
}

func runEvalFiles(cmd *cobra.Command, s *session, paths []string) error {
	results := make([][]cellResult, len(paths))

	g, ctx := errgroup.WithContext(cmd.Context())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st, closeStore, err := s.openStore(false)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			if err := s.load(path, st); err != nil {
				return err
			}
			results[i] = s.evaluateAll(st, s.evaluator(st))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, path := range paths {
		renderCells(cmd.OutOrStdout(), s.cfg.Output, path, results[i])
	}
	return nil
}

func runEvalStore(cmd *cobra.Command, s *session, paths []string) error {
	st, closeStore, err := s.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	for _, path := range paths {
		if err := s.load(path, st); err != nil {
			return err
		}
	}
	if len(st.Sheets()) == 0 {
		return fmt.Errorf("store %s is empty", s.cfg.Store)
	}
	renderCells(cmd.OutOrStdout(), s.cfg.Output, s.cfg.Store, s.evaluateAll(st, s.evaluator(st)))
	return nil
}
