// Package cli provides the command-line interface for the formula engine.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vogtb/go-formula/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// sessionKey is used to store the session in the command context.
type sessionKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "formula",
		Short: "Evaluate spreadsheet formulas and workbooks",
		Long: `formula evaluates spreadsheet formulas written in any supported locale.

Workbooks are YAML documents listing sheets, cell contents and formats.
Content is converted to the canonical locale on load, evaluated through the
dependency graph and rendered back in the configured locale.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			level, _ := cfg.Level()
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			s, err := newSession(cfg, logger)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, s))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./formula.yaml)")
	rootCmd.PersistentFlags().StringP("locale", "l", "", "Locale content is typed and displayed in (e.g. fr_FR)")
	rootCmd.PersistentFlags().String("functions-dir", "", "Directory of Starlark function files")
	rootCmd.PersistentFlags().String("store", "", "SQLite workbook store (empty for in-memory)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|plain)")
	rootCmd.PersistentFlags().Int("max-tokens", 0, "Reject formulas with more tokens than this")
	rootCmd.PersistentFlags().Int("max-passes", 0, "Recomputations allowed per formula cell before giving up")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputTable, config.OutputPlain}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newEvalCommand())
	rootCmd.AddCommand(newCalcCommand())
	rootCmd.AddCommand(newTokensCommand())
	rootCmd.AddCommand(newCanonicalizeCommand())
	rootCmd.AddCommand(newLocalizeCommand())
	rootCmd.AddCommand(newDepsCommand())
	rootCmd.AddCommand(newLocalesCommand())
	rootCmd.AddCommand(newFunctionsCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// sessionFrom retrieves the session from the command context.
func sessionFrom(cmd *cobra.Command) *session {
	if s, ok := cmd.Context().Value(sessionKey{}).(*session); ok {
		return s
	}
	s, err := newSession(config.Default(), slog.Default())
	if err != nil {
		panic(err)
	}
	return s
}
