package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 100 * time.Millisecond

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch WORKBOOK",
		Short: "Re-evaluate a workbook whenever it changes",
		Long: `Evaluate a workbook, then watch the file and print the evaluated cells
again after every save. Load errors are reported and watching continues.
Watch always uses an in-memory store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, sessionFrom(cmd), args[0])
		},
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command, s *session, path string) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// editors often replace the file on save, so watch its directory
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	evaluate := func() {
		st, closeStore, err := s.openStore(false)
		if err != nil {
			s.logger.Error("failed to open store", "error", err)
			return
		}
		defer func() { _ = closeStore() }()

		if err := s.load(path, st); err != nil {
			s.logger.Error("failed to load workbook", "path", path, "error", err)
			return
		}
		renderCells(cmd.OutOrStdout(), s.cfg.Output, path, s.evaluateAll(st, s.evaluator(st)))
	}
	evaluate()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(watchDebounce)

		case <-pending:
			pending = nil
			s.logger.Debug("workbook changed, re-evaluating", "path", path)
			evaluate()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
