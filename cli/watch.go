package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/isdmx/evalbox/runner"
	"github.com/isdmx/evalbox/watcher"
)

// newWatchCmd creates the watch command
func newWatchCmd() *cobra.Command {
	var settleMS int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Evaluate implementations as they arrive in the imps directory",
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.logger.Sync() //nolint:errcheck // Best-effort flush on exit

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := d.box.Prepare(ctx); err != nil {
				return fmt.Errorf("sandbox preparation failed: %w", err)
			}

			pool := runner.NewPool(d.logger, d.runner, d.cfg.Runner.Workers)

			// Arrivals are dispatched from the watcher's settle timers, so
			// two can fire while an evaluation is still running. Evaluate
			// one implementation at a time; waiting here never blocks the
			// watcher's event loop.
			var mu sync.Mutex
			evaluate := func(implID string) {
				mu.Lock()
				defer mu.Unlock()
				outcomes := pool.Run(ctx, []string{implID})
				recordOutcomes(d, outcomes)
			}

			// Evaluate what is already there before watching for arrivals.
			existing, err := runner.DiscoverImplementations(d.cfg.Paths.Imps)
			if err != nil {
				return err
			}
			for _, implID := range existing {
				if ctx.Err() != nil {
					return nil
				}
				evaluate(implID)
			}

			w, err := watcher.New(d.logger, d.cfg.Paths.Imps,
				time.Duration(settleMS)*time.Millisecond, evaluate)
			if err != nil {
				return err
			}

			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			d.logger.Info("watch stopped", zap.String("dir", d.cfg.Paths.Imps))
			return nil
		},
	}

	cmd.Flags().IntVar(&settleMS, "settle-ms", 500, "delay after an implementation arrives before evaluating it")

	return cmd
}
