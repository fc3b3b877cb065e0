package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/isdmx/evalbox/runner"
)

// newRunCmd creates the run command
func newRunCmd() *cobra.Command {
	var (
		all        bool
		timeoutSec int
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "run [implementation-id...]",
		Short: "Evaluate implementations against every test case",
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.logger.Sync() //nolint:errcheck // Best-effort flush on exit

			if timeoutSec > 0 {
				d.cfg.Runner.TimeoutSec = timeoutSec
			}
			if workers > 0 {
				d.cfg.Runner.Workers = workers
			}

			implIDs := args
			if all {
				implIDs, err = runner.DiscoverImplementations(d.cfg.Paths.Imps)
				if err != nil {
					return err
				}
			}
			if len(implIDs) == 0 {
				return fmt.Errorf("no implementations to evaluate; pass ids or use --all")
			}
			sort.Strings(implIDs)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := d.box.Prepare(ctx); err != nil {
				return fmt.Errorf("sandbox preparation failed: %w", err)
			}

			d.logger.Info("starting evaluation",
				zap.Strings("implementations", implIDs),
				zap.Int("workers", d.cfg.Runner.Workers),
				zap.Int("timeout_sec", d.cfg.Runner.TimeoutSec))

			pool := runner.NewPool(d.logger, d.runner, d.cfg.Runner.Workers)
			outcomes := pool.Run(ctx, implIDs)

			recordOutcomes(d, outcomes)

			if failed := failedRuns(outcomes); len(failed) > 0 {
				return infraError(failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "evaluate every implementation under the imps directory")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "per-test timeout in seconds (overrides config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel implementation evaluations (overrides config)")

	return cmd
}
