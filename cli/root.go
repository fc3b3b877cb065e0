package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/isdmx/evalbox/config"
	"github.com/isdmx/evalbox/logger"
	"github.com/isdmx/evalbox/runner"
	"github.com/isdmx/evalbox/sandbox"
	"github.com/isdmx/evalbox/store"
)

// NewRootCmd creates the evalbox root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "evalbox",
		Short:         "Sandboxed batch evaluation runner",
		Long:          "evalbox runs candidate implementations against serialized test-case inputs,\ncapturing one result file and one stdout/stderr log pair per test case.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// deps bundles the manually wired dependencies of the batch commands
type deps struct {
	cfg    *config.Config
	logger *zap.Logger
	box    sandbox.Sandbox
	runner *runner.Runner
}

// buildDeps loads the configuration and constructs the runner stack
func buildDeps() (*deps, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	box, err := sandbox.NewSandbox(log, cfg)
	if err != nil {
		return nil, err
	}

	return &deps{
		cfg:    cfg,
		logger: log,
		box:    box,
		runner: runner.New(log, cfg, box),
	}, nil
}

// recordOutcomes persists completed reports to the history store, if one is
// configured. History failures are logged, not fatal: the outputs tree is
// the authoritative record.
func recordOutcomes(d *deps, outcomes map[string]*runner.RunOutcome) {
	if d.cfg.Paths.HistoryDB == "" {
		return
	}

	st, err := store.Open(d.logger, d.cfg.Paths.HistoryDB)
	if err != nil {
		d.logger.Warn("failed to open history db", zap.Error(err))
		return
	}
	defer st.Close()

	for _, outcome := range outcomes {
		if outcome.Report == nil {
			continue
		}
		if err := st.RecordReport(outcome.Report); err != nil {
			d.logger.Warn("failed to record run history",
				zap.String("implementation", outcome.Report.ImplementationID),
				zap.Error(err))
		}
	}
}

// failedRuns collects the implementation ids whose runs did not complete
func failedRuns(outcomes map[string]*runner.RunOutcome) []string {
	var failed []string
	for implID, outcome := range outcomes {
		if outcome.Err != nil {
			failed = append(failed, implID)
		}
	}
	return failed
}

// infraError renders a non-completing run set as a command error
func infraError(failed []string) error {
	return fmt.Errorf("evaluation did not complete for %d implementation(s): %v", len(failed), failed)
}
