package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/evalbox/config"
	"github.com/isdmx/evalbox/sandbox"
)

// Log file names within each test's log directory
const (
	StdoutFileName = "stdout.txt"
	StderrFileName = "stderr.txt"
	ReportFileName = "report.yaml"
)

// Runner evaluates one implementation against every discovered test case
type Runner struct {
	logger *zap.Logger
	cfg    *config.Config
	box    sandbox.Sandbox
}

// New creates a new Runner
func New(logger *zap.Logger, cfg *config.Config, box sandbox.Sandbox) *Runner {
	return &Runner{
		logger: logger,
		cfg:    cfg,
		box:    box,
	}
}

// Run executes the implementation identified by implID against every test
// case under the inputs directory. Per-test failures are recorded in the
// report and do not abort the loop; a returned error means the run itself
// could not complete (setup failure, unreadable inputs directory, or an
// I/O failure writing results or logs).
func (r *Runner) Run(ctx context.Context, implID string) (*Report, error) {
	if err := validateImplementationID(implID); err != nil {
		return nil, err
	}

	report := &Report{
		ImplementationID: implID,
		StartedAt:        time.Now().UTC(),
	}

	if err := r.runSetup(ctx, implID); err != nil {
		return nil, err
	}

	cases, err := DiscoverTestCases(r.cfg.Paths.Inputs)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		r.logger.Warn("no test cases found", zap.String("inputs", r.cfg.Paths.Inputs))
	}

	outDir := filepath.Join(r.cfg.Paths.Outputs, implID)
	if err := os.MkdirAll(outDir, sandbox.DirPermission); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	for _, tc := range cases {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("run canceled: %w", ctx.Err())
		}

		result, testErr := r.runTest(ctx, implID, tc)
		if testErr != nil {
			return nil, testErr
		}
		report.Results = append(report.Results, result)

		r.logger.Info("test case finished",
			zap.String("implementation", implID),
			zap.Int("test", tc.Index),
			zap.String("status", result.Status),
			zap.Int("exit_code", result.ExitCode),
			zap.Int64("duration_ms", result.DurationMS))
	}

	report.FinishedAt = time.Now().UTC()

	reportPath := filepath.Join(outDir, ReportFileName)
	if err := WriteReport(reportPath, report); err != nil {
		return nil, err
	}

	r.logger.Info("evaluation run complete",
		zap.String("implementation", implID),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()))

	return report, nil
}

// runSetup executes the optional setup script from the workspace directory.
// A missing setup script is a valid no-op; a non-zero exit is fatal to the
// whole run, before any test is attempted.
func (r *Runner) runSetup(ctx context.Context, implID string) error {
	script := r.cfg.Runner.SetupScript
	if script == "" {
		r.logger.Debug("no setup script configured, skipping setup phase")
		return nil
	}

	logDir := filepath.Join(r.cfg.Paths.Logs, implID, "setup")
	r.logger.Info("running setup script",
		zap.String("implementation", implID),
		zap.String("script", script))

	status, err := r.box.Exec(ctx, sandbox.ExecSpec{
		Argv:       []string{"/bin/sh", script},
		Dir:        r.cfg.Paths.Workspace,
		Env:        map[string]string{r.cfg.Runner.HotswapEnv: implID},
		StdoutPath: filepath.Join(logDir, StdoutFileName),
		StderrPath: filepath.Join(logDir, StderrFileName),
		Timeout:    r.cfg.Runner.SetupTimeoutSec,
	})
	if err != nil {
		return fmt.Errorf("setup execution failed: %w", err)
	}
	if status.TimedOut {
		return &SetupError{Script: script, ExitCode: status.ExitCode, TimedOut: true}
	}
	if status.ExitCode != 0 {
		return &SetupError{Script: script, ExitCode: status.ExitCode}
	}
	return nil
}

// runTest executes one test case. The returned error is reserved for
// infrastructure failures; every per-test failure mode is reflected in the
// TestResult instead, so the caller can continue with the next test case.
func (r *Runner) runTest(ctx context.Context, implID string, tc TestCase) (TestResult, error) {
	logDir := filepath.Join(r.cfg.Paths.Logs, implID, fmt.Sprintf("test_%d", tc.Index))
	stdoutPath := filepath.Join(logDir, StdoutFileName)
	stderrPath := filepath.Join(logDir, StderrFileName)
	outPath := filepath.Join(r.cfg.Paths.Outputs, implID, fmt.Sprintf("test_%d.%s", tc.Index, tc.Ext))

	// Remove stale results from previous runs, whatever their extension,
	// so the outputs tree reflects this run only.
	stale, err := filepath.Glob(filepath.Join(r.cfg.Paths.Outputs, implID, fmt.Sprintf("test_%d.*", tc.Index)))
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to scan for stale results: %w", err)
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return TestResult{}, fmt.Errorf("failed to remove stale result %s: %w", path, err)
		}
	}

	start := time.Now()

	if _, err := os.Stat(tc.Path); err != nil {
		msg := fmt.Sprintf("cannot load test case %d: %v", tc.Index, err)
		if werr := writeFailureLogs(stdoutPath, stderrPath, msg); werr != nil {
			return TestResult{}, werr
		}
		return TestResult{
			Index:      tc.Index,
			Status:     StatusInputError.String(),
			ExitCode:   -1,
			DurationMS: time.Since(start).Milliseconds(),
			Message:    msg,
		}, nil
	}

	argv := make([]string, 0, len(r.cfg.Runner.Entrypoint)+3)
	argv = append(argv, r.cfg.Runner.Entrypoint...)
	argv = append(argv, tc.Path, outPath, strconv.Itoa(r.cfg.Runner.TimeoutSec))

	status, err := r.box.Exec(ctx, sandbox.ExecSpec{
		Argv:       argv,
		Dir:        r.cfg.Paths.Workspace,
		Env:        map[string]string{r.cfg.Runner.HotswapEnv: implID},
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		Timeout:    r.cfg.Runner.TimeoutSec,
	})
	duration := time.Since(start)

	if err != nil {
		var ioErr *sandbox.IOError
		if errors.As(err, &ioErr) {
			return TestResult{}, err
		}
		// Not an I/O failure: isolate it to this test case.
		return TestResult{
			Index:      tc.Index,
			Status:     StatusExecError.String(),
			ExitCode:   -1,
			DurationMS: duration.Milliseconds(),
			Message:    err.Error(),
		}, nil
	}

	result := TestResult{
		Index:      tc.Index,
		ExitCode:   status.ExitCode,
		DurationMS: duration.Milliseconds(),
	}

	switch {
	case status.TimedOut:
		result.Status = StatusTimeout.String()
		result.Message = fmt.Sprintf("execution exceeded %d seconds and was killed", r.cfg.Runner.TimeoutSec)
	case status.ExitCode != 0:
		result.Status = StatusExecError.String()
		result.Message = fmt.Sprintf("implementation exited with code %d", status.ExitCode)
	default:
		if _, statErr := os.Stat(outPath); statErr != nil {
			result.Status = StatusExecError.String()
			result.Message = "implementation exited cleanly but produced no result file"
		} else {
			result.Status = StatusSucceeded.String()
			result.OutputPath = outPath
		}
	}

	// A timed-out or crashed test must not leave a partial result behind.
	if result.Status != StatusSucceeded.String() {
		if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
			return TestResult{}, fmt.Errorf("failed to remove partial result %s: %w", outPath, err)
		}
	}

	return result, nil
}

// writeFailureLogs populates the log slot pair for a test that never ran
func writeFailureLogs(stdoutPath, stderrPath, msg string) error {
	if err := os.MkdirAll(filepath.Dir(stdoutPath), sandbox.DirPermission); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := os.WriteFile(stdoutPath, nil, sandbox.FilePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", stdoutPath, err)
	}
	if err := os.WriteFile(stderrPath, []byte(msg+"\n"), sandbox.FilePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", stderrPath, err)
	}
	return nil
}

// validateImplementationID rejects identifiers that would escape the
// per-implementation output and log subtrees
func validateImplementationID(implID string) error {
	if implID == "" {
		return fmt.Errorf("implementation id must not be empty")
	}
	if implID == "." || implID == ".." ||
		strings.ContainsAny(implID, `/\`) {
		return fmt.Errorf("invalid implementation id: %q", implID)
	}
	return nil
}
