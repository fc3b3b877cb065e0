// Package sandbox provides the execution boundary for evaluation runs.
//
// The LocalSandbox runs commands directly on the host. It is the backend
// used when the runner itself executes inside the evaluation container,
// where the container runtime already provides the isolation boundary.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// LocalSandbox implements Sandbox using direct host execution
type LocalSandbox struct {
	logger *zap.Logger
}

// NewLocalSandbox creates a new LocalSandbox
func NewLocalSandbox(logger *zap.Logger) *LocalSandbox {
	return &LocalSandbox{logger: logger}
}

// Prepare is a no-op for local execution
func (*LocalSandbox) Prepare(_ context.Context) error {
	return nil
}

// Exec runs one command on the host, killing its whole process group if the
// timeout elapses. Partial stdout/stderr written before the kill is kept.
func (l *LocalSandbox) Exec(ctx context.Context, spec ExecSpec) (ExecStatus, error) {
	if len(spec.Argv) == 0 {
		return ExecStatus{}, fmt.Errorf("empty argv")
	}

	stdout, err := createLogFile(spec.StdoutPath)
	if err != nil {
		return ExecStatus{}, err
	}
	defer stdout.Close()

	stderr, err := createLogFile(spec.StderrPath)
	if err != nil {
		return ExecStatus{}, err
	}
	defer stderr.Close()

	execCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, time.Duration(spec.Timeout)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, spec.Argv[0], spec.Argv[1:]...) //nolint:gosec // Executing the configured entry point is the whole point
	cmd.Dir = spec.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = os.Environ()
	for key, value := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}
	setupProcessGroup(cmd)

	l.logger.Debug("executing command",
		zap.Strings("argv", spec.Argv),
		zap.String("dir", spec.Dir),
		zap.Int("timeout_sec", spec.Timeout))

	runErr := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		return ExecStatus{ExitCode: -1, TimedOut: true}, nil
	}

	exitCode := 0
	if runErr != nil {
		if exitError, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitError.ExitCode()
		} else {
			// The command could not be started at all (e.g. missing
			// binary). Surface the reason in the stderr log so the
			// failure is diagnosable from the log tree alone.
			fmt.Fprintf(stderr, "failed to start command: %v\n", runErr)
			return ExecStatus{ExitCode: -1}, nil
		}
	}

	return ExecStatus{ExitCode: exitCode}, nil
}

// createLogFile creates the parent directory and truncates the log file
func createLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), DirPermission); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return f, nil
}
