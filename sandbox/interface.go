package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ExecSpec represents one command execution inside the sandbox
type ExecSpec struct {
	Argv       []string
	Dir        string
	Env        map[string]string
	StdoutPath string
	StderrPath string
	Timeout    int // seconds; zero means no bound
}

// ExecStatus represents the outcome of one command execution
type ExecStatus struct {
	ExitCode int
	TimedOut bool
}

// Sandbox defines the interface for sandboxed command execution
type Sandbox interface {
	// Prepare brings the execution environment up. For the local backend
	// this is a no-op; for container backends it builds, creates and
	// starts the container as needed.
	Prepare(ctx context.Context) error

	// Exec runs one command, writing its stdout and stderr to the paths
	// named in the spec. A non-zero exit of the command is reported in
	// the status, not as an error; errors are reserved for sandbox
	// infrastructure failures.
	Exec(ctx context.Context, spec ExecSpec) (ExecStatus, error)
}

// IOError reports a failure to create or write a log or output file.
// Callers treat it as fatal, unlike a failing command.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io failure at %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CommandRunner defines an interface for executing system commands
type CommandRunner interface {
	RunCommand(ctx context.Context, args []string) (stdout, stderr string, exitCode int, err error)
}

// RealCommandRunner implements CommandRunner using actual exec commands
type RealCommandRunner struct{}

// RunCommand executes the given command with arguments
func (RealCommandRunner) RunCommand(ctx context.Context, args []string) (stdout, stderr string, exitCode int, err error) {
	if len(args) < 1 {
		return "", "", 0, fmt.Errorf("no command provided")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // Safe as this is controlled input

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()

	exitCode = 0
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			exitCode = exitError.ExitCode()
		} else {
			return "", "", 0, err
		}
	}

	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// File permission constants
const (
	DirPermission  = 0755
	FilePermission = 0644
)

// shellQuote quotes a single argument for inclusion in a /bin/sh command line
func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$&|;<>()*?[]#~%!{}") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// shellJoin renders argv as a /bin/sh command line
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}
