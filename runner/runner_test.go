package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/evalbox/config"
	"github.com/isdmx/evalbox/sandbox"
)

// testEnv lays out the directory contract under a temp root and wires a
// Runner over the local sandbox with a shell-script entry point.
type testEnv struct {
	root string
	cfg  *config.Config
	run  *Runner
}

// newTestEnv builds an environment whose entry point is the given shell
// script body. The script receives the input path, the output path and the
// timeout in seconds as $1, $2 and $3.
func newTestEnv(t *testing.T, script string) *testEnv {
	t.Helper()

	root := t.TempDir()
	for _, dir := range []string{"workspace", "imps", "inputs", "outputs", "logs"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, dir), 0o755))
	}

	scriptPath := filepath.Join(root, "entry.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+script+"\n"), 0o755))

	cfg := &config.Config{
		Runner: config.RunnerConfig{
			Entrypoint:      []string{"/bin/sh", scriptPath},
			HotswapEnv:      "EVAL_IMPLEMENTATION_ID",
			TimeoutSec:      30,
			SetupTimeoutSec: 30,
			Workers:         1,
		},
		Paths: config.PathsConfig{
			Workspace: filepath.Join(root, "workspace"),
			Imps:      filepath.Join(root, "imps"),
			Inputs:    filepath.Join(root, "inputs"),
			Outputs:   filepath.Join(root, "outputs"),
			Logs:      filepath.Join(root, "logs"),
		},
		Engine: config.EngineConfig{Backend: "local", MemoryMB: 512},
	}

	logger := zaptest.NewLogger(t)
	box := sandbox.NewLocalSandbox(logger)

	return &testEnv{
		root: root,
		cfg:  cfg,
		run:  New(logger, cfg, box),
	}
}

func (e *testEnv) addInput(t *testing.T, index int, content string) {
	t.Helper()
	path := filepath.Join(e.cfg.Paths.Inputs, fmt.Sprintf("%d.pickle", index))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (e *testEnv) outputPath(implID string, index int) string {
	return filepath.Join(e.cfg.Paths.Outputs, implID, fmt.Sprintf("test_%d.pickle", index))
}

func (e *testEnv) logPath(implID string, index int, name string) string {
	return filepath.Join(e.cfg.Paths.Logs, implID, fmt.Sprintf("test_%d", index), name)
}

const copyScript = `cp "$1" "$2"`

// failOnSecondScript crashes on test case 2 only
const failOnSecondScript = `case "$(basename "$1")" in
2.pickle) echo "ZeroDivisionError: division by zero" >&2; exit 1;;
*) cp "$1" "$2";;
esac`

func TestRunnerAllTestsSucceed(t *testing.T) {
	env := newTestEnv(t, copyScript)
	for i := 1; i <= 3; i++ {
		env.addInput(t, i, fmt.Sprintf("payload-%d", i))
	}

	report, err := env.run.Run(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 3, report.Succeeded())
	assert.Equal(t, 0, report.Failed())

	for i := 1; i <= 3; i++ {
		data, readErr := os.ReadFile(env.outputPath("a", i))
		require.NoError(t, readErr)
		assert.Equal(t, fmt.Sprintf("payload-%d", i), string(data))

		assert.FileExists(t, env.logPath("a", i, StdoutFileName))
		assert.FileExists(t, env.logPath("a", i, StderrFileName))
	}
}

func TestRunnerFailureIsolation(t *testing.T) {
	env := newTestEnv(t, failOnSecondScript)
	for i := 1; i <= 3; i++ {
		env.addInput(t, i, "payload")
	}

	report, err := env.run.Run(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	// Tests 1 and 3 have results, test 2 does not.
	assert.FileExists(t, env.outputPath("a", 1))
	assert.NoFileExists(t, env.outputPath("a", 2))
	assert.FileExists(t, env.outputPath("a", 3))

	assert.Equal(t, StatusSucceeded.String(), report.Results[0].Status)
	assert.Equal(t, StatusExecError.String(), report.Results[1].Status)
	assert.Equal(t, StatusSucceeded.String(), report.Results[2].Status)

	// The failing test's stderr log carries the traceback.
	stderr, readErr := os.ReadFile(env.logPath("a", 2, StderrFileName))
	require.NoError(t, readErr)
	assert.Contains(t, string(stderr), "division by zero")

	// Log slots exist even for the failed test.
	assert.FileExists(t, env.logPath("a", 2, StdoutFileName))
}

func TestRunnerTimeout(t *testing.T) {
	env := newTestEnv(t, `echo "started"
sleep 10
cp "$1" "$2"`)
	env.cfg.Runner.TimeoutSec = 1
	env.addInput(t, 1, "payload")

	report, err := env.run.Run(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusTimeout.String(), report.Results[0].Status)

	// No result file, but partial stdout captured before the kill.
	assert.NoFileExists(t, env.outputPath("a", 1))
	stdout, readErr := os.ReadFile(env.logPath("a", 1, StdoutFileName))
	require.NoError(t, readErr)
	assert.Contains(t, string(stdout), "started")
}

func TestRunnerCleanExitWithoutResult(t *testing.T) {
	env := newTestEnv(t, `echo "forgot to write output"`)
	env.addInput(t, 1, "payload")

	report, err := env.run.Run(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusExecError.String(), report.Results[0].Status)
	assert.Contains(t, report.Results[0].Message, "no result file")
}

func TestRunnerIdempotentRerun(t *testing.T) {
	env := newTestEnv(t, failOnSecondScript)
	env.addInput(t, 1, "payload")
	env.addInput(t, 2, "payload")

	// Stale results for test 2 from an earlier, differently-shaped run,
	// including one under a serialization format no longer in use.
	require.NoError(t, os.MkdirAll(filepath.Join(env.cfg.Paths.Outputs, "a"), 0o755))
	require.NoError(t, os.WriteFile(env.outputPath("a", 2), []byte("stale"), 0o644))
	staleJSON := filepath.Join(env.cfg.Paths.Outputs, "a", "test_2.json")
	require.NoError(t, os.WriteFile(staleJSON, []byte("{}"), 0o644))

	_, err := env.run.Run(context.Background(), "a")
	require.NoError(t, err)

	// No stale result survives a run in which test 2 fails.
	assert.NoFileExists(t, env.outputPath("a", 2))
	assert.NoFileExists(t, staleJSON)
	assert.FileExists(t, env.outputPath("a", 1))
}

func TestRunnerHotswapEnvReachesEntrypoint(t *testing.T) {
	env := newTestEnv(t, `printf '%s' "$EVAL_IMPLEMENTATION_ID" > "$2"`)
	env.addInput(t, 1, "payload")

	_, err := env.run.Run(context.Background(), "candidate-7")
	require.NoError(t, err)

	data, readErr := os.ReadFile(env.outputPath("candidate-7", 1))
	require.NoError(t, readErr)
	assert.Equal(t, "candidate-7", string(data))
}

func TestRunnerSetupFailureAbortsRun(t *testing.T) {
	env := newTestEnv(t, copyScript)
	env.addInput(t, 1, "payload")

	setupPath := filepath.Join(env.root, "setup.sh")
	require.NoError(t, os.WriteFile(setupPath, []byte("#!/bin/sh\nexit 1\n"), 0o755))
	env.cfg.Runner.SetupScript = setupPath

	_, err := env.run.Run(context.Background(), "a")
	require.Error(t, err)

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, 1, setupErr.ExitCode)

	// No test was attempted: nothing under outputs, no per-test logs.
	entries, readErr := os.ReadDir(env.cfg.Paths.Outputs)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
	assert.NoDirExists(t, filepath.Join(env.cfg.Paths.Logs, "a", "test_1"))
}

func TestRunnerSetupTimeoutAbortsRun(t *testing.T) {
	env := newTestEnv(t, copyScript)
	env.addInput(t, 1, "payload")

	setupPath := filepath.Join(env.root, "setup.sh")
	require.NoError(t, os.WriteFile(setupPath, []byte("#!/bin/sh\nsleep 10\n"), 0o755))
	env.cfg.Runner.SetupScript = setupPath
	env.cfg.Runner.SetupTimeoutSec = 1

	_, err := env.run.Run(context.Background(), "a")
	require.Error(t, err)

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.True(t, setupErr.TimedOut)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunnerSetupSuccessThenTests(t *testing.T) {
	env := newTestEnv(t, copyScript)
	env.addInput(t, 1, "payload")

	setupPath := filepath.Join(env.root, "setup.sh")
	require.NoError(t, os.WriteFile(setupPath, []byte("#!/bin/sh\necho installing deps\n"), 0o755))
	env.cfg.Runner.SetupScript = setupPath

	report, err := env.run.Run(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded())

	stdout, readErr := os.ReadFile(filepath.Join(env.cfg.Paths.Logs, "a", "setup", StdoutFileName))
	require.NoError(t, readErr)
	assert.Contains(t, string(stdout), "installing deps")
}

func TestRunnerInputError(t *testing.T) {
	env := newTestEnv(t, copyScript)

	// Bypass discovery with a test case whose input file is gone.
	result, err := env.run.runTest(context.Background(), "a", TestCase{
		Index: 4,
		Path:  filepath.Join(env.cfg.Paths.Inputs, "4.pickle"),
		Ext:   "pickle",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusInputError.String(), result.Status)

	// The log slot pair exists even though the test never ran.
	assert.FileExists(t, env.logPath("a", 4, StdoutFileName))
	stderr, readErr := os.ReadFile(env.logPath("a", 4, StderrFileName))
	require.NoError(t, readErr)
	assert.Contains(t, string(stderr), "cannot load test case")
}

func TestRunnerWritesReport(t *testing.T) {
	env := newTestEnv(t, failOnSecondScript)
	for i := 1; i <= 2; i++ {
		env.addInput(t, i, "payload")
	}

	report, err := env.run.Run(context.Background(), "a")
	require.NoError(t, err)

	loaded, err := LoadReport(filepath.Join(env.cfg.Paths.Outputs, "a", ReportFileName))
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.ImplementationID)
	assert.Equal(t, report.Succeeded(), loaded.Succeeded())
	assert.Equal(t, report.Failed(), loaded.Failed())
	require.Len(t, loaded.Results, 2)
	assert.Equal(t, StatusExecError.String(), loaded.Results[1].Status)
}

func TestRunnerInvalidImplementationID(t *testing.T) {
	env := newTestEnv(t, copyScript)

	for _, implID := range []string{"", ".", "..", "a/b", `a\b`} {
		t.Run(fmt.Sprintf("%q", implID), func(t *testing.T) {
			_, err := env.run.Run(context.Background(), implID)
			assert.Error(t, err)
		})
	}
}

func TestRunnerEmptyInputs(t *testing.T) {
	env := newTestEnv(t, copyScript)

	report, err := env.run.Run(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, report.Results)

	// The run still seals its report.
	assert.FileExists(t, filepath.Join(env.cfg.Paths.Outputs, "a", ReportFileName))
}

func TestTestStatusString(t *testing.T) {
	assert.Equal(t, "SUCCEEDED", StatusSucceeded.String())
	assert.Equal(t, "TIMEOUT", StatusTimeout.String())
	assert.Equal(t, "EXEC_ERROR", StatusExecError.String())
	assert.Equal(t, "INPUT_ERROR", StatusInputError.String())
	assert.True(t, StatusTimeout.Failed())
	assert.False(t, StatusSucceeded.Failed())
}
