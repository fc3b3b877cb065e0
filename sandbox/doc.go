// Package sandbox provides the execution boundary for evaluation runs.
//
// The sandbox package runs one command per test case with a hard timeout,
// routing its standard output and standard error to files. It supports
// multiple backends: direct host execution (for use inside the evaluation
// container) and Docker/Podman container execution driven from the host.
//
// The package defines the Sandbox interface and provides concrete
// implementations for the supported backends. The container backend also
// covers the container lifecycle: image build, container create/start/remove
// and test-case upload.
//
// Usage:
//
//	box, err := sandbox.NewSandbox(logger, cfg)
//	status, err := box.Exec(ctx, sandbox.ExecSpec{
//	    Argv:       []string{"python3", "/main.py", "/eval.py", input, output, "30"},
//	    StdoutPath: "/logs/a/test_1/stdout.txt",
//	    StderrPath: "/logs/a/test_1/stderr.txt",
//	    Timeout:    30,
//	})
package sandbox
