// Package sandbox provides the execution boundary for evaluation runs.
//
// The ContainerSandbox drives a long-lived Docker or Podman container from
// the host: it builds the sandbox image, creates the container with the
// implementations directory bind-mounted read-only, uploads test-case
// inputs, and executes the evaluation entry point inside the container
// with per-test log redirection.
package sandbox

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Config holds configuration for the container sandbox
type Config struct {
	Backend      string // "docker", "podman" or "auto"
	Image        string
	Container    string
	BuildContext string
	Dockerfile   string
	// Contract directories, bind-mounted into the container at identical
	// paths so the runner's host-side view and the in-container view of
	// outputs and logs agree. ImpsDir is mounted read-only.
	ImpsDir        string
	InputsDir      string
	OutputsDir     string
	LogsDir        string
	MemoryMB       int
	NetworkEnabled bool
	ForceRebuild   bool
}

// Exit codes produced by the in-container `timeout` wrapper
const (
	timeoutExitCode = 124
	killedExitCode  = 137
)

// ContainerSandbox implements Sandbox using a Docker or Podman container
type ContainerSandbox struct {
	logger    *zap.Logger
	config    *Config
	cmdRunner CommandRunner
}

// ContainerSandboxOption defines a functional option for ContainerSandbox
type ContainerSandboxOption func(*ContainerSandbox)

// WithCommandRunner sets the CommandRunner for ContainerSandbox
func WithCommandRunner(cmdRunner CommandRunner) ContainerSandboxOption {
	return func(c *ContainerSandbox) {
		c.cmdRunner = cmdRunner
	}
}

// NewContainerSandbox creates a new ContainerSandbox with default implementations and optional interfaces
func NewContainerSandbox(logger *zap.Logger, config *Config, opts ...ContainerSandboxOption) *ContainerSandbox {
	sandbox := &ContainerSandbox{
		logger:    logger,
		config:    config,
		cmdRunner: &RealCommandRunner{}, // Default implementation
	}

	for _, opt := range opts {
		opt(sandbox)
	}

	return sandbox
}

// executable returns the container engine command
func (c *ContainerSandbox) executable() string {
	return c.config.Backend
}

// HasEngine checks whether the configured container engine is available
func (c *ContainerSandbox) HasEngine(ctx context.Context) bool {
	_, _, exitCode, err := c.cmdRunner.RunCommand(ctx, []string{c.executable(), "--version"})
	return err == nil && exitCode == 0
}

// selectEngine probes the known container engines in preference order and
// returns the first one that answers
func selectEngine(ctx context.Context, cmdRunner CommandRunner) (string, error) {
	engines := []string{"docker", "podman"}
	for _, engine := range engines {
		_, _, exitCode, err := cmdRunner.RunCommand(ctx, []string{engine, "--version"})
		if err == nil && exitCode == 0 {
			return engine, nil
		}
	}
	return "", fmt.Errorf("no container engine available, tried: %s", strings.Join(engines, ", "))
}

// ImageExists checks whether the sandbox image has been built
func (c *ContainerSandbox) ImageExists(ctx context.Context) (bool, error) {
	stdout, _, exitCode, err := c.cmdRunner.RunCommand(ctx,
		[]string{c.executable(), "image", "ls", c.config.Image, "-q"})
	if err != nil {
		return false, fmt.Errorf("failed to list images: %w", err)
	}
	if exitCode != 0 {
		return false, fmt.Errorf("image ls exited with code %d", exitCode)
	}
	return strings.TrimSpace(stdout) != "", nil
}

// ContainerExists checks whether the sandbox container has been created
func (c *ContainerSandbox) ContainerExists(ctx context.Context) (bool, error) {
	stdout, _, exitCode, err := c.cmdRunner.RunCommand(ctx,
		[]string{c.executable(), "container", "ls", "-a", "--format", "{{.Names}}"})
	if err != nil {
		return false, fmt.Errorf("failed to list containers: %w", err)
	}
	if exitCode != 0 {
		return false, fmt.Errorf("container ls exited with code %d", exitCode)
	}
	for _, name := range strings.Fields(stdout) {
		if name == c.config.Container {
			return true, nil
		}
	}
	return false, nil
}

// BuildImage builds the sandbox image from the configured build context
func (c *ContainerSandbox) BuildImage(ctx context.Context, buildArgs map[string]string) error {
	args := []string{
		c.executable(), "build",
		"-t", c.config.Image,
		"-f", c.config.Dockerfile,
	}
	for key, value := range buildArgs {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", key, value))
	}
	args = append(args, c.config.BuildContext)

	c.logger.Info("building sandbox image",
		zap.String("image", c.config.Image),
		zap.String("context", c.config.BuildContext))

	_, stderr, exitCode, err := c.cmdRunner.RunCommand(ctx, args)
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("image build exited with code %d: %s", exitCode, strings.TrimSpace(stderr))
	}
	return nil
}

// CreateContainer creates the sandbox container from the built image,
// bind-mounting the implementations directory read-only
func (c *ContainerSandbox) CreateContainer(ctx context.Context) error {
	args := []string{
		c.executable(), "create",
		"-i",
		"--name", c.config.Container,
		"--memory", fmt.Sprintf("%dm", c.config.MemoryMB),
	}
	if !c.config.NetworkEnabled {
		args = append(args, "--network", "none")
	}
	if c.config.ImpsDir != "" {
		args = append(args, "--mount",
			fmt.Sprintf("type=bind,source=%s,target=%s,readonly", c.config.ImpsDir, c.config.ImpsDir))
	}
	for _, dir := range []string{c.config.InputsDir, c.config.OutputsDir, c.config.LogsDir} {
		if dir == "" {
			continue
		}
		args = append(args, "--mount",
			fmt.Sprintf("type=bind,source=%s,target=%s", dir, dir))
	}
	args = append(args, c.config.Image+":latest")

	c.logger.Info("creating sandbox container", zap.String("container", c.config.Container))

	_, stderr, exitCode, err := c.cmdRunner.RunCommand(ctx, args)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("container create exited with code %d: %s", exitCode, strings.TrimSpace(stderr))
	}
	return nil
}

// StartContainer starts the sandbox container if it is not already running
func (c *ContainerSandbox) StartContainer(ctx context.Context) error {
	_, stderr, exitCode, err := c.cmdRunner.RunCommand(ctx,
		[]string{c.executable(), "start", c.config.Container})
	if err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("container start exited with code %d: %s", exitCode, strings.TrimSpace(stderr))
	}
	return nil
}

// RemoveContainer removes the sandbox container if it exists
func (c *ContainerSandbox) RemoveContainer(ctx context.Context) error {
	exists, err := c.ContainerExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	_, stderr, exitCode, err := c.cmdRunner.RunCommand(ctx,
		[]string{c.executable(), "rm", "-f", c.config.Container})
	if err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("container rm exited with code %d: %s", exitCode, strings.TrimSpace(stderr))
	}
	return nil
}

// UploadInputs copies serialized test-case files from a host directory into
// the container's inputs directory
func (c *ContainerSandbox) UploadInputs(ctx context.Context, hostDir, containerDir string) error {
	_, stderr, exitCode, err := c.cmdRunner.RunCommand(ctx,
		[]string{c.executable(), "cp", hostDir + "/.", c.config.Container + ":" + containerDir})
	if err != nil {
		return fmt.Errorf("failed to copy inputs: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("input copy exited with code %d: %s", exitCode, strings.TrimSpace(stderr))
	}
	return nil
}

// Prepare builds the image and creates and starts the container as needed.
// With the "auto" backend the engine is selected here by probing.
func (c *ContainerSandbox) Prepare(ctx context.Context) error {
	if c.config.Backend == "auto" {
		engine, err := selectEngine(ctx, c.cmdRunner)
		if err != nil {
			return err
		}
		c.logger.Info("selected container engine", zap.String("engine", engine))
		c.config.Backend = engine
	} else if !c.HasEngine(ctx) {
		return fmt.Errorf("container engine %q is not available", c.executable())
	}

	exists, err := c.ContainerExists(ctx)
	if err != nil {
		return err
	}

	if c.config.ForceRebuild || !exists {
		if err := c.RemoveContainer(ctx); err != nil {
			return err
		}
		if err := c.BuildImage(ctx, nil); err != nil {
			return err
		}
		if err := c.CreateContainer(ctx); err != nil {
			return err
		}
	}

	return c.StartContainer(ctx)
}

// Exec runs one command inside the container, redirecting stdout and stderr
// to the spec's log paths inside the container. The command is wrapped with
// the `timeout` utility so a hung test is killed inside the container.
func (c *ContainerSandbox) Exec(ctx context.Context, spec ExecSpec) (ExecStatus, error) {
	if len(spec.Argv) == 0 {
		return ExecStatus{}, fmt.Errorf("empty argv")
	}

	// The log directory must exist before the shell can redirect into it.
	logDir := path.Dir(spec.StdoutPath)
	_, stderr, exitCode, err := c.cmdRunner.RunCommand(ctx,
		[]string{c.executable(), "exec", c.config.Container, "mkdir", "-p", logDir})
	if err != nil {
		return ExecStatus{}, &IOError{Path: logDir, Err: err}
	}
	if exitCode != 0 {
		return ExecStatus{}, &IOError{Path: logDir, Err: fmt.Errorf("mkdir exited with code %d: %s", exitCode, strings.TrimSpace(stderr))}
	}

	var sb strings.Builder
	if spec.Dir != "" {
		sb.WriteString("cd " + shellQuote(spec.Dir) + " && ")
	}
	for key, value := range spec.Env {
		sb.WriteString(key + "=" + shellQuote(value) + " ")
	}
	if spec.Timeout > 0 {
		sb.WriteString(fmt.Sprintf("timeout -k 5 %d ", spec.Timeout))
	}
	sb.WriteString(shellJoin(spec.Argv))
	sb.WriteString(" > " + shellQuote(spec.StdoutPath))
	sb.WriteString(" 2> " + shellQuote(spec.StderrPath))

	c.logger.Debug("executing in container",
		zap.String("container", c.config.Container),
		zap.String("command", sb.String()))

	_, _, exitCode, err = c.cmdRunner.RunCommand(ctx,
		[]string{c.executable(), "exec", c.config.Container, "/bin/sh", "-c", sb.String()})
	if err != nil {
		return ExecStatus{}, fmt.Errorf("failed to exec in container: %w", err)
	}

	if exitCode == timeoutExitCode || exitCode == killedExitCode {
		return ExecStatus{ExitCode: exitCode, TimedOut: true}, nil
	}
	return ExecStatus{ExitCode: exitCode}, nil
}
