//go:build windows

package sandbox

import "os/exec"

// setupProcessGroup is a no-op on Windows; exec.CommandContext kills the
// direct child on cancellation, which is the best available behavior there.
func setupProcessGroup(_ *exec.Cmd) {}
