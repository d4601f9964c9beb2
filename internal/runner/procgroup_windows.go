//go:build windows

package runner

import "os/exec"

// configureProcessGroup is a no-op on Windows; cancellation kills the shell
// and WaitDelay releases the output pipes.
func configureProcessGroup(*exec.Cmd) {}
