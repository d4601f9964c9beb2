// Package runner runs shell command lines on the host and captures their output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrStart is returned when the shell process could not be created.
var ErrStart = errors.New("failed to start command")

// waitDelay bounds how long Run waits for output pipes after the command was
// killed. Descendants that escaped the kill may still hold them open.
const waitDelay = 500 * time.Millisecond

// Result holds the captured output of a finished command.
type Result struct {
	Lines    []string
	ExitCode int
}

// Commander runs a command line and returns its output.
type Commander interface {
	Run(ctx context.Context, commandLine string) (*Result, error)
}

// Runner executes command lines through the host shell.
type Runner struct {
	// MergeStderr redirects stderr into the captured stdout lines.
	MergeStderr bool

	// Timeout bounds a single invocation; zero means wait indefinitely.
	Timeout time.Duration

	goos string
}

// New creates a Runner for the current host.
func New(mergeStderr bool, timeout time.Duration) *Runner {
	return &Runner{
		MergeStderr: mergeStderr,
		Timeout:     timeout,
		goos:        runtime.GOOS,
	}
}

// Shell returns the shell binary and its command flag for the given OS.
func Shell(goos string) (string, string) {
	if goos == "windows" {
		return "cmd.exe", "/c"
	}
	return "/bin/sh", "-c"
}

// Run executes commandLine and blocks until it exits. A non-zero exit code is
// reported in the Result, not as an error.
func (r *Runner) Run(ctx context.Context, commandLine string) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	goos := r.goos
	if goos == "" {
		goos = runtime.GOOS
	}
	shell, flag := Shell(goos)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, flag, commandLine)
	configureProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	cmd.Stdout = &stdout
	if r.MergeStderr {
		cmd.Stderr = &stdout
	} else {
		cmd.Stderr = &stderr
	}

	log.Debug().Str("shell", shell).Str("command", commandLine).Msg("Running command")

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("command %q did not finish: %w", commandLine, ctx.Err())
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w %q: %w", ErrStart, commandLine, err)
		}
		exitCode = exitErr.ExitCode()
	}

	lines := splitLines(stdout.Bytes())
	log.Debug().
		Str("command", commandLine).
		Int("exit_code", exitCode).
		Int("lines", len(lines)).
		Str("stderr", strings.TrimSpace(stderr.String())).
		Msg("Command finished")

	return &Result{Lines: lines, ExitCode: exitCode}, nil
}

// splitLines splits output on newlines with no limit on line length.
func splitLines(data []byte) []string {
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return []string{}
	}

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}
	return lines
}
