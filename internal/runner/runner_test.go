package runner

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePosix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
}

func TestShell(t *testing.T) {
	shell, flag := Shell("windows")
	assert.Equal(t, "cmd.exe", shell)
	assert.Equal(t, "/c", flag)

	shell, flag = Shell("linux")
	assert.Equal(t, "/bin/sh", shell)
	assert.Equal(t, "-c", flag)

	shell, flag = Shell("darwin")
	assert.Equal(t, "/bin/sh", shell)
	assert.Equal(t, "-c", flag)
}

func TestRunCapturesLines(t *testing.T) {
	requirePosix(t)

	res, err := New(false, 0).Run(context.Background(), "printf 'one\\ntwo\\n'")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, res.Lines)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunEmptyOutput(t *testing.T) {
	requirePosix(t)

	res, err := New(false, 0).Run(context.Background(), "true")
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
}

func TestRunNonZeroExitIsData(t *testing.T) {
	requirePosix(t)

	res, err := New(false, 0).Run(context.Background(), "echo partial; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, []string{"partial"}, res.Lines)
}

func TestRunStderrHandling(t *testing.T) {
	requirePosix(t)

	res, err := New(false, 0).Run(context.Background(), "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, []string{"out"}, res.Lines)

	res, err = New(true, 0).Run(context.Background(), "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"out", "err"}, res.Lines)
}

func TestRunStripsCarriageReturns(t *testing.T) {
	requirePosix(t)

	res, err := New(false, 0).Run(context.Background(), "printf 'a\\r\\nb\\r\\n'")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Lines)
}

func TestRunStartFailure(t *testing.T) {
	requirePosix(t)

	r := New(false, 0)
	r.goos = "windows" // cmd.exe does not exist on this host

	_, err := r.Run(context.Background(), "dir")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStart)
}

func TestRunTimeoutKillsChildProcesses(t *testing.T) {
	requirePosix(t)

	start := time.Now()
	_, err := New(false, 200*time.Millisecond).Run(context.Background(), "sleep 3; echo done")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRunKeepsVeryLongLines(t *testing.T) {
	requirePosix(t)

	res, err := New(false, 0).Run(context.Background(),
		"head -c 5000000 /dev/zero | tr '\\0' a; echo; echo second")
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, 5000000, len(res.Lines[0]))
	assert.True(t, strings.HasPrefix(res.Lines[0], "aaa"))
	assert.Equal(t, "second", res.Lines[1])
}

func TestSplitLines(t *testing.T) {
	assert.Empty(t, splitLines(nil))
	assert.Equal(t, []string{"a", "", "b"}, splitLines([]byte("a\n\nb")))
	assert.Equal(t, []string{"a", "b"}, splitLines([]byte("a\r\nb\r\n")))
}
