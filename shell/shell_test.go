//go:build !windows

package shell_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapnilsparsh/devsVPN/netlock/service/srverrors"
	"github.com/swapnilsparsh/devsVPN/netlock/shell"
)

func TestExecSuccess(t *testing.T) {
	assert.NoError(t, shell.Exec(nil, "sh", "-c", "exit 0"))
}

func TestExecFailureIsShellExecutionError(t *testing.T) {
	err := shell.Exec(nil, "sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)

	var shellErr *srverrors.ShellExecutionError
	require.True(t, errors.As(err, &shellErr))
	assert.Equal(t, 3, shellErr.ExitCode)
	assert.Equal(t, "oops", shellErr.Output)
}

func TestExecAndGetOutputTruncates(t *testing.T) {
	out, _, code, tooSmall, err := shell.ExecAndGetOutput(nil, 4, "", "sh", "-c", "printf 0123456789")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.True(t, tooSmall)
	assert.Equal(t, "0123", out)
}

func TestExecAndProcessOutputSplitsStreams(t *testing.T) {
	var stdout, stderr []string
	err := shell.ExecAndProcessOutput(nil, func(text string, isError bool) {
		if isError {
			stderr = append(stderr, text)
		} else {
			stdout = append(stdout, text)
		}
	}, "", "sh", "-c", "echo a; echo b; echo c >&2")

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, stdout)
	assert.Equal(t, []string{"c"}, stderr)
}

func TestTimeoutKillsCommand(t *testing.T) {
	old := shell.Timeout
	shell.Timeout = 100 * time.Millisecond
	t.Cleanup(func() { shell.Timeout = old })

	start := time.Now()
	err := shell.Exec(nil, "sh", "-c", "sleep 5")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecShellCommand(t *testing.T) {
	out, err := shell.ExecShellCommand(nil, "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}
