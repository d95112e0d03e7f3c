package subproc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestRunSuccess(t *testing.T) {
	script := writeScript(t, "echo out\necho err 1>&2\nexit 0\n")

	res, err := NewExecutor(zap.NewNop()).Run(context.Background(), Request{Path: script})
	require.NoError(t, err)

	assert.Equal(t, Completed, res.State)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	script := writeScript(t, "echo boom 1>&2\nexit 7\n")

	res, err := NewExecutor(zap.NewNop()).Run(context.Background(), Request{Path: script})
	require.NoError(t, err)

	assert.Equal(t, Completed, res.State)
	assert.Equal(t, 7, res.ExitCode)
	assert.Equal(t, "boom\n", res.Stderr)
}

func TestRunTimeout(t *testing.T) {
	script := writeScript(t, "sleep 5\n")

	res, err := NewExecutor(zap.NewNop()).Run(context.Background(), Request{
		Path:    script,
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, TimedOut, res.State)
}

func TestRunMissingBinary(t *testing.T) {
	_, err := NewExecutor(zap.NewNop()).Run(context.Background(), Request{
		Path: filepath.Join(t.TempDir(), "no-such-binary"),
	})
	assert.Error(t, err)
}

func TestRunPassesArgs(t *testing.T) {
	script := writeScript(t, `echo "$1 $2"`+"\n")

	res, err := NewExecutor(zap.NewNop()).Run(context.Background(), Request{
		Path: script,
		Args: []string{"-runs=1", "/tmp/corpus"},
	})
	require.NoError(t, err)
	assert.Equal(t, "-runs=1 /tmp/corpus\n", res.Stdout)
}

func TestCommandLine(t *testing.T) {
	req := Request{Path: "/bin/target", Args: []string{"-runs=1", "dir"}}
	assert.Equal(t, "/bin/target -runs=1 dir", req.CommandLine())
}
