package execx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture(t *testing.T) {
	out, err := Capture(context.Background(), "", nil, "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestCaptureEnv(t *testing.T) {
	out, err := Capture(context.Background(), "", map[string]string{"ABM_TEST_VAR": "42"}, "sh", "-c", "echo $ABM_TEST_VAR")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}

func TestCaptureDir(t *testing.T) {
	dir := t.TempDir()
	out, err := Capture(context.Background(), dir, nil, "pwd")
	require.NoError(t, err)
	assert.Contains(t, out, dir)
}

func TestCaptureExitError(t *testing.T) {
	_, err := Capture(context.Background(), "", nil, "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Output, "boom")
}

func TestCaptureCommandNotFound(t *testing.T) {
	_, err := Capture(context.Background(), "", nil, "definitely-not-a-command-abm")
	require.Error(t, err)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "startup failures are not exit errors")
}
