// Package execx runs external commands on behalf of abm and surfaces
// their captured output when they fail, so the user can diagnose the
// underlying tool without re-running it by hand.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExitError reports a non-zero exit from an external command, carrying
// the full command line and its combined output.
type ExitError struct {
	Cmd    string
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s: exit %d", e.Cmd, e.Code)
	}
	return fmt.Sprintf("%s: exit %d: %s", e.Cmd, e.Code, out)
}

// Capture runs a command in dir and returns its stdout. Stderr is folded
// into the returned *ExitError on failure. Extra env entries are appended
// to the current environment.
func Capture(ctx context.Context, dir string, env map[string]string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = mergedEnv(env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), wrap(err, name, args, stderr.String())
	}
	return stdout.String(), nil
}

// Run runs a command in dir with the process's stdio attached. Used for
// commands whose progress output belongs on the user's terminal.
func Run(ctx context.Context, dir string, env map[string]string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = mergedEnv(env)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return wrap(err, name, args, "")
	}
	return nil
}

func wrap(err error, name string, args []string, output string) error {
	cmdline := strings.Join(append([]string{name}, args...), " ")
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Cmd: cmdline, Code: ee.ExitCode(), Output: output}
	}
	return fmt.Errorf("%s: %w", cmdline, err)
}

func mergedEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return os.Environ()
	}
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}
