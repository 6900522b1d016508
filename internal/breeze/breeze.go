// Package breeze prepares the per-project environment and hands the
// terminal over to the breeze CLI. After the exec handoff abm is gone;
// there is no supervision of the child.
package breeze

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/abm/internal/store"
)

// ComposeProjectName returns the docker compose project name that
// isolates this project's containers from vanilla breeze and from
// other abm projects.
func ComposeProjectName(projectName string) string {
	return "abm-" + projectName
}

// Env returns the full environment for launching breeze against a
// project: ports, instance name, and the compose project name.
func Env(p *store.Project) map[string]string {
	env := p.Ports.Env(p.Name)
	env["COMPOSE_PROJECT_NAME"] = ComposeProjectName(p.Name)
	return env
}

// Launcher execs breeze subcommands. The exec and chdir capabilities
// are injectable so launches can be asserted in tests without a real
// breeze installation.
type Launcher struct {
	Exec     func(argv0 string, argv []string, env []string) error
	LookPath func(file string) (string, error)
	Chdir    func(dir string) error
	logger   *zap.Logger
}

// NewLauncher creates a launcher that performs a real process handoff.
// logger may be nil.
func NewLauncher(logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		Exec:     syscall.Exec,
		LookPath: exec.LookPath,
		Chdir:    os.Chdir,
		logger:   logger,
	}
}

// Shell replaces the current process with an interactive breeze shell
// for the project.
func (l *Launcher) Shell(p *store.Project) error {
	return l.launch(p, "shell", nil)
}

// Run replaces the current process with `breeze run` executing the
// given command.
func (l *Launcher) Run(p *store.Project, command []string) error {
	return l.launch(p, "run", command)
}

// StartAirflow replaces the current process with a full
// `breeze start-airflow` session.
func (l *Launcher) StartAirflow(p *store.Project) error {
	return l.launch(p, "start-airflow", nil)
}

func (l *Launcher) launch(p *store.Project, subcommand string, extra []string) error {
	path, err := l.LookPath("breeze")
	if err != nil {
		return fmt.Errorf("breeze not found in PATH: %w", err)
	}
	if err := l.Chdir(p.WorktreePath); err != nil {
		return fmt.Errorf("failed to enter worktree %s: %w", p.WorktreePath, err)
	}

	argv := []string{"breeze", subcommand, "--python", p.PythonVersion, "--backend", p.Backend}
	argv = append(argv, extra...)

	l.logger.Debug("handing off to breeze",
		zap.String("project", p.Name),
		zap.Strings("argv", argv))

	if err := l.Exec(path, argv, mergedEnviron(Env(p))); err != nil {
		return fmt.Errorf("failed to exec breeze: %w", err)
	}
	return nil
}

func mergedEnviron(extra map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
