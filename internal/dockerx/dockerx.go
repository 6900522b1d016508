// Package dockerx drives docker and docker compose for project
// containers. Containers are matched to projects through the compose
// working-directory label, never by name substring, so a project whose
// name prefixes another is never torn down by mistake.
package dockerx

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/abm/internal/execx"
)

const (
	serviceLabel = "com.docker.compose.service"
	workdirLabel = "com.docker.compose.project.working_dir"
)

// Container is a running (or, for cleanup, any) docker container with
// its compose labels.
type Container struct {
	ID         string
	Name       string
	Service    string
	WorkingDir string
}

// Client shells out to the docker CLI.
type Client struct {
	logger *zap.Logger
}

// NewClient creates a docker client. logger may be nil.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger}
}

// Containers lists running containers with their compose labels.
// A missing or unreachable docker daemon yields an empty list, not an
// error: listing is informational and must not break `abm list`.
func (c *Client) Containers(ctx context.Context) []Container {
	format := fmt.Sprintf(`{{.ID}}\t{{.Names}}\t{{.Label %q}}\t{{.Label %q}}`, serviceLabel, workdirLabel)
	out, err := execx.Capture(ctx, "", nil, "docker", "ps", "--format", format)
	if err != nil {
		c.logger.Debug("docker ps failed", zap.Error(err))
		return nil
	}
	return parseContainers(out)
}

func parseContainers(out string) []Container {
	var containers []Container
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 4)
		if len(fields) < 4 {
			continue
		}
		containers = append(containers, Container{
			ID:         fields[0],
			Name:       fields[1],
			Service:    fields[2],
			WorkingDir: fields[3],
		})
	}
	return containers
}

// BelongsTo reports whether the container's compose working directory
// is the given worktree or a path beneath it.
func (ct Container) BelongsTo(worktree string) bool {
	if ct.WorkingDir == "" {
		return false
	}
	return ct.WorkingDir == worktree ||
		strings.HasPrefix(ct.WorkingDir, worktree+string(filepath.Separator))
}

// StopByWorkingDir stops and removes every container whose compose
// working directory lives under the given worktree. Individual
// failures are logged and skipped so teardown makes maximum progress.
func (c *Client) StopByWorkingDir(ctx context.Context, worktree string) int {
	stopped := 0
	for _, ct := range c.Containers(ctx) {
		if !ct.BelongsTo(worktree) {
			continue
		}
		if _, err := execx.Capture(ctx, "", nil, "docker", "stop", "--time", "10", ct.ID); err != nil {
			c.logger.Warn("failed to stop container", zap.String("container", ct.Name), zap.Error(err))
			continue
		}
		if _, err := execx.Capture(ctx, "", nil, "docker", "rm", ct.ID); err != nil {
			c.logger.Warn("failed to remove container", zap.String("container", ct.Name), zap.Error(err))
			continue
		}
		stopped++
	}
	return stopped
}

// HasTmux reports whether a container runs tmux, which distinguishes a
// full start-airflow session from a plain shell.
func (c *Client) HasTmux(ctx context.Context, containerID string) bool {
	out, err := execx.Capture(ctx, "", nil, "docker", "top", containerID)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(out), "tmux")
}

// ComposeUp starts the project's compose services detached, with the
// project name and port environment applied.
func (c *Client) ComposeUp(ctx context.Context, dir, projectName string, env map[string]string) error {
	err := execx.Run(ctx, dir, env, "docker", "compose", "--project-name", projectName, "up", "-d")
	if err != nil {
		return fmt.Errorf("docker compose up failed: %w", err)
	}
	return nil
}

// ComposeDown stops the project's compose services.
func (c *Client) ComposeDown(ctx context.Context, dir, projectName string, env map[string]string) error {
	err := execx.Run(ctx, dir, env, "docker", "compose", "--project-name", projectName, "down")
	if err != nil {
		return fmt.Errorf("docker compose down failed: %w", err)
	}
	return nil
}

// CleanupBreeze stops and removes every container whose name contains
// "breeze", running or not. Returns how many were cleaned up.
func (c *Client) CleanupBreeze(ctx context.Context) (int, error) {
	out, err := execx.Capture(ctx, "", nil, "docker", "ps", "-a", "--filter", "name=breeze", "--format", "{{.ID}}")
	if err != nil {
		return 0, fmt.Errorf("failed to list breeze containers: %w", err)
	}
	cleaned := 0
	for _, id := range strings.Fields(out) {
		_, _ = execx.Capture(ctx, "", nil, "docker", "stop", id)
		_, _ = execx.Capture(ctx, "", nil, "docker", "rm", id)
		cleaned++
	}
	return cleaned, nil
}
