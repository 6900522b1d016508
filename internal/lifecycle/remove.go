package lifecycle

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/abm/internal/breeze"
)

// RemoveOptions parameterizes project removal.
type RemoveOptions struct {
	// Force skips confirmation and overrides adopted protection.
	Force bool
	// DeleteBranch also deletes the git branch. Separately opted into
	// because it destroys history the worktree removal does not.
	DeleteBranch bool
	// KeepDocs retains PROJECT.md in the store folder.
	KeepDocs bool
}

// Remove tears a project down: containers, symlinks, worktree,
// optionally the branch, then the record. Adopted projects refuse
// removal without Force — that worktree existed before abm and may be
// the user's only copy. The cleanup phase is best-effort: individual
// failures are logged and skipped so a partially-broken project can
// still be removed.
func (m *Manager) Remove(ctx context.Context, name string, opts RemoveOptions) error {
	project, err := m.store.Get(name)
	if err != nil {
		return err
	}

	if project.Adopted && !opts.Force {
		return fmt.Errorf("%w: '%s' was adopted; use --force to remove it", ErrAdoptedProtection, name)
	}

	if !opts.Force {
		question := fmt.Sprintf("Remove project '%s'", name)
		if opts.DeleteBranch {
			question += fmt.Sprintf(" and DELETE branch '%s'", project.Branch)
		}
		if !m.confirm(question + "?") {
			return fmt.Errorf("%w: removal of '%s'", ErrAborted, name)
		}
	}

	return m.store.WithLock(name, func() error {
		stopped := m.docker.StopByWorkingDir(ctx, project.WorktreePath)
		if stopped > 0 {
			m.logger.Info("stopped containers", zap.String("project", name), zap.Int("count", stopped))
		}

		unlinkDocs(project.WorktreePath)

		if _, err := os.Stat(project.WorktreePath); err == nil {
			if err := m.git.WorktreeRemove(ctx, project.WorktreePath); err != nil {
				m.logger.Warn("failed to remove worktree", zap.String("worktree", project.WorktreePath), zap.Error(err))
			}
		}

		if opts.DeleteBranch {
			if err := m.git.DeleteBranch(ctx, project.Branch); err != nil {
				m.logger.Warn("failed to delete branch; it may be checked out elsewhere",
					zap.String("branch", project.Branch), zap.Error(err))
			}
		}

		if err := m.store.Delete(name, opts.KeepDocs); err != nil {
			return err
		}
		m.logger.Info("removed project", zap.String("project", name), zap.Bool("kept_docs", opts.KeepDocs))
		return nil
	})
}

// Disown is the inverse of Adopt: it deletes everything abm owns —
// record, symlinks, generated breeze config — and nothing it does not.
// The worktree, branch and any running containers are preserved.
// Missing artifacts are success; disowning twice must not error.
func (m *Manager) Disown(ctx context.Context, name string) error {
	project, err := m.store.Get(name)
	if err != nil {
		return err
	}

	return m.store.WithLock(name, func() error {
		unlinkDocs(project.WorktreePath)

		if err := breeze.RemoveConfig(project.WorktreePath); err != nil {
			m.logger.Warn("failed to remove breeze config", zap.Error(err))
		}

		if err := m.store.Delete(name, false); err != nil {
			return err
		}
		m.logger.Info("disowned project",
			zap.String("project", name),
			zap.String("worktree", project.WorktreePath))
		return nil
	})
}
