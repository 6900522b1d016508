package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// uiDir holds the regenerable node_modules that freeze trades for
// disk space.
var uiDir = filepath.Join("airflow-core", "src", "airflow", "ui")

// Freeze deletes the worktree's node_modules and sets the frozen flag.
// Freezing an already-frozen project is a no-op success reported as
// froze=false, so repeated invocations from scripts are harmless.
// Database, branch and the rest of the metadata are untouched.
func (m *Manager) Freeze(ctx context.Context, name string, force bool) (froze bool, err error) {
	project, err := m.store.Get(name)
	if err != nil {
		return false, err
	}
	if project.Frozen {
		m.logger.Info("project already frozen", zap.String("project", name))
		return false, nil
	}

	if !force && !m.confirm(fmt.Sprintf("Freeze project '%s'? This removes node_modules", name)) {
		return false, fmt.Errorf("%w: freeze of '%s'", ErrAborted, name)
	}

	err = m.store.WithLock(name, func() error {
		nodeModules := filepath.Join(project.WorktreePath, uiDir, "node_modules")
		if err := os.RemoveAll(nodeModules); err != nil {
			return fmt.Errorf("failed to remove %s: %w", nodeModules, err)
		}

		project.Frozen = true
		if err := m.store.Put(project); err != nil {
			return err
		}
		m.logger.Info("froze project", zap.String("project", name))
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Thaw reinstalls the dependency directory and clears the frozen flag.
// Requires the project to be frozen.
func (m *Manager) Thaw(ctx context.Context, name string) error {
	project, err := m.store.Get(name)
	if err != nil {
		return err
	}
	if !project.Frozen {
		return fmt.Errorf("%w: %s", ErrNotFrozen, name)
	}

	return m.store.WithLock(name, func() error {
		ui := filepath.Join(project.WorktreePath, uiDir)
		if _, err := os.Stat(filepath.Join(ui, "package.json")); err == nil {
			if err := m.pkgInstall(ctx, ui); err != nil {
				return fmt.Errorf("failed to reinstall node_modules: %w", err)
			}
		}

		project.Frozen = false
		if err := m.store.Put(project); err != nil {
			return err
		}
		m.logger.Info("thawed project", zap.String("project", name))
		return nil
	})
}
