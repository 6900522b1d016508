package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/abm/internal/breeze"
	"github.com/fyrsmithlabs/abm/internal/ports"
	"github.com/fyrsmithlabs/abm/internal/store"
)

// CreateOptions parameterizes a project creation.
type CreateOptions struct {
	Name          string
	Branch        string // defaults to Name
	Description   string
	Backend       string // defaults to sqlite
	PythonVersion string // defaults to 3.11
	CreateBranch  bool   // create the branch when it does not exist
}

// Create brings a project from NONEXISTENT to ACTIVE: branch, ports,
// worktree, record, docs, symlinks — in that order, so a failure
// before the worktree exists leaves no record behind. An orphaned
// branch from a failed create is acceptable; re-running with
// --create-branch reuses it.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*store.Project, error) {
	if err := validateName(opts.Name); err != nil {
		return nil, err
	}
	branch := opts.Branch
	if branch == "" {
		branch = opts.Name
	}
	backend := opts.Backend
	if backend == "" {
		backend = "sqlite"
	}
	pythonVersion := opts.PythonVersion
	if pythonVersion == "" {
		pythonVersion = "3.11"
	}

	if _, err := m.store.Get(opts.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, opts.Name)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	worktreePath := filepath.Join(m.cfg.WorktreeBase, opts.Name)
	if _, err := os.Stat(worktreePath); err == nil {
		return nil, fmt.Errorf("%w: worktree path %s already exists", ErrAlreadyExists, worktreePath)
	}

	exists, err := m.git.BranchExists(branch)
	if err != nil {
		return nil, err
	}
	if !exists {
		if !opts.CreateBranch {
			return nil, fmt.Errorf("branch '%s' does not exist (use --create-branch to create it)", branch)
		}
		if err := m.git.CreateBranch(ctx, branch); err != nil {
			return nil, err
		}
		m.logger.Info("created branch", zap.String("branch", branch))
	}

	checkedOut, err := m.git.HasWorktreeFor(ctx, branch)
	if err != nil {
		return nil, err
	}
	if checkedOut {
		return nil, fmt.Errorf("%w: branch '%s' is already checked out in another worktree", ErrAlreadyExists, branch)
	}

	var project *store.Project
	err = m.store.WithLock(opts.Name, func() error {
		// Fresh read of the project set: allocation must not trust a
		// snapshot taken before the lock was held.
		existing, err := m.store.List()
		if err != nil {
			return err
		}
		allocated, err := ports.Allocate(m.ranges, portsOf(existing))
		if err != nil {
			return err
		}

		if err := m.git.WorktreeAdd(ctx, worktreePath, branch); err != nil {
			return err
		}

		description := opts.Description
		if description == "" {
			description = "Airflow development for " + branch
		}
		project = &store.Project{
			Name:          opts.Name,
			Branch:        branch,
			WorktreePath:  worktreePath,
			Ports:         allocated,
			Description:   description,
			Backend:       backend,
			PythonVersion: pythonVersion,
			CreatedAt:     time.Now().Format(time.RFC3339),
		}
		return m.store.Put(project)
	})
	if err != nil {
		return nil, err
	}

	if err := m.materialize(project); err != nil {
		return nil, err
	}

	m.logger.Info("created project",
		zap.String("project", project.Name),
		zap.String("branch", branch),
		zap.String("worktree", worktreePath),
		zap.Int("webserver_port", project.Ports.Webserver))
	return project, nil
}

// AdoptOptions parameterizes adopting a pre-existing worktree.
type AdoptOptions struct {
	Path          string
	Name          string // defaults to the sanitized branch name
	Description   string
	Backend       string
	PythonVersion string
}

// Adopt registers a worktree that was not created by abm. Idempotent:
// adopting a path that is already managed returns the existing record
// and reports existing=true. The record carries the adopted flag, which
// protects the worktree from unforced removal.
func (m *Manager) Adopt(ctx context.Context, opts AdoptOptions) (project *store.Project, existing bool, err error) {
	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve path %s: %w", opts.Path, err)
	}

	branch, err := m.git.ValidateWorktree(ctx, abs)
	if err != nil {
		return nil, false, err
	}

	if p, err := m.store.FindByWorktree(abs); err == nil {
		return p, true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	name := opts.Name
	if name == "" {
		name = sanitizeName(branch)
	}
	if err := validateName(name); err != nil {
		return nil, false, err
	}
	if other, err := m.store.Get(name); err == nil {
		return nil, false, fmt.Errorf("%w: '%s' already names the project at %s", ErrAlreadyExists, name, other.WorktreePath)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	backend := opts.Backend
	if backend == "" {
		backend = "sqlite"
	}
	pythonVersion := opts.PythonVersion
	if pythonVersion == "" {
		pythonVersion = "3.11"
	}
	description := opts.Description
	if description == "" {
		description = "Adopted worktree for " + branch
	}

	err = m.store.WithLock(name, func() error {
		all, err := m.store.List()
		if err != nil {
			return err
		}
		allocated, err := ports.Allocate(m.ranges, portsOf(all))
		if err != nil {
			return err
		}
		project = &store.Project{
			Name:          name,
			Branch:        branch,
			WorktreePath:  abs,
			Ports:         allocated,
			Description:   description,
			Backend:       backend,
			PythonVersion: pythonVersion,
			CreatedAt:     time.Now().Format(time.RFC3339),
			Adopted:       true,
		}
		return m.store.Put(project)
	})
	if err != nil {
		return nil, false, err
	}

	if err := m.materialize(project); err != nil {
		return nil, false, err
	}

	m.logger.Info("adopted worktree",
		zap.String("project", name),
		zap.String("branch", branch),
		zap.String("worktree", abs))
	return project, false, nil
}

// materialize writes the docs, breeze config and symlinks that turn a
// bare record+worktree pair into a usable project.
func (m *Manager) materialize(p *store.Project) error {
	if err := m.store.WriteDocs(p); err != nil {
		return err
	}
	if err := breeze.WriteConfig(p); err != nil {
		return err
	}
	return m.linkDocs(p)
}

// linkDocs symlinks the store-owned doc files into the worktree, plus
// the source repo's gitignored .cursor directory so editor rules work
// in every project without manual setup.
func (m *Manager) linkDocs(p *store.Project) error {
	projectDir := m.store.ProjectDir(p.Name)
	for _, file := range store.SymlinkedFiles {
		source := filepath.Join(projectDir, file)
		target := filepath.Join(p.WorktreePath, file)
		if err := replaceWithSymlink(source, target); err != nil {
			return err
		}
	}

	cursorSource := filepath.Join(m.cfg.AirflowRepo, ".cursor")
	if info, err := os.Stat(cursorSource); err == nil && info.IsDir() {
		if err := replaceWithSymlink(cursorSource, filepath.Join(p.WorktreePath, ".cursor")); err != nil {
			m.logger.Warn("failed to link .cursor", zap.Error(err))
		}
	}
	return nil
}

// replaceWithSymlink points target at source, replacing an existing
// file or symlink. A real directory at target is left untouched.
func replaceWithSymlink(source, target string) error {
	if info, err := os.Lstat(target); err == nil {
		if info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
			return nil
		}
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("failed to replace %s: %w", target, err)
		}
	}
	if err := os.Symlink(source, target); err != nil {
		return fmt.Errorf("failed to symlink %s: %w", target, err)
	}
	return nil
}

// unlinkDocs removes the doc symlinks from a worktree. Regular files
// with the same names are preserved; only symlinks are abm's to
// delete.
func unlinkDocs(worktreePath string) {
	names := append([]string{}, store.SymlinkedFiles...)
	names = append(names, ".cursor")
	for _, file := range names {
		target := filepath.Join(worktreePath, file)
		if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
			os.Remove(target)
		}
	}
}
