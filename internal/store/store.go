// Package store persists project records as individual JSON documents
// under the abm home directory.
//
// Every abm invocation is an independent short-lived process, so the
// store is the only shared mutable state. Records are replaced with an
// atomic rename and mutations run under a per-record advisory lock; see
// lock.go. In-memory copies are disposable and re-read per invocation.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/abm/internal/config"
)

const recordFile = ".abm"

// Common errors.
var (
	ErrNotFound = errors.New("project not found")
	ErrLockBusy = errors.New("project record is locked by another abm process")
)

// Store reads and writes project records.
type Store struct {
	projectsDir string
	logger      *zap.Logger
}

// New creates a store rooted at the configured paths. logger may be nil.
func New(paths config.Paths, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{projectsDir: paths.ProjectsDir(), logger: logger}
}

// ProjectDir returns the store folder for a project.
func (s *Store) ProjectDir(name string) string {
	return filepath.Join(s.projectsDir, name)
}

// Get loads one project record by name.
func (s *Store) Get(name string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(s.ProjectDir(name), recordFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read record for %s: %w", name, err)
	}
	p, err := decodeProject(data)
	if err != nil {
		return nil, fmt.Errorf("record for %s: %w", name, err)
	}
	return p, nil
}

// List returns every readable project record, sorted by name.
// Unreadable records are skipped with a warning so one corrupt file
// cannot take down listing or allocation for everything else.
func (s *Store) List() ([]*Project, error) {
	entries, err := os.ReadDir(s.projectsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read projects directory: %w", err)
	}

	var projects []*Project
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := s.Get(entry.Name())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // folder without a record, e.g. remove --keep-docs leftovers
			}
			s.logger.Warn("skipping unreadable project record",
				zap.String("project", entry.Name()), zap.Error(err))
			continue
		}
		if p.Name != entry.Name() {
			s.logger.Warn("skipping record whose name does not match its folder",
				zap.String("folder", entry.Name()), zap.String("record", p.Name))
			continue
		}
		projects = append(projects, p)
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// Put writes a project record atomically, creating the project folder
// if needed.
func (s *Store) Put(p *Project) error {
	if p.Name == "" {
		return errors.New("project name cannot be empty")
	}
	dir := s.ProjectDir(p.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create project folder %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record for %s: %w", p.Name, err)
	}
	data = append(data, '\n')

	target := filepath.Join(dir, recordFile)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record for %s: %w", p.Name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace record for %s: %w", p.Name, err)
	}
	return nil
}

// Delete removes a project's store folder. With keepDocs, everything
// except PROJECT.md is deleted so the notes survive for a future
// project on the same topic.
func (s *Store) Delete(name string, keepDocs bool) error {
	dir := s.ProjectDir(name)
	if !keepDocs {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to delete project folder %s: %w", dir, err)
		}
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read project folder %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.Name() == "PROJECT.md" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// FindByWorktree locates the project owning the given path, matching
// the worktree itself or any path beneath it.
func (s *Store) FindByWorktree(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	projects, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if abs == p.WorktreePath || strings.HasPrefix(abs, p.WorktreePath+string(filepath.Separator)) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no project owns %s", ErrNotFound, abs)
}
