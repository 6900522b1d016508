// Package gitx wraps git operations against the managed source
// repository. Reference checks go through go-git; linked-worktree
// management shells out to the git CLI, which owns the worktree
// metadata format.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/fyrsmithlabs/abm/internal/execx"
)

// ErrNotManagedRepo indicates a path whose checkout does not trace back
// to the configured source repository.
var ErrNotManagedRepo = errors.New("not a worktree of the managed repository")

// Repo is the configured source repository.
type Repo struct {
	path string
	repo *git.Repository
}

// Open validates that path is a git repository and returns a handle.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository path %s: %w", path, err)
	}
	repo, err := git.PlainOpen(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", abs, err)
	}
	return &Repo{path: abs, repo: repo}, nil
}

// Path returns the repository root.
func (r *Repo) Path() string { return r.path }

// BranchExists reports whether a local branch exists.
func (r *Repo) BranchExists(name string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to resolve branch %s: %w", name, err)
	}
	return true, nil
}

// CreateBranch creates a local branch at the current HEAD.
func (r *Repo) CreateBranch(ctx context.Context, name string) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	return nil
}

// DeleteBranch force-deletes a local branch. Done through the CLI so
// git itself refuses branches checked out in a remaining worktree.
func (r *Repo) DeleteBranch(ctx context.Context, name string) error {
	if _, err := execx.Capture(ctx, r.path, nil, "git", "branch", "-D", name); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}

// WorktreeAdd creates a linked worktree for branch at path.
func (r *Repo) WorktreeAdd(ctx context.Context, path, branch string) error {
	if _, err := execx.Capture(ctx, r.path, nil, "git", "worktree", "add", path, branch); err != nil {
		return fmt.Errorf("failed to add worktree at %s: %w", path, err)
	}
	return nil
}

// WorktreeRemove force-removes a linked worktree and prunes stale
// administrative entries.
func (r *Repo) WorktreeRemove(ctx context.Context, path string) error {
	if _, err := execx.Capture(ctx, r.path, nil, "git", "worktree", "remove", path, "--force"); err != nil {
		return fmt.Errorf("failed to remove worktree %s: %w", path, err)
	}
	_, _ = execx.Capture(ctx, r.path, nil, "git", "worktree", "prune")
	return nil
}

// HasWorktreeFor reports whether any linked worktree already has the
// branch checked out.
func (r *Repo) HasWorktreeFor(ctx context.Context, branch string) (bool, error) {
	out, err := execx.Capture(ctx, r.path, nil, "git", "worktree", "list", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to list worktrees: %w", err)
	}
	return worktreeListHasBranch(out, branch), nil
}

// worktreeListHasBranch scans `git worktree list --porcelain` output
// for a checkout of the given branch.
func worktreeListHasBranch(out, branch string) bool {
	want := "branch refs/heads/" + branch
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == want {
			return true
		}
	}
	return false
}

// ValidateWorktree checks that dir is a worktree of this repository and
// returns the branch it has checked out. A checkout of some other
// repository (or a detached HEAD) fails with ErrNotManagedRepo.
func (r *Repo) ValidateWorktree(ctx context.Context, dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotManagedRepo, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrNotManagedRepo, abs)
	}

	wtCommon, err := commonGitDir(ctx, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotManagedRepo, abs, err)
	}
	repoCommon, err := commonGitDir(ctx, r.path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve git dir of %s: %w", r.path, err)
	}
	if wtCommon != repoCommon {
		return "", fmt.Errorf("%w: %s belongs to a different repository", ErrNotManagedRepo, abs)
	}

	branch, err := CurrentBranch(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotManagedRepo, abs, err)
	}
	return branch, nil
}

// CurrentBranch returns the branch checked out at dir, which may be a
// linked worktree.
func CurrentBranch(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("detached HEAD at %s", dir)
	}
	return head.Name().Short(), nil
}

// commonGitDir resolves the shared git directory for a checkout,
// following symlinks so bind-mounted and linked paths compare equal.
func commonGitDir(ctx context.Context, dir string) (string, error) {
	out, err := execx.Capture(ctx, dir, nil, "git", "rev-parse", "--git-common-dir")
	if err != nil {
		return "", err
	}
	common := strings.TrimSpace(out)
	if common == "" {
		return "", errors.New("empty git-common-dir")
	}
	if !filepath.IsAbs(common) {
		common = filepath.Join(dir, common)
	}
	if resolved, err := filepath.EvalSymlinks(common); err == nil {
		common = resolved
	}
	return filepath.Clean(common), nil
}
