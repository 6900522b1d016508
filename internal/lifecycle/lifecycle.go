// Package lifecycle implements the project state machine: creation,
// adoption of pre-existing worktrees, disowning, freezing and thawing,
// and removal.
//
// A project moves NONEXISTENT -> ACTIVE <-> FROZEN, with adopted as an
// orthogonal flag; remove and disown both end at NONEXISTENT and
// differ only in whether the worktree and branch are destroyed too.
// Metadata is written only after the external side effects it depends
// on have succeeded, so a failed transition never leaves an orphaned
// record. Teardown (remove, disown) is deliberately best-effort so a
// half-broken project can still be torn down.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/abm/internal/config"
	"github.com/fyrsmithlabs/abm/internal/execx"
	"github.com/fyrsmithlabs/abm/internal/ports"
	"github.com/fyrsmithlabs/abm/internal/store"
)

// Transition errors.
var (
	ErrAlreadyExists     = errors.New("project already exists")
	ErrInvalidName       = errors.New("invalid project name")
	ErrAdoptedProtection = errors.New("adopted project is protected from removal")
	ErrFrozen            = errors.New("project is frozen")
	ErrNotFrozen         = errors.New("project is not frozen")
	ErrAborted           = errors.New("aborted by user")
)

// Git is the version-control collaborator the lifecycle drives.
type Git interface {
	BranchExists(name string) (bool, error)
	CreateBranch(ctx context.Context, name string) error
	DeleteBranch(ctx context.Context, name string) error
	WorktreeAdd(ctx context.Context, path, branch string) error
	WorktreeRemove(ctx context.Context, path string) error
	HasWorktreeFor(ctx context.Context, branch string) (bool, error)
	// ValidateWorktree returns the branch checked out at dir, or
	// gitx.ErrNotManagedRepo when dir does not belong to the managed
	// repository.
	ValidateWorktree(ctx context.Context, dir string) (string, error)
}

// Docker is the container collaborator; teardown only needs to stop
// containers belonging to a worktree.
type Docker interface {
	StopByWorkingDir(ctx context.Context, worktree string) int
}

// Deps wires a Manager. Confirm and PkgInstall are capabilities so the
// same transitions run interactively in the CLI and scripted in tests.
type Deps struct {
	Config     *config.Config
	Store      *store.Store
	Git        Git
	Docker     Docker
	Ranges     ports.Ranges
	Confirm    func(question string) bool
	PkgInstall func(ctx context.Context, dir string) error
	Logger     *zap.Logger
}

// Manager executes project lifecycle transitions.
type Manager struct {
	cfg        *config.Config
	store      *store.Store
	git        Git
	docker     Docker
	ranges     ports.Ranges
	confirm    func(string) bool
	pkgInstall func(context.Context, string) error
	logger     *zap.Logger
}

// NewManager validates dependencies and returns a manager. Confirm
// defaults to denying, so destructive transitions are safe when no
// confirmer is wired.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Git == nil {
		return nil, errors.New("git is required")
	}
	if deps.Docker == nil {
		return nil, errors.New("docker is required")
	}
	if deps.Ranges == nil {
		deps.Ranges = ports.DefaultRanges()
	}
	if deps.Confirm == nil {
		deps.Confirm = func(string) bool { return false }
	}
	if deps.PkgInstall == nil {
		deps.PkgInstall = npmCI
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Manager{
		cfg:        deps.Config,
		store:      deps.Store,
		git:        deps.Git,
		docker:     deps.Docker,
		ranges:     deps.Ranges,
		confirm:    deps.Confirm,
		pkgInstall: deps.PkgInstall,
		logger:     deps.Logger,
	}, nil
}

// Store exposes the metadata store for read-only command paths.
func (m *Manager) Store() *store.Store { return m.store }

// Ranges exposes the configured port ranges.
func (m *Manager) Ranges() ports.Ranges { return m.ranges }

// EnsureActive rejects environment-entry operations on a frozen
// project, directing the user to thaw first.
func EnsureActive(p *store.Project) error {
	if p.Frozen {
		return fmt.Errorf("%w: thaw '%s' first with 'abm thaw %s'", ErrFrozen, p.Name, p.Name)
	}
	return nil
}

// validateName rejects names that cannot serve as a store folder name
// and CLI token.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: name cannot start with a dot", ErrInvalidName)
	}
	if strings.ContainsAny(name, "/\\ \t") {
		return fmt.Errorf("%w: %q contains path separators or whitespace", ErrInvalidName, name)
	}
	return nil
}

// sanitizeName turns a branch name into a valid project name by
// replacing path separators, e.g. feature/dag-ui -> feature-dag-ui.
func sanitizeName(branch string) string {
	return strings.NewReplacer("/", "-", "\\", "-", " ", "-").Replace(branch)
}

// portsOf projects every record's port set for the allocator.
func portsOf(projects []*store.Project) []ports.Ports {
	out := make([]ports.Ports, len(projects))
	for i, p := range projects {
		out[i] = p.Ports
	}
	return out
}

func npmCI(ctx context.Context, dir string) error {
	return execx.Run(ctx, dir, nil, "npm", "ci")
}
