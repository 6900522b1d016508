// Package main implements the abm CLI for managing parallel Airflow
// development environments: git worktrees, per-project ports, and
// breeze sessions that never step on each other.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/abm/internal/config"
	"github.com/fyrsmithlabs/abm/internal/conflict"
	"github.com/fyrsmithlabs/abm/internal/dockerx"
	"github.com/fyrsmithlabs/abm/internal/gitx"
	"github.com/fyrsmithlabs/abm/internal/lifecycle"
	"github.com/fyrsmithlabs/abm/internal/logging"
	"github.com/fyrsmithlabs/abm/internal/store"
)

var (
	// assumeYes answers every confirmation prompt with yes.
	assumeYes bool
	// version information
	version = "dev"

	logger *zap.Logger
)

func main() {
	var err error
	logger, err = logging.New(logging.FromEnv())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "abm",
	Short: "Manage parallel Airflow breeze development environments",
	Long: `abm manages multiple parallel Airflow development environments.

Each project gets its own git worktree, its own set of host ports, and
its own docker compose project, so several breeze sessions can run side
by side without port or container collisions.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to all confirmation prompts")
}

// app bundles the wired collaborators every command needs.
type app struct {
	paths    config.Paths
	cfg      *config.Config
	store    *store.Store
	repo     *gitx.Repo
	docker   *dockerx.Client
	manager  *lifecycle.Manager
	resolver *conflict.Resolver
}

// setup loads the config and wires the full dependency graph. Commands
// that work without an initialized store (init, completion) do not call
// it.
func setup() (*app, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths)
	if err != nil {
		return nil, err
	}
	repo, err := gitx.Open(cfg.AirflowRepo)
	if err != nil {
		return nil, fmt.Errorf("configured airflow repo is unusable: %w", err)
	}

	st := store.New(paths, logger)
	docker := dockerx.NewClient(logger)

	manager, err := lifecycle.NewManager(lifecycle.Deps{
		Config:  cfg,
		Store:   st,
		Git:     repo,
		Docker:  docker,
		Confirm: confirm,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	resolver, err := conflict.NewResolver(st, manager.Ranges(), conflict.DialProbe(250*time.Millisecond), confirm, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		paths:    paths,
		cfg:      cfg,
		store:    st,
		repo:     repo,
		docker:   docker,
		manager:  manager,
		resolver: resolver,
	}, nil
}

// confirm prompts on the terminal unless --yes was given.
func confirm(question string) bool {
	if assumeYes {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// completeProjectNames offers managed project names for shell
// completion.
func completeProjectNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	a, err := setup()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	projects, err := a.store.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		if strings.HasPrefix(p.Name, toComplete) {
			names = append(names, p.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// currentProject resolves the project a command targets: the explicit
// name argument when given, otherwise the project owning the working
// directory.
func currentProject(a *app, args []string) (*store.Project, error) {
	if len(args) > 0 {
		return a.store.Get(args[0])
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	p, err := a.store.FindByWorktree(cwd)
	if err != nil {
		return nil, fmt.Errorf("%w (run inside a managed worktree or pass a project name)", err)
	}
	return p, nil
}
