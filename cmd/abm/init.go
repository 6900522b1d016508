package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/abm/internal/config"
	"github.com/fyrsmithlabs/abm/internal/gitx"
)

var (
	initAirflowRepo  string
	initWorktreeBase string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the abm store and global configuration",
	Long: `Initialize abm: record where the Airflow checkout lives and where
worktrees should be created, and create the project store.

Examples:
  # Use the conventional locations (~/code/airflow, ~/code/airflow-worktree)
  abm init

  # Point at an existing checkout elsewhere
  abm init --airflow-repo ~/src/airflow --worktree-base ~/src/airflow-wt`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initAirflowRepo, "airflow-repo", "", "path to the main Airflow checkout")
	initCmd.Flags().StringVar(&initWorktreeBase, "worktree-base", "", "directory where project worktrees are created")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	paths, err := config.DefaultPaths()
	if err != nil {
		return err
	}

	airflowRepo := initAirflowRepo
	if airflowRepo == "" {
		airflowRepo = config.DefaultAirflowRepo()
	}
	worktreeBase := initWorktreeBase
	if worktreeBase == "" {
		worktreeBase = config.DefaultWorktreeBase()
	}
	if airflowRepo == "" || worktreeBase == "" {
		return fmt.Errorf("cannot determine default paths; pass --airflow-repo and --worktree-base")
	}

	// The repo must be a usable git checkout before it is recorded.
	if _, err := gitx.Open(airflowRepo); err != nil {
		return fmt.Errorf("--airflow-repo must point at a git checkout of apache/airflow: %w", err)
	}
	if err := os.MkdirAll(worktreeBase, 0o755); err != nil {
		return fmt.Errorf("failed to create worktree base %s: %w", worktreeBase, err)
	}

	cfg := &config.Config{
		SchemaVersion: config.SchemaVersion,
		AirflowRepo:   airflowRepo,
		WorktreeBase:  worktreeBase,
	}
	if err := cfg.Save(paths); err != nil {
		return err
	}
	if err := os.MkdirAll(paths.ProjectsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create projects directory: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized abm store at %s\n", paths.StoreRoot)
	fmt.Fprintf(cmd.OutOrStdout(), "  airflow repo:  %s\n", airflowRepo)
	fmt.Fprintf(cmd.OutOrStdout(), "  worktree base: %s\n", worktreeBase)
	return nil
}
