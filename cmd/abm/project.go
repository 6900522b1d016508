package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/abm/internal/lifecycle"
)

var (
	addBranch       string
	addDescription  string
	addBackend      string
	addPython       string
	addCreateBranch bool

	adoptName        string
	adoptDescription string
	adoptBackend     string
	adoptPython      string

	removeForce        bool
	removeDeleteBranch bool
	removeKeepDocs     bool
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new project with its own worktree and ports",
	Long: `Create a new project: a git worktree for the branch, a unique set of
host ports, and the breeze configuration that binds them together.

Examples:
  # Branch dag-ui already exists
  abm add dag-ui

  # Create the branch too
  abm add scheduler-fix --create-branch

  # Postgres backend on a different branch name
  abm add perf --branch perf-experiments --backend postgres --create-branch`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var adoptCmd = &cobra.Command{
	Use:   "adopt [path]",
	Short: "Adopt an existing worktree as a managed project",
	Long: `Register a worktree that was created outside abm. The worktree keeps
its branch; abm assigns ports and writes its configuration alongside.
Adopting an already-managed path is a no-op that prints the existing
project.

Examples:
  # Adopt the current directory
  abm adopt

  # Adopt a specific worktree under a chosen name
  abm adopt ~/code/airflow-worktree/old-experiment --name experiment`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdopt,
}

var disownCmd = &cobra.Command{
	Use:   "disown [name]",
	Short: "Stop managing a project, keeping its worktree and branch",
	Long: `Remove a project's record and generated files without touching the
worktree, the branch, or any running containers. The inverse of adopt.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeProjectNames,
	RunE:              runDisown,
}

var removeCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a project: containers, worktree, and record",
	Long: `Tear a project down: stop its containers, remove its worktree, and
delete its record. The branch survives unless --delete-branch is given.
Adopted projects refuse removal without --force.

Examples:
  abm remove dag-ui
  abm remove dag-ui --delete-branch
  abm remove old-experiment --force --keep-docs`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeProjectNames,
	RunE:              runRemove,
}

func init() {
	addCmd.Flags().StringVar(&addBranch, "branch", "", "branch to check out (defaults to the project name)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "free-text description")
	addCmd.Flags().StringVar(&addBackend, "backend", "", "metadata database backend: sqlite, postgres, mysql (default sqlite)")
	addCmd.Flags().StringVar(&addPython, "python", "", "python version inside breeze (default 3.11)")
	addCmd.Flags().BoolVar(&addCreateBranch, "create-branch", false, "create the branch if it does not exist")

	adoptCmd.Flags().StringVar(&adoptName, "name", "", "project name (defaults to the sanitized branch name)")
	adoptCmd.Flags().StringVar(&adoptDescription, "description", "", "free-text description")
	adoptCmd.Flags().StringVar(&adoptBackend, "backend", "", "metadata database backend (default sqlite)")
	adoptCmd.Flags().StringVar(&adoptPython, "python", "", "python version inside breeze (default 3.11)")

	removeCmd.Flags().BoolVar(&removeForce, "force", false, "skip confirmation and override adopted protection")
	removeCmd.Flags().BoolVar(&removeDeleteBranch, "delete-branch", false, "also delete the git branch")
	removeCmd.Flags().BoolVar(&removeKeepDocs, "keep-docs", false, "keep PROJECT.md in the store")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(adoptCmd)
	rootCmd.AddCommand(disownCmd)
	rootCmd.AddCommand(removeCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	project, err := a.manager.Create(cmd.Context(), lifecycle.CreateOptions{
		Name:          args[0],
		Branch:        addBranch,
		Description:   addDescription,
		Backend:       addBackend,
		PythonVersion: addPython,
		CreateBranch:  addCreateBranch,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created project '%s'\n", project.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "  branch:    %s\n", project.Branch)
	fmt.Fprintf(cmd.OutOrStdout(), "  worktree:  %s\n", project.WorktreePath)
	fmt.Fprintf(cmd.OutOrStdout(), "  webserver: http://localhost:%d\n", project.Ports.Webserver)
	return nil
}

func runAdopt(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	project, existing, err := a.manager.Adopt(cmd.Context(), lifecycle.AdoptOptions{
		Path:          path,
		Name:          adoptName,
		Description:   adoptDescription,
		Backend:       adoptBackend,
		PythonVersion: adoptPython,
	})
	if err != nil {
		return err
	}

	if existing {
		fmt.Fprintf(cmd.OutOrStdout(), "Already managed as project '%s'\n", project.Name)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Adopted '%s' as project '%s' (branch %s)\n",
		project.WorktreePath, project.Name, project.Branch)
	return nil
}

func runDisown(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	project, err := currentProject(a, args)
	if err != nil {
		return err
	}
	if err := a.manager.Disown(cmd.Context(), project.Name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Disowned project '%s'; worktree %s is no longer managed\n",
		project.Name, project.WorktreePath)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	project, err := currentProject(a, args)
	if err != nil {
		return err
	}
	err = a.manager.Remove(cmd.Context(), project.Name, lifecycle.RemoveOptions{
		Force:        removeForce,
		DeleteBranch: removeDeleteBranch,
		KeepDocs:     removeKeepDocs,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed project '%s'\n", project.Name)
	return nil
}
