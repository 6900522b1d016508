package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/abm/internal/breeze"
)

var dockerCmd = &cobra.Command{
	Use:   "docker",
	Short: "Manage the project's docker compose services directly",
}

var dockerUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the project's compose services detached",
	Args:  cobra.NoArgs,
	RunE:  runDockerUp,
}

var dockerDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the project's compose services",
	Args:  cobra.NoArgs,
	RunE:  runDockerDown,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Stop and remove all breeze containers, managed or not",
	Long: `Stop and remove every container whose name contains "breeze",
including stopped leftovers from crashed sessions. Useful when docker
is cluttered with stale breeze containers from any project or from
vanilla breeze runs.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	dockerUpCmd.Flags().StringVar(&envProject, "project", "", "project name (defaults to the one owning the current directory)")
	dockerDownCmd.Flags().StringVar(&envProject, "project", "", "project name (defaults to the one owning the current directory)")
	dockerCmd.AddCommand(dockerUpCmd)
	dockerCmd.AddCommand(dockerDownCmd)
	rootCmd.AddCommand(dockerCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func runDockerUp(cmd *cobra.Command, args []string) error {
	a, p, err := prepareLaunch(cmd)
	if err != nil {
		return err
	}
	return a.docker.ComposeUp(cmd.Context(), p.WorktreePath, breeze.ComposeProjectName(p.Name), breeze.Env(p))
}

func runDockerDown(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	p, err := resolveEnvProject(a)
	if err != nil {
		return err
	}
	return a.docker.ComposeDown(cmd.Context(), p.WorktreePath, breeze.ComposeProjectName(p.Name), breeze.Env(p))
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	if !confirm("Stop and remove ALL breeze containers?") {
		return fmt.Errorf("cleanup aborted")
	}
	cleaned, err := a.docker.CleanupBreeze(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleaned up %d breeze container(s)\n", cleaned)
	return nil
}
