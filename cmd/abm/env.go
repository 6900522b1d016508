package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/abm/internal/breeze"
	"github.com/fyrsmithlabs/abm/internal/conflict"
	"github.com/fyrsmithlabs/abm/internal/lifecycle"
	"github.com/fyrsmithlabs/abm/internal/store"
)

var envProject string

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Enter a breeze shell for the project",
	Long: `Enter an interactive breeze shell with the project's ports and compose
project applied. abm replaces itself with breeze; exiting the shell
returns to your terminal, not to abm.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a command inside the project's breeze environment",
	Example: `  abm run -- pytest tests/models/test_dag.py
  abm run --project dag-ui -- airflow db reset`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var startAirflowCmd = &cobra.Command{
	Use:   "start-airflow",
	Short: "Start a full Airflow stack for the project",
	Long: `Launch breeze start-airflow: webserver, scheduler, and triggerer in a
tmux session, bound to the project's ports.`,
	Args: cobra.NoArgs,
	RunE: runStartAirflow,
}

func init() {
	for _, c := range []*cobra.Command{shellCmd, runCmd, startAirflowCmd} {
		c.Flags().StringVar(&envProject, "project", "", "project name (defaults to the one owning the current directory)")
		rootCmd.AddCommand(c)
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	_, p, err := prepareLaunch(cmd)
	if err != nil {
		return err
	}
	return breeze.NewLauncher(logger).Shell(p)
}

func runRun(cmd *cobra.Command, args []string) error {
	_, p, err := prepareLaunch(cmd)
	if err != nil {
		return err
	}
	return breeze.NewLauncher(logger).Run(p, args)
}

func runStartAirflow(cmd *cobra.Command, args []string) error {
	_, p, err := prepareLaunch(cmd)
	if err != nil {
		return err
	}
	return breeze.NewLauncher(logger).StartAirflow(p)
}

// prepareLaunch resolves the target project and clears the runway for a
// breeze launch: the project must not be frozen, and its recorded ports
// must either be free or already bound by its own containers.
func prepareLaunch(cmd *cobra.Command) (*app, *store.Project, error) {
	a, err := setup()
	if err != nil {
		return nil, nil, err
	}
	p, err := resolveEnvProject(a)
	if err != nil {
		return nil, nil, err
	}
	if err := lifecycle.EnsureActive(p); err != nil {
		return nil, nil, err
	}

	// A project whose own containers are up has its ports legitimately
	// bound; probing would report its own services as conflicts.
	if hasRunningContainers(p, a.docker.Containers(cmd.Context())) {
		return a, p, nil
	}

	conflicts := conflict.Detect(a.resolver.Probe, p.Ports)
	if len(conflicts) > 0 {
		repaired, err := a.resolver.Resolve(p, conflicts)
		if err != nil {
			return nil, nil, err
		}
		p.Ports = repaired
	}
	return a, p, nil
}

func resolveEnvProject(a *app) (*store.Project, error) {
	if envProject != "" {
		return a.store.Get(envProject)
	}
	return currentProject(a, nil)
}
