package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/abm/internal/github"
	"github.com/fyrsmithlabs/abm/internal/ports"
)

var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show one project's ports, worktree, and running containers",
	Long: `Show everything about one project: branch, worktree, per-service host
ports, linked PR, and its running containers. Without a name, the
project owning the current directory is shown.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeProjectNames,
	RunE:              runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	p, err := currentProject(a, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("Project "+p.Name))
	fmt.Fprintf(out, "  branch:      %s\n", p.Branch)
	fmt.Fprintf(out, "  worktree:    %s\n", p.WorktreePath)
	fmt.Fprintf(out, "  backend:     %s (python %s)\n", p.Backend, p.PythonVersion)
	fmt.Fprintf(out, "  created:     %s\n", p.CreatedAt)
	if p.Description != "" {
		fmt.Fprintf(out, "  description: %s\n", p.Description)
	}
	if p.Adopted {
		fmt.Fprintln(out, adoptedStyle.Render("  adopted worktree (protected from removal)"))
	}
	if p.Frozen {
		fmt.Fprintln(out, frozenStyle.Render("  frozen (run 'abm thaw "+p.Name+"' before use)"))
	}
	if p.PRNumber != nil {
		fmt.Fprintf(out, "  pull request: #%d %s\n", *p.PRNumber, dimStyle.Render(github.PullURL(*p.PRNumber)))
	}

	fmt.Fprintln(out, headerStyle.Render("Ports"))
	for _, svc := range ports.Services {
		fmt.Fprintf(out, "  %-10s %d\n", svc, p.Ports.Get(svc))
	}
	fmt.Fprintf(out, "  webserver url: http://localhost:%d\n", p.Ports.Webserver)

	fmt.Fprintln(out, headerStyle.Render("Containers"))
	any := false
	for _, ct := range a.docker.Containers(cmd.Context()) {
		if !ct.BelongsTo(p.WorktreePath) {
			continue
		}
		any = true
		mode := "shell"
		if a.docker.HasTmux(cmd.Context(), ct.ID) {
			mode = "start-airflow"
		}
		fmt.Fprintf(out, "  %s %s (%s, %s)\n", runningStyle.Render("●"), ct.Name, ct.Service, mode)
	}
	if !any {
		fmt.Fprintln(out, dimStyle.Render("  none running"))
	}
	return nil
}
