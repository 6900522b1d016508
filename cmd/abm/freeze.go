package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var freezeForce bool

var freezeCmd = &cobra.Command{
	Use:   "freeze [name]",
	Short: "Free disk space by deleting the project's node_modules",
	Long: `Delete the project's UI node_modules directory and mark the project
frozen. A frozen project keeps its worktree, branch, ports, and docker
volumes; it just cannot enter a breeze session until thawed. Freezing
an already-frozen project succeeds and does nothing.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeProjectNames,
	RunE:              runFreeze,
}

var thawCmd = &cobra.Command{
	Use:   "thaw [name]",
	Short: "Reinstall dependencies and unfreeze the project",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeProjectNames,
	RunE:              runThaw,
}

func init() {
	freezeCmd.Flags().BoolVar(&freezeForce, "force", false, "skip confirmation")
	rootCmd.AddCommand(freezeCmd)
	rootCmd.AddCommand(thawCmd)
}

func runFreeze(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	p, err := currentProject(a, args)
	if err != nil {
		return err
	}
	froze, err := a.manager.Freeze(cmd.Context(), p.Name, freezeForce)
	if err != nil {
		return err
	}
	if !froze {
		fmt.Fprintf(cmd.OutOrStdout(), "Project '%s' is already frozen\n", p.Name)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Froze project '%s'\n", p.Name)
	return nil
}

func runThaw(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	p, err := currentProject(a, args)
	if err != nil {
		return err
	}
	if err := a.manager.Thaw(cmd.Context(), p.Name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Thawed project '%s'\n", p.Name)
	return nil
}
