package main

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/abm/internal/github"
	"github.com/fyrsmithlabs/abm/internal/store"
)

var prLookup bool

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Link a project to its apache/airflow pull request",
}

var prLinkCmd = &cobra.Command{
	Use:   "link <number>",
	Short: "Link the project to a pull request",
	Long: `Record the apache/airflow pull request this project's branch targets.
The link is a local metadata edit and works offline; pass --lookup to
also verify the number against the GitHub API (set GITHUB_TOKEN to
raise the API rate limit).

Examples:
  abm pr link 45123
  abm pr link 45123 --lookup
  abm pr link 45123 --project dag-ui`,
	Args: cobra.ExactArgs(1),
	RunE: runPRLink,
}

var prOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the linked pull request in the browser",
	Args:  cobra.NoArgs,
	RunE:  runPROpen,
}

var prClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the pull request link",
	Args:  cobra.NoArgs,
	RunE:  runPRClear,
}

func init() {
	prLinkCmd.Flags().BoolVar(&prLookup, "lookup", false, "verify the PR against the GitHub API after linking")
	for _, c := range []*cobra.Command{prLinkCmd, prOpenCmd, prClearCmd} {
		c.Flags().StringVar(&envProject, "project", "", "project name (defaults to the one owning the current directory)")
		prCmd.AddCommand(c)
	}
	rootCmd.AddCommand(prCmd)
}

func runPRLink(cmd *cobra.Command, args []string) error {
	number, err := strconv.Atoi(args[0])
	if err != nil || number <= 0 {
		return fmt.Errorf("invalid PR number %q", args[0])
	}
	a, err := setup()
	if err != nil {
		return err
	}
	p, err := resolveEnvProject(a)
	if err != nil {
		return err
	}

	if err := setPRNumber(a.store, p.Name, &number); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Linked '%s' to #%d: %s\n", p.Name, number, github.PullURL(number))

	// The link is already persisted; a failed lookup is a warning, not
	// an error, so linking keeps working offline.
	if prLookup {
		pr, err := github.NewClient(cmd.Context()).PullRequest(cmd.Context(), number)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not verify #%d: %v\n", number, err)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s)\n", pr.Title, pr.State)
	}
	return nil
}

func runPROpen(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	p, err := resolveEnvProject(a)
	if err != nil {
		return err
	}
	if p.PRNumber == nil {
		return fmt.Errorf("project '%s' has no linked pull request (use 'abm pr link')", p.Name)
	}

	url := github.PullURL(*p.PRNumber)
	if err := openBrowser(url); err != nil {
		// Printing the URL is the useful part; opening is convenience.
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", url)
	return nil
}

func runPRClear(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	p, err := resolveEnvProject(a)
	if err != nil {
		return err
	}

	if err := setPRNumber(a.store, p.Name, nil); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared pull request link for '%s'\n", p.Name)
	return nil
}

// setPRNumber updates a record's pull request link under the record
// lock; nil clears it. Purely local: no API involvement.
func setPRNumber(st *store.Store, name string, number *int) error {
	return st.WithLock(name, func() error {
		fresh, err := st.Get(name)
		if err != nil {
			return err
		}
		fresh.PRNumber = number
		return st.Put(fresh)
	})
}

func openBrowser(url string) error {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}
	return exec.Command(opener, url).Start()
}
