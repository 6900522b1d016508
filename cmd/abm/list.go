package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/abm/internal/dockerx"
	"github.com/fyrsmithlabs/abm/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	frozenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	adoptedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed projects",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	projects, err := a.store.List()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects yet. Create one with 'abm add <name>'.")
		return nil
	}

	containers := a.docker.Containers(cmd.Context())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-20s %-24s %-9s %-10s %s", "PROJECT", "BRANCH", "WEB PORT", "STATE", "NOTES")))
	for _, p := range projects {
		fmt.Fprintf(out, "%s %-24s %-9d %s %s\n",
			nameStyle.Render(fmt.Sprintf("%-20s", truncate(p.Name, 20))),
			truncate(p.Branch, 24),
			p.Ports.Webserver,
			renderState(p, containers),
			dimStyle.Render(truncate(p.Description, 40)),
		)
	}
	if anyAdopted(projects) {
		fmt.Fprintln(out, dimStyle.Render("* adopted: worktree predates abm, protected from removal"))
	}
	return nil
}

// renderState summarizes runtime state: frozen, running, or idle, with
// a star for adopted projects. Styled text breaks %-10s padding, so the
// column is padded on the plain width.
func renderState(p *store.Project, containers []dockerx.Container) string {
	plain, style := "idle", dimStyle
	switch {
	case p.Frozen:
		plain, style = "frozen", frozenStyle
	case hasRunningContainers(p, containers):
		plain, style = "running", runningStyle
	}
	rendered := style.Render(plain)
	if p.Adopted {
		rendered += adoptedStyle.Render("*")
		plain += "*"
	}
	if pad := 10 - len(plain); pad > 0 {
		rendered += strings.Repeat(" ", pad)
	}
	return rendered
}

func hasRunningContainers(p *store.Project, containers []dockerx.Container) bool {
	for _, ct := range containers {
		if ct.BelongsTo(p.WorktreePath) {
			return true
		}
	}
	return false
}

func anyAdopted(projects []*store.Project) bool {
	for _, p := range projects {
		if p.Adopted {
			return true
		}
	}
	return false
}

// truncate shortens s to at most n characters. Counted in runes so a
// multibyte branch name is never cut mid-character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
