package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var completionInstallCmd = &cobra.Command{
	Use:   "install [bash|zsh|fish]",
	Short: "Install shell completion for the current user",
	Long: `Generate the completion script and write it where the shell picks it
up. The shell is detected from $SHELL when not given.

Installed locations:
  bash: ~/.local/share/bash-completion/completions/abm
  zsh:  ~/.local/share/zsh/site-functions/_abm
  fish: ~/.config/fish/completions/abm.fish`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish"},
	RunE:      runCompletionInstall,
}

func init() {
	completionCmd := &cobra.Command{
		Use:   "completion",
		Short: "Generate or install shell completion scripts",
	}
	// Defining our own completion command suppresses cobra's default one,
	// so the print-to-stdout variants are provided here too.
	completionCmd.AddCommand(
		&cobra.Command{
			Use:   "bash",
			Short: "Print the bash completion script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return rootCmd.GenBashCompletionV2(cmd.OutOrStdout(), true)
			},
		},
		&cobra.Command{
			Use:   "zsh",
			Short: "Print the zsh completion script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return rootCmd.GenZshCompletion(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "fish",
			Short: "Print the fish completion script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
			},
		},
		completionInstallCmd,
	)
	rootCmd.AddCommand(completionCmd)
}

func runCompletionInstall(cmd *cobra.Command, args []string) error {
	shell := ""
	if len(args) > 0 {
		shell = args[0]
	} else {
		shell = filepath.Base(os.Getenv("SHELL"))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	var target string
	var generate func(path string) error
	switch shell {
	case "bash":
		target = filepath.Join(home, ".local", "share", "bash-completion", "completions", "abm")
		generate = func(path string) error { return rootCmd.GenBashCompletionFileV2(path, true) }
	case "zsh":
		target = filepath.Join(home, ".local", "share", "zsh", "site-functions", "_abm")
		generate = rootCmd.GenZshCompletionFile
	case "fish":
		target = filepath.Join(home, ".config", "fish", "completions", "abm.fish")
		generate = func(path string) error { return rootCmd.GenFishCompletionFile(path, true) }
	default:
		return fmt.Errorf("cannot detect shell from $SHELL=%q; pass bash, zsh, or fish", os.Getenv("SHELL"))
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create completion directory: %w", err)
	}
	if err := generate(target); err != nil {
		return fmt.Errorf("failed to write completion script: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed %s completion at %s\n", shell, target)
	if shell == "zsh" && !strings.Contains(os.Getenv("FPATH"), filepath.Dir(target)) {
		fmt.Fprintf(cmd.OutOrStdout(), "Add to ~/.zshrc if completions do not load:\n  fpath=(%s $fpath)\n", filepath.Dir(target))
	}
	return nil
}
