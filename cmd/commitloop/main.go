package main

import (
	"context"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/mark3labs/commitloop/internal/logger"
	"github.com/spf13/cobra"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "commitloop",
	Short: "Feed prompts to an agent in a tmux pane, one commit at a time",
}

func init() {
	logo := lipgloss.NewStyle().Foreground(lipgloss.Color("#cba6f7")).Bold(true).Render("commitloop")
	rootCmd.Long = logo + `

commitloop drives an interactive program running in a tmux pane, usually an
AI coding agent. Each iteration pastes a prompt file into the pane, submits
it, and waits for the repository HEAD to move. When a commit lands it sends
the cleanup keys (by default /clear and Enter) and starts over.

Press Ctrl+C once to stop after the current step, twice to exit immediately.`

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(statusCmd)
}
