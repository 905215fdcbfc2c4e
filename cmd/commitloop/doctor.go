package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"

	"charm.land/lipgloss/v2"
	"github.com/mark3labs/commitloop/internal/config"
	"github.com/mark3labs/commitloop/internal/content"
	"github.com/mark3labs/commitloop/internal/git"
	"github.com/mark3labs/commitloop/internal/hooks"
	"github.com/mark3labs/commitloop/internal/tmux"
	"github.com/spf13/cobra"
)

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	styleFail = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that commitloop can drive the configured pane",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().StringP("target", "t", "", "tmux target pane to check")
}

// check is one doctor probe. Optional checks only warn.
type check struct {
	name     string
	optional bool
	run      func(ctx context.Context, cfg *config.Config) (string, error)
}

var checks = []check{
	{name: "config file", optional: true, run: func(ctx context.Context, cfg *config.Config) (string, error) {
		if !config.Exists() {
			return "", errors.New("none found, using defaults and environment (see 'commitloop setup')")
		}
		return "found", nil
	}},
	{name: "config", run: func(ctx context.Context, cfg *config.Config) (string, error) {
		return "valid", cfg.Validate()
	}},
	{name: "tmux", run: lookPath("tmux")},
	{name: "xdotool", optional: true, run: lookPath("xdotool")},
	{name: "git repository", run: func(ctx context.Context, cfg *config.Config) (string, error) {
		dir, err := filepath.Abs(cfg.RepoDir)
		if err != nil {
			return "", err
		}
		info, err := git.GetInfo(dir)
		if err != nil {
			return "", err
		}
		if info == nil {
			return "", git.ErrNotRepository
		}
		return fmt.Sprintf("%s @ %s", info.Branch, info.Hash), nil
	}},
	{name: "target pane", run: func(ctx context.Context, cfg *config.Config) (string, error) {
		id, err := tmux.NewLocalClient().PaneID(ctx, cfg.Target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s (%s)", cfg.Target, id), nil
	}},
	{name: "prompt files", run: func(ctx context.Context, cfg *config.Config) (string, error) {
		found, err := (&content.GlobFinder{Dir: cfg.RepoDir, Pattern: cfg.Pattern, Max: cfg.MaxCandidates}).Find(ctx)
		if err != nil {
			return "", err
		}
		if len(found) == 0 {
			return "", fmt.Errorf("%w matching %q", content.ErrNoCandidates, cfg.Pattern)
		}
		return fmt.Sprintf("%d matching %q", len(found), cfg.Pattern), nil
	}},
	{name: "hooks", optional: true, run: func(ctx context.Context, cfg *config.Config) (string, error) {
		h, err := hooks.LoadConfig(cfg.RepoDir)
		if err != nil {
			return "", err
		}
		if h == nil {
			return "none", nil
		}
		return fmt.Sprintf("%d pre_iteration, %d on_commit", len(h.Hooks.PreIteration), len(h.Hooks.OnCommit)), nil
	}},
}

func lookPath(bin string) func(context.Context, *config.Config) (string, error) {
	return func(context.Context, *config.Config) (string, error) {
		return exec.LookPath(bin)
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if failed := runChecks(cmd.Context(), cmd.OutOrStdout(), cfg, checks); failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func runChecks(ctx context.Context, w io.Writer, cfg *config.Config, list []check) int {
	failed := 0
	for _, c := range list {
		detail, err := c.run(ctx, cfg)
		switch {
		case err == nil:
			fmt.Fprintf(w, "%s %-15s %s\n", styleOK.Render("✓"), c.name, detail)
		case c.optional:
			fmt.Fprintf(w, "%s %-15s %v\n", styleWarn.Render("!"), c.name, err)
		default:
			failed++
			fmt.Fprintf(w, "%s %-15s %v\n", styleFail.Render("✗"), c.name, err)
			if errors.Is(err, tmux.ErrNoServer) {
				fmt.Fprintln(w, "  start tmux and run your agent in a pane first")
			}
		}
	}
	return failed
}
