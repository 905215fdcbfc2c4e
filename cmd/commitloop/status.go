package main

import (
	"fmt"
	"path/filepath"

	"github.com/mark3labs/commitloop/internal/config"
	"github.com/mark3labs/commitloop/internal/git"
	"github.com/mark3labs/commitloop/internal/orchestrator"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the repository state commitloop watches",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(cfg.RepoDir)
	if err != nil {
		return err
	}

	info, err := git.GetInfo(dir)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("%s: %w", dir, git.ErrNotRepository)
	}

	fp, err := git.NewProvider(dir).Fingerprint(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session:     %s\n", orchestrator.SessionName(cfg.Session, dir))
	fmt.Fprintf(out, "Repository:  %s\n", dir)
	fmt.Fprintf(out, "Branch:      %s\n", info.Branch)
	fmt.Fprintf(out, "Fingerprint: %s\n", fp)
	dirty := "clean"
	if info.Dirty {
		dirty = "uncommitted changes"
	}
	fmt.Fprintf(out, "Worktree:    %s\n", dirty)
	if info.Ahead > 0 || info.Behind > 0 {
		fmt.Fprintf(out, "Upstream:    %d ahead, %d behind\n", info.Ahead, info.Behind)
	}
	return nil
}
