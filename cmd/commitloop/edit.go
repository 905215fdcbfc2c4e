package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/mark3labs/commitloop/internal/config"
	"github.com/mark3labs/commitloop/internal/content"
	"github.com/mark3labs/commitloop/internal/picker"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Open a prompt file in $EDITOR",
	Long: `Open a prompt file in $EDITOR.

Without an argument, pick one of the files matching the configured pattern.
A named file that does not exist yet is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
		if err := ensureFile(path); err != nil {
			return err
		}
	} else {
		path, err = pickPrompt(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if path == "" {
			return nil
		}
	}

	c, err := editor.Command("commitloop", path)
	if err != nil {
		return fmt.Errorf("no editor available: %w", err)
	}
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	return c.Run()
}

func pickPrompt(ctx context.Context, cfg *config.Config) (string, error) {
	src := &content.Source{
		Finder:   &content.GlobFinder{Dir: cfg.RepoDir, Pattern: cfg.Pattern, Max: cfg.MaxCandidates},
		Prompter: picker.New("Edit prompt"),
	}
	candidates, err := src.Find(ctx)
	if err != nil {
		return "", err
	}
	h, err := src.Resolve(ctx, candidates, "")
	if err != nil {
		if errors.Is(err, content.ErrUserCancelled) {
			return "", nil
		}
		return "", fmt.Errorf("%w (pattern %q in %s)", err, cfg.Pattern, cfg.RepoDir)
	}
	return string(h), nil
}

func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return f.Close()
}
