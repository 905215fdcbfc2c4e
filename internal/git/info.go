// Package git reads repository state through the git binary. Its Provider is
// the fingerprint source the commit watcher polls.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNotRepository is returned when the directory is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Info summarizes the state of a repository.
type Info struct {
	Branch string
	Hash   string // short HEAD hash
	Dirty  bool
	Ahead  int
	Behind int
}

// GetInfo returns repository information for dir.
// Returns nil info and nil error when dir is not a git repository.
func GetInfo(dir string) (*Info, error) {
	ctx := context.Background()
	if !isRepo(ctx, dir) {
		return nil, nil
	}

	branch, err := runGitContext(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("reading branch: %w", err)
	}

	hash, err := runGitContext(ctx, dir, "rev-parse", "--short=7", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("reading HEAD: %w", err)
	}

	status, err := runGitContext(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	info := &Info{
		Branch: branch,
		Hash:   hash,
		Dirty:  status != "",
	}

	// No upstream configured is not an error; ahead/behind stay 0
	counts, err := runGitContext(ctx, dir, "rev-list", "--left-right", "--count", "HEAD...@{upstream}")
	if err == nil {
		fields := strings.Fields(counts)
		if len(fields) == 2 {
			info.Ahead, _ = strconv.Atoi(fields[0])
			info.Behind, _ = strconv.Atoi(fields[1])
		}
	}

	return info, nil
}

func isRepo(ctx context.Context, dir string) bool {
	out, err := runGitContext(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// runGit runs git in dir and returns trimmed stdout.
func runGit(dir string, args ...string) (string, error) {
	return runGitContext(context.Background(), dir, args...)
}

func runGitContext(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}
