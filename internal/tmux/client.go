// Package tmux provides a small wrapper for the tmux commands used to drive
// an interactive program running in a pane.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs shell commands. ExecInput feeds stdin to the command, for
// payloads too large to pass as an argument.
type Executor interface {
	Exec(ctx context.Context, cmd string) (stdout, stderr []byte, err error)
	ExecInput(ctx context.Context, cmd string, stdin []byte) (stdout, stderr []byte, err error)
}

// LocalExecutor executes commands locally via os/exec.
type LocalExecutor struct{}

// Exec runs a command locally and returns stdout and stderr.
func (e *LocalExecutor) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, err error) {
	return e.ExecInput(ctx, cmd, nil)
}

// ExecInput runs a command locally with stdin as its standard input.
func (e *LocalExecutor) ExecInput(ctx context.Context, cmd string, stdin []byte) (stdout, stderr []byte, err error) {
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	if stdin != nil {
		c.Stdin = bytes.NewReader(stdin)
	}
	var stdoutBuf, stderrBuf bytes.Buffer
	c.Stdout = &stdoutBuf
	c.Stderr = &stderrBuf
	err = c.Run()
	return stdoutBuf.Bytes(), stderrBuf.Bytes(), err
}

// BufferName is the paste buffer commitloop loads prompt text into.
const BufferName = "commitloop"

// Common errors
var (
	ErrTargetRequired = errors.New("target is required")
	ErrPaneNotFound   = errors.New("pane not found")
	ErrNoServer       = errors.New("no tmux server running")
)

// Client wraps tmux command helpers.
type Client struct {
	exec Executor
}

// NewClient creates a new tmux client.
func NewClient(exec Executor) *Client {
	return &Client{exec: exec}
}

// NewLocalClient creates a new tmux client that executes commands locally.
func NewLocalClient() *Client {
	return &Client{exec: &LocalExecutor{}}
}

// PaneID resolves target to its pane id (e.g. "%3"), which doubles as an
// existence check for the pane.
func (c *Client) PaneID(ctx context.Context, target string) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", ErrTargetRequired
	}

	cmd := fmt.Sprintf("tmux display-message -p -t %s '#{pane_id}'", QuoteArg(target))
	stdout, stderr, err := c.exec.Exec(ctx, cmd)
	if err != nil {
		if isNoServerRunning(stderr) {
			return "", ErrNoServer
		}
		if isPaneNotFound(stderr) {
			return "", fmt.Errorf("%w: %s", ErrPaneNotFound, target)
		}
		return "", fmt.Errorf("tmux display-message failed: %w", err)
	}

	id := strings.TrimSpace(string(stdout))
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrPaneNotFound, target)
	}
	return id, nil
}

// SelectPane selects (focuses) a pane and the window containing it.
func (c *Client) SelectPane(ctx context.Context, target string) error {
	if strings.TrimSpace(target) == "" {
		return ErrTargetRequired
	}

	cmd := fmt.Sprintf("tmux select-window -t %s \\; select-pane -t %s", QuoteArg(target), QuoteArg(target))
	if _, stderr, err := c.exec.Exec(ctx, cmd); err != nil {
		if isPaneNotFound(stderr) {
			return fmt.Errorf("%w: %s", ErrPaneNotFound, target)
		}
		return fmt.Errorf("tmux select-pane failed: %w", err)
	}

	return nil
}

// SendKeys sends keys to a tmux pane. With literal set, keys are typed as
// text rather than looked up as key names. With enter set, an Enter key
// follows as a separate command.
func (c *Client) SendKeys(ctx context.Context, target, keys string, literal, enter bool) error {
	if strings.TrimSpace(target) == "" {
		return ErrTargetRequired
	}

	literalFlag := ""
	if literal {
		literalFlag = "-l "
	}

	cmd := fmt.Sprintf("tmux send-keys -t %s %s%s", QuoteArg(target), literalFlag, QuoteArg(keys))
	if _, _, err := c.exec.Exec(ctx, cmd); err != nil {
		return fmt.Errorf("tmux send-keys failed: %w", err)
	}

	if enter {
		enterCmd := fmt.Sprintf("tmux send-keys -t %s Enter", QuoteArg(target))
		if _, _, err := c.exec.Exec(ctx, enterCmd); err != nil {
			return fmt.Errorf("tmux send-keys Enter failed: %w", err)
		}
	}

	return nil
}

// SetBuffer loads text into the named paste buffer. The text goes through
// stdin so its size is not bounded by the argument limit.
func (c *Client) SetBuffer(ctx context.Context, name, text string) error {
	cmd := fmt.Sprintf("tmux load-buffer -b %s -", QuoteArg(name))
	if _, stderr, err := c.exec.ExecInput(ctx, cmd, []byte(text)); err != nil {
		if isNoServerRunning(stderr) {
			return ErrNoServer
		}
		return fmt.Errorf("tmux load-buffer failed: %w", err)
	}
	return nil
}

// PasteBuffer pastes the named buffer into target using bracketed paste, so
// multi-line text arrives as one input instead of a series of submits.
func (c *Client) PasteBuffer(ctx context.Context, name, target string) error {
	if strings.TrimSpace(target) == "" {
		return ErrTargetRequired
	}

	cmd := fmt.Sprintf("tmux paste-buffer -p -b %s -t %s", QuoteArg(name), QuoteArg(target))
	if _, stderr, err := c.exec.Exec(ctx, cmd); err != nil {
		if isPaneNotFound(stderr) {
			return fmt.Errorf("%w: %s", ErrPaneNotFound, target)
		}
		return fmt.Errorf("tmux paste-buffer failed: %w", err)
	}
	return nil
}

func isNoServerRunning(stderr []byte) bool {
	return strings.Contains(strings.ToLower(string(stderr)), "no server running")
}

func isPaneNotFound(stderr []byte) bool {
	s := strings.ToLower(string(stderr))
	return strings.Contains(s, "can't find pane") ||
		strings.Contains(s, "can't find window") ||
		strings.Contains(s, "can't find session") ||
		strings.Contains(s, "session not found")
}

// QuoteArg single-quotes arg for use in an Executor command line.
func QuoteArg(arg string) string {
	// Use single quotes and escape any internal single quotes
	return fmt.Sprintf("'%s'", strings.ReplaceAll(arg, "'", "'\\''"))
}
