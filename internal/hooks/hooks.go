// Package hooks runs user-defined shell commands at loop events.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/commitloop/internal/logger"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the hooks file looked up in the repository directory.
const ConfigFileName = ".commitloop.hooks.yml"

// LoadConfig reads the hooks file from dir. A missing file yields nil, nil.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("No hooks file at %s", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hooks config: %w", err)
	}

	logger.Debug("Loaded hooks from %s (version %d, pre_iteration=%d, on_commit=%d)",
		path, cfg.Version, len(cfg.Hooks.PreIteration), len(cfg.Hooks.OnCommit))
	return &cfg, nil
}

// Variables are expanded in hook commands before execution.
type Variables struct {
	Session     string
	Iteration   string
	Fingerprint string
}

// Execute runs one hook and returns its output. Failures and timeouts are
// reported inside the output rather than as errors; only cancellation of ctx
// is returned as an error.
func Execute(ctx context.Context, hook *HookConfig, dir string, vars Variables) (string, error) {
	if hook == nil || hook.Command == "" {
		return "", nil
	}

	command := expandVariables(hook.Command, vars)
	logger.Debug("Running hook: %s", command)

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("Hook timed out after %ds: %s", timeout, command)
		return fmt.Sprintf("[hook timed out after %ds]\n%s", timeout, stdout.String()), nil
	}

	out := stdout.String()
	if stderr.Len() > 0 {
		out += "\n[stderr]\n" + stderr.String()
	}
	if err != nil {
		logger.Warn("Hook failed: %s: %v", command, err)
		return fmt.Sprintf("[hook failed: %v]\n%s", err, out), nil
	}
	return out, nil
}

// ExecuteAll runs hooks in order and joins the output of those with
// pipe_output set, separated by blank lines.
func ExecuteAll(ctx context.Context, hooks []*HookConfig, dir string, vars Variables) (string, error) {
	var piped []string
	for _, h := range hooks {
		out, err := Execute(ctx, h, dir, vars)
		if err != nil {
			return "", err
		}
		if h != nil && h.PipeOutput && out != "" {
			piped = append(piped, out)
		}
	}
	return strings.Join(piped, "\n"), nil
}

func expandVariables(command string, vars Variables) string {
	return strings.NewReplacer(
		"{{session}}", vars.Session,
		"{{iteration}}", vars.Iteration,
		"{{fingerprint}}", vars.Fingerprint,
	).Replace(command)
}
