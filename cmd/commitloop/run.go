package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/commitloop/internal/config"
	ierr "github.com/mark3labs/commitloop/internal/errors"
	"github.com/mark3labs/commitloop/internal/logger"
	"github.com/mark3labs/commitloop/internal/orchestrator"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the iteration loop",
	Long: `Start the iteration loop against a tmux pane.

Flags override COMMITLOOP_* environment variables, which override
./commitloop.yml, which overrides the global config file.`,
	RunE: runLoop,
}

func init() {
	f := runCmd.Flags()
	f.StringP("target", "t", "", "tmux target pane (e.g. agent:0.0)")
	f.StringP("pattern", "p", "", "Glob for prompt files, relative to the repo dir")
	f.String("repo-dir", "", "Repository to watch for commits")
	f.StringP("session", "n", "", "Session name (default: repo directory name)")
	f.Duration("poll-interval", 0, "How often to check for a new commit")
	f.Duration("max-wait", 0, "Give up on an iteration after this long without a commit")
	f.Duration("poll-tick", 0, "Sleep granularity while waiting")
	f.Duration("settle-delay", 0, "Pause between detecting a commit and sending cleanup keys")
	f.Duration("action-delay", 0, "Pause after focus, publish and trigger")
	f.IntP("max-iterations", "i", 0, "Stop after this many iterations, 0=unlimited")
	f.String("xdotool-window", "", "X window (id or name) of the terminal showing the target pane")
	f.Bool("abort-on-submit-failure", false, "Fail the iteration when no submit mechanism works")
	f.Bool("clipboard", true, "Also copy each prompt to the system clipboard")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("log-file", "", "Append logs to this file")
	f.Bool("plain", false, "Disable colors in status output (also set by NO_COLOR)")
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	orch, err := orchestrator.New(cfg, orchestrator.Options{
		Output: cmd.OutOrStdout(),
		Plain:  plainOutput(cmd),
	})
	if err != nil {
		return err
	}
	defer func() {
		err := orch.Stop()
		switch {
		case err == nil:
		case ierr.IsTransient(err):
			logger.Warn("Shutdown incomplete: %v", err)
		default:
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	// First signal stops at the next checkpoint, a second one exits
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(cmd.ErrOrStderr(), "\nStopping after the current step (Ctrl+C again to exit)...")
		orch.Interrupt()
		<-sigChan
		_ = orch.Stop()
		os.Exit(130)
	}()

	res, err := orch.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("loop failed after %d iteration(s): %w", res.Iterations, err)
	}
	return nil
}

// plainOutput reports whether status output should be uncolored.
func plainOutput(cmd *cobra.Command) bool {
	if plain, _ := cmd.Flags().GetBool("plain"); plain {
		return true
	}
	return os.Getenv("NO_COLOR") != ""
}
