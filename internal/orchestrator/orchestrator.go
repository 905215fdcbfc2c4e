// Package orchestrator assembles the loop from configuration: event bus,
// status reporter, tmux surface, submit chain, commit watcher and content
// source.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/mark3labs/commitloop/internal/config"
	"github.com/mark3labs/commitloop/internal/content"
	"github.com/mark3labs/commitloop/internal/delivery"
	ierr "github.com/mark3labs/commitloop/internal/errors"
	"github.com/mark3labs/commitloop/internal/git"
	"github.com/mark3labs/commitloop/internal/hooks"
	"github.com/mark3labs/commitloop/internal/logger"
	"github.com/mark3labs/commitloop/internal/loop"
	"github.com/mark3labs/commitloop/internal/nats"
	"github.com/mark3labs/commitloop/internal/picker"
	"github.com/mark3labs/commitloop/internal/status"
	"github.com/mark3labs/commitloop/internal/surface"
	"github.com/mark3labs/commitloop/internal/tmux"
	"github.com/mark3labs/commitloop/internal/watcher"
)

const (
	// stopTimeout bounds how long Stop waits for the loop to reach a checkpoint.
	stopTimeout = 5 * time.Second

	historyTimeout = 3 * time.Second
)

var errStopped = errors.New("orchestrator stopped")

// Options holds what the orchestrator needs besides configuration. Zero
// values select the real implementations.
type Options struct {
	Output   io.Writer        // status output (os.Stdout)
	Plain    bool             // disable colors in status output
	Prompter content.Prompter // content picker (bubbletea list)
	Exec     tmux.Executor    // shell for tmux and xdotool (local sh)
	Sleep    watcher.Sleeper  // waits (real time)
}

// Orchestrator owns one loop and the infrastructure around it.
type Orchestrator struct {
	cfg     *config.Config
	opts    Options
	session string
	repoDir string

	bus      *nats.Bus
	reporter *status.Reporter
	ctrl     *loop.Controller

	mu      sync.Mutex
	stopped bool
	// summarizing is set while Run reads the event history; Run then
	// closes the bus itself instead of Stop.
	summarizing bool
}

// New validates cfg and resolves the session name and repository path.
func New(cfg *config.Config, opts Options) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repoDir, err := filepath.Abs(cfg.RepoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repo dir: %w", err)
	}

	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Prompter == nil {
		opts.Prompter = picker.New("Select prompt")
	}
	if opts.Exec == nil {
		opts.Exec = &tmux.LocalExecutor{}
	}
	if opts.Sleep == nil {
		opts.Sleep = watcher.Sleep
	}

	return &Orchestrator{
		cfg:     cfg,
		opts:    opts,
		session: SessionName(cfg.Session, repoDir),
		repoDir: repoDir,
	}, nil
}

// SessionName derives a subject-safe session name from name, falling back
// to the repository directory name.
func SessionName(name, repoDir string) string {
	if name == "" {
		name = filepath.Base(repoDir)
	}
	s := slug.Make(name)
	if s == "" {
		s = "default"
	}
	return s
}

// Session returns the resolved session name.
func (o *Orchestrator) Session() string {
	return o.session
}

// Start checks the target, brings up the bus and starts the loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	logger.Info("Starting session '%s' in %s", o.session, o.repoDir)

	pane := surface.NewPane(o.opts.Exec, surface.Options{
		Target:      o.cfg.Target,
		CleanupKeys: o.cfg.CleanupKeys,
		Clipboard:   o.cfg.Clipboard,
		Window:      o.cfg.XdotoolWindow,
	})
	paneID, err := pane.Check(ctx)
	if err != nil {
		return fmt.Errorf("target pane %q: %w", o.cfg.Target, err)
	}
	logger.Debug("Target %s resolved to pane %s", o.cfg.Target, paneID)

	mechanisms, err := pane.Mechanisms(o.cfg.SubmitChain)
	if err != nil {
		return err
	}

	hookCfg, err := hooks.LoadConfig(o.repoDir)
	if err != nil {
		return err
	}

	bus, err := nats.Open(ctx, o.session)
	if err != nil {
		return err
	}
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		_ = bus.Close()
		return errStopped
	}
	o.bus = bus
	o.mu.Unlock()

	o.reporter = status.NewReporter(o.opts.Output, o.session, o.reporterOptions()...)
	if err := bus.Subscribe(o.reporter); err != nil {
		return err
	}

	provider := git.NewProvider(o.repoDir)
	w := watcher.New(provider, watcher.Options{
		PollInterval: o.cfg.PollInterval,
		MaxWait:      o.cfg.MaxWait,
		Tick:         o.cfg.PollTick,
		SettleDelay:  o.cfg.SettleDelay,
	})
	w.Sleep = o.opts.Sleep
	w.OnCommit = func(ctx context.Context, fp git.Fingerprint) error {
		return pane.Cleanup(ctx)
	}

	chain := &delivery.Chain{
		Mechanisms:        mechanisms,
		AbortOnExhaustion: o.cfg.AbortOnSubmitFailure,
	}

	exec := &loop.Executor{
		Content: &content.Source{
			Finder:   &content.GlobFinder{Dir: o.repoDir, Pattern: o.cfg.Pattern, Max: o.cfg.MaxCandidates},
			Reader:   content.FileReader{},
			Prompter: &heldPrompter{Prompter: o.opts.Prompter, reporter: o.reporter},
		},
		Surface:      pane,
		Submit:       chain,
		Fingerprints: provider,
		Watcher:      w,
		Hooks:        hookCfg,
		HookDir:      o.repoDir,
		SessionName:  o.session,
		ActionDelay:  o.cfg.ActionDelay,
		Sleep:        o.opts.Sleep,
		Notify:       bus.Event,
	}

	ctrl := loop.NewController(exec, loop.Options{
		MaxIterations: o.cfg.MaxIterations,
		Observers:     []loop.Observer{bus},
	})
	chain.OnExhausted = func(err error) {
		bus.Event(loop.Event{
			Kind:      loop.EventDegraded,
			Iteration: ctrl.State().Iteration,
			Message:   "Line submit failed on every mechanism",
			Error:     err.Error(),
		})
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return errStopped
	}
	o.ctrl = ctrl
	return ctrl.Start(ctx)
}

// Run starts the loop and blocks until it exits, then prints a summary.
func (o *Orchestrator) Run(ctx context.Context) (loop.Result, error) {
	if err := o.Start(ctx); err != nil {
		return loop.Result{}, err
	}
	res := o.controller().Wait()

	o.mu.Lock()
	bus := o.bus
	o.summarizing = bus != nil
	o.mu.Unlock()

	if bus != nil {
		o.printSummary(ctx, bus)

		o.mu.Lock()
		o.summarizing = false
		if o.stopped {
			if err := o.closeBusLocked(); err != nil {
				logger.Warn("Failed to close bus: %v", err)
			}
		}
		o.mu.Unlock()
	}
	return res, res.Err
}

func (o *Orchestrator) printSummary(ctx context.Context, bus *nats.Bus) {
	if err := bus.Flush(); err != nil {
		logger.Warn("Failed to flush bus: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()
	history, err := bus.History(ctx)
	if err != nil {
		logger.Warn("Failed to read event history: %v", err)
		return
	}
	fmt.Fprintln(o.opts.Output, status.Summary(history))
}

func (o *Orchestrator) controller() *loop.Controller {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ctrl
}

// Interrupt asks the loop to stop at its next checkpoint.
func (o *Orchestrator) Interrupt() {
	if ctrl := o.controller(); ctrl != nil {
		ctrl.Stop()
	}
}

// State returns the loop state, or the zero State before Start.
func (o *Orchestrator) State() loop.State {
	ctrl := o.controller()
	if ctrl == nil {
		return loop.State{}
	}
	return ctrl.State()
}

// Stop interrupts the loop and releases the bus. Safe to call repeatedly
// and concurrently with Run.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.stopped = true
	ctrl := o.ctrl
	o.mu.Unlock()

	logger.Info("Stopping session '%s'", o.session)
	multiErr := &ierr.MultiError{}

	if ctrl != nil {
		ctrl.Stop()
		if ctrl.Running() {
			done := make(chan struct{})
			go func() {
				ctrl.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(stopTimeout):
				multiErr.Append(ierr.NewTransientError("loop shutdown", fmt.Errorf("still running after %s", stopTimeout)))
			}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.summarizing {
		multiErr.Append(o.closeBusLocked())
	}
	return multiErr.ErrorOrNil()
}

// closeBusLocked closes and forgets the bus. o.mu must be held.
func (o *Orchestrator) closeBusLocked() error {
	if o.bus == nil {
		return nil
	}
	err := o.bus.Close()
	o.bus = nil
	if err != nil {
		return ierr.NewTransientError("bus shutdown", err)
	}
	return nil
}

func (o *Orchestrator) reporterOptions() []status.Option {
	if o.opts.Plain {
		return []status.Option{status.WithPlain()}
	}
	return nil
}

// heldPrompter holds back status output while the picker owns the terminal.
type heldPrompter struct {
	content.Prompter
	reporter *status.Reporter
}

func (p *heldPrompter) Prompt(ctx context.Context, candidates []content.Handle) (content.Handle, bool, error) {
	p.reporter.Hold()
	defer p.reporter.Release()
	return p.Prompter.Prompt(ctx, candidates)
}
