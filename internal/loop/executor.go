package loop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/commitloop/internal/content"
	"github.com/mark3labs/commitloop/internal/git"
	"github.com/mark3labs/commitloop/internal/hooks"
	"github.com/mark3labs/commitloop/internal/logger"
	"github.com/mark3labs/commitloop/internal/template"
	"github.com/mark3labs/commitloop/internal/watcher"
)

// ContentSource finds, picks and reads the content for an iteration.
type ContentSource interface {
	Find(ctx context.Context) ([]content.Handle, error)
	Resolve(ctx context.Context, candidates []content.Handle, sticky content.Handle) (content.Handle, error)
	Read(ctx context.Context, h content.Handle) (string, error)
}

// Surface is the target program's input surface.
type Surface interface {
	Focus(ctx context.Context) error
	Publish(ctx context.Context, text string) error
	Trigger(ctx context.Context) error
}

// Submitter sends the line-submit keystroke.
type Submitter interface {
	Deliver(ctx context.Context) error
}

// CommitWatcher blocks until a commit is observed, cancellation, or timeout.
type CommitWatcher interface {
	Watch(ctx context.Context, baseline git.Fingerprint, cancelled func() bool) watcher.Report
}

// Executor runs one iteration: resolve content, deliver it, submit, and
// wait for a commit.
type Executor struct {
	Content      ContentSource
	Surface      Surface
	Submit       Submitter
	Fingerprints watcher.Source
	Watcher      CommitWatcher

	// Hooks may be nil. HookDir is the working directory for hook commands.
	Hooks   *hooks.Config
	HookDir string

	SessionName string
	ActionDelay time.Duration
	Sleep       watcher.Sleeper

	// Notify receives user-relevant events. May be nil.
	Notify func(Event)
}

// errCancelled marks a checkpoint that observed cancellation.
var errCancelled = errors.New("cancelled")

// Execute runs one iteration for sess. The returned error is non-nil only
// with OutcomeFailed.
func (e *Executor) Execute(ctx context.Context, sess *Session) (Outcome, error) {
	iteration := sess.Iteration()
	check := func() error {
		if ctx.Err() != nil || sess.Cancelled() {
			return errCancelled
		}
		return nil
	}
	failed := func(step string, err error) (Outcome, error) {
		if errors.Is(err, errCancelled) || errors.Is(err, content.ErrUserCancelled) || errors.Is(err, context.Canceled) {
			logger.Info("Iteration %d cancelled during %s", iteration, step)
			return OutcomeCancelled, nil
		}
		logger.Error("Iteration %d failed during %s: %v", iteration, step, err)
		return OutcomeFailed, fmt.Errorf("%s: %w", step, err)
	}

	if err := check(); err != nil {
		return failed("start", err)
	}

	hookOutput, err := e.runHooks(ctx, e.preIterationHooks(), hooks.Variables{
		Session:   e.SessionName,
		Iteration: strconv.Itoa(iteration),
	})
	if err != nil {
		return failed("pre-iteration hooks", err)
	}

	if err := check(); err != nil {
		return failed("find content", err)
	}
	candidates, err := e.Content.Find(ctx)
	if err != nil {
		return failed("find content", err)
	}

	if err := check(); err != nil {
		return failed("resolve content", err)
	}
	handle, err := e.Content.Resolve(ctx, candidates, sess.Sticky())
	if err != nil {
		return failed("resolve content", err)
	}
	if handle != sess.Sticky() {
		e.notify(Event{Kind: EventContent, Iteration: iteration, Message: "Using " + handle.Name()})
	}
	sess.SetSticky(handle)

	if err := check(); err != nil {
		return failed("read content", err)
	}
	text, err := e.Content.Read(ctx, handle)
	if err != nil {
		return failed("read content", err)
	}

	if err := check(); err != nil {
		return failed("baseline", err)
	}
	baseline, err := e.Fingerprints.Fingerprint(ctx)
	if err != nil {
		logger.Warn("Baseline fingerprint unavailable, any commit will count: %v", err)
		baseline = git.Null
	}
	logger.Debug("Iteration %d baseline %s", iteration, baseline.Short())

	prompt := template.BuildPrompt(template.BuildConfig{
		Content:     text,
		Session:     e.SessionName,
		Iteration:   iteration,
		Fingerprint: string(baseline),
		File:        handle.Name(),
		HookOutput:  hookOutput,
	})

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"focus", e.Surface.Focus},
		{"publish", func(ctx context.Context) error { return e.Surface.Publish(ctx, prompt) }},
		{"trigger", e.Surface.Trigger},
	}
	for _, step := range steps {
		if err := check(); err != nil {
			return failed(step.name, err)
		}
		if err := step.run(ctx); err != nil {
			return failed(step.name, err)
		}
		if err := e.pause(ctx, check); err != nil {
			return failed(step.name, err)
		}
	}

	if err := check(); err != nil {
		return failed("submit", err)
	}
	if err := e.Submit.Deliver(ctx); err != nil {
		return failed("submit", err)
	}

	if err := check(); err != nil {
		return failed("watch", err)
	}
	logger.Info("Iteration %d submitted %s, waiting for commit", iteration, handle.Name())
	rep := e.Watcher.Watch(ctx, baseline, sess.Cancelled)
	outcome := outcomeOf(rep.Result)
	if outcome != OutcomeCompleted {
		logger.Info("Iteration %d ended without commit: %s after %s", iteration, outcome, rep.Elapsed)
		return outcome, nil
	}

	e.notify(Event{
		Kind:      EventCommit,
		Iteration: iteration,
		Message:   fmt.Sprintf("Commit %s detected after %s", rep.Fingerprint.Short(), rep.Elapsed.Round(time.Second)),
	})

	if _, err := e.runHooks(ctx, e.onCommitHooks(), hooks.Variables{
		Session:     e.SessionName,
		Iteration:   strconv.Itoa(iteration),
		Fingerprint: string(rep.Fingerprint),
	}); err != nil {
		// The commit already happened; a cancelled hook does not undo it.
		logger.Warn("On-commit hooks interrupted: %v", err)
	}

	return OutcomeCompleted, nil
}

// pause waits ActionDelay in short steps, checking for cancellation.
func (e *Executor) pause(ctx context.Context, check func() error) error {
	const step = 100 * time.Millisecond
	for remaining := e.ActionDelay; remaining > 0; remaining -= step {
		e.sleep(ctx, min(step, remaining))
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) {
	if e.Sleep != nil {
		e.Sleep(ctx, d)
		return
	}
	watcher.Sleep(ctx, d)
}

func (e *Executor) runHooks(ctx context.Context, list []*hooks.HookConfig, vars hooks.Variables) (string, error) {
	if len(list) == 0 {
		return "", nil
	}
	return hooks.ExecuteAll(ctx, list, e.HookDir, vars)
}

func (e *Executor) preIterationHooks() []*hooks.HookConfig {
	if e.Hooks == nil {
		return nil
	}
	return e.Hooks.Hooks.PreIteration
}

func (e *Executor) onCommitHooks() []*hooks.HookConfig {
	if e.Hooks == nil {
		return nil
	}
	return e.Hooks.Hooks.OnCommit
}

func (e *Executor) notify(ev Event) {
	if e.Notify != nil {
		e.Notify(ev)
	}
}
