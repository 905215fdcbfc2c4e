package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ierr "github.com/mark3labs/commitloop/internal/errors"
	"github.com/mark3labs/commitloop/internal/logger"
)

// ErrAlreadyRunning is returned by Start while a loop is active.
var ErrAlreadyRunning = errors.New("loop already running")

// Runner executes one iteration.
type Runner interface {
	Execute(ctx context.Context, sess *Session) (Outcome, error)
}

// Options configures a Controller.
type Options struct {
	// MaxIterations ends the loop after that many completed iterations.
	// Zero means unlimited.
	MaxIterations int
	Observers     []Observer
}

// Controller drives the loop: Idle → Running → Idle.
type Controller struct {
	runner    Runner
	opts      Options
	observers observers
	session   Session

	mu   sync.Mutex
	done chan struct{}
	last Result
}

// NewController creates a Controller around runner.
func NewController(runner Runner, opts Options) *Controller {
	return &Controller{
		runner:    runner,
		opts:      opts,
		observers: observers(opts.Observers),
	}
}

// Start begins the loop on a new goroutine. It returns ErrAlreadyRunning,
// changing nothing, if a loop is active.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.begin() {
		logger.Warn("Start ignored: loop already running")
		return ErrAlreadyRunning
	}

	c.done = make(chan struct{})
	logger.Info("Loop started")
	c.observers.StateChanged(c.session.State())
	c.observers.Event(Event{Kind: EventStarted, Message: "Loop started"})

	go c.loop(ctx, c.done)
	return nil
}

// Stop requests cancellation and returns immediately. The loop exits at its
// next checkpoint. Calling Stop while idle or repeatedly has no effect.
func (c *Controller) Stop() {
	if !c.session.requestCancel() {
		return
	}
	st := c.session.State()
	logger.Info("Stop requested during iteration %d", st.Iteration)
	c.observers.Event(Event{Kind: EventStopRequested, Iteration: st.Iteration, Message: "Stopping after current step"})
}

// Wait blocks until the current loop exits and returns its result. If no
// loop was ever started it returns the zero Result.
func (c *Controller) Wait() Result {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return Result{}
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Run starts the loop and waits for it to exit.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	if err := c.Start(ctx); err != nil {
		return Result{}, err
	}
	res := c.Wait()
	return res, res.Err
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	return c.session.State()
}

// Running reports whether a loop is active.
func (c *Controller) Running() bool {
	return c.session.State().Running
}

func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	res := c.iterate(ctx)

	c.mu.Lock()
	res.Iterations = c.session.end()
	c.last = res
	c.mu.Unlock()
	logger.Info("Loop finished after %d iteration(s): %s", res.Iterations, res.Reason)

	c.observers.StateChanged(c.session.State())
	ev := Event{
		Kind:      EventFinished,
		Iteration: res.Iterations,
		Outcome:   res.Outcome.String(),
		Message:   fmt.Sprintf("Finished after %d iteration(s): %s", res.Iterations, res.Reason),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	c.observers.Event(ev)
	close(done)
}

// iterate runs executor passes until one does not complete.
func (c *Controller) iterate(ctx context.Context) Result {
	for {
		if c.opts.MaxIterations > 0 && c.session.Iteration() >= c.opts.MaxIterations {
			return Result{Outcome: OutcomeCompleted, Reason: "iteration limit"}
		}

		n := c.session.advance()
		logger.Info("=== Iteration #%d ===", n)
		c.observers.StateChanged(c.session.State())
		c.observers.Event(Event{Kind: EventIteration, Iteration: n, Message: fmt.Sprintf("Iteration #%d", n)})

		var outcome Outcome
		err := ierr.Recover(func() error {
			var err error
			outcome, err = c.runner.Execute(ctx, &c.session)
			return err
		})

		var panicErr *ierr.PanicError
		if errors.As(err, &panicErr) {
			logger.Error("Iteration %d panicked: %v\n%s", n, panicErr.Value, panicErr.StackTrace)
			outcome = OutcomeFailed
		}

		switch outcome {
		case OutcomeCompleted:
			continue
		case OutcomeFailed:
			if err == nil {
				err = errors.New("iteration failed")
			}
			c.observers.Event(Event{Kind: EventFailed, Iteration: n, Message: "Iteration failed", Error: err.Error()})
			return Result{Outcome: OutcomeFailed, Reason: err.Error(), Err: err}
		case OutcomeCancelled:
			return Result{Outcome: outcome, Reason: "stopped"}
		case OutcomeNoSignal:
			return Result{Outcome: outcome, Reason: "no commit within wait window"}
		default:
			return Result{Outcome: outcome, Reason: outcome.String()}
		}
	}
}
