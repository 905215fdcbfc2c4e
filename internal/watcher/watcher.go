// Package watcher waits for a repository fingerprint to change, polling at a
// fixed cadence within a bounded window while observing cancellation at
// every suspension point.
package watcher

import (
	"context"
	"time"

	"github.com/mark3labs/commitloop/internal/git"
	"github.com/mark3labs/commitloop/internal/logger"
)

// Result is the outcome of a single watch.
type Result int

const (
	Completed Result = iota // fingerprint changed and the commit action ran
	Cancelled               // cancellation observed at a checkpoint
	NoSignal                // wait window elapsed without a change
)

// String returns a human-readable description of the result.
func (r Result) String() string {
	switch r {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case NoSignal:
		return "no signal"
	default:
		return "unknown"
	}
}

// Source produces fingerprints on demand.
type Source interface {
	Fingerprint(ctx context.Context) (git.Fingerprint, error)
}

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Options controls watch timing. Tick is the sleep granularity and must not
// exceed PollInterval; SettleDelay is spent in Tick increments as well.
type Options struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	Tick         time.Duration
	SettleDelay  time.Duration
}

// Report describes how a watch ended.
type Report struct {
	Result      Result
	Fingerprint git.Fingerprint // the divergent fingerprint when Completed
	Elapsed     time.Duration   // accumulated sleep, settle delay included
	Polls       int
}

// Watcher polls a Source for a fingerprint change.
type Watcher struct {
	Source  Source
	Options Options
	Sleep   Sleeper

	// OnCommit runs once after a change is detected and the settle delay
	// has passed without cancellation. Its error is logged, not returned.
	OnCommit func(ctx context.Context, fp git.Fingerprint) error
}

// New creates a Watcher using real-time sleeps.
func New(src Source, opts Options) *Watcher {
	return &Watcher{Source: src, Options: opts, Sleep: Sleep}
}

// Watch blocks until the fingerprint diverges from baseline, cancelled
// reports true (or ctx ends), or MaxWait elapses. A failed fetch counts as
// no change for that poll.
func (w *Watcher) Watch(ctx context.Context, baseline git.Fingerprint, cancelled func() bool) Report {
	isCancelled := func() bool {
		return ctx.Err() != nil || (cancelled != nil && cancelled())
	}

	tick := w.tick()
	var rep Report
	var sincePoll time.Duration

	for {
		if isCancelled() {
			rep.Result = Cancelled
			return rep
		}
		if rep.Elapsed >= w.Options.MaxWait {
			logger.Info("No fingerprint change after %s (%d polls)", rep.Elapsed, rep.Polls)
			rep.Result = NoSignal
			return rep
		}

		w.sleep(ctx, tick)
		rep.Elapsed += tick
		sincePoll += tick

		if isCancelled() {
			rep.Result = Cancelled
			return rep
		}
		if sincePoll < w.Options.PollInterval {
			continue
		}
		sincePoll = 0

		rep.Polls++
		current, err := w.Source.Fingerprint(ctx)
		if err != nil {
			logger.Debug("Fingerprint unavailable on poll %d: %v", rep.Polls, err)
			continue
		}
		if !current.Differs(baseline) {
			continue
		}

		// A cancel that arrived while fetching still wins
		if isCancelled() {
			rep.Result = Cancelled
			return rep
		}

		logger.Info("Fingerprint changed %s -> %s after %s", baseline.Short(), current.Short(), rep.Elapsed)
		rep.Fingerprint = current

		if !w.settle(ctx, tick, &rep, isCancelled) || isCancelled() {
			rep.Result = Cancelled
			return rep
		}

		if w.OnCommit != nil {
			if err := w.OnCommit(ctx, current); err != nil {
				logger.Warn("Commit action failed: %v", err)
			}
		}
		rep.Result = Completed
		return rep
	}
}

// settle waits SettleDelay in tick steps. It returns false if cancellation
// was observed along the way.
func (w *Watcher) settle(ctx context.Context, tick time.Duration, rep *Report, isCancelled func() bool) bool {
	for remaining := w.Options.SettleDelay; remaining > 0; remaining -= tick {
		step := min(tick, remaining)
		w.sleep(ctx, step)
		rep.Elapsed += step
		if isCancelled() {
			return false
		}
	}
	return true
}

func (w *Watcher) tick() time.Duration {
	tick := w.Options.Tick
	if tick <= 0 || tick > w.Options.PollInterval {
		tick = w.Options.PollInterval
	}
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	return tick
}

func (w *Watcher) sleep(ctx context.Context, d time.Duration) {
	if w.Sleep != nil {
		w.Sleep(ctx, d)
		return
	}
	Sleep(ctx, d)
}
