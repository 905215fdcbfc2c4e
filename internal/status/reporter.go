// Package status renders loop state and notifications for the operator.
package status

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/mark3labs/commitloop/internal/loop"
)

// Reporter writes a status line on every state change and a notification
// line for every event. It implements loop.Observer and is safe for
// concurrent use.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	session string
	plain   bool
	state   loop.State
	now     func() time.Time

	held    bool
	pending []string
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithPlain disables colors.
func WithPlain() Option {
	return func(r *Reporter) { r.plain = true }
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer, session string, opts ...Option) *Reporter {
	r := &Reporter{w: w, session: session, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the last state received.
func (r *Reporter) State() loop.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// StateChanged implements loop.Observer.
func (r *Reporter) StateChanged(s loop.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s == r.state {
		return
	}
	r.state = s
	r.println(r.statusLine(s))
}

// Event implements loop.Observer.
func (r *Reporter) Event(e loop.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(r.notification(e))
}

// Hold queues output instead of writing it, for while something else
// draws on the terminal.
func (r *Reporter) Hold() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.held = true
}

// Release writes everything queued since Hold and resumes direct output.
func (r *Reporter) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.held = false
	for _, line := range r.pending {
		fmt.Fprintln(r.w, line)
	}
	r.pending = nil
}

// println writes line or queues it while held. r.mu must be held.
func (r *Reporter) println(line string) {
	if r.held {
		r.pending = append(r.pending, line)
		return
	}
	fmt.Fprintln(r.w, line)
}

// statusLine renders e.g. "commitloop │ refactor │ ● running │ iteration #3".
func (r *Reporter) statusLine(s loop.State) string {
	sep := r.style(styleSeparator, " │ ")

	parts := []string{r.style(styleBrand, "commitloop")}
	if r.session != "" {
		parts = append(parts, r.style(styleText, r.session))
	}
	if s.Running {
		parts = append(parts, r.style(styleRunning, "● running"))
		if s.Iteration > 0 {
			parts = append(parts, r.style(styleText, fmt.Sprintf("iteration #%d", s.Iteration)))
		}
	} else {
		parts = append(parts, r.style(styleIdle, "○ idle"))
	}
	return strings.Join(parts, sep)
}

func (r *Reporter) notification(e loop.Event) string {
	ts := e.Time
	if ts.IsZero() {
		ts = r.now()
	}

	level := severity(e)
	msg := e.Message
	if e.Error != "" && !strings.Contains(msg, e.Error) {
		msg += ": " + e.Error
	}
	return fmt.Sprintf("%s %s %s",
		r.style(styleMuted, ts.Format("15:04:05")),
		r.style(eventStyles[level], icon(level)),
		r.style(eventStyles[level], msg),
	)
}

func (r *Reporter) style(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

func severity(e loop.Event) string {
	switch e.Kind {
	case loop.EventCommit:
		return "success"
	case loop.EventFinished:
		if e.Error != "" {
			return "error"
		}
		if e.Outcome == loop.OutcomeCompleted.String() || e.Outcome == loop.OutcomeCancelled.String() {
			return "success"
		}
		return "warning"
	case loop.EventStopRequested, loop.EventDegraded:
		return "warning"
	case loop.EventFailed:
		return "error"
	default:
		return "info"
	}
}

func icon(level string) string {
	switch level {
	case "success":
		return "✓"
	case "warning":
		return "!"
	case "error":
		return "✗"
	default:
		return "•"
	}
}

// Summary condenses an event history into one line for the end of a run.
func Summary(events []loop.Event) string {
	var commits, failures int
	var last loop.Event
	for _, e := range events {
		switch e.Kind {
		case loop.EventCommit:
			commits++
		case loop.EventFailed:
			failures++
		case loop.EventFinished:
			last = e
		}
	}

	s := fmt.Sprintf("%d commit(s) observed", commits)
	if failures > 0 {
		s += fmt.Sprintf(", %d failure(s)", failures)
	}
	if last.Kind == loop.EventFinished {
		s += fmt.Sprintf("; finished after %d iteration(s) (%s)", last.Iteration, last.Outcome)
	}
	return s
}
