package loop

import (
	"sync"
	"sync/atomic"

	"github.com/mark3labs/commitloop/internal/content"
)

// CancelReader exposes the cancellation flag without the ability to set it.
type CancelReader interface {
	Cancelled() bool
}

// State is the notification payload for observers.
type State struct {
	Running   bool `json:"running"`
	Iteration int  `json:"iteration"`
}

// Session is the state of the active loop. The controller owns it; the
// executor reads the flag and the sticky content through it.
type Session struct {
	cancel atomic.Bool

	mu        sync.Mutex
	running   bool
	iteration int
	sticky    content.Handle
}

// Cancelled reports whether a stop was requested.
func (s *Session) Cancelled() bool {
	return s.cancel.Load()
}

// State returns a snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Running: s.running, Iteration: s.iteration}
}

// Iteration returns the current iteration number.
func (s *Session) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

// Sticky returns the content remembered from earlier iterations.
func (s *Session) Sticky() content.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sticky
}

// SetSticky remembers h for the following iterations.
func (s *Session) SetSticky(h content.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sticky = h
}

// begin moves an idle session to running with fresh state. It returns false,
// leaving the session untouched, if the session is already running.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.iteration = 0
	s.sticky = ""
	s.cancel.Store(false)
	return true
}

// advance increments the iteration count and returns the new value.
func (s *Session) advance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration++
	return s.iteration
}

// end returns the session to idle defaults and reports the final count.
func (s *Session) end() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.iteration
	s.running = false
	s.iteration = 0
	s.sticky = ""
	s.cancel.Store(false)
	return n
}

// requestCancel raises the flag if the session is running. It reports
// whether the flag was newly raised.
func (s *Session) requestCancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	return s.cancel.CompareAndSwap(false, true)
}
