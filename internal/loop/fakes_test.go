package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mark3labs/commitloop/internal/content"
	"github.com/mark3labs/commitloop/internal/git"
	"github.com/mark3labs/commitloop/internal/watcher"
)

var errSurface = errors.New("surface unavailable")

type staticFinder []content.Handle

func (f staticFinder) Find(ctx context.Context) ([]content.Handle, error) {
	return f, nil
}

type mapReader map[content.Handle]string

func (r mapReader) Read(ctx context.Context, h content.Handle) (string, error) {
	return r[h], nil
}

type firstPrompter struct{ calls int }

func (p *firstPrompter) Prompt(ctx context.Context, c []content.Handle) (content.Handle, bool, error) {
	p.calls++
	if len(c) == 0 {
		return "", false, nil
	}
	return c[0], true, nil
}

type fakeSurface struct {
	mu        sync.Mutex
	calls     []string
	published []string
	errOn     string
	onFocus   func()
	onTrigger func()
}

func (s *fakeSurface) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	if s.errOn == name {
		return errSurface
	}
	return nil
}

func (s *fakeSurface) Focus(ctx context.Context) error {
	if s.onFocus != nil {
		s.onFocus()
	}
	return s.record("focus")
}

func (s *fakeSurface) Publish(ctx context.Context, text string) error {
	s.mu.Lock()
	s.published = append(s.published, text)
	s.mu.Unlock()
	return s.record("publish")
}

func (s *fakeSurface) Trigger(ctx context.Context) error {
	if s.onTrigger != nil {
		s.onTrigger()
	}
	return s.record("trigger")
}

func (s *fakeSurface) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeSubmitter struct {
	calls int
	err   error
}

func (s *fakeSubmitter) Deliver(ctx context.Context) error {
	s.calls++
	return s.err
}

type fixedFingerprint struct {
	fp  git.Fingerprint
	err error
}

func (f fixedFingerprint) Fingerprint(ctx context.Context) (git.Fingerprint, error) {
	return f.fp, f.err
}

type fakeWatcher struct {
	report   watcher.Report
	calls    int
	baseline git.Fingerprint
}

func (w *fakeWatcher) Watch(ctx context.Context, baseline git.Fingerprint, cancelled func() bool) watcher.Report {
	w.calls++
	w.baseline = baseline
	return w.report
}

type recorder struct {
	mu     sync.Mutex
	states []State
	events []Event
}

func (r *recorder) StateChanged(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) Event(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []EventKind
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func noSleep(ctx context.Context, d time.Duration) {}
