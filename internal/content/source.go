// Package content resolves which prompt file an iteration uses and reads its
// text. A sticky choice is reused across iterations while it still exists.
package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mark3labs/commitloop/internal/logger"
)

var (
	// ErrNoCandidates means the pattern matched no files.
	ErrNoCandidates = errors.New("no content candidates found")
	// ErrUserCancelled means the selection prompt was dismissed.
	ErrUserCancelled = errors.New("content selection cancelled")
)

// Handle identifies a content file by its absolute path.
type Handle string

// Name returns the file name without directories.
func (h Handle) Name() string {
	return filepath.Base(string(h))
}

// Finder enumerates candidate content files.
type Finder interface {
	Find(ctx context.Context) ([]Handle, error)
}

// Reader returns the text of a candidate.
type Reader interface {
	Read(ctx context.Context, h Handle) (string, error)
}

// Prompter asks the operator to choose a candidate. ok is false when the
// prompt was dismissed without a choice.
type Prompter interface {
	Prompt(ctx context.Context, candidates []Handle) (h Handle, ok bool, err error)
}

// Source combines enumeration, selection, and retrieval.
type Source struct {
	Finder   Finder
	Reader   Reader
	Prompter Prompter
}

// Find returns the current candidates.
func (s *Source) Find(ctx context.Context) ([]Handle, error) {
	return s.Finder.Find(ctx)
}

// Read returns the text of h.
func (s *Source) Read(ctx context.Context, h Handle) (string, error) {
	return s.Reader.Read(ctx, h)
}

// Resolve picks the candidate for this iteration. A sticky handle still
// present in candidates is reused without prompting; a stale sticky handle
// falls back to the first candidate, also without prompting. Only when there
// is no sticky handle is the operator asked.
func (s *Source) Resolve(ctx context.Context, candidates []Handle, sticky Handle) (Handle, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}

	if sticky != "" {
		for _, c := range candidates {
			if c == sticky {
				return c, nil
			}
		}
		logger.Info("Previous content %s is gone, falling back to %s", sticky.Name(), candidates[0].Name())
		return candidates[0], nil
	}

	if s.Prompter == nil {
		return candidates[0], nil
	}

	h, ok, err := s.Prompter.Prompt(ctx, candidates)
	if err != nil {
		return "", fmt.Errorf("content prompt: %w", err)
	}
	if !ok {
		return "", ErrUserCancelled
	}
	return h, nil
}

// GlobFinder finds regular files under Dir matching Pattern, sorted by path
// and capped at Max entries.
type GlobFinder struct {
	Dir     string
	Pattern string
	Max     int
}

// Find implements Finder.
func (g *GlobFinder) Find(ctx context.Context) ([]Handle, error) {
	pattern := g.Pattern
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(g.Dir, pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", g.Pattern, err)
	}

	handles := make([]Handle, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		abs, err := filepath.Abs(m)
		if err != nil {
			continue
		}
		handles = append(handles, Handle(abs))
	}

	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	if g.Max > 0 && len(handles) > g.Max {
		logger.Warn("Pattern %q matched %d files, using the first %d", g.Pattern, len(handles), g.Max)
		handles = handles[:g.Max]
	}
	return handles, nil
}

// FileReader reads handles from disk.
type FileReader struct{}

// Read implements Reader.
func (FileReader) Read(ctx context.Context, h Handle) (string, error) {
	data, err := os.ReadFile(string(h))
	if err != nil {
		return "", fmt.Errorf("failed to read content file %s: %w", h, err)
	}
	return string(data), nil
}
