package git

import (
	"context"
	"fmt"
)

// Fingerprint is an opaque token for repository state at a point in time.
// The empty fingerprint means the state could not be obtained.
type Fingerprint string

// Null is the unobtainable fingerprint.
const Null Fingerprint = ""

// IsNull reports whether the fingerprint is unobtainable.
func (f Fingerprint) IsNull() bool {
	return f == Null
}

// Differs reports whether f is a usable fingerprint that does not match
// baseline. A null fingerprint never matches anything, so a null baseline is
// differed from by any non-null value.
func (f Fingerprint) Differs(baseline Fingerprint) bool {
	if f.IsNull() {
		return false
	}
	return baseline.IsNull() || f != baseline
}

// Short returns the first seven characters, for display.
func (f Fingerprint) Short() string {
	if len(f) > 7 {
		return string(f[:7])
	}
	return string(f)
}

// Provider fingerprints a repository by its HEAD commit.
type Provider struct {
	Dir string
}

// NewProvider returns a Provider for the repository containing dir.
func NewProvider(dir string) *Provider {
	return &Provider{Dir: dir}
}

// Fingerprint returns the full HEAD hash. It returns ErrNotRepository when
// Dir is not a work tree, and a wrapped error when HEAD cannot be resolved
// (for example a repository with no commits yet).
func (p *Provider) Fingerprint(ctx context.Context) (Fingerprint, error) {
	if !isRepo(ctx, p.Dir) {
		return Null, ErrNotRepository
	}
	hash, err := runGitContext(ctx, p.Dir, "rev-parse", "HEAD")
	if err != nil {
		return Null, fmt.Errorf("resolving HEAD: %w", err)
	}
	return Fingerprint(hash), nil
}
