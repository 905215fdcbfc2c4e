// Package delivery submits the current input line to the target surface by
// trying ranked mechanisms until one of them succeeds.
package delivery

import (
	"context"
	"errors"
	"fmt"

	ierr "github.com/mark3labs/commitloop/internal/errors"
	"github.com/mark3labs/commitloop/internal/logger"
)

// ErrExhausted is returned when every mechanism failed.
var ErrExhausted = errors.New("all delivery mechanisms failed")

// Mechanism is one way of delivering a line submit.
type Mechanism struct {
	Name    string
	Attempt func(ctx context.Context) error
}

// FirstSuccess runs mechanisms left to right and stops at the first one that
// returns nil. A panicking attempt counts as a failure. It returns the name
// of the winning mechanism, or ErrExhausted joined with every attempt error.
func FirstSuccess(ctx context.Context, mechanisms []Mechanism) (string, error) {
	var errs []error
	for _, m := range mechanisms {
		if m.Attempt == nil {
			continue
		}
		err := ierr.Recover(func() error { return m.Attempt(ctx) })
		if err == nil {
			return m.Name, nil
		}
		logger.Debug("Delivery mechanism %q failed: %v", m.Name, err)
		errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
	}
	return "", errors.Join(append([]error{ErrExhausted}, errs...)...)
}

// Chain delivers a line submit through its mechanisms in order.
type Chain struct {
	Mechanisms []Mechanism

	// AbortOnExhaustion makes Deliver return ErrExhausted when nothing
	// worked. When false, exhaustion is only logged.
	AbortOnExhaustion bool

	// OnExhausted, if set, is called with the combined error when every
	// mechanism failed, regardless of AbortOnExhaustion.
	OnExhausted func(err error)
}

// Deliver submits the line. Individual mechanism failures never escape;
// exhaustion is logged as a warning and only returned when
// AbortOnExhaustion is set.
func (c *Chain) Deliver(ctx context.Context) error {
	name, err := FirstSuccess(ctx, c.Mechanisms)
	if err == nil {
		logger.Debug("Line submitted via %s", name)
		return nil
	}

	logger.Warn("Line submit failed on every mechanism: %v", err)
	if c.OnExhausted != nil {
		c.OnExhausted(err)
	}
	if c.AbortOnExhaustion {
		return err
	}
	return nil
}
