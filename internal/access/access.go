// Package access reports whether the process is allowed to synthesize
// input events.
package access

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PollInterval is the default interval of Poll.
const PollInterval = 2 * time.Second

// Checker caches the last permission check and logs changes.
type Checker struct {
	check   func() bool
	log     *zap.Logger
	granted atomic.Bool
}

// New returns a checker for the current platform.
func New(log *zap.Logger) *Checker {
	return NewWithCheck(trusted, log)
}

// NewWithCheck returns a checker using check.
func NewWithCheck(check func() bool, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Checker{check: check, log: log.With(zap.String("component", "access"))}
	c.granted.Store(check())
	return c
}

// IsGranted runs the check again and returns its result.
func (c *Checker) IsGranted() bool {
	now := c.check()
	if prev := c.granted.Swap(now); prev != now {
		c.log.Info("input permission changed", zap.Bool("granted", now))
	}
	return now
}

// Granted returns the last result without checking again.
func (c *Checker) Granted() bool {
	return c.granted.Load()
}

// Request asks the OS to prompt for permission where it supports that.
func (c *Checker) Request() {
	request()
}

// Poll re-checks every interval until permission is granted or ctx is
// done. It returns true once granted.
func (c *Checker) Poll(ctx context.Context, interval time.Duration) bool {
	if c.IsGranted() {
		return true
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			if c.IsGranted() {
				return true
			}
		}
	}
}
