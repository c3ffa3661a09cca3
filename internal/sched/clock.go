// internal/sched/clock.go

package sched

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	errClockBackwards = errors.New("clock would move backwards")
	errClockOverflow  = errors.New("clock would overflow")
)

// forward returns now+d, refusing to go backwards or past the largest
// representable time.
func forward(now, d time.Duration) (time.Duration, error) {
	if d < 0 {
		return now, fmt.Errorf("advance by %v: %w", d, errClockBackwards)
	}
	if d > math.MaxInt64-now {
		return now, fmt.Errorf("advance by %v from %v: %w", d, now, errClockOverflow)
	}
	return now + d, nil
}

// Clock is the scheduler's time source. Times are offsets from the start of
// the run, and Now never decreases.
type Clock interface {
	Now() time.Duration
	// Advance moves the clock forward by d.
	Advance(d time.Duration) error
	// AdvanceTo moves the clock forward to t.
	AdvanceTo(t time.Duration) error
	// WaitUntil returns once Now() >= t, or when ctx is done.
	WaitUntil(ctx context.Context, t time.Duration) error
}

// NewClock returns the clock for the given mode.
func NewClock(mode TimeMode) Clock {
	if mode == TimeReal {
		return NewRealClock()
	}
	return &VirtualClock{}
}

// VirtualClock only moves when told to. Waiting is a jump.
type VirtualClock struct {
	now time.Duration
}

func (c *VirtualClock) Now() time.Duration { return c.now }

func (c *VirtualClock) Advance(d time.Duration) error {
	now, err := forward(c.now, d)
	if err != nil {
		return err
	}
	c.now = now
	return nil
}

func (c *VirtualClock) AdvanceTo(t time.Duration) error {
	if t < c.now {
		return fmt.Errorf("advance to %v from %v: %w", t, c.now, errClockBackwards)
	}
	c.now = t
	return nil
}

func (c *VirtualClock) WaitUntil(_ context.Context, t time.Duration) error {
	if t <= c.now {
		return nil
	}
	return c.AdvanceTo(t)
}

// RealClock follows wall time since creation plus any explicit offset.
type RealClock struct {
	start  time.Time
	offset time.Duration
	last   time.Duration
	since  func(time.Time) time.Duration
}

// NewRealClock creates a clock whose zero is now.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now(), since: time.Since}
}

func (c *RealClock) Now() time.Duration {
	now := c.offset + c.since(c.start)
	if now < c.last {
		now = c.last
	}
	c.last = now
	return now
}

func (c *RealClock) Advance(d time.Duration) error {
	if _, err := forward(c.Now(), d); err != nil {
		return err
	}
	c.offset += d
	return nil
}

func (c *RealClock) AdvanceTo(t time.Duration) error {
	now := c.Now()
	if t < now {
		return fmt.Errorf("advance to %v from %v: %w", t, now, errClockBackwards)
	}
	// offset+(t-now) is t minus elapsed wall time, so it stays below t
	c.offset += t - now
	return nil
}

func (c *RealClock) WaitUntil(ctx context.Context, t time.Duration) error {
	wait := t - c.Now()
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	// timers may fire a hair early relative to our own reading
	if now := c.Now(); now < t {
		c.offset += t - now
	}
	return nil
}
