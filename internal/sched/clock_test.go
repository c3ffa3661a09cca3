package sched

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestVirtualClock(t *testing.T) {
	c := &VirtualClock{}
	if err := c.Advance(5 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := c.WaitUntil(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if c.Now() != 20*time.Millisecond {
		t.Fatalf("now = %v, want 20ms", c.Now())
	}
	if err := c.AdvanceTo(10 * time.Millisecond); !errors.Is(err, errClockBackwards) {
		t.Fatalf("err = %v, want errClockBackwards", err)
	}
	if err := c.Advance(-time.Millisecond); !errors.Is(err, errClockBackwards) {
		t.Fatalf("err = %v, want errClockBackwards", err)
	}
	if c.Now() != 20*time.Millisecond {
		t.Fatalf("clock moved on a rejected advance: %v", c.Now())
	}
}

func TestRealClock_NeverDecreases(t *testing.T) {
	elapsed := 50 * time.Millisecond
	c := &RealClock{start: time.Now(), since: func(time.Time) time.Duration { return elapsed }}

	if c.Now() != 50*time.Millisecond {
		t.Fatalf("now = %v, want 50ms", c.Now())
	}
	elapsed = 40 * time.Millisecond
	if c.Now() != 50*time.Millisecond {
		t.Fatalf("now went backwards to %v", c.Now())
	}

	if err := c.Advance(time.Second); err != nil {
		t.Fatal(err)
	}
	elapsed = 60 * time.Millisecond
	if c.Now() != time.Second+60*time.Millisecond {
		t.Fatalf("now = %v, want 1.06s", c.Now())
	}
	if err := c.AdvanceTo(2 * time.Second); err != nil {
		t.Fatal(err)
	}
	if c.Now() != 2*time.Second {
		t.Fatalf("now = %v, want 2s", c.Now())
	}
	if err := c.AdvanceTo(time.Second); !errors.Is(err, errClockBackwards) {
		t.Fatalf("err = %v, want errClockBackwards", err)
	}
}

func TestRealClock_WaitUntilHonoursContext(t *testing.T) {
	c := NewRealClock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.WaitUntil(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewClock(t *testing.T) {
	if _, ok := NewClock(TimeVirtual).(*VirtualClock); !ok {
		t.Fatalf("virtual mode should give a VirtualClock")
	}
	if _, ok := NewClock(TimeReal).(*RealClock); !ok {
		t.Fatalf("real mode should give a RealClock")
	}
}

func TestClock_AdvanceRejectsOverflow(t *testing.T) {
	virtual := &VirtualClock{}
	realClock := &RealClock{start: time.Now(), since: func(time.Time) time.Duration { return 0 }}

	for name, c := range map[string]Clock{"virtual": virtual, "real": realClock} {
		t.Run(name, func(t *testing.T) {
			if err := c.Advance(10 * time.Millisecond); err != nil {
				t.Fatal(err)
			}
			err := c.Advance(time.Duration(math.MaxInt64))
			if !errors.Is(err, errClockOverflow) {
				t.Fatalf("err = %v, want errClockOverflow", err)
			}
			if c.Now() != 10*time.Millisecond {
				t.Fatalf("now = %v after rejected advance, want 10ms", c.Now())
			}
			if err := c.Advance(time.Duration(math.MaxInt64) - 10*time.Millisecond); err != nil {
				t.Fatalf("advance to the last representable time failed: %v", err)
			}
			if c.Now() != time.Duration(math.MaxInt64) {
				t.Fatalf("now = %v, want max", c.Now())
			}
		})
	}
}
