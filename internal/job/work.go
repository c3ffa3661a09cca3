package job

import (
	"context"
	"errors"
	"time"

	"phaseq/internal/sched"
)

// Noop returns a runnable that does nothing.
func Noop() sched.Callback {
	return func(context.Context) error { return nil }
}

// Fail returns a runnable that always reports msg as its error.
func Fail(msg string) sched.Callback {
	err := errors.New(msg)
	return func(context.Context) error { return err }
}

// Sleep returns a runnable that blocks for the given duration of wall time.
// Only meaningful with a real clock; the scheduler never preempts it.
func Sleep(d time.Duration) sched.Callback {
	return func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			// If the time is up, we just return nil.
			return nil
		}
	}
}

// Then runs first and, if it succeeds, submits every spec in next from
// inside the running task.
func Then(first sched.Callback, next ...sched.TaskSpec) sched.Callback {
	return func(ctx context.Context) error {
		if first != nil {
			if err := first(ctx); err != nil {
				return err
			}
		}
		return Submit(ctx, next...)
	}
}

// Submit queues specs on the scheduler running ctx's task.
func Submit(ctx context.Context, specs ...sched.TaskSpec) error {
	if len(specs) == 0 {
		return nil
	}
	s, ok := sched.FromContext(ctx)
	if !ok {
		return errors.New("job: no scheduler in context")
	}
	for _, spec := range specs {
		if _, err := s.SubmitTask(spec); err != nil {
			return err
		}
	}
	return nil
}

// Resubmit returns a runnable that queues a copy of itself under class every
// time it runs, forever. Bounded only by the scheduler's safety limits.
func Resubmit(label string, class sched.Class, delay time.Duration) sched.Callback {
	var run sched.Callback
	run = func(ctx context.Context) error {
		return Submit(ctx, sched.TaskSpec{Label: label, Class: class, Delay: delay, Run: run})
	}
	return run
}

// Repeat is Resubmit with a stop condition: it queues itself n more times.
func Repeat(label string, class sched.Class, delay time.Duration, n int) sched.Callback {
	return func(ctx context.Context) error {
		if n <= 0 {
			return nil
		}
		return Submit(ctx, sched.TaskSpec{Label: label, Class: class, Delay: delay, Run: Repeat(label, class, delay, n-1)})
	}
}
