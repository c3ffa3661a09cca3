package sched

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrSubmission         = errors.New("submission rejected")
	ErrPayloadFailure     = errors.New("payload failed")
	ErrStarvationExceeded = errors.New("starvation limit exceeded")
	ErrInvariant          = errors.New("scheduler invariant violated")
	ErrReentrantRun       = errors.New("run started from inside a running task")
)

// SubmissionError is returned synchronously by Submit.
type SubmissionError struct {
	Class  Class
	Delay  time.Duration
	Reason string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s (delay %v): %s", e.Class, e.Delay, e.Reason)
}

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }

// PayloadFailure wraps the error a task reported. It is recorded in the trace
// and reported to observers; it never stops the run.
type PayloadFailure struct {
	TaskID TaskID
	Class  Class
	Err    error
}

func (e *PayloadFailure) Error() string {
	return fmt.Sprintf("task %d (%s) failed: %v", e.TaskID, e.Class, e.Err)
}

func (e *PayloadFailure) Is(target error) bool { return target == ErrPayloadFailure }

func (e *PayloadFailure) Unwrap() error { return e.Err }

// Bound names the safety bound that halted a run.
type Bound string

const (
	BoundImmediate Bound = "immediate_streak"
	BoundMaxTasks  Bound = "max_tasks"
)

// StarvationExceeded halts a run once a safety bound is hit. Trace holds
// everything executed up to that point.
type StarvationExceeded struct {
	Bound Bound
	Limit int
	Trace []Record
}

func (e *StarvationExceeded) Error() string {
	return fmt.Sprintf("starvation limit exceeded: %s reached %d after %d tasks", e.Bound, e.Limit, len(e.Trace))
}

func (e *StarvationExceeded) Is(target error) bool { return target == ErrStarvationExceeded }

// InvariantViolation means the ordering engine itself is broken. The run is
// aborted and the state at the time of the violation is attached.
type InvariantViolation struct {
	Reason   string
	Phase    Phase
	Now      time.Duration
	Executed int
	Depths   map[Class]int
	Current  TaskID
}

func (e *InvariantViolation) Error() string {
	classes := make([]Class, 0, len(e.Depths))
	for c := range e.Depths {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "invariant violated: %s (phase=%s now=%v executed=%d current=%d depths=[",
		e.Reason, e.Phase, e.Now, e.Executed, e.Current)
	for i, c := range classes {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%d", c, e.Depths[c])
	}
	b.WriteString("])")
	return b.String()
}

func (e *InvariantViolation) Is(target error) bool { return target == ErrInvariant }
