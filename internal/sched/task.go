package sched

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TaskID uniquely identifies a task in the scheduler.
// IDs start at 1 and grow with every submission; 0 means "no task".
type TaskID uint64

// Class is the priority class a task is queued under.
type Class int

const (
	Immediate Class = iota // run right after the current task, before anything else
	Micro                  // deferred continuation
	Timer                  // gated by a virtual deadline
	Check                  // after the IO poll, before the next timer phase
	IO                     // completion callback of a simulated external operation

	numClasses
)

// Classes lists every class in drain priority order.
var Classes = []Class{Immediate, Micro, Timer, Check, IO}

func (c Class) String() string {
	switch c {
	case Immediate:
		return "immediate"
	case Micro:
		return "micro"
	case Timer:
		return "timer"
	case Check:
		return "check"
	case IO:
		return "io"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Valid reports whether c is one of the five known classes.
func (c Class) Valid() bool { return c >= Immediate && c < numClasses }

// delayed reports whether tasks of this class carry a deadline.
func (c Class) delayed() bool { return c == Timer || c == IO }

// ParseClass maps a class name back to its Class. Matching is case-insensitive.
func ParseClass(name string) (Class, error) {
	for _, c := range Classes {
		if strings.EqualFold(name, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown class %q", name)
}

// Callback is the work a task runs. A non-nil error marks the task as failed
// in the trace; the run carries on regardless.
type Callback func(ctx context.Context) error

// Task represents one schedulable unit of deferred work.
type Task struct {
	ID       TaskID
	Class    Class
	Label    string        // optional display name, kept in the trace
	Deadline time.Duration // virtual time; only meaningful for Timer and IO
	OriginID TaskID        // task that submitted this one, 0 for the sync phase
	Run      Callback
}

// TaskSpec describes a task to submit.
type TaskSpec struct {
	Label string
	Class Class
	Delay time.Duration // ignored for Immediate, Micro and Check
	Run   Callback
}

// NewTask creates a task with a resolved deadline.
// NOTE: the deadline is absolute; registry.submit computes it from the clock.
func NewTask(id TaskID, class Class, deadline time.Duration, work Callback) *Task {
	if !class.delayed() {
		deadline = 0
	}
	return &Task{
		ID:       id,
		Class:    class,
		Deadline: deadline,
		Run:      work,
	}
}

// name is the label if present, otherwise "#id".
func (t *Task) name() string {
	if t.Label != "" {
		return t.Label
	}
	return fmt.Sprintf("#%d", t.ID)
}
