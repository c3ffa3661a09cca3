package sched

import (
	"fmt"
	"math"
	"time"
)

// TaskRegistry owns the per-class queues and hands out task IDs.
type TaskRegistry struct {
	clock  Clock
	lastID TaskID
	queues [numClasses]*Queue
	index  map[TaskID]*Task // pending tasks only
}

func newRegistry(clock Clock) *TaskRegistry {
	r := &TaskRegistry{
		clock: clock,
		index: make(map[TaskID]*Task),
	}
	for _, c := range Classes {
		r.queues[c] = newQueue(c)
	}
	return r
}

// Queue returns the queue for class c.
func (r *TaskRegistry) Queue(c Class) *Queue { return r.queues[c] }

// LastID is the most recently assigned task ID.
func (r *TaskRegistry) LastID() TaskID { return r.lastID }

// Lookup returns a pending task by ID.
func (r *TaskRegistry) Lookup(id TaskID) (*Task, bool) {
	t, ok := r.index[id]
	return t, ok
}

// Pending returns the number of tasks still queued across all classes.
func (r *TaskRegistry) Pending() int { return len(r.index) }

// Depths returns the queue length of every class.
func (r *TaskRegistry) Depths() map[Class]int {
	out := make(map[Class]int, numClasses)
	for _, c := range Classes {
		out[c] = r.queues[c].Len()
	}
	return out
}

// Submit validates spec, assigns the next ID and queues the task.
func (r *TaskRegistry) Submit(spec TaskSpec, origin TaskID) (*Task, error) {
	if !spec.Class.Valid() {
		return nil, &SubmissionError{Class: spec.Class, Delay: spec.Delay, Reason: "invalid class"}
	}
	if spec.Delay < 0 {
		return nil, &SubmissionError{Class: spec.Class, Delay: spec.Delay, Reason: "negative delay"}
	}
	if spec.Class.delayed() && spec.Delay > math.MaxInt64-r.clock.Now() {
		return nil, &SubmissionError{Class: spec.Class, Delay: spec.Delay, Reason: "delay overflows clock"}
	}
	if spec.Run == nil {
		return nil, &SubmissionError{Class: spec.Class, Delay: spec.Delay, Reason: "nil payload"}
	}

	r.lastID++
	t := NewTask(r.lastID, spec.Class, r.clock.Now()+spec.Delay, spec.Run)
	t.Label = spec.Label
	t.OriginID = origin

	r.queues[t.Class].push(t)
	r.index[t.ID] = t
	return t, nil
}

// Cancel withdraws a pending task. It returns false if the task already ran,
// was cancelled before, or never existed.
func (r *TaskRegistry) Cancel(id TaskID) (*Task, bool) {
	t, ok := r.index[id]
	if !ok {
		return nil, false
	}
	delete(r.index, id)
	r.queues[t.Class].remove(t)
	return t, true
}

// Reschedule moves a pending Timer or IO task to a new deadline.
func (r *TaskRegistry) Reschedule(id TaskID, deadline time.Duration) (*Task, error) {
	t, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("task %d is not pending", id)
	}
	if !t.Class.delayed() {
		return nil, fmt.Errorf("task %d is %s, not a delayed class", id, t.Class)
	}
	q := r.queues[t.Class]
	if !q.remove(t) {
		return nil, fmt.Errorf("task %d indexed but missing from %s queue", id, t.Class)
	}
	t.Deadline = deadline
	q.push(t)
	return t, nil
}

// pop removes the head of class c. Every queued task must also be indexed;
// a head without an index entry means the two structures diverged.
func (r *TaskRegistry) pop(c Class) (*Task, error) {
	t, ok := r.queues[c].pop()
	if !ok {
		return nil, fmt.Errorf("pop from empty %s queue", c)
	}
	if _, indexed := r.index[t.ID]; !indexed {
		return nil, fmt.Errorf("popped task %d missing from registry index", t.ID)
	}
	delete(r.index, t.ID)
	return t, nil
}
