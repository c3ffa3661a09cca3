package sched

import (
	"reflect"
	"testing"
	"time"
)

func ids(tasks []*Task) []TaskID {
	out := make([]TaskID, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := newQueue(Micro)
	for _, id := range []TaskID{3, 1, 2} {
		q.push(NewTask(id, Micro, time.Second, noop))
	}
	if got := ids(q.Tasks()); !reflect.DeepEqual(got, []TaskID{1, 2, 3}) {
		t.Fatalf("order = %v, want [1 2 3]", got)
	}
	head, ok := q.Peek()
	if !ok || head.ID != 1 {
		t.Fatalf("Peek = %v, %v", head, ok)
	}
	if head.Deadline != 0 {
		t.Fatalf("micro task deadline = %v, want 0", head.Deadline)
	}
}

func TestQueue_DeadlineThenID(t *testing.T) {
	q := newQueue(Timer)
	q.push(NewTask(1, Timer, 10*time.Millisecond, noop))
	q.push(NewTask(2, Timer, 0, noop))
	q.push(NewTask(3, Timer, 5*time.Millisecond, noop))
	q.push(NewTask(4, Timer, 5*time.Millisecond, noop))

	var got []TaskID
	for !q.Empty() {
		task, _ := q.pop()
		got = append(got, task.ID)
	}
	if !reflect.DeepEqual(got, []TaskID{2, 3, 4, 1}) {
		t.Fatalf("pop order = %v, want [2 3 4 1]", got)
	}
	if _, ok := q.pop(); ok {
		t.Fatalf("pop on empty queue succeeded")
	}
}

func TestQueue_Remove(t *testing.T) {
	q := newQueue(Check)
	a := NewTask(1, Check, 0, noop)
	b := NewTask(2, Check, 0, noop)
	q.push(a)
	q.push(b)

	if !q.remove(a) {
		t.Fatalf("remove(a) = false")
	}
	if q.remove(a) {
		t.Fatalf("second remove(a) = true")
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
}
