// internal/sched/queue.go

package sched

import (
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// Queue holds the pending tasks of one class in the order they will be popped.
//
// Every queue is a red-black tree keyed by (deadline, id). FIFO classes always
// use a zero deadline, so their order is plain submission order; Timer and IO
// order by deadline first and fall back to submission order on ties.
type Queue struct {
	class Class
	rbt   *redblacktree.Tree
}

func newQueue(class Class) *Queue {
	return &Queue{
		class: class,
		rbt:   redblacktree.NewWith(cmp),
	}
}

// Class returns the class this queue serves.
func (q *Queue) Class() Class { return q.class }

// Len returns the number of pending tasks.
func (q *Queue) Len() int { return q.rbt.Size() }

// Empty reports whether the queue has no pending tasks.
func (q *Queue) Empty() bool { return q.rbt.Empty() }

// Peek returns the head of the queue without removing it.
func (q *Queue) Peek() (*Task, bool) {
	node := q.rbt.Left()
	if node == nil {
		return nil, false
	}
	return node.Value.(*Task), true
}

// Tasks returns the pending tasks in pop order.
func (q *Queue) Tasks() []*Task {
	out := make([]*Task, 0, q.rbt.Size())
	it := q.rbt.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Task))
	}
	return out
}

func (q *Queue) push(t *Task) {
	q.rbt.Put(keyOf(t), t)
}

func (q *Queue) pop() (*Task, bool) {
	node := q.rbt.Left()
	if node == nil {
		return nil, false
	}
	q.rbt.Remove(node.Key)
	return node.Value.(*Task), true
}

func (q *Queue) remove(t *Task) bool {
	key := keyOf(t)
	if _, found := q.rbt.Get(key); !found {
		return false
	}
	q.rbt.Remove(key)
	return true
}

// nodeKey is used as a key in the red-black tree.
type nodeKey struct {
	deadline time.Duration
	id       TaskID
}

func keyOf(t *Task) nodeKey {
	return nodeKey{deadline: t.Deadline, id: t.ID}
}

// cmp orders keys by deadline, then by task ID.
func cmp(a, b any) int {
	ka, kb := a.(nodeKey), b.(nodeKey)
	switch {
	case ka.deadline < kb.deadline:
		return -1
	case ka.deadline > kb.deadline:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}
