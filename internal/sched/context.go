package sched

import "context"

type ctxKey struct{}

type taskScope struct {
	s *Scheduler
	t *Task
}

func withTask(ctx context.Context, s *Scheduler, t *Task) context.Context {
	return context.WithValue(ctx, ctxKey{}, taskScope{s: s, t: t})
}

// FromContext returns the scheduler running the current task. It is only
// set inside a task's Callback.
func FromContext(ctx context.Context) (*Scheduler, bool) {
	scope, ok := ctx.Value(ctxKey{}).(taskScope)
	if !ok {
		return nil, false
	}
	return scope.s, true
}

// CurrentTask returns the ID and class of the running task.
func CurrentTask(ctx context.Context) (TaskID, Class, bool) {
	scope, ok := ctx.Value(ctxKey{}).(taskScope)
	if !ok {
		return 0, 0, false
	}
	return scope.t.ID, scope.t.Class, true
}
