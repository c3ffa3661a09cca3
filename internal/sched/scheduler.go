// internal/sched/scheduler.go

package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome is how a call to RunToCompletion ended.
type Outcome int

const (
	OutcomeTerminated  Outcome = iota // every queue empty, nothing pending
	OutcomeHalted                     // safety bound or invariant violation
	OutcomeInterrupted                // context cancelled while waiting; resumable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTerminated:
		return "terminated"
	case OutcomeHalted:
		return "halted"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Result summarises a run.
type Result struct {
	RunID    string
	Outcome  Outcome
	Executed int
	Failed   int
	Now      time.Duration
	Trace    []Record
}

// Scheduler drives the phase loop over the five class queues.
//
// A Scheduler is single-threaded: Submit, Cancel, CompleteIO,
// AdvanceVirtualTime and RunToCompletion must all be called from one
// goroutine, which includes calls made from inside running tasks.
type Scheduler struct {
	cfg       Config
	runID     uuid.UUID
	clock     Clock
	reg       *TaskRegistry
	tracer    *Tracer
	log       Logger
	observers []Observer

	phase   Phase
	current *Task
	running bool
	halted  error

	executed        int
	failed          int
	immediateStreak int // Immediate executions in this run since the last other-class execution
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithObserver registers an observer for scheduler events.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// WithClock overrides the clock chosen by Config.TimeMode.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// New creates a new Scheduler instance with the given configuration.
func New(cfg Config, opts ...Option) *Scheduler {
	cfg = cfg.normalize()
	s := &Scheduler{
		cfg:    cfg,
		runID:  uuid.New(),
		tracer: NewTracer(),
		log:    NoOpLogger{},
		phase:  PhaseSync,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = NewClock(cfg.TimeMode)
	}
	s.reg = newRegistry(s.clock)
	return s
}

// RunID identifies this scheduler in logs and exported traces.
func (s *Scheduler) RunID() string { return s.runID.String() }

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// Phase returns the current loop phase.
func (s *Scheduler) Phase() Phase { return s.phase }

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration { return s.clock.Now() }

// Pending returns the number of queued tasks of class c.
func (s *Scheduler) Pending(c Class) int {
	if !c.Valid() {
		return 0
	}
	return s.reg.Queue(c).Len()
}

// TraceSnapshot returns the executed tasks so far, in order.
func (s *Scheduler) TraceSnapshot() []Record { return s.tracer.Snapshot() }

// Submit queues run under class with no delay.
func (s *Scheduler) Submit(class Class, run Callback) (TaskID, error) {
	return s.SubmitTask(TaskSpec{Class: class, Run: run})
}

// SubmitAfter queues run under class with a delay. The delay only matters
// for Timer (fire time) and IO (completion time).
func (s *Scheduler) SubmitAfter(class Class, delay time.Duration, run Callback) (TaskID, error) {
	return s.SubmitTask(TaskSpec{Class: class, Delay: delay, Run: run})
}

// SubmitTask queues a task. It may be called before RunToCompletion or from
// inside any running task; in the latter case the running task is recorded
// as the new task's origin.
func (s *Scheduler) SubmitTask(spec TaskSpec) (TaskID, error) {
	if s.halted != nil {
		return 0, &SubmissionError{Class: spec.Class, Delay: spec.Delay, Reason: "scheduler halted"}
	}

	var origin TaskID
	if s.current != nil {
		origin = s.current.ID
	}
	t, err := s.reg.Submit(spec, origin)
	if err != nil {
		s.log.Warn("submission rejected", F("run", s.RunID()), F("error", err))
		return 0, err
	}
	s.emit(Event{Kind: EventEnqueue, TaskID: t.ID, Class: t.Class, Now: s.clock.Now(), Depth: s.reg.Queue(t.Class).Len()})
	return t.ID, nil
}

// Cancel withdraws a task that has not run yet. Cancelled tasks never appear
// in the trace.
func (s *Scheduler) Cancel(id TaskID) bool {
	t, ok := s.reg.Cancel(id)
	if !ok {
		return false
	}
	s.emit(Event{Kind: EventCancel, TaskID: t.ID, Class: t.Class, Now: s.clock.Now(), Depth: s.reg.Queue(t.Class).Len()})
	return true
}

// CompleteIO marks a pending IO task as completed now, regardless of the
// completion time it was submitted with.
func (s *Scheduler) CompleteIO(id TaskID) error {
	t, ok := s.reg.Lookup(id)
	if !ok {
		return fmt.Errorf("complete io %d: task is not pending", id)
	}
	if t.Class != IO {
		return fmt.Errorf("complete io %d: task is %s", id, t.Class)
	}
	now := s.clock.Now()
	if t.Deadline <= now {
		return nil
	}
	if _, err := s.reg.Reschedule(id, now); err != nil {
		return s.violation(err.Error())
	}
	return nil
}

// AdvanceVirtualTime moves the clock forward by d without running anything.
func (s *Scheduler) AdvanceVirtualTime(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("advance virtual time by %v: negative duration", d)
	}
	from := s.clock.Now()
	if err := s.clock.Advance(d); err != nil {
		if errors.Is(err, errClockOverflow) {
			return fmt.Errorf("advance virtual time: %w", err)
		}
		return s.violation(err.Error())
	}
	s.emit(Event{Kind: EventClockJump, Now: s.clock.Now()})
	s.log.Debug("clock advanced", F("run", s.RunID()), F("from", from), F("to", s.clock.Now()))
	return nil
}

// RunToCompletion drains every queue until nothing is left to run.
//
// On a safety-bound breach it returns a *StarvationExceeded together with the
// partial trace; on an internal defect it returns an *InvariantViolation. Both
// leave the scheduler halted. Payload failures are never returned here; they
// are in the trace.
func (s *Scheduler) RunToCompletion(ctx context.Context) (Result, error) {
	if s.halted != nil {
		return s.result(OutcomeHalted), s.halted
	}
	if s.running {
		return s.result(OutcomeInterrupted), ErrReentrantRun
	}
	s.running = true
	defer func() { s.running = false }()
	s.immediateStreak = 0

	s.log.Info("run started", F("run", s.RunID()), F("pending", s.reg.Pending()), F("now", s.clock.Now()))

	err := s.loop(ctx)
	switch {
	case err == nil:
		res := s.result(OutcomeTerminated)
		s.log.Info("run terminated",
			F("run", s.RunID()), F("executed", res.Executed), F("failed", res.Failed), F("now", res.Now))
		return res, nil
	case s.halted != nil:
		return s.result(OutcomeHalted), err
	default:
		s.log.Warn("run interrupted", F("run", s.RunID()), F("error", err))
		return s.result(OutcomeInterrupted), err
	}
}

// loop is the phase state machine. Each iteration runs at most one timer,
// one IO completion or one CHECK snapshot, draining after every task.
func (s *Scheduler) loop(ctx context.Context) error {
	if err := s.drain(ctx); err != nil {
		return err
	}
	timers, io, check := s.reg.Queue(Timer), s.reg.Queue(IO), s.reg.Queue(Check)

	for {
		// 1) check shutdown
		if err := ctx.Err(); err != nil {
			return err
		}
		now := s.clock.Now()

		// 2) earliest eligible timer
		if t, ok := timers.Peek(); ok && t.Deadline <= now {
			if err := s.runNext(ctx, Timer, PhaseTimer); err != nil {
				return err
			}
			if err := s.drain(ctx); err != nil {
				return err
			}
			continue
		}

		// 3) one completed IO operation
		if t, ok := io.Peek(); ok && t.Deadline <= now {
			if err := s.runNext(ctx, IO, PhaseIO); err != nil {
				return err
			}
			if err := s.drain(ctx); err != nil {
				return err
			}
			continue
		}

		// 4) everything that was in CHECK on entry
		if !check.Empty() {
			if err := s.checkPhase(ctx); err != nil {
				return err
			}
			continue
		}

		// 5) idle: jump to the next deadline, or stop
		next, ok := s.nextWakeup()
		if !ok {
			s.setPhase(PhaseTerminated)
			return nil
		}
		if err := s.jump(ctx, next); err != nil {
			return err
		}
	}
}

// checkPhase runs the CHECK tasks queued before the phase started. IDs are
// monotonic, so "queued before" is "id at or below the watermark"; tasks
// added during the phase wait for the next one.
func (s *Scheduler) checkPhase(ctx context.Context) error {
	mark := s.reg.LastID()
	check := s.reg.Queue(Check)
	for {
		t, ok := check.Peek()
		if !ok || t.ID > mark {
			return nil
		}
		if err := s.runNext(ctx, Check, PhaseCheck); err != nil {
			return err
		}
		if err := s.drain(ctx); err != nil {
			return err
		}
	}
}

// nextWakeup is the earliest future deadline among timers and pending IO.
func (s *Scheduler) nextWakeup() (time.Duration, bool) {
	var (
		next  time.Duration
		found bool
	)
	for _, c := range []Class{Timer, IO} {
		if t, ok := s.reg.Queue(c).Peek(); ok && (!found || t.Deadline < next) {
			next, found = t.Deadline, true
		}
	}
	return next, found
}

func (s *Scheduler) jump(ctx context.Context, to time.Duration) error {
	from := s.clock.Now()
	if err := s.clock.WaitUntil(ctx, to); err != nil {
		if errors.Is(err, errClockBackwards) {
			return s.violation(err.Error())
		}
		return err
	}
	s.emit(Event{Kind: EventClockJump, Now: s.clock.Now()})
	s.log.Debug("clock jump", F("run", s.RunID()), F("from", from), F("to", s.clock.Now()))
	return nil
}

// runNext pops the head of class c and executes it, after checking the
// safety bounds against the task about to run.
func (s *Scheduler) runNext(ctx context.Context, c Class, phase Phase) error {
	if s.executed >= s.cfg.MaxTasks {
		return s.starve(BoundMaxTasks, s.cfg.MaxTasks)
	}
	if c == Immediate && s.immediateStreak >= s.cfg.StarvationLimit {
		return s.starve(BoundImmediate, s.cfg.StarvationLimit)
	}

	t, err := s.reg.pop(c)
	if err != nil {
		return s.violation(err.Error())
	}
	s.setPhase(phase)
	s.execute(ctx, t)
	if s.halted != nil {
		return s.halted
	}
	return nil
}

func (s *Scheduler) execute(ctx context.Context, t *Task) {
	at := s.clock.Now()
	s.emit(Event{Kind: EventDispatch, TaskID: t.ID, Class: t.Class, Now: at, Depth: s.reg.Queue(t.Class).Len()})

	s.current = t
	err := s.invoke(withTask(ctx, s, t), t)
	s.current = nil

	s.executed++
	if t.Class == Immediate {
		s.immediateStreak++
	} else {
		s.immediateStreak = 0
	}
	s.tracer.Record(t, at, s.phase, err)

	if err != nil {
		s.failed++
		failure := &PayloadFailure{TaskID: t.ID, Class: t.Class, Err: err}
		s.log.Warn("task failed", F("run", s.RunID()), F("task", t.name()), F("error", err))
		s.emit(Event{Kind: EventFail, TaskID: t.ID, Class: t.Class, Now: at, Depth: s.reg.Queue(t.Class).Len(), Err: failure})
		return
	}
	s.emit(Event{Kind: EventFinish, TaskID: t.ID, Class: t.Class, Now: at, Depth: s.reg.Queue(t.Class).Len()})
}

// invoke runs the payload, turning a panic into a failure.
func (s *Scheduler) invoke(ctx context.Context, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Run(ctx)
}

func (s *Scheduler) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	s.phase = p
	s.emit(Event{Kind: EventPhase, Phase: p, Now: s.clock.Now()})
}

func (s *Scheduler) starve(bound Bound, limit int) error {
	err := &StarvationExceeded{Bound: bound, Limit: limit, Trace: s.tracer.Snapshot()}
	s.log.Error("starvation limit exceeded",
		F("run", s.RunID()), F("bound", bound), F("limit", limit), F("executed", s.executed))
	s.halt(err)
	return err
}

func (s *Scheduler) violation(reason string) error {
	v := &InvariantViolation{
		Reason:   reason,
		Phase:    s.phase,
		Now:      s.clock.Now(),
		Executed: s.executed,
		Depths:   s.reg.Depths(),
	}
	if s.current != nil {
		v.Current = s.current.ID
	}
	s.log.Error("invariant violated", F("run", s.RunID()), F("detail", v.Error()))
	s.halt(v)
	return v
}

func (s *Scheduler) halt(err error) {
	s.halted = err
	s.setPhase(PhaseHalted)
	s.emit(Event{Kind: EventHalt, Phase: PhaseHalted, Now: s.clock.Now(), Err: err})
}

func (s *Scheduler) emit(ev Event) {
	if len(s.observers) == 0 {
		return
	}
	ev.Phase = s.phase
	for _, o := range s.observers {
		o.OnEvent(ev)
	}
}

func (s *Scheduler) result(o Outcome) Result {
	return Result{
		RunID:    s.RunID(),
		Outcome:  o,
		Executed: s.executed,
		Failed:   s.failed,
		Now:      s.clock.Now(),
		Trace:    s.tracer.Snapshot(),
	}
}
