// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// Phase is the state of the scheduler's loop.
type Phase int

const (
	PhaseSync Phase = iota
	PhaseDraining
	PhaseTimer
	PhaseIO
	PhaseCheck
	PhaseTerminated
	PhaseHalted
)

func (p Phase) String() string {
	switch p {
	case PhaseSync:
		return "sync"
	case PhaseDraining:
		return "draining"
	case PhaseTimer:
		return "timer"
	case PhaseIO:
		return "io"
	case PhaseCheck:
		return "check"
	case PhaseTerminated:
		return "terminated"
	case PhaseHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventEnqueue EventKind = iota
	EventCancel
	EventDispatch
	EventFinish
	EventFail
	EventClockJump
	EventPhase
	EventHalt
)

// Event is emitted on every queue mutation, execution and clock movement.
// For task events Depth is the length of the task's queue after the event.
type Event struct {
	Kind   EventKind
	TaskID TaskID
	Class  Class
	Phase  Phase
	Now    time.Duration
	Depth  int
	Err    error
}

// Observer receives events synchronously on the scheduler's goroutine.
// It must not call back into the scheduler.
type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

func (ek EventKind) String() string {
	switch ek {
	case EventEnqueue:
		return "Enqueued"
	case EventCancel:
		return "Cancelled"
	case EventDispatch:
		return "Dispatch"
	case EventFinish:
		return "Finish"
	case EventFail:
		return "Fail"
	case EventClockJump:
		return "ClockJump"
	case EventPhase:
		return "Phase"
	case EventHalt:
		return "Halt"
	default:
		return "Unknown"
	}
}
