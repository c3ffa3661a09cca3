package sched

import "context"

// drain runs Immediate and Micro work until both queues are empty.
//
// In the default per-task mode the Immediate queue is checked before every
// single Micro task, so Immediate work submitted by a Micro task runs before
// the next Micro task. A task that keeps resubmitting itself to Immediate
// starves Micro; the immediate-streak bound in runNext stops that.
func (s *Scheduler) drain(ctx context.Context) error {
	if s.cfg.ImmediateMode == ImmediateBatched {
		return s.drainBatched(ctx)
	}
	imm, micro := s.reg.Queue(Immediate), s.reg.Queue(Micro)
	for {
		var c Class
		switch {
		case !imm.Empty():
			c = Immediate
		case !micro.Empty():
			c = Micro
		default:
			return nil
		}
		if err := s.runNext(ctx, c, PhaseDraining); err != nil {
			return err
		}
	}
}

// drainBatched empties Immediate, then empties Micro without looking at
// Immediate in between, and repeats while either queue has work.
func (s *Scheduler) drainBatched(ctx context.Context) error {
	imm, micro := s.reg.Queue(Immediate), s.reg.Queue(Micro)
	for !imm.Empty() || !micro.Empty() {
		for !imm.Empty() {
			if err := s.runNext(ctx, Immediate, PhaseDraining); err != nil {
				return err
			}
		}
		for !micro.Empty() {
			if err := s.runNext(ctx, Micro, PhaseDraining); err != nil {
				return err
			}
		}
	}
	return nil
}
