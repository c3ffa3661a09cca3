package metrics

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"phaseq/internal/sched"
)

func runWithExporter(t *testing.T, cfg sched.Config, submit func(s *sched.Scheduler)) (*Exporter, *prom.Registry) {
	t.Helper()
	reg := prom.NewRegistry()
	exporter, err := NewExporter("phaseq", reg)
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	s := sched.New(cfg, sched.WithObserver(exporter))
	submit(s)
	s.RunToCompletion(context.Background())
	return exporter, reg
}

func noop(context.Context) error { return nil }

func TestExporter_CountsExecutions(t *testing.T) {
	exporter, _ := runWithExporter(t, sched.DefaultConfig(), func(s *sched.Scheduler) {
		s.Submit(sched.Immediate, noop)
		s.Submit(sched.Immediate, func(context.Context) error { return context.Canceled })
		s.SubmitAfter(sched.Timer, 5*time.Millisecond, noop)
		id, _ := s.Submit(sched.Check, noop)
		s.Cancel(id)
	})

	if got := testutil.ToFloat64(exporter.tasksTotal.WithLabelValues("immediate", "ok")); got != 1 {
		t.Fatalf("immediate ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.tasksTotal.WithLabelValues("immediate", "failed")); got != 1 {
		t.Fatalf("immediate failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.enqueued.WithLabelValues("check")); got != 1 {
		t.Fatalf("check enqueued = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.cancelled.WithLabelValues("check")); got != 1 {
		t.Fatalf("check cancelled = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("timer")); got != 0 {
		t.Fatalf("timer depth = %v, want 0", got)
	}
	if got := testutil.ToFloat64(exporter.virtualTime); got != 0.005 {
		t.Fatalf("virtual time = %v, want 0.005", got)
	}
	if got := testutil.ToFloat64(exporter.clockJumps); got != 1 {
		t.Fatalf("clock jumps = %v, want 1", got)
	}
}

func TestExporter_CountsHalts(t *testing.T) {
	cfg := sched.DefaultConfig()
	cfg.StarvationLimit = 3
	exporter, _ := runWithExporter(t, cfg, func(s *sched.Scheduler) {
		var spin sched.Callback
		spin = func(ctx context.Context) error {
			s.Submit(sched.Immediate, spin)
			return nil
		}
		s.Submit(sched.Immediate, spin)
	})
	if got := testutil.ToFloat64(exporter.haltsTotal.WithLabelValues(string(sched.BoundImmediate))); got != 1 {
		t.Fatalf("halts = %v, want 1", got)
	}
}

func TestExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewExporter("phaseq", reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewExporter("phaseq", reg)
	if err != nil {
		t.Fatalf("second NewExporter failed: %v", err)
	}
	first.clockJumps.Inc()
	if got := testutil.ToFloat64(second.clockJumps); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}
}

func TestWriteText(t *testing.T) {
	_, reg := runWithExporter(t, sched.DefaultConfig(), func(s *sched.Scheduler) {
		s.Submit(sched.Micro, noop)
	})
	var buf bytes.Buffer
	if err := WriteText(&buf, reg); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if !strings.Contains(buf.String(), "phaseq_tasks_executed_total{class=micro,outcome=ok} 1\n") {
		t.Fatalf("output missing micro counter:\n%s", buf.String())
	}
}
