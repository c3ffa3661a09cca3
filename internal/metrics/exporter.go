// Package metrics exports scheduler events as Prometheus collectors.
package metrics

import (
	"errors"
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"

	"phaseq/internal/sched"
)

// Exporter turns scheduler events into Prometheus metrics.
type Exporter struct {
	tasksTotal   *prom.CounterVec
	enqueued     *prom.CounterVec
	cancelled    *prom.CounterVec
	queueDepth   *prom.GaugeVec
	virtualTime  prom.Gauge
	clockJumps   prom.Counter
	haltsTotal   *prom.CounterVec
	phaseChanges *prom.CounterVec
}

var _ sched.Observer = (*Exporter)(nil)

// NewExporter creates and registers the collectors on reg.
func NewExporter(namespace string, reg prom.Registerer) (*Exporter, error) {
	if namespace == "" {
		namespace = "phaseq"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	e := &Exporter{
		tasksTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_executed_total",
			Help:      "Executed tasks by class and outcome.",
		}, []string{"class", "outcome"}),
		enqueued: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_enqueued_total",
			Help:      "Submitted tasks by class.",
		}, []string{"class"}),
		cancelled: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_cancelled_total",
			Help:      "Cancelled tasks by class.",
		}, []string{"class"}),
		queueDepth: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Pending tasks by class.",
		}, []string{"class"}),
		virtualTime: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "virtual_time_seconds",
			Help:      "Scheduler clock after the last clock movement.",
		}),
		clockJumps: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "clock_jumps_total",
			Help:      "Clock advances to a pending deadline or by explicit request.",
		}),
		haltsTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_halted_total",
			Help:      "Runs halted by a safety bound or an invariant violation.",
		}, []string{"reason"}),
		phaseChanges: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "phase_entries_total",
			Help:      "Loop phase entries by phase.",
		}, []string{"phase"}),
	}

	var err error
	if e.tasksTotal, err = registerCollector(reg, e.tasksTotal); err != nil {
		return nil, err
	}
	if e.enqueued, err = registerCollector(reg, e.enqueued); err != nil {
		return nil, err
	}
	if e.cancelled, err = registerCollector(reg, e.cancelled); err != nil {
		return nil, err
	}
	if e.queueDepth, err = registerCollector(reg, e.queueDepth); err != nil {
		return nil, err
	}
	if e.virtualTime, err = registerCollector(reg, e.virtualTime); err != nil {
		return nil, err
	}
	if e.clockJumps, err = registerCollector(reg, e.clockJumps); err != nil {
		return nil, err
	}
	if e.haltsTotal, err = registerCollector(reg, e.haltsTotal); err != nil {
		return nil, err
	}
	if e.phaseChanges, err = registerCollector(reg, e.phaseChanges); err != nil {
		return nil, err
	}
	return e, nil
}

// OnEvent implements sched.Observer.
func (e *Exporter) OnEvent(ev sched.Event) {
	if e == nil {
		return
	}
	class := ev.Class.String()
	switch ev.Kind {
	case sched.EventEnqueue:
		e.enqueued.WithLabelValues(class).Inc()
		e.queueDepth.WithLabelValues(class).Set(float64(ev.Depth))
	case sched.EventCancel:
		e.cancelled.WithLabelValues(class).Inc()
		e.queueDepth.WithLabelValues(class).Set(float64(ev.Depth))
	case sched.EventDispatch:
		e.queueDepth.WithLabelValues(class).Set(float64(ev.Depth))
	case sched.EventFinish:
		e.tasksTotal.WithLabelValues(class, "ok").Inc()
	case sched.EventFail:
		e.tasksTotal.WithLabelValues(class, "failed").Inc()
	case sched.EventClockJump:
		e.clockJumps.Inc()
		e.virtualTime.Set(ev.Now.Seconds())
	case sched.EventPhase:
		e.phaseChanges.WithLabelValues(ev.Phase.String()).Inc()
	case sched.EventHalt:
		e.haltsTotal.WithLabelValues(haltReason(ev.Err)).Inc()
	}
}

func haltReason(err error) string {
	var starved *sched.StarvationExceeded
	switch {
	case errors.As(err, &starved):
		return string(starved.Bound)
	case errors.Is(err, sched.ErrInvariant):
		return "invariant"
	default:
		return "unknown"
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
