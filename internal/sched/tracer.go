// internal/sched/tracer.go

package sched

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Record is one executed task. Records are values; the trace hands out copies.
type Record struct {
	ID         TaskID
	Label      string
	Class      Class
	Phase      Phase
	ExecutedAt time.Duration
	OriginID   TaskID
	Failed     bool
	Err        string
}

// Name is the label, or "#id" for unlabeled tasks.
func (r Record) Name() string {
	if r.Label != "" {
		return r.Label
	}
	return fmt.Sprintf("#%d", r.ID)
}

// Tracer is the append-only log of executed tasks for one run.
type Tracer struct {
	records []Record
}

// NewTracer returns an empty trace.
func NewTracer() *Tracer { return &Tracer{} }

// Record appends the execution of t. A non-nil err marks the entry as failed.
func (tr *Tracer) Record(t *Task, executedAt time.Duration, phase Phase, err error) Record {
	rec := Record{
		ID:         t.ID,
		Label:      t.Label,
		Class:      t.Class,
		Phase:      phase,
		ExecutedAt: executedAt,
		OriginID:   t.OriginID,
	}
	if err != nil {
		rec.Failed = true
		rec.Err = err.Error()
	}
	tr.records = append(tr.records, rec)
	return rec
}

// Len returns the number of records so far.
func (tr *Tracer) Len() int { return len(tr.records) }

// Snapshot returns a copy of the trace in execution order.
func (tr *Tracer) Snapshot() []Record {
	out := make([]Record, len(tr.records))
	copy(out, tr.records)
	return out
}

// Names returns Record.Name for every entry, in order.
func (tr *Tracer) Names() []string { return Names(tr.records) }

// Names returns Record.Name for every entry of records, in order.
func Names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name()
	}
	return out
}

// Format renders records as "[a c b]".
func Format(records []Record) string {
	return "[" + strings.Join(Names(records), " ") + "]"
}

// WriteCSV writes a header row and one row per record.
func WriteCSV(w io.Writer, runID string, records []Record) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"run_id", "seq", "task_id", "label", "class", "phase", "executed_at_ns", "origin_id", "failed", "error"})
	for i, r := range records {
		cw.Write([]string{
			runID,
			strconv.Itoa(i),
			strconv.FormatUint(uint64(r.ID), 10),
			r.Label,
			r.Class.String(),
			r.Phase.String(),
			strconv.FormatInt(int64(r.ExecutedAt), 10),
			strconv.FormatUint(uint64(r.OriginID), 10),
			strconv.FormatBool(r.Failed),
			r.Err,
		})
	}
	cw.Flush()
	return cw.Error()
}
