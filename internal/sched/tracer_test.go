package sched

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"
)

func TestTracer_RecordAndSnapshot(t *testing.T) {
	tr := NewTracer()
	a := &Task{ID: 1, Class: Immediate, Label: "a"}
	b := &Task{ID: 2, Class: Timer, OriginID: 1, Deadline: time.Millisecond}

	tr.Record(a, 0, PhaseDraining, nil)
	tr.Record(b, time.Millisecond, PhaseTimer, errors.New("boom"))

	snap := tr.Snapshot()
	if len(snap) != 2 || tr.Len() != 2 {
		t.Fatalf("len = %d/%d, want 2", len(snap), tr.Len())
	}
	if snap[1].Name() != "#2" || !snap[1].Failed || snap[1].Err != "boom" || snap[1].OriginID != 1 {
		t.Fatalf("record = %+v", snap[1])
	}

	// snapshots are copies
	snap[0].Label = "changed"
	if tr.Snapshot()[0].Label != "a" {
		t.Fatalf("snapshot aliased the trace")
	}
	if got := Format(tr.Snapshot()); got != "[a #2]" {
		t.Fatalf("Format = %q", got)
	}
}

func TestWriteCSV(t *testing.T) {
	tr := NewTracer()
	tr.Record(&Task{ID: 1, Class: Micro, Label: "m"}, 0, PhaseDraining, nil)
	tr.Record(&Task{ID: 2, Class: Check, OriginID: 1}, 3*time.Millisecond, PhaseCheck, errors.New("bad"))

	var buf bytes.Buffer
	if err := WriteCSV(&buf, "run-1", tr.Snapshot()); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "run_id" || rows[0][6] != "executed_at_ns" {
		t.Fatalf("header = %v", rows[0])
	}
	want := []string{"run-1", "1", "2", "", "check", "check", "3000000", "1", "true", "bad"}
	for i := range want {
		if rows[2][i] != want[i] {
			t.Fatalf("row = %v, want %v", rows[2], want)
		}
	}
}
