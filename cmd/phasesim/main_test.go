package main

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"phasesim"}, args...))
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := runApp(t, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "micro-preempt") {
		t.Fatalf("list output missing micro-preempt:\n%s", out)
	}
}

func TestRunBuiltin(t *testing.T) {
	out, err := runApp(t, "run", "micro-preempt")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{"m1", "i1", "m2", "terminated after 3 tasks"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCSVAndMetrics(t *testing.T) {
	out, err := runApp(t, "run", "--csv", "--metrics", "timer-order")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	parts := strings.SplitN(out, "\n\n", 2)
	if len(parts) != 2 {
		t.Fatalf("expected csv then metrics:\n%s", out)
	}
	rows, err := csv.NewReader(strings.NewReader(parts[0])).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(rows) != 4 || rows[1][3] != "a" || rows[3][3] != "t1" {
		t.Fatalf("rows = %v", rows)
	}
	if !strings.Contains(parts[1], "phaseq_tasks_executed_total{class=timer,outcome=ok} 2") {
		t.Fatalf("metrics missing timer count:\n%s", parts[1])
	}
}

func TestRunStarvationScenario(t *testing.T) {
	if _, err := runApp(t, "run", "starvation"); err != nil {
		t.Fatalf("expected halt should pass: %v", err)
	}
}

func TestRunUnknownScenario(t *testing.T) {
	if _, err := runApp(t, "run", "nope"); err == nil {
		t.Fatalf("unknown scenario should fail")
	}
}
