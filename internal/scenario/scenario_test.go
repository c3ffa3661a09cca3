package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"phaseq/internal/sched"
)

func TestBuiltins(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			sc, ok := Builtin(name)
			if !ok {
				t.Fatalf("Builtin(%q) missing", name)
			}
			if err := sc.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			res, err := Run(context.Background(), sc, sched.DefaultConfig())
			if err := sc.Check(res, err); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestFailureIsolationMarksTrace(t *testing.T) {
	sc, _ := Builtin("failure-isolation")
	res, err := Run(context.Background(), sc, sched.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Trace[0].Failed || res.Failed != 1 {
		t.Fatalf("trace = %+v", res.Trace)
	}
}

func TestCheckReportsMismatch(t *testing.T) {
	sc := Scenario{Name: "x", Want: []string{"a", "b"}}
	res := sched.Result{Trace: []sched.Record{{Label: "b"}, {Label: "a"}}}
	if err := sc.Check(res, nil); err == nil {
		t.Fatalf("Check should report the reordered trace")
	}
	if err := sc.Check(res, errors.New("boom")); err == nil {
		t.Fatalf("Check should report an unexpected run error")
	}
}

func TestLoadFile(t *testing.T) {
	body := `name: from-file
starvation_limit: 3
tasks:
  - label: m1
    class: micro
    children:
      - label: i1
        class: immediate
  - label: t
    class: timer
    delay: 2
  - label: m2
    class: micro
want: [m1, i1, m2, t]
`
	path := filepath.Join(t.TempDir(), "sc.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if sc.StarvationLimit != 3 || len(sc.Tasks) != 3 || len(sc.Tasks[0].Children) != 1 {
		t.Fatalf("scenario = %+v", sc)
	}
	res, err := Run(context.Background(), sc, sched.DefaultConfig())
	if err := sc.Check(res, err); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFileRejectsUnknownClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("tasks:\n  - label: x\n    class: idle\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("LoadFile should reject class idle")
	}
}
