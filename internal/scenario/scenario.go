// Package scenario builds task trees on a scheduler and runs them.
//
// A scenario is a list of nodes submitted during the sync phase. Each node's
// payload submits its children when it runs, so nested scheduling from inside
// running tasks can be described as plain data.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"

	"phaseq/internal/job"
	"phaseq/internal/sched"
)

// Node is one task in a scenario tree.
type Node struct {
	Label    string `yaml:"label"`
	Class    string `yaml:"class"`
	Delay    int64  `yaml:"delay"`   // milliseconds of virtual time
	Fail     string `yaml:"fail"`    // error message to report, if any
	Cancels  string `yaml:"cancels"` // label of a pending task to withdraw
	Forever  bool   `yaml:"forever"` // resubmit itself unconditionally
	Repeat   int    `yaml:"repeat"`  // resubmit itself this many times
	Children []Node `yaml:"children"`
}

// Scenario is a named task tree with its expected trace.
type Scenario struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	StarvationLimit int      `yaml:"starvation_limit"` // overrides the config when set
	Tasks           []Node   `yaml:"tasks"`
	Want            []string `yaml:"want"`        // expected trace names, optional
	ExpectHalt      bool     `yaml:"expect_halt"` // run should end in StarvationExceeded
}

// LoadFile reads a single scenario from a YAML file.
func LoadFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Validate checks every node's class name.
func (sc Scenario) Validate() error {
	var walk func(nodes []Node) error
	walk = func(nodes []Node) error {
		for _, n := range nodes {
			if _, err := sched.ParseClass(n.Class); err != nil {
				return fmt.Errorf("scenario %s: node %q: %w", sc.Name, n.Label, err)
			}
			if n.Delay < 0 {
				return fmt.Errorf("scenario %s: node %q: negative delay", sc.Name, n.Label)
			}
			if err := walk(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(sc.Tasks)
}

// Run builds sc on a fresh scheduler and runs it to completion.
func Run(ctx context.Context, sc Scenario, cfg sched.Config, opts ...sched.Option) (sched.Result, error) {
	if sc.StarvationLimit > 0 {
		cfg.StarvationLimit = sc.StarvationLimit
	}
	s := sched.New(cfg, opts...)
	if err := Build(s, sc.Tasks); err != nil {
		return sched.Result{RunID: s.RunID()}, err
	}
	return s.RunToCompletion(ctx)
}

// Build submits the top-level nodes on s.
func Build(s *sched.Scheduler, nodes []Node) error {
	b := &builder{ids: make(map[string]sched.TaskID)}
	for _, n := range nodes {
		if err := b.submit(s, n); err != nil {
			return err
		}
	}
	return nil
}

// Check compares a result with the scenario's expectations.
func (sc Scenario) Check(res sched.Result, runErr error) error {
	if sc.ExpectHalt {
		if !errors.Is(runErr, sched.ErrStarvationExceeded) {
			return fmt.Errorf("scenario %s: want starvation halt, got %v", sc.Name, runErr)
		}
	} else if runErr != nil {
		return fmt.Errorf("scenario %s: %w", sc.Name, runErr)
	}
	if sc.Want == nil {
		return nil
	}
	got := sched.Names(res.Trace)
	if len(got) != len(sc.Want) {
		return fmt.Errorf("scenario %s: trace %v, want %v", sc.Name, got, sc.Want)
	}
	for i := range got {
		if got[i] != sc.Want[i] {
			return fmt.Errorf("scenario %s: trace %v, want %v", sc.Name, got, sc.Want)
		}
	}
	return nil
}

// builder remembers the last ID submitted under each label, for Cancels.
type builder struct {
	ids map[string]sched.TaskID
}

func (b *builder) submit(s *sched.Scheduler, n Node) error {
	class, err := sched.ParseClass(n.Class)
	if err != nil {
		return err
	}
	id, err := s.SubmitTask(sched.TaskSpec{
		Label: n.Label,
		Class: class,
		Delay: time.Duration(n.Delay) * time.Millisecond,
		Run:   b.callback(class, n),
	})
	if err != nil {
		return err
	}
	if n.Label != "" {
		b.ids[n.Label] = id
	}
	return nil
}

func (b *builder) callback(class sched.Class, n Node) sched.Callback {
	delay := time.Duration(n.Delay) * time.Millisecond
	switch {
	case n.Forever:
		return job.Resubmit(n.Label, class, delay)
	case n.Repeat > 0:
		return job.Repeat(n.Label, class, delay, n.Repeat)
	}

	tail := job.Noop()
	if n.Fail != "" {
		tail = job.Fail(n.Fail)
	}
	return func(ctx context.Context) error {
		s, ok := sched.FromContext(ctx)
		if !ok {
			return errors.New("scenario: no scheduler in context")
		}
		if n.Cancels != "" {
			if id, ok := b.ids[n.Cancels]; ok {
				s.Cancel(id)
			}
		}
		for _, child := range n.Children {
			if err := b.submit(s, child); err != nil {
				return err
			}
		}
		return tail(ctx)
	}
}
