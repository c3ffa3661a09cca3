package scenario

import "sort"

var builtins = map[string]Scenario{
	"sync-priority": {
		Description: "immediate work queued during sync runs before micro work",
		Tasks: []Node{
			{Label: "a", Class: "immediate"},
			{Label: "b", Class: "micro"},
			{Label: "c", Class: "immediate"},
		},
		Want: []string{"a", "c", "b"},
	},
	"micro-preempt": {
		Description: "immediate work queued by a micro task preempts the next micro task",
		Tasks: []Node{
			{Label: "m1", Class: "micro", Children: []Node{{Label: "i1", Class: "immediate"}}},
			{Label: "m2", Class: "micro"},
		},
		Want: []string{"m1", "i1", "m2"},
	},
	"timer-order": {
		Description: "timers fire by deadline after the sync drain",
		Tasks: []Node{
			{Label: "t1", Class: "timer", Delay: 10},
			{Label: "t2", Class: "timer", Delay: 0},
			{Label: "a", Class: "immediate"},
		},
		Want: []string{"a", "t2", "t1"},
	},
	"timer-tie": {
		Description: "timers with equal deadlines fire in submission order",
		Tasks: []Node{
			{Label: "t1", Class: "timer", Delay: 5},
			{Label: "t2", Class: "timer", Delay: 5},
		},
		Want: []string{"t1", "t2"},
	},
	"nested-drain": {
		Description: "immediate chains started from a micro task finish before the next micro task",
		Tasks: []Node{
			{Label: "m1", Class: "micro", Children: []Node{
				{Label: "i1", Class: "immediate", Children: []Node{{Label: "i2", Class: "immediate"}}},
				{Label: "m3", Class: "micro"},
			}},
			{Label: "m2", Class: "micro"},
		},
		Want: []string{"m1", "i1", "i2", "m2", "m3"},
	},
	"io-callback": {
		Description: "inside an io callback, check work runs before a future timer",
		Tasks: []Node{
			{Label: "read", Class: "io", Delay: 1, Children: []Node{
				{Label: "t0", Class: "timer", Delay: 1},
				{Label: "c1", Class: "check"},
				{Label: "m", Class: "micro"},
				{Label: "i", Class: "immediate"},
			}},
		},
		Want: []string{"read", "i", "m", "c1", "t0"},
	},
	"check-snapshot": {
		Description: "check tasks added during the check phase wait for the next one",
		Tasks: []Node{
			{Label: "c1", Class: "check", Children: []Node{
				{Label: "c2", Class: "check"},
				{Label: "i", Class: "immediate"},
			}},
			{Label: "c3", Class: "check"},
		},
		Want: []string{"c1", "i", "c3", "c2"},
	},
	"failure-isolation": {
		Description: "a failing task is traced and the run carries on",
		Tasks: []Node{
			{Label: "a", Class: "immediate", Fail: "boom"},
			{Label: "b", Class: "micro"},
			{Label: "t", Class: "timer", Delay: 1},
		},
		Want: []string{"a", "b", "t"},
	},
	"cancel": {
		Description: "a cancelled timer never runs",
		Tasks: []Node{
			{Label: "t1", Class: "timer", Delay: 5},
			{Label: "x", Class: "immediate", Cancels: "t1"},
			{Label: "t2", Class: "timer", Delay: 6},
		},
		Want: []string{"x", "t2"},
	},
	"starvation": {
		Description:     "a self-resubmitting immediate task halts the run at the starvation limit",
		StarvationLimit: 10,
		Tasks: []Node{
			{Label: "spin", Class: "immediate", Forever: true},
			{Label: "m", Class: "micro"},
		},
		Want:       []string{"spin", "spin", "spin", "spin", "spin", "spin", "spin", "spin", "spin", "spin"},
		ExpectHalt: true,
	},
}

// Builtin returns the named built-in scenario.
func Builtin(name string) (Scenario, bool) {
	sc, ok := builtins[name]
	if !ok {
		return Scenario{}, false
	}
	sc.Name = name
	return sc, true
}

// Names lists the built-in scenarios alphabetically.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
