package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	yaml "github.com/goccy/go-yaml"
)

// TimeMode selects the clock implementation.
type TimeMode string

const (
	TimeVirtual TimeMode = "virtual" // jump straight to the next deadline
	TimeReal    TimeMode = "real"    // wait for wall time to catch up
)

// ImmediateMode selects how Immediate and Micro interleave during a drain.
type ImmediateMode string

const (
	// ImmediatePerTask re-checks the Immediate queue before every Micro task.
	ImmediatePerTask ImmediateMode = "per_task"
	// ImmediateBatched drains Immediate, then the whole Micro queue, and
	// repeats while either has work.
	ImmediateBatched ImmediateMode = "batched"
)

const (
	DefaultStarvationLimit = 100000
	DefaultMaxTasks        = 1000000
)

// Config mirrors config.yml
//
// StarvationLimit bounds Immediate executions in a row within one call to
// RunToCompletion; the count restarts with every call. MaxTasks bounds total
// executions over the scheduler's lifetime.
type Config struct {
	StarvationLimit int           `yaml:"starvation_limit"` // 100000 (by default)
	MaxTasks        int           `yaml:"max_tasks"`        // 1000000 (by default)
	TimeMode        TimeMode      `yaml:"time_mode"`        // virtual (by default)
	ImmediateMode   ImmediateMode `yaml:"immediate_mode"`   // per_task (by default)
}

// DefaultConfig is used when no config file is given.
func DefaultConfig() Config {
	return Config{
		StarvationLimit: DefaultStarvationLimit,
		MaxTasks:        DefaultMaxTasks,
		TimeMode:        TimeVirtual,
		ImmediateMode:   ImmediatePerTask,
	}
}

// Load reads YAML and overrides defaults; empty path or missing file = defaults only
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg = cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown enum values.
func (c Config) Validate() error {
	switch c.TimeMode {
	case TimeVirtual, TimeReal:
	default:
		return fmt.Errorf("unknown time_mode %q", c.TimeMode)
	}
	switch c.ImmediateMode {
	case ImmediatePerTask, ImmediateBatched:
	default:
		return fmt.Errorf("unknown immediate_mode %q", c.ImmediateMode)
	}
	return nil
}

// normalize applies the sanity clamps.
func (c Config) normalize() Config {
	if c.StarvationLimit <= 0 {
		c.StarvationLimit = DefaultStarvationLimit
	}
	if c.MaxTasks <= 0 {
		c.MaxTasks = DefaultMaxTasks
	}
	if c.TimeMode == "" {
		c.TimeMode = TimeVirtual
	}
	if c.ImmediateMode == "" {
		c.ImmediateMode = ImmediatePerTask
	}
	return c
}
