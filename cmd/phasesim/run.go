package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"phaseq/internal/metrics"
	"phaseq/internal/scenario"
	"phaseq/internal/sched"
)

var (
	builtin      = scenario.Builtin
	builtinNames = scenario.Names
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a scenario and print its trace",
		ArgsUsage: "<scenario>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yml",
				Usage:   "YAML scheduler config; defaults apply when the file is missing",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "YAML scenario file instead of a built-in scenario",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "print the trace as CSV",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "print scheduler metrics after the run",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log scheduler activity to stderr",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	// 1. Resolve the scenario
	sc, err := resolveScenario(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cfg, err := sched.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	// 2. Wire logging and metrics
	var opts []sched.Option
	if c.Bool("verbose") {
		opts = append(opts, sched.WithLogger(sched.NewDefaultLogger(true)))
	}
	reg := prom.NewRegistry()
	if c.Bool("metrics") {
		exporter, err := metrics.NewExporter("phaseq", reg)
		if err != nil {
			return cli.Exit(fmt.Sprintf("metrics: %v", err), 1)
		}
		opts = append(opts, sched.WithObserver(exporter))
	}

	// 3. Run
	res, runErr := scenario.Run(c.Context, sc, cfg, opts...)
	var violation *sched.InvariantViolation
	if errors.As(runErr, &violation) {
		return cli.Exit(violation.Error(), 3)
	}

	// 4. Format output
	w := c.App.Writer
	if c.Bool("csv") {
		if err := sched.WriteCSV(w, res.RunID, res.Trace); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	} else {
		printTrace(w, sc, res)
	}
	if c.Bool("metrics") {
		fmt.Fprintln(w)
		if err := metrics.WriteText(w, reg); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	if err := sc.Check(res, runErr); err != nil {
		code := 4
		if errors.Is(runErr, sched.ErrStarvationExceeded) && !sc.ExpectHalt {
			code = 2
		}
		return cli.Exit(err.Error(), code)
	}
	return nil
}

func resolveScenario(c *cli.Context) (scenario.Scenario, error) {
	if path := c.String("file"); path != "" {
		return scenario.LoadFile(path)
	}
	name := c.Args().First()
	if name == "" {
		return scenario.Scenario{}, fmt.Errorf("missing scenario name; try: %s", strings.Join(builtinNames(), ", "))
	}
	sc, ok := builtin(name)
	if !ok {
		return scenario.Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
	return sc, nil
}

func printTrace(w io.Writer, sc scenario.Scenario, res sched.Result) {
	fmt.Fprintf(w, "scenario %s (run %s)\n", sc.Name, res.RunID)
	for i, r := range res.Trace {
		origin := "sync"
		if r.OriginID != 0 {
			origin = fmt.Sprintf("#%04d", r.OriginID)
		}
		line := fmt.Sprintf("%04d  t=%-8v [%9s] task #%04d %-8s from %s",
			i, r.ExecutedAt, r.Class, r.ID, r.Name(), origin)
		if r.Failed {
			line += "  FAILED: " + r.Err
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%s after %d tasks (%d failed), virtual time %v\n", res.Outcome, res.Executed, res.Failed, res.Now)
}
