package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "phasesim",
		Usage: "run deterministic event-loop scheduling scenarios and print their traces",
		Commands: []*cli.Command{
			listCommand(),
			runCommand(),
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List built-in scenarios",
		Action: func(c *cli.Context) error {
			for _, name := range builtinNames() {
				sc, _ := builtin(name)
				fmt.Fprintf(c.App.Writer, "%-18s %s\n", name, sc.Description)
			}
			return nil
		},
	}
}
