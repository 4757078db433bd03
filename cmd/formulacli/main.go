// Command formulacli is a small demo driver for the reactive formula
// engine: it runs a script of scope/variable/modifier commands and prints
// the resulting variable values, the way the teacher's cmd/cli drives a
// burstgridgo grid.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/formulacore/internal/cli"
	"github.com/vk/formulacore/internal/engine"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW *os.File, args []string) error {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	f, err := os.Open(cfg.ScriptPath)
	if err != nil {
		return &cli.ExitError{Code: 1, Message: fmt.Sprintf("cannot open script: %v", err)}
	}
	defer f.Close()

	eng := engine.New(cfg.Engine, outW)
	if err := eng.RunScript(context.Background(), f, outW); err != nil {
		return &cli.ExitError{Code: 1, Message: err.Error()}
	}
	return nil
}
