// Package cli implements command-line argument parsing for formulacli, the
// demo driver for the reactive formula engine (internal/engine). It mirrors
// the teacher's internal/cli package: a flag.NewFlagSet with a custom Usage
// function, validated into a small Config struct, with parse/validation
// failures reported as a typed ExitError carrying a process exit code.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/formulacore/internal/engine"
)

// ExitError is a custom error type that includes a specific exit code, the
// same shape as the teacher's internal/cli.ExitError.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string { return e.Message }

// Config is the fully parsed, validated result of Parse: the script to run
// plus the engine.Config knobs that govern how it runs.
type Config struct {
	ScriptPath string
	Engine     engine.Config
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating the program should exit cleanly (e.g. -h was given or
// no script path was supplied), or an ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("formulacli", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
formulacli - a demo driver for the reactive formula engine.

Usage:
  formulacli [options] SCRIPT_PATH

Arguments:
  SCRIPT_PATH
    Path to a script file of engine commands (see internal/engine/script.go
    for the tiny command language: scope/var/open/set/mod/unmod/print/diagnose).

Options:
`)
		flagSet.PrintDefaults()
	}

	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	strictFlag := flagSet.Bool("strict-missing-variable", false, "Fail instead of substituting a default when a formula reads an unset variable.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	scriptPath := flagSet.Arg(0)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	return &Config{
		ScriptPath: scriptPath,
		Engine: engine.Config{
			LogFormat:             logFormat,
			LogLevel:              logLevel,
			StrictMissingVariable: *strictFlag,
		},
	}, false, nil
}
