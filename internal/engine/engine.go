// Package engine wires together the formula core's collaborators (format
// registry, scope tree, variable library, store, solver manager) into a
// small standalone program that a script can drive, the way the teacher's
// internal/app package wires a registry and a config loader into a runnable
// load-testing session. Here there is no HCL grid to load; the "config" is a
// tiny line-oriented script (see script.go) that exercises every public
// operation of C2-C7.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/formulacore/internal/builtins"
	"github.com/vk/formulacore/internal/ctxlog"
	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/formula"
	"github.com/vk/formulacore/internal/scope"
	"github.com/vk/formulacore/internal/solvermanager"
	"github.com/vk/formulacore/internal/store"
	"github.com/vk/formulacore/internal/varlib"
)

// Config mirrors the teacher's AppConfig: the handful of knobs a CLI
// invocation needs, gathered in one place so New doesn't take a long
// positional argument list.
type Config struct {
	LogFormat             string // "text" or "json"
	LogLevel              string // "debug", "info", "warn", "error"
	StrictMissingVariable bool
}

// Engine owns one instance of every collaborator spec.md §4.8 names, plus
// the bookkeeping a script needs to resolve names it has seen so far into
// the typed identities (*scope.Legal, *scope.Instance) those collaborators
// expect.
type Engine struct {
	logger  *slog.Logger
	Formats *format.Registry
	Vars    *varlib.Library
	Scopes  *scope.Manager
	Store   *store.Store
	Manager *solvermanager.Manager
	Ops     formula.OperatorLibrary
	Funcs   formula.FunctionLibrary

	legal     map[string]*scope.Legal
	instances map[string]*scope.Instance
}

// New builds an Engine with a freshly configured logger (isolated, the way
// app.newLogger is, rather than mutating the global slog default) and a
// single pre-declared Global legal scope and scope instance.
func New(cfg Config, outW io.Writer) *Engine {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)

	formats := format.NewRegistry()
	vars := varlib.New(formats)
	scopes := scope.NewManager(scope.NewGlobal("Global"))
	st := store.New()
	ops := builtins.NewOperators()
	funcs := builtins.NewFunctions()
	mgr := solvermanager.New(vars, st, ops, funcs, formula.EvalOptions{
		StrictMissingVariable: cfg.StrictMissingVariable,
	})

	e := &Engine{
		logger:    logger,
		Formats:   formats,
		Vars:      vars,
		Scopes:    scopes,
		Store:     st,
		Manager:   mgr,
		Ops:       ops,
		Funcs:     funcs,
		legal:     make(map[string]*scope.Legal),
		instances: make(map[string]*scope.Instance),
	}
	e.legal["Global"] = scopes.Global().Legal()
	e.instances["Global"] = scopes.Global()
	return e
}

// Context returns a context carrying this Engine's logger, the way
// app.NewApp threads ctxlog.WithLogger through every subsequent call.
func (e *Engine) Context(parent context.Context) context.Context {
	return ctxlog.WithLogger(parent, e.logger)
}

// Logger returns the engine's configured logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// RunScript reads r line by line and executes each as a script command (see
// script.go), writing print/diagnose output to out. It stops and returns the
// first error encountered, annotated with the offending line number.
func (e *Engine) RunScript(ctx context.Context, r io.Reader, out io.Writer) error {
	ctx = e.Context(ctx)
	interp := &interpreter{engine: e, out: out}
	return interp.run(ctx, r)
}

func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}
	return slog.New(handler)
}

// ScriptError annotates an underlying error with the 1-based script line
// number it occurred on, the way a config loader reports the HCL file/line
// of a bad block.
type ScriptError struct {
	Line int
	Err  error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }
