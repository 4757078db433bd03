package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/formula"
	"github.com/vk/formulacore/internal/modifier"
	"github.com/vk/formulacore/internal/vid"
)

// The script language is deliberately tiny: it exists to exercise C2-C7
// end-to-end from a text file, not to be a second grammar competing with
// §6's expression grammar (which is the only grammar this repo owns).
// Recognized commands, one per line, '#' starts a line comment:
//
//	scope NAME [PARENT]                declare a legal scope (parent defaults to Global)
//	var SCOPE NAME FORMAT               assert a variable (FORMAT: integer|real|boolean|string|array<F>)
//	open INSTANCE SCOPE [PARENT]        open a scope instance (parent instance defaults to Global)
//	set VID VALUE                       attach a constant Set modifier, priority 0
//	mod VID KIND PRIORITY SOURCE [in:INSTANCE] EXPR
//	                                     attach a formula-evaluated modifier;
//	                                     "in:INSTANCE" resolves EXPR's
//	                                     identifiers against INSTANCE instead
//	                                     of VID's own scope instance (spec.md
//	                                     S6: a modifier whose formula reads a
//	                                     variable local to the source that
//	                                     installed it, not to the target).
//	unmod VID KIND PRIORITY SOURCE [in:INSTANCE] EXPR
//	                                     remove the matching modifier
//	print VID                           print VID's current stored value
//	diagnose VID                        print VID's modifier-stack trace
//
// VID references are written INSTANCE.NAME. KIND is one of
// set|add|subtract|multiply|divide|min|max.
type interpreter struct {
	engine *Engine
	out    io.Writer
}

func (in *interpreter) run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := in.exec(ctx, line); err != nil {
			return &ScriptError{Line: lineNo, Err: err}
		}
	}
	return sc.Err()
}

func (in *interpreter) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	rest := fields[1:]

	switch cmd {
	case "scope":
		return in.cmdScope(rest)
	case "var":
		return in.cmdVar(rest)
	case "open":
		return in.cmdOpen(rest)
	case "set":
		return in.cmdSet(ctx, rest)
	case "mod":
		return in.cmdMod(ctx, rest, false)
	case "unmod":
		return in.cmdMod(ctx, rest, true)
	case "print":
		return in.cmdPrint(rest)
	case "diagnose":
		return in.cmdDiagnose(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (in *interpreter) cmdScope(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: scope NAME [PARENT]")
	}
	name := args[0]
	parentName := "Global"
	if len(args) == 2 {
		parentName = args[1]
	}
	parent, ok := in.engine.legal[parentName]
	if !ok {
		return fmt.Errorf("unknown parent scope %q", parentName)
	}
	if _, exists := in.engine.legal[name]; exists {
		return fmt.Errorf("scope %q already declared", name)
	}
	in.engine.legal[name] = parent.Child(name)
	return nil
}

func (in *interpreter) cmdVar(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: var SCOPE NAME FORMAT")
	}
	ls, ok := in.engine.legal[args[0]]
	if !ok {
		return fmt.Errorf("unknown scope %q", args[0])
	}
	f, err := in.resolveFormat(args[2])
	if err != nil {
		return err
	}
	return in.engine.Vars.Assert(args[1], ls, f)
}

func (in *interpreter) cmdOpen(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: open INSTANCE SCOPE [PARENT]")
	}
	instName, scopeName := args[0], args[1]
	ls, ok := in.engine.legal[scopeName]
	if !ok {
		return fmt.Errorf("unknown scope %q", scopeName)
	}
	parentInstName := "Global"
	if len(args) == 3 {
		parentInstName = args[2]
	}
	parentInst, ok := in.engine.instances[parentInstName]
	if !ok {
		return fmt.Errorf("unknown scope instance %q", parentInstName)
	}
	if _, exists := in.engine.instances[instName]; exists {
		return fmt.Errorf("scope instance %q already opened", instName)
	}
	si, err := in.engine.Scopes.Open(ls, parentInst, nil)
	if err != nil {
		return err
	}
	in.engine.instances[instName] = si
	return nil
}

func (in *interpreter) cmdSet(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set VID VALUE")
	}
	id, err := in.resolveVID(args[0])
	if err != nil {
		return err
	}
	val, err := id.Format.Parse(args[1])
	if err != nil {
		return err
	}
	m := modifier.NewSetValue(modifier.PrioritySet, args[1], val, id.Format)
	_, err = in.engine.Manager.AddModifier(ctx, id, m, "script:set")
	return err
}

func (in *interpreter) cmdMod(ctx context.Context, args []string, remove bool) error {
	if len(args) < 5 {
		return fmt.Errorf("usage: mod VID KIND PRIORITY SOURCE EXPR...")
	}
	id, err := in.resolveVID(args[0])
	if err != nil {
		return err
	}
	priority, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid priority %q: %w", args[2], err)
	}
	source := args[3]

	exprArgs := args[4:]
	formulaSi := id.Scope
	if len(exprArgs) > 0 && strings.HasPrefix(exprArgs[0], "in:") {
		instName := strings.TrimPrefix(exprArgs[0], "in:")
		si, ok := in.engine.instances[instName]
		if !ok {
			return fmt.Errorf("unknown scope instance %q", instName)
		}
		formulaSi = si
		exprArgs = exprArgs[1:]
	}
	if len(exprArgs) == 0 {
		return fmt.Errorf("usage: mod VID KIND PRIORITY SOURCE [in:INSTANCE] EXPR...")
	}
	exprText := strings.Join(exprArgs, " ")

	f, err := formula.Compile(exprText, formulaSi, in.engine.Vars, in.engine.Ops, in.engine.Funcs, id.Format)
	if err != nil {
		return err
	}
	deps, err := f.Dependencies(formulaSi, in.engine.Vars, in.engine.Funcs)
	if err != nil {
		return err
	}

	m, err := buildModifier(args[1], priority, exprText, f, deps.Variables, id.Format)
	if err != nil {
		return err
	}
	if formulaSi != id.Scope {
		m = m.WithScope(formulaSi)
	}

	if remove {
		return in.engine.Manager.RemoveModifier(ctx, id, m, source)
	}
	_, err = in.engine.Manager.AddModifier(ctx, id, m, source)
	return err
}

func buildModifier(kind string, priority int, instruction string, f *formula.Formula, deps []vid.ID, resultFmt format.Format) (modifier.Modifier, error) {
	switch kind {
	case "set":
		return modifier.NewSet(priority, instruction, f, deps, resultFmt), nil
	case "add":
		return modifier.NewAdd(priority, instruction, f, deps, resultFmt), nil
	case "subtract":
		return modifier.NewSubtract(priority, instruction, f, deps, resultFmt), nil
	case "multiply":
		return modifier.NewMultiply(priority, instruction, f, deps, resultFmt), nil
	case "divide":
		return modifier.NewDivide(priority, instruction, f, deps, resultFmt), nil
	case "min":
		return modifier.NewMin(priority, instruction, f, deps, resultFmt), nil
	case "max":
		return modifier.NewMax(priority, instruction, f, deps, resultFmt), nil
	default:
		return modifier.Modifier{}, fmt.Errorf("unknown modifier kind %q", kind)
	}
}

func (in *interpreter) cmdPrint(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: print VID")
	}
	id, err := in.resolveVID(args[0])
	if err != nil {
		return err
	}
	v, ok := in.engine.Store.Get(id)
	if !ok {
		fmt.Fprintf(in.out, "%s = <unset>\n", args[0])
		return nil
	}
	text, err := id.Format.Unparse(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "%s = %s\n", args[0], text)
	return nil
}

func (in *interpreter) cmdDiagnose(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: diagnose VID")
	}
	id, err := in.resolveVID(args[0])
	if err != nil {
		return err
	}
	steps, err := in.engine.Manager.Diagnose(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(in.out, "%s:\n", args[0])
	for _, step := range steps {
		text, err := id.Format.Unparse(step.IntermediateValue)
		if err != nil {
			return err
		}
		fmt.Fprintf(in.out, "  [%v] %s -> %s\n", step.Source, step.Instruction, text)
	}
	return nil
}

func (in *interpreter) resolveVID(ref string) (vid.ID, error) {
	instName, name, ok := strings.Cut(ref, ".")
	if !ok {
		return vid.ID{}, fmt.Errorf("invalid variable reference %q, expected INSTANCE.NAME", ref)
	}
	si, ok := in.engine.instances[instName]
	if !ok {
		return vid.ID{}, fmt.Errorf("unknown scope instance %q", instName)
	}
	return in.engine.Vars.IdentifierFor(si, name)
}

func (in *interpreter) resolveFormat(name string) (format.Format, error) {
	if strings.HasPrefix(name, "array<") && strings.HasSuffix(name, ">") {
		inner, err := in.resolveFormat(name[len("array<") : len(name)-1])
		if err != nil {
			return nil, err
		}
		return in.engine.Formats.ArrayOf(inner), nil
	}
	f, ok := in.engine.Formats.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown format %q", name)
	}
	return f, nil
}

