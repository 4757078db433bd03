package builtins

import (
	"fmt"
	"math/big"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/formula"
	"github.com/zclconf/go-cty/cty"
)

// Functions is the default FunctionLibrary: abs, min, max, if, arg, length
// (spec.md §6, "Built-in examples to include").
type Functions struct {
	byName map[string]formula.Function
}

// NewFunctions builds the default function library.
func NewFunctions() *Functions {
	fns := []formula.Function{
		absFunc{}, minFunc, maxFunc, ifFunc{}, argFunc{}, lengthFunc{},
	}
	f := &Functions{byName: make(map[string]formula.Function, len(fns))}
	for _, fn := range fns {
		f.byName[fn.Name()] = fn
	}
	return f
}

func (f *Functions) Lookup(name string) (formula.Function, bool) {
	fn, ok := f.byName[name]
	return fn, ok
}

func argCountError(name string, want string, got int) error {
	return fmt.Errorf("builtins: %s expects %s argument(s), got %d", name, want, got)
}

// absFunc: abs(x) -> |x|, preserving x's numeric format.
type absFunc struct{}

func (absFunc) Name() string { return "abs" }

func (absFunc) CheckSemantics(v *formula.SemanticVisitor, args []formula.Node, asserted format.Format) (format.Format, error) {
	if len(args) != 1 {
		return nil, argCountError("abs", "1", len(args))
	}
	argFmt, err := v.Check(args[0], nil)
	if err != nil {
		return nil, err
	}
	if !isNumberFormat(argFmt) {
		return nil, fmt.Errorf("builtins: abs expects a numeric argument, got %s", argFmt.Name())
	}
	return argFmt, nil
}

func (absFunc) GetDependencies(v *formula.DependencyVisitor, deps *formula.DependencyManager, args []formula.Node) error {
	if len(args) != 1 {
		return argCountError("abs", "1", len(args))
	}
	return v.Walk(args[0], deps)
}

func (absFunc) Evaluate(v *formula.EvalVisitor, ctx formula.EvalContext, args []formula.Node, asserted format.Format) (cty.Value, error) {
	if len(args) != 1 {
		return cty.NilVal, argCountError("abs", "1", len(args))
	}
	val, err := v.Eval(args[0], ctx.WithAsserted(nil))
	if err != nil {
		return cty.NilVal, err
	}
	return cty.NumberVal(new(big.Float).Abs(val.AsBigFloat())), nil
}

// minFunc / maxFunc: min(a, b, ...) / max(a, b, ...) over 1+ numeric args.
type minMaxFunc struct {
	name string
	pick func(c int) bool // given Cmp(candidate, best), does candidate win?
}

func (f minMaxFunc) Name() string { return f.name }

func (f minMaxFunc) CheckSemantics(v *formula.SemanticVisitor, args []formula.Node, asserted format.Format) (format.Format, error) {
	if len(args) == 0 {
		return nil, argCountError(f.name, "at least 1", 0)
	}
	result := format.Integer
	for _, a := range args {
		argFmt, err := v.Check(a, nil)
		if err != nil {
			return nil, err
		}
		if !isNumberFormat(argFmt) {
			return nil, fmt.Errorf("builtins: %s expects numeric arguments, got %s", f.name, argFmt.Name())
		}
		if argFmt.Name() == format.Real.Name() {
			result = format.Real
		}
	}
	return result, nil
}

func (f minMaxFunc) GetDependencies(v *formula.DependencyVisitor, deps *formula.DependencyManager, args []formula.Node) error {
	for _, a := range args {
		if err := v.Walk(a, deps); err != nil {
			return err
		}
	}
	return nil
}

func (f minMaxFunc) Evaluate(v *formula.EvalVisitor, ctx formula.EvalContext, args []formula.Node, asserted format.Format) (cty.Value, error) {
	if len(args) == 0 {
		return cty.NilVal, argCountError(f.name, "at least 1", 0)
	}
	var best *big.Float
	for _, a := range args {
		val, err := v.Eval(a, ctx.WithAsserted(nil))
		if err != nil {
			return cty.NilVal, err
		}
		cand := val.AsBigFloat()
		if best == nil || f.pick(cand.Cmp(best)) {
			best = cand
		}
	}
	return cty.NumberVal(best), nil
}

var minFunc = minMaxFunc{name: "min", pick: func(c int) bool { return c < 0 }}
var maxFunc = minMaxFunc{name: "max", pick: func(c int) bool { return c > 0 }}

// ifFunc: if(cond, thenVal, elseVal) -> thenVal or elseVal, whichever format
// the chosen branch has.
type ifFunc struct{}

func (ifFunc) Name() string { return "if" }

func (ifFunc) CheckSemantics(v *formula.SemanticVisitor, args []formula.Node, asserted format.Format) (format.Format, error) {
	if len(args) != 3 {
		return nil, argCountError("if", "3", len(args))
	}
	condFmt, err := v.Check(args[0], format.Boolean)
	if err != nil {
		return nil, err
	}
	if condFmt.Name() != format.Boolean.Name() {
		return nil, fmt.Errorf("builtins: if condition must be boolean, got %s", condFmt.Name())
	}
	thenFmt, err := v.Check(args[1], asserted)
	if err != nil {
		return nil, err
	}
	if _, err := v.Check(args[2], asserted); err != nil {
		return nil, err
	}
	return thenFmt, nil
}

func (ifFunc) GetDependencies(v *formula.DependencyVisitor, deps *formula.DependencyManager, args []formula.Node) error {
	if len(args) != 3 {
		return argCountError("if", "3", len(args))
	}
	// Both branches are potential dependencies regardless of which the
	// evaluator ultimately takes, so propagation stays correct if the
	// condition later flips.
	for _, a := range args {
		if err := v.Walk(a, deps); err != nil {
			return err
		}
	}
	return nil
}

func (ifFunc) Evaluate(v *formula.EvalVisitor, ctx formula.EvalContext, args []formula.Node, asserted format.Format) (cty.Value, error) {
	if len(args) != 3 {
		return cty.NilVal, argCountError("if", "3", len(args))
	}
	cond, err := v.Eval(args[0], ctx.WithAsserted(format.Boolean))
	if err != nil {
		return cty.NilVal, err
	}
	if cond.True() {
		return v.Eval(args[1], ctx.WithAsserted(asserted))
	}
	return v.Eval(args[2], ctx.WithAsserted(asserted))
}

// argFunc: arg(n) reads the n-th macro argument. It has no subtree to
// recurse into; its only effect is widening DependencyManager.Arguments and,
// at evaluation time, reading from the owner-supplied argument list carried
// on EvalContext.Owner.
type argFunc struct{}

func (argFunc) Name() string { return "arg" }

func (argFunc) CheckSemantics(v *formula.SemanticVisitor, args []formula.Node, asserted format.Format) (format.Format, error) {
	if len(args) != 1 {
		return nil, argCountError("arg", "1", len(args))
	}
	return format.Real, nil
}

func (argFunc) GetDependencies(v *formula.DependencyVisitor, deps *formula.DependencyManager, args []formula.Node) error {
	if len(args) != 1 {
		return argCountError("arg", "1", len(args))
	}
	n, ok := constantArgIndex(args[0])
	if !ok {
		return fmt.Errorf("builtins: arg(n) requires a literal integer index")
	}
	deps.NoteArgument(n)
	return nil
}

func (argFunc) Evaluate(v *formula.EvalVisitor, ctx formula.EvalContext, args []formula.Node, asserted format.Format) (cty.Value, error) {
	if len(args) != 1 {
		return cty.NilVal, argCountError("arg", "1", len(args))
	}
	n, ok := constantArgIndex(args[0])
	if !ok {
		return cty.NilVal, fmt.Errorf("builtins: arg(n) requires a literal integer index")
	}
	owner, ok := ctx.Owner.([]cty.Value)
	if !ok || n < 0 || n >= len(owner) {
		return cty.NilVal, fmt.Errorf("builtins: arg(%d) is out of range for this macro invocation", n)
	}
	return owner[n], nil
}

// constantArgIndex extracts the literal integer index from arg(n)'s sole
// argument; the grammar only allows a number literal there in practice.
func constantArgIndex(n formula.Node) (int, bool) {
	num, ok := n.(formula.NumberNode)
	if !ok {
		return 0, false
	}
	var i int
	if _, err := fmt.Sscanf(num.Text, "%d", &i); err != nil {
		return 0, false
	}
	return i, true
}

// lengthFunc: length(arr) -> integer element count of an array-format value.
type lengthFunc struct{}

func (lengthFunc) Name() string { return "length" }

func (lengthFunc) CheckSemantics(v *formula.SemanticVisitor, args []formula.Node, asserted format.Format) (format.Format, error) {
	if len(args) != 1 {
		return nil, argCountError("length", "1", len(args))
	}
	argFmt, err := v.Check(args[0], nil)
	if err != nil {
		return nil, err
	}
	if format.ElementFormat(argFmt) == nil {
		return nil, fmt.Errorf("builtins: length expects an array argument, got %s", argFmt.Name())
	}
	return format.Integer, nil
}

func (lengthFunc) GetDependencies(v *formula.DependencyVisitor, deps *formula.DependencyManager, args []formula.Node) error {
	if len(args) != 1 {
		return argCountError("length", "1", len(args))
	}
	return v.Walk(args[0], deps)
}

func (lengthFunc) Evaluate(v *formula.EvalVisitor, ctx formula.EvalContext, args []formula.Node, asserted format.Format) (cty.Value, error) {
	if len(args) != 1 {
		return cty.NilVal, argCountError("length", "1", len(args))
	}
	val, err := v.Eval(args[0], ctx.WithAsserted(nil))
	if err != nil {
		return cty.NilVal, err
	}
	if !val.CanIterateElements() {
		return cty.NilVal, fmt.Errorf("builtins: length expects an array value")
	}
	return cty.NumberIntVal(int64(val.LengthInt())), nil
}
