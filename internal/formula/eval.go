package formula

import (
	"context"
	"strconv"

	"github.com/vk/formulacore/internal/ctxlog"
	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/scope"
	"github.com/zclconf/go-cty/cty"
)

// EvalOptions tunes the evaluation pass's deliberate-leniency policy
// (spec.md §9, Open Question: missing-identifier-mid-evaluation). The
// default (zero value) matches the spec's described behavior exactly.
type EvalOptions struct {
	// StrictMissingVariable, when true, turns a Get miss on an Identifier
	// into an error instead of substituting the format's default value.
	StrictMissingVariable bool
}

// EvalContext is the stack-keyed context threaded through the evaluation
// pass (spec.md §4.5): the asserted format, the running input value (used by
// array-component and chained modifiers), the scope instance, and the owner.
// It is passed by value; each recursive call gets its own copy, so there is
// no explicit push/pop to manage — the Go call stack unwinds it for free.
type EvalContext struct {
	Ctx      context.Context
	Asserted format.Format
	Input    cty.Value
	Scope    *scope.Instance
	Owner    any
}

// WithAsserted returns a copy of ctx with a different asserted format.
func (ctx EvalContext) WithAsserted(f format.Format) EvalContext {
	ctx.Asserted = f
	return ctx
}

// WithInput returns a copy of ctx with a different input value.
func (ctx EvalContext) WithInput(v cty.Value) EvalContext {
	ctx.Input = v
	return ctx
}

// WithScope returns a copy of ctx bound to a different scope instance. A
// modifier whose formula was compiled against a scope instance other than
// the VID it is attached to (spec.md S6: a modifier on a Global variable
// whose source lives in a child scope instance) uses this to make
// evaluation re-resolve identifiers against that same instance rather than
// the VID's own scope.
func (ctx EvalContext) WithScope(si *scope.Instance) EvalContext {
	ctx.Scope = si
	return ctx
}

// EvalVisitor implements the evaluation pass (spec.md §4.5). It reuses a
// SemanticVisitor internally to recover operand formats where the evaluation
// rules need them (picking an operator action), rather than trying to infer a
// format back out of a bare cty.Value — the same lookup/operator/function
// collaborators drive both passes, so re-deriving a subtree's format this way
// always agrees with what the semantic pass already validated.
type EvalVisitor struct {
	Vars      ValueReader
	Library   VariableResolver
	Operators OperatorLibrary
	Functions FunctionLibrary
	Options   EvalOptions
}

// NewEvalVisitor constructs an evaluation visitor bound to collaborators.
func NewEvalVisitor(vars ValueReader, lib VariableResolver, ops OperatorLibrary, funcs FunctionLibrary, opts EvalOptions) *EvalVisitor {
	return &EvalVisitor{Vars: vars, Library: lib, Operators: ops, Functions: funcs, Options: opts}
}

func (v *EvalVisitor) semanticIn(si *scope.Instance) *SemanticVisitor {
	return NewSemanticVisitor(si, v.Library, v.Operators, v.Functions)
}

// Eval computes n's value under ctx. Callers are expected to have already
// run SemanticVisitor.Check over the same tree (spec.md §4.5); Eval does not
// redo format *validation*, only the lookups it needs to pick operator
// actions and defaults.
func (v *EvalVisitor) Eval(n Node, ctx EvalContext) (cty.Value, error) {
	switch node := n.(type) {
	case RootNode:
		return v.Eval(node.Child, ctx)

	case ParenNode:
		return v.Eval(node.Child, ctx)

	case BinaryNode:
		sem := v.semanticIn(ctx.Scope)
		leftFmt, err := sem.Check(node.Left, nil)
		if err != nil {
			return cty.NilVal, err
		}
		rightFmt, err := sem.Check(node.Right, nil)
		if err != nil {
			return cty.NilVal, err
		}
		left, err := v.Eval(node.Left, ctx.WithAsserted(nil))
		if err != nil {
			return cty.NilVal, err
		}
		right, err := v.Eval(node.Right, ctx.WithAsserted(nil))
		if err != nil {
			return cty.NilVal, err
		}
		for _, action := range v.Operators.BinaryActions(node.Op) {
			if _, ok := action.AbstractEvaluate(leftFmt, rightFmt); ok {
				return action.Evaluate(left, right)
			}
		}
		return cty.NilVal, errAt(BadOperand, node, "operator %q has no action accepting (%s, %s)", node.Op, leftFmt.Name(), rightFmt.Name())

	case UnaryNode:
		sem := v.semanticIn(ctx.Scope)
		operandFmt, err := sem.Check(node.Operand, nil)
		if err != nil {
			return cty.NilVal, err
		}
		operand, err := v.Eval(node.Operand, ctx.WithAsserted(nil))
		if err != nil {
			return cty.NilVal, err
		}
		for _, action := range v.Operators.UnaryActions(node.Op) {
			if _, ok := action.AbstractEvaluate(operandFmt); ok {
				return action.Evaluate(operand)
			}
		}
		return cty.NilVal, errAt(BadOperand, node, "unary operator %q has no action accepting %s", node.Op, operandFmt.Name())

	case NumberNode:
		if i, err := strconv.ParseInt(node.Text, 10, 64); err == nil {
			return cty.NumberIntVal(i), nil
		}
		if f, err := strconv.ParseFloat(node.Text, 64); err == nil {
			return cty.NumberFloatVal(f), nil
		}
		return cty.NilVal, errAt(BadNumber, node, "%q is not a valid number", node.Text)

	case QuotedStringNode:
		return cty.StringVal(node.Value), nil

	case IdentifierNode:
		id, err := v.Library.IdentifierFor(ctx.Scope, node.Name)
		if err != nil {
			return cty.NilVal, errAt(UnknownVariable, node, "%v", err)
		}
		val, ok := v.Vars.Get(id)
		if ok {
			return val, nil
		}
		if v.Options.StrictMissingVariable {
			return cty.NilVal, errAt(UnknownVariable, node, "variable %s has no value yet", id)
		}
		ctxlog.FromContext(ctx.Ctx).Warn("evaluating unset variable, substituting default", "variable", id.String())
		def, hasDefault := id.Format.Default()
		if !hasDefault {
			return cty.NilVal, errAt(InvariantViolation, node, "variable %s is unset and format %s has no default", id, id.Format.Name())
		}
		return def, nil

	case FunctionLookupNode:
		fn, ok := v.Functions.Lookup(node.Name)
		if !ok {
			return cty.NilVal, errAt(BadFormula, node, "unknown function %q", node.Name)
		}
		return fn.Evaluate(v, ctx, node.Args.Args, ctx.Asserted)

	case FunctionParenNode, FunctionBracketNode:
		return cty.NilVal, errAt(InvariantViolation, n, "structural node reached the evaluation pass directly")

	default:
		return cty.NilVal, errAt(InvariantViolation, n, "unhandled node kind %T", n)
	}
}
