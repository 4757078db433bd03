// Package modifier implements the modifier stack (C6): a value type for one
// priority-ranked unit of computation over a variable, and the per-VID
// ordered Solver that applies a stack of them (spec.md §4.6).
//
// Grounded on original_source/PCGen-Formula's pcgen.base.solver package for
// the default priority table (Set < Add/Subtract < Multiply/Divide <
// Min/Max) and the "running value threaded as each step's input" process
// shape; there is no teacher-repo equivalent (burstgridgo has no notion of a
// per-node priority-ranked modifier chain), so this package is grounded
// directly on the original source rather than the teacher (see DESIGN.md).
package modifier

import (
	"math/big"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/formula"
	"github.com/vk/formulacore/internal/scope"
	"github.com/vk/formulacore/internal/vid"
	"github.com/zclconf/go-cty/cty"
)

// Default priorities per kind (spec.md §4.6: "Priorities ordered so that
// sets precede additive operations which precede multiplicative operations
// which precede min/max").
const (
	PrioritySet      = 0
	PriorityAdd      = 100
	PrioritySubtract = 100
	PriorityMultiply = 200
	PriorityDivide   = 200
	PriorityMin      = 300
	PriorityMax      = 300
)

type kind int

const (
	kindSet kind = iota
	kindAdd
	kindSubtract
	kindMultiply
	kindDivide
	kindMin
	kindMax
	kindArrayComponent
)

// Modifier is a unit of computation that, given an input value of format F
// and an evaluation context, returns a new value of format F (spec.md §4.6).
// Modifiers are value-equal on (Priority, Instruction, Format) — see Equal.
type Modifier struct {
	Priority     int
	Instruction  string
	Dependencies []vid.ID
	Format       format.Format

	kind     kind
	operand  *formula.Formula // formula-evaluated operand; nil if constant or kindArrayComponent
	constant cty.Value        // constant operand; valid iff operand == nil and hasConstant
	hasConstant bool
	index   int       // kindArrayComponent only
	inner   *Modifier // kindArrayComponent only

	// scope, if set, overrides the scope instance the operand formula's
	// identifiers resolve against during Apply, in place of whatever scope
	// the caller's EvalContext carries (spec.md S6: a modifier attached to a
	// variable in one scope instance whose own formula was written, and must
	// resolve names, against a different instance). See WithScope.
	scope *scope.Instance
}

// WithScope returns a copy of m bound to resolve its operand formula's
// identifiers against si instead of whatever scope the caller's EvalContext
// carries. Constant modifiers (NewSetValue and friends) are unaffected since
// they have no formula to resolve names in.
func (m Modifier) WithScope(si *scope.Instance) Modifier {
	m.scope = si
	return m
}

// Equal reports value equality on (Priority, Instruction, Format) per
// spec.md §4.6.
func (m Modifier) Equal(other Modifier) bool {
	if m.Priority != other.Priority || m.Instruction != other.Instruction {
		return false
	}
	if m.Format == nil || other.Format == nil {
		return m.Format == other.Format
	}
	return m.Format.Name() == other.Format.Name()
}

// NewSet builds a Set modifier: ignores input, returns operand's evaluated
// value (spec.md §4.6).
func NewSet(priority int, instruction string, operand *formula.Formula, deps []vid.ID, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Dependencies: deps, Format: f, kind: kindSet, operand: operand}
}

// NewAdd builds an Add modifier: result = input + operand.
func NewAdd(priority int, instruction string, operand *formula.Formula, deps []vid.ID, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Dependencies: deps, Format: f, kind: kindAdd, operand: operand}
}

// NewSubtract builds a Subtract modifier: result = input - operand.
func NewSubtract(priority int, instruction string, operand *formula.Formula, deps []vid.ID, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Dependencies: deps, Format: f, kind: kindSubtract, operand: operand}
}

// NewMultiply builds a Multiply modifier: result = input * operand.
func NewMultiply(priority int, instruction string, operand *formula.Formula, deps []vid.ID, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Dependencies: deps, Format: f, kind: kindMultiply, operand: operand}
}

// NewDivide builds a Divide modifier: result = input / operand.
func NewDivide(priority int, instruction string, operand *formula.Formula, deps []vid.ID, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Dependencies: deps, Format: f, kind: kindDivide, operand: operand}
}

// NewMin builds a Min modifier: result = min(input, operand).
func NewMin(priority int, instruction string, operand *formula.Formula, deps []vid.ID, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Dependencies: deps, Format: f, kind: kindMin, operand: operand}
}

// NewMax builds a Max modifier: result = max(input, operand).
func NewMax(priority int, instruction string, operand *formula.Formula, deps []vid.ID, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Dependencies: deps, Format: f, kind: kindMax, operand: operand}
}

// NewSetValue builds a Set modifier from a constant value rather than a
// formula (spec.md §4.6: Set "returns a constant or formula-evaluated
// value").
func NewSetValue(priority int, instruction string, value cty.Value, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Format: f, kind: kindSet, constant: value, hasConstant: true}
}

// NewAddValue builds an Add modifier from a constant operand.
func NewAddValue(priority int, instruction string, value cty.Value, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Format: f, kind: kindAdd, constant: value, hasConstant: true}
}

// NewSubtractValue builds a Subtract modifier from a constant operand.
func NewSubtractValue(priority int, instruction string, value cty.Value, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Format: f, kind: kindSubtract, constant: value, hasConstant: true}
}

// NewMultiplyValue builds a Multiply modifier from a constant operand.
func NewMultiplyValue(priority int, instruction string, value cty.Value, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Format: f, kind: kindMultiply, constant: value, hasConstant: true}
}

// NewDivideValue builds a Divide modifier from a constant operand.
func NewDivideValue(priority int, instruction string, value cty.Value, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Format: f, kind: kindDivide, constant: value, hasConstant: true}
}

// NewMinValue builds a Min modifier from a constant operand.
func NewMinValue(priority int, instruction string, value cty.Value, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Format: f, kind: kindMin, constant: value, hasConstant: true}
}

// NewMaxValue builds a Max modifier from a constant operand.
func NewMaxValue(priority int, instruction string, value cty.Value, f format.Format) Modifier {
	return Modifier{Priority: priority, Instruction: instruction, Format: f, kind: kindMax, constant: value, hasConstant: true}
}

// NewArrayComponent wraps inner (a modifier over the array's element format)
// to act only on position k of an array-of-T (spec.md §4.6). If the target
// array has length <= k at evaluation time, Apply is a no-op. Otherwise it
// copies the array, pushes input[k] as the inner evaluation's input, runs
// inner, and stores the result back at position k.
func NewArrayComponent(k int, inner Modifier, arrayFormat format.Format) Modifier {
	return Modifier{
		Priority:     inner.Priority,
		Instruction:  inner.Instruction,
		Dependencies: inner.Dependencies,
		Format:       arrayFormat,
		kind:         kindArrayComponent,
		index:        k,
		inner:        &inner,
	}
}

// Apply computes the modifier's result for the given running input value.
// ctx.Input is ignored on the way in (Apply sets it from input itself before
// evaluating the operand); ctx.Owner passes through unchanged, and ctx.Scope
// does too unless m carries its own scope override (see WithScope).
func (m Modifier) Apply(input cty.Value, ctx formula.EvalContext, ev *formula.EvalVisitor) (cty.Value, error) {
	stepCtx := ctx.WithInput(input)
	if m.scope != nil {
		stepCtx = stepCtx.WithScope(m.scope)
	}

	switch m.kind {
	case kindSet:
		return m.evalOperand(stepCtx, ev)

	case kindAdd, kindSubtract, kindMultiply, kindDivide, kindMin, kindMax:
		operand, err := m.evalOperand(stepCtx, ev)
		if err != nil {
			return cty.NilVal, err
		}
		return combineNumeric(m.kind, input, operand)

	case kindArrayComponent:
		return m.applyArrayComponent(input, ctx, ev)

	default:
		return cty.NilVal, &InvariantViolationError{Reason: "unhandled modifier kind"}
	}
}

// evalOperand returns the modifier's operand value: the constant if one was
// supplied at construction, otherwise the formula evaluated in stepCtx
// (spec.md §4.6: every non-array-component kind takes "a constant or
// formula-evaluated operand").
func (m Modifier) evalOperand(stepCtx formula.EvalContext, ev *formula.EvalVisitor) (cty.Value, error) {
	if m.hasConstant {
		return m.constant, nil
	}
	return m.operand.Evaluate(ev, stepCtx)
}

func (m Modifier) applyArrayComponent(input cty.Value, ctx formula.EvalContext, ev *formula.EvalVisitor) (cty.Value, error) {
	if !input.CanIterateElements() {
		return cty.NilVal, &InvariantViolationError{Reason: "array-component modifier applied to a non-array value"}
	}
	elems := elementSlice(input)
	if m.index >= len(elems) {
		return input, nil
	}
	innerResult, err := m.inner.Apply(elems[m.index], ctx, ev)
	if err != nil {
		return cty.NilVal, err
	}
	out := make([]cty.Value, len(elems))
	copy(out, elems)
	out[m.index] = innerResult
	if len(out) == 0 {
		return cty.ListValEmpty(input.Type().ElementType()), nil
	}
	return cty.ListVal(out), nil
}

func elementSlice(v cty.Value) []cty.Value {
	out := make([]cty.Value, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		out = append(out, ev)
	}
	return out
}

func combineNumeric(k kind, input, operand cty.Value) (cty.Value, error) {
	l := input.AsBigFloat()
	r := operand.AsBigFloat()
	switch k {
	case kindAdd:
		return cty.NumberVal(new(big.Float).Add(l, r)), nil
	case kindSubtract:
		return cty.NumberVal(new(big.Float).Sub(l, r)), nil
	case kindMultiply:
		return cty.NumberVal(new(big.Float).Mul(l, r)), nil
	case kindDivide:
		if r.Sign() == 0 {
			return cty.NilVal, &InvariantViolationError{Reason: "divide modifier by zero"}
		}
		return cty.NumberVal(new(big.Float).Quo(l, r)), nil
	case kindMin:
		if l.Cmp(r) <= 0 {
			return input, nil
		}
		return operand, nil
	case kindMax:
		if l.Cmp(r) >= 0 {
			return input, nil
		}
		return operand, nil
	default:
		return cty.NilVal, &InvariantViolationError{Reason: "combineNumeric called with a non-numeric kind"}
	}
}

// InvariantViolationError signals a state the modifier stack's own
// invariants should have prevented from occurring.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string { return "modifier: invariant violation: " + e.Reason }
