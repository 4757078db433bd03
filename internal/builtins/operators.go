// Package builtins registers the default OperatorAction and Function
// collaborators spec.md §6 requires: the arithmetic/relational/logical
// operator set and the abs/min/max/if/arg/length function set.
//
// Grounded on the teacher's internal/registry package idiom (named
// registration of handlers into a lookup map), generalized here into two
// small OperatorLibrary/FunctionLibrary implementations rather than a single
// flat registry, matching the two distinct collaborator shapes spec.md §6
// defines.
package builtins

import (
	"errors"
	"math"
	"math/big"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/formula"
	"github.com/zclconf/go-cty/cty"
)

// ErrDivideByZero is returned by the '%' operator action when the divisor is
// zero.
var ErrDivideByZero = errors.New("builtins: modulo by zero")

// numberAction implements OperatorAction for a binary operator over two
// number-format operands (integer or real), with a fixed result format.
type numberAction struct {
	op     string
	result format.Format
	eval   func(l, r *big.Float) (cty.Value, error)
}

func (a numberAction) Operator() string { return a.op }

func isNumberFormat(f format.Format) bool {
	return f != nil && (f.Name() == format.Integer.Name() || f.Name() == format.Real.Name())
}

func (a numberAction) AbstractEvaluate(left, right format.Format) (format.Format, bool) {
	if !isNumberFormat(left) || !isNumberFormat(right) {
		return nil, false
	}
	return a.result, true
}

func (a numberAction) Evaluate(left, right cty.Value) (cty.Value, error) {
	return a.eval(left.AsBigFloat(), right.AsBigFloat())
}

// arithmeticResultFormat returns Integer if both operands are integer,
// otherwise Real — the usual numeric-tower widening rule.
func arithmeticResultFormat(left, right format.Format) format.Format {
	if left.Name() == format.Integer.Name() && right.Name() == format.Integer.Name() {
		return format.Integer
	}
	return format.Real
}

// widenAction is like numberAction but its result format depends on the
// operand formats (arithmetic widening) rather than being fixed.
type widenAction struct {
	op   string
	eval func(l, r *big.Float) (cty.Value, error)
}

func (a widenAction) Operator() string { return a.op }

func (a widenAction) AbstractEvaluate(left, right format.Format) (format.Format, bool) {
	if !isNumberFormat(left) || !isNumberFormat(right) {
		return nil, false
	}
	return arithmeticResultFormat(left, right), true
}

func (a widenAction) Evaluate(left, right cty.Value) (cty.Value, error) {
	return a.eval(left.AsBigFloat(), right.AsBigFloat())
}

type boolBinaryAction struct {
	op   string
	eval func(l, r bool) bool
}

func (a boolBinaryAction) Operator() string { return a.op }

func (a boolBinaryAction) AbstractEvaluate(left, right format.Format) (format.Format, bool) {
	if left == nil || right == nil || left.Name() != format.Boolean.Name() || right.Name() != format.Boolean.Name() {
		return nil, false
	}
	return format.Boolean, true
}

func (a boolBinaryAction) Evaluate(left, right cty.Value) (cty.Value, error) {
	if a.eval(left.True(), right.True()) {
		return cty.True, nil
	}
	return cty.False, nil
}

type equalityAction struct {
	op      string
	negated bool
}

func (a equalityAction) Operator() string { return a.op }

func (a equalityAction) AbstractEvaluate(left, right format.Format) (format.Format, bool) {
	if left == nil || right == nil {
		return nil, false
	}
	if isNumberFormat(left) && isNumberFormat(right) {
		return format.Boolean, true
	}
	if left.Name() == right.Name() {
		return format.Boolean, true
	}
	return nil, false
}

func (a equalityAction) Evaluate(left, right cty.Value) (cty.Value, error) {
	eq := left.RawEquals(right)
	if a.negated {
		eq = !eq
	}
	if eq {
		return cty.True, nil
	}
	return cty.False, nil
}

// unaryNegAction implements unary '-': integer stays integer, anything else
// numeric becomes real (spec.md §4.5, "Unary -: if operand is integer,
// returns integer negation; else real negation").
type unaryNegAction struct{}

func (unaryNegAction) Operator() string { return "-" }

func (unaryNegAction) AbstractEvaluate(operand format.Format) (format.Format, bool) {
	if !isNumberFormat(operand) {
		return nil, false
	}
	if operand.Name() == format.Integer.Name() {
		return format.Integer, true
	}
	return format.Real, true
}

func (unaryNegAction) Evaluate(operand cty.Value) (cty.Value, error) {
	neg := new(big.Float).Neg(operand.AsBigFloat())
	return cty.NumberVal(neg), nil
}

type unaryNotAction struct{}

func (unaryNotAction) Operator() string { return "!" }

func (unaryNotAction) AbstractEvaluate(operand format.Format) (format.Format, bool) {
	if operand == nil || operand.Name() != format.Boolean.Name() {
		return nil, false
	}
	return format.Boolean, true
}

func (unaryNotAction) Evaluate(operand cty.Value) (cty.Value, error) {
	if operand.True() {
		return cty.False, nil
	}
	return cty.True, nil
}

// Operators is the default OperatorLibrary: the full set spec.md §6 names
// (+ - * / % ^ < > <= >= == != && || and unary - !).
type Operators struct {
	binary map[string][]formula.OperatorAction
	unary  map[string][]formula.UnaryOperatorAction
}

// NewOperators builds the default operator library.
func NewOperators() *Operators {
	o := &Operators{
		binary: make(map[string][]formula.OperatorAction),
		unary:  make(map[string][]formula.UnaryOperatorAction),
	}

	addBig := func(op string, fn func(l, r *big.Float) (cty.Value, error)) {
		o.binary[op] = append(o.binary[op], widenAction{op: op, eval: fn})
	}
	addBig("+", func(l, r *big.Float) (cty.Value, error) { return cty.NumberVal(new(big.Float).Add(l, r)), nil })
	addBig("-", func(l, r *big.Float) (cty.Value, error) { return cty.NumberVal(new(big.Float).Sub(l, r)), nil })
	addBig("*", func(l, r *big.Float) (cty.Value, error) { return cty.NumberVal(new(big.Float).Mul(l, r)), nil })
	addBig("/", func(l, r *big.Float) (cty.Value, error) { return cty.NumberVal(new(big.Float).Quo(l, r)), nil })
	addBig("%", func(l, r *big.Float) (cty.Value, error) {
		li, _ := l.Int64()
		ri, _ := r.Int64()
		if ri == 0 {
			return cty.NilVal, ErrDivideByZero
		}
		return cty.NumberIntVal(li % ri), nil
	})
	addBig("^", func(l, r *big.Float) (cty.Value, error) {
		lf, _ := l.Float64()
		rf, _ := r.Float64()
		return cty.NumberFloatVal(math.Pow(lf, rf)), nil
	})

	cmp := func(op string, fn func(c int) bool) {
		o.binary[op] = append(o.binary[op], numberAction{op: op, result: format.Boolean, eval: func(l, r *big.Float) (cty.Value, error) {
			if fn(l.Cmp(r)) {
				return cty.True, nil
			}
			return cty.False, nil
		}})
	}
	cmp("<", func(c int) bool { return c < 0 })
	cmp(">", func(c int) bool { return c > 0 })
	cmp("<=", func(c int) bool { return c <= 0 })
	cmp(">=", func(c int) bool { return c >= 0 })

	o.binary["=="] = append(o.binary["=="], equalityAction{op: "==", negated: false})
	o.binary["!="] = append(o.binary["!="], equalityAction{op: "!=", negated: true})

	o.binary["&&"] = append(o.binary["&&"], boolBinaryAction{op: "&&", eval: func(l, r bool) bool { return l && r }})
	o.binary["||"] = append(o.binary["||"], boolBinaryAction{op: "||", eval: func(l, r bool) bool { return l || r }})

	o.unary["-"] = append(o.unary["-"], unaryNegAction{})
	o.unary["!"] = append(o.unary["!"], unaryNotAction{})

	return o
}

func (o *Operators) BinaryActions(op string) []formula.OperatorAction     { return o.binary[op] }
func (o *Operators) UnaryActions(op string) []formula.UnaryOperatorAction { return o.unary[op] }
