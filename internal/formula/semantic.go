package formula

import (
	"strconv"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/scope"
)

// SemanticVisitor implements the semantic pass (spec.md §4.5): it walks the
// tree with an inherited "asserted format" attribute and returns a result
// format per node, or a failure.
type SemanticVisitor struct {
	Scope     *scope.Instance
	Vars      VariableResolver
	Operators OperatorLibrary
	Functions FunctionLibrary
}

// NewSemanticVisitor constructs a semantic visitor bound to the given scope
// instance and collaborators.
func NewSemanticVisitor(si *scope.Instance, vars VariableResolver, ops OperatorLibrary, funcs FunctionLibrary) *SemanticVisitor {
	return &SemanticVisitor{Scope: si, Vars: vars, Operators: ops, Functions: funcs}
}

// Check validates n and returns its result format. asserted may be nil if
// the caller has no expectation.
func (v *SemanticVisitor) Check(n Node, asserted format.Format) (format.Format, error) {
	switch node := n.(type) {
	case RootNode:
		result, err := v.Check(node.Child, asserted)
		if err != nil {
			return nil, err
		}
		return v.enforceAsserted(node, result, asserted)

	case ParenNode:
		return v.Check(node.Child, asserted)

	case BinaryNode:
		leftFmt, err := v.Check(node.Left, nil)
		if err != nil {
			return nil, err
		}
		rightFmt, err := v.Check(node.Right, nil)
		if err != nil {
			return nil, err
		}
		for _, action := range v.Operators.BinaryActions(node.Op) {
			if result, ok := action.AbstractEvaluate(leftFmt, rightFmt); ok {
				return v.enforceAsserted(node, result, asserted)
			}
		}
		return nil, errAt(BadOperand, node, "operator %q has no action accepting (%s, %s)", node.Op, leftFmt.Name(), rightFmt.Name())

	case UnaryNode:
		operandFmt, err := v.Check(node.Operand, nil)
		if err != nil {
			return nil, err
		}
		for _, action := range v.Operators.UnaryActions(node.Op) {
			if result, ok := action.AbstractEvaluate(operandFmt); ok {
				return v.enforceAsserted(node, result, asserted)
			}
		}
		return nil, errAt(BadOperand, node, "unary operator %q has no action accepting %s", node.Op, operandFmt.Name())

	case NumberNode:
		if _, err := strconv.ParseInt(node.Text, 10, 64); err == nil {
			return format.Integer, nil
		}
		if _, err := strconv.ParseFloat(node.Text, 64); err == nil {
			return format.Real, nil
		}
		return nil, errAt(BadNumber, node, "%q is not a valid number", node.Text)

	case QuotedStringNode:
		return format.String, nil

	case IdentifierNode:
		id, err := v.Vars.IdentifierFor(v.Scope, node.Name)
		if err != nil {
			return nil, errAt(UnknownVariable, node, "%v", err)
		}
		return id.Format, nil

	case FunctionLookupNode:
		fn, ok := v.Functions.Lookup(node.Name)
		if !ok {
			return nil, errAt(BadFormula, node, "unknown function %q", node.Name)
		}
		result, err := fn.CheckSemantics(v, node.Args.Args, asserted)
		if err != nil {
			return nil, err
		}
		return result, nil

	case FunctionParenNode, FunctionBracketNode:
		return nil, errAt(InvariantViolation, n, "structural node reached the semantic pass directly")

	default:
		return nil, errAt(InvariantViolation, n, "unhandled node kind %T", n)
	}
}

func (v *SemanticVisitor) enforceAsserted(n Node, result, asserted format.Format) (format.Format, error) {
	if asserted == nil || result == nil {
		return result, nil
	}
	if result.IsSubformatOf(asserted) {
		return result, nil
	}
	return nil, errAt(BadFormula, n, "expected format %s, got %s", asserted.Name(), result.Name())
}
