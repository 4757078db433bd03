package formula

import (
	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/scope"
	"github.com/vk/formulacore/internal/vid"
	"github.com/zclconf/go-cty/cty"
)

// OperatorAction is the injected collaborator contract for one possible
// implementation of a binary or unary operator (spec.md §6). Multiple
// actions may exist per operator; the evaluator/semantic pass picks the
// first whose AbstractEvaluate succeeds.
type OperatorAction interface {
	// Operator returns the operator token this action implements, e.g. "+".
	Operator() string

	// AbstractEvaluate returns the result format for the given operand
	// formats, or (nil, false) if this action does not apply to them.
	AbstractEvaluate(left, right format.Format) (format.Format, bool)

	// Evaluate computes the result for concrete operand values. Only called
	// after AbstractEvaluate has accepted the operand formats.
	Evaluate(left, right cty.Value) (cty.Value, error)
}

// UnaryOperatorAction is the single-operand analogue of OperatorAction.
type UnaryOperatorAction interface {
	Operator() string
	AbstractEvaluate(operand format.Format) (format.Format, bool)
	Evaluate(operand cty.Value) (cty.Value, error)
}

// VariableResolver resolves a name within a scope instance to a VID. It is
// satisfied by *varlib.Library; formula does not import varlib directly so
// that varlib (and the scope/format packages it composes) can depend on
// formula's types without a cycle should that ever be useful, and so formula
// stays a pure leaf of the visitor passes.
type VariableResolver interface {
	IdentifierFor(si *scope.Instance, name string) (vid.ID, error)
}

// ValueReader is the read side of the variable store, needed by the
// evaluation pass to resolve Identifier nodes.
type ValueReader interface {
	Get(id vid.ID) (cty.Value, bool)
}

// OperatorLibrary looks up the OperatorActions registered for an operator
// token (spec.md §6).
type OperatorLibrary interface {
	BinaryActions(op string) []OperatorAction
	UnaryActions(op string) []UnaryOperatorAction
}

// Function is the injected collaborator contract for a built-in or
// user-defined function (spec.md §6).
type Function interface {
	Name() string

	// CheckSemantics validates argument subtrees (via the semantic visitor)
	// and returns this call's result format.
	CheckSemantics(v *SemanticVisitor, args []Node, asserted format.Format) (format.Format, error)

	// GetDependencies lets the function consume or ignore dependency-pass
	// keys (spec.md §4.5: "variables", "arguments") while inspecting its
	// argument subtrees through the dependency visitor.
	GetDependencies(v *DependencyVisitor, deps *DependencyManager, args []Node) error

	// Evaluate computes the function's result, re-entering the evaluator on
	// argument subtrees as needed.
	Evaluate(v *EvalVisitor, ctx EvalContext, args []Node, asserted format.Format) (cty.Value, error)
}

// FunctionLibrary looks up a Function by name (spec.md §6).
type FunctionLibrary interface {
	Lookup(name string) (Function, bool)
}

// Formats is the subset of the format registry the formula passes need:
// numeric-literal disambiguation and array-format introspection.
type Formats interface {
	Lookup(name string) (format.Format, bool)
}
