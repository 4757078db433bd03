package formula

import (
	"github.com/vk/formulacore/internal/scope"
	"github.com/vk/formulacore/internal/vid"
)

// DependencyManager is the keyed bag of analyses the dependency pass
// accumulates (spec.md §4.5). Two keys are first-class: "variables" (VIDs
// referenced by Identifier nodes) and "arguments" (the maximum 0-based
// argument index referenced by the arg(n) built-in, used by macro-like
// modifiers/functions). Functions may consume or ignore either key.
type DependencyManager struct {
	Variables []vid.ID
	Arguments int // -1 if arg(n) was never referenced

	seenKeys map[string]bool
}

// NewDependencyManager returns an empty dependency manager.
func NewDependencyManager() *DependencyManager {
	return &DependencyManager{seenKeys: make(map[string]bool), Arguments: -1}
}

// AddVariable records a VID reference, deduplicating by VID.Key().
func (d *DependencyManager) AddVariable(id vid.ID) {
	if d.seenKeys[id.Key()] {
		return
	}
	d.seenKeys[id.Key()] = true
	d.Variables = append(d.Variables, id)
}

// NoteArgument records that arg(n) was referenced with the given 0-based
// index, widening the "arguments" key's maximum if needed.
func (d *DependencyManager) NoteArgument(n int) {
	if n > d.Arguments {
		d.Arguments = n
	}
}

// DependencyVisitor implements the dependency pass (spec.md §4.5).
type DependencyVisitor struct {
	Scope     *scope.Instance
	Vars      VariableResolver
	Functions FunctionLibrary
}

// NewDependencyVisitor constructs a dependency visitor bound to a scope
// instance and collaborators.
func NewDependencyVisitor(si *scope.Instance, vars VariableResolver, funcs FunctionLibrary) *DependencyVisitor {
	return &DependencyVisitor{Scope: si, Vars: vars, Functions: funcs}
}

// Walk recurses into n, recording dependencies into deps. Functions call
// this from within their own GetDependencies implementation to recurse into
// argument subtrees they choose to depend on.
func (v *DependencyVisitor) Walk(n Node, deps *DependencyManager) error {
	switch node := n.(type) {
	case RootNode:
		return v.Walk(node.Child, deps)
	case ParenNode:
		return v.Walk(node.Child, deps)
	case BinaryNode:
		if err := v.Walk(node.Left, deps); err != nil {
			return err
		}
		return v.Walk(node.Right, deps)
	case UnaryNode:
		return v.Walk(node.Operand, deps)
	case NumberNode, QuotedStringNode:
		return nil
	case IdentifierNode:
		id, err := v.Vars.IdentifierFor(v.Scope, node.Name)
		if err != nil {
			return errAt(UnknownVariable, node, "%v", err)
		}
		deps.AddVariable(id)
		return nil
	case FunctionLookupNode:
		fn, ok := v.Functions.Lookup(node.Name)
		if !ok {
			return errAt(BadFormula, node, "unknown function %q", node.Name)
		}
		return fn.GetDependencies(v, deps, node.Args.Args)
	case FunctionParenNode, FunctionBracketNode:
		return errAt(InvariantViolation, n, "structural node reached the dependency pass directly")
	default:
		return errAt(InvariantViolation, n, "unhandled node kind %T", n)
	}
}
