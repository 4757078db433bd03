// Package formula implements the expression representation and visitor
// passes (C5): the parsed-tree node kinds, and the semantic-check,
// dependency-capture, evaluation, and canonical-reconstruction passes over
// them (spec.md §4.5).
//
// The AST is a sum type (an interface plus one concrete struct per node
// kind) dispatched on with type switches in each visitor, per spec.md §9's
// recommendation ("reimplement the AST as a sum type and each pass as a
// function dispatching on the variant; this preserves behavior and improves
// exhaustiveness checking") in place of the original's parser-generator
// double-dispatch visitor idiom. The walking style itself — a type switch
// over every syntax node kind, recursing into children — is grounded on the
// teacher's internal/bggoexpr.walkForFunctions, which does the same over
// hclsyntax.Expression.
package formula

import "github.com/hashicorp/hcl/v2"

// Node is the AST sum type. Every concrete node type below implements it.
type Node interface {
	// Range returns the node's source position, for diagnostics.
	Range() hcl.Range
	isNode()
}

// BinaryKind classifies a binary operator node by grammar tier (spec.md §4.5:
// "Arithmetic/Geometric/Relational/Equality/Logical... Exponentiation").
// The tier does not by itself determine semantics — that is left to the
// injected OperatorLibrary — but it does determine parse precedence and is
// retained on the node per spec's node-kind taxonomy.
type BinaryKind int

const (
	Arithmetic BinaryKind = iota // + -
	Geometric                    // * / %
	Relational                   // < > <= >=
	Equality                     // == !=
	Logical                      // && ||
	Exponent                     // ^
)

func (k BinaryKind) String() string {
	switch k {
	case Arithmetic:
		return "arithmetic"
	case Geometric:
		return "geometric"
	case Relational:
		return "relational"
	case Equality:
		return "equality"
	case Logical:
		return "logical"
	case Exponent:
		return "exponent"
	default:
		return "unknown"
	}
}

// UnaryKind classifies a unary operator node.
type UnaryKind int

const (
	UnaryNeg UnaryKind = iota // -
	UnaryNot                  // !
)

func (k UnaryKind) String() string {
	if k == UnaryNot {
		return "!"
	}
	return "-"
}

type base struct {
	rng hcl.Range
}

func (b base) Range() hcl.Range { return b.rng }

// RootNode is the single-child wrapper around the top level of a parsed
// formula.
type RootNode struct {
	base
	Child Node
}

func (RootNode) isNode() {}

// ParenNode wraps a parenthesized subexpression, preserved distinctly from
// its child so reconstruction can round-trip explicit grouping.
type ParenNode struct {
	base
	Child Node
}

func (ParenNode) isNode() {}

// BinaryNode is a two-child operator node; Kind records which grammar tier
// produced it, Op is the literal operator text ("+", "&&", ...).
type BinaryNode struct {
	base
	Kind        BinaryKind
	Op          string
	Left, Right Node
}

func (BinaryNode) isNode() {}

// UnaryNode is a one-child prefix operator node.
type UnaryNode struct {
	base
	Kind    UnaryKind
	Op      string
	Operand Node
}

func (UnaryNode) isNode() {}

// NumberNode is a numeric literal, retained as source text: the semantic
// pass decides integer vs. real (spec.md §4.5).
type NumberNode struct {
	base
	Text string
}

func (NumberNode) isNode() {}

// QuotedStringNode is a string literal; Value is already unescaped/unquoted.
type QuotedStringNode struct {
	base
	Value string
}

func (QuotedStringNode) isNode() {}

// IdentifierNode references a variable name in the current scope.
type IdentifierNode struct {
	base
	Name string
}

func (IdentifierNode) isNode() {}

// FunctionLookupNode is a call to a named function with a bracketed argument
// list. Args is always a *FunctionParenNode for the grammar in spec.md §6,
// which only defines the parenthesized call form; FunctionBracketNode exists
// in the node-kind taxonomy (spec.md §4.5) for grammars that also support a
// bracket-call form, but this grammar never produces one — reaching it during
// evaluation is an invariant violation, same as any other purely structural
// node reached directly (spec.md §4.5, "Bracket/Paren structural nodes
// reaching evaluation directly are invariant violations").
type FunctionLookupNode struct {
	base
	Name string
	Args *FunctionParenNode
}

func (FunctionLookupNode) isNode() {}

// FunctionParenNode is the structural `( args )` wrapper of a function call.
// It only ever appears as the Args child of a FunctionLookupNode.
type FunctionParenNode struct {
	base
	Args []Node
}

func (FunctionParenNode) isNode() {}

// FunctionBracketNode is the structural `[ args ]` wrapper some formula
// grammars allow as an alternate function-call bracket; reserved per
// spec.md's node-kind taxonomy. The grammar in spec.md §6 never produces one.
type FunctionBracketNode struct {
	base
	Args []Node
}

func (FunctionBracketNode) isNode() {}
