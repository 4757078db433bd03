package formula

import (
	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/scope"
	"github.com/zclconf/go-cty/cty"
)

// Formula is a parsed, semantically-checked expression bound to the format
// it produces (spec.md §4.5/§9). It caches its canonical reconstructed text
// so repeated equality checks and hashing don't re-walk the tree.
type Formula struct {
	root      Node
	source    string
	format    format.Format
	canonical string
}

// Compile parses source, runs the semantic pass against asserted (which may
// be nil), and returns a Formula bound to the result format. si is the scope
// instance names in source resolve against.
func Compile(source string, si *scope.Instance, vars VariableResolver, ops OperatorLibrary, funcs FunctionLibrary, asserted format.Format) (*Formula, error) {
	root, err := Parse(source, "<formula>")
	if err != nil {
		return nil, err
	}
	sem := NewSemanticVisitor(si, vars, ops, funcs)
	resultFmt, err := sem.Check(root, asserted)
	if err != nil {
		return nil, err
	}
	canonical, err := Reconstruct(root)
	if err != nil {
		return nil, err
	}
	return &Formula{root: root, source: source, format: resultFmt, canonical: canonical}, nil
}

// Format returns the formula's result format, as determined by the semantic
// pass at compile time.
func (f *Formula) Format() format.Format { return f.format }

// Source returns the original, as-written source text.
func (f *Formula) Source() string { return f.source }

// String returns the canonical reconstructed text (spec.md §4.5).
func (f *Formula) String() string { return f.canonical }

// Equal reports whether f and other are the same formula: equal canonical
// text and matching format (spec.md §4.5, "Equality of two parsed formulas
// is defined as equality of the reconstructed canonical text (and matching
// format)").
func (f *Formula) Equal(other *Formula) bool {
	if other == nil {
		return false
	}
	if f.canonical != other.canonical {
		return false
	}
	if f.format == nil || other.format == nil {
		return f.format == other.format
	}
	return f.format.Name() == other.format.Name()
}

// Dependencies runs the dependency pass over f and returns the collected
// bag.
func (f *Formula) Dependencies(si *scope.Instance, vars VariableResolver, funcs FunctionLibrary) (*DependencyManager, error) {
	dv := NewDependencyVisitor(si, vars, funcs)
	deps := NewDependencyManager()
	if err := dv.Walk(f.root, deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// Evaluate runs the evaluation pass over f under ctx.
func (f *Formula) Evaluate(ev *EvalVisitor, ctx EvalContext) (cty.Value, error) {
	return ev.Eval(f.root, ctx)
}
