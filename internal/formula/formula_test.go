package formula_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulacore/internal/ctxlog"
	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/formula"
	"github.com/vk/formulacore/internal/store"
)

func TestCompileBindsResultFormat(t *testing.T) {
	f := newFixture(t)
	compiled, err := formula.Compile("x + 1", f.si, f.lib, f.ops, f.funcs, nil)
	require.NoError(t, err)
	assert.Equal(t, format.Integer.Name(), compiled.Format().Name())
	assert.Equal(t, "x + 1", compiled.String())
}

func TestCompileRejectsAssertedMismatch(t *testing.T) {
	f := newFixture(t)
	_, err := formula.Compile("x + 1", f.si, f.lib, f.ops, f.funcs, format.Boolean)
	require.Error(t, err)
}

func TestFormulaEqualIgnoresWhitespace(t *testing.T) {
	f := newFixture(t)
	a, err := formula.Compile("x+1", f.si, f.lib, f.ops, f.funcs, nil)
	require.NoError(t, err)
	b, err := formula.Compile("  x  +  1  ", f.si, f.lib, f.ops, f.funcs, nil)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestFormulaNotEqualDifferentText(t *testing.T) {
	f := newFixture(t)
	a, err := formula.Compile("x + 1", f.si, f.lib, f.ops, f.funcs, nil)
	require.NoError(t, err)
	b, err := formula.Compile("x + 2", f.si, f.lib, f.ops, f.funcs, nil)
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
}

func TestFormulaDependenciesAndEvaluate(t *testing.T) {
	f := newFixture(t)
	compiled, err := formula.Compile("x + y", f.si, f.lib, f.ops, f.funcs, nil)
	require.NoError(t, err)

	deps, err := compiled.Dependencies(f.si, f.lib, f.funcs)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, varNames(deps))

	st := store.New()
	ev := formula.NewEvalVisitor(st, f.lib, f.ops, f.funcs, formula.EvalOptions{})
	goCtx := ctxlog.WithLogger(context.Background(), discardLogger())
	val, err := compiled.Evaluate(ev, formula.EvalContext{Ctx: goCtx, Scope: f.si})
	require.NoError(t, err)
	assertNumberEquals(t, 0, val) // both missing, defaults are zero
}
