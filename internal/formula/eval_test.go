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
	"github.com/zclconf/go-cty/cty"
)

func (f *fixture) eval(t *testing.T, src string, st *store.Store, opts formula.EvalOptions) (cty.Value, error) {
	t.Helper()
	n, err := formula.Parse(src, "<test>")
	require.NoError(t, err)
	ev := formula.NewEvalVisitor(st, f.lib, f.ops, f.funcs, opts)
	goCtx := ctxlog.WithLogger(context.Background(), discardLogger())
	return ev.Eval(n, formula.EvalContext{Ctx: goCtx, Scope: f.si})
}

func TestEvalArithmetic(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	val, err := f.eval(t, "2 + 3 * 4", st, formula.EvalOptions{})
	require.NoError(t, err)
	assertNumberEquals(t, 14, val)
}

func TestEvalUnaryNegIntegerStaysInteger(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	val, err := f.eval(t, "-(1 + 2)", st, formula.EvalOptions{})
	require.NoError(t, err)
	assertNumberEquals(t, -3, val)
}

func TestEvalUnaryNot(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	val, err := f.eval(t, "!(1 < 2)", st, formula.EvalOptions{})
	require.NoError(t, err)
	assert.False(t, val.True())
}

func TestEvalIdentifierReadsStore(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	id, err := f.lib.IdentifierFor(f.si, "x")
	require.NoError(t, err)
	_, _, err = st.Put(id, cty.NumberIntVal(7))
	require.NoError(t, err)

	val, err := f.eval(t, "x + 1", st, formula.EvalOptions{})
	require.NoError(t, err)
	assertNumberEquals(t, 8, val)
}

func TestEvalMissingIdentifierSubstitutesDefault(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	val, err := f.eval(t, "x + 1", st, formula.EvalOptions{})
	require.NoError(t, err)
	assertNumberEquals(t, 1, val) // x defaults to integer zero
}

func TestEvalMissingIdentifierStrictModeFails(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	_, err := f.eval(t, "x + 1", st, formula.EvalOptions{StrictMissingVariable: true})
	require.Error(t, err)
	var se *formula.SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, formula.UnknownVariable, se.Kind)
}

func TestEvalFunctionIfTakesTrueBranch(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	id, err := f.lib.IdentifierFor(f.si, "flag")
	require.NoError(t, err)
	_, _, err = st.Put(id, cty.True)
	require.NoError(t, err)

	val, err := f.eval(t, "if(flag, 10, 20)", st, formula.EvalOptions{})
	require.NoError(t, err)
	assertNumberEquals(t, 10, val)
}

func TestEvalFunctionMinMax(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	val, err := f.eval(t, "min(3, 1, 2)", st, formula.EvalOptions{})
	require.NoError(t, err)
	assertNumberEquals(t, 1, val)

	val, err = f.eval(t, "max(3, 1, 2)", st, formula.EvalOptions{})
	require.NoError(t, err)
	assertNumberEquals(t, 3, val)
}

func TestEvalFunctionAbs(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	val, err := f.eval(t, "abs(-5)", st, formula.EvalOptions{})
	require.NoError(t, err)
	assertNumberEquals(t, 5, val)
}

func TestEvalStringEquality(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	val, err := f.eval(t, `"a" == "a"`, st, formula.EvalOptions{})
	require.NoError(t, err)
	assert.True(t, val.True())
}

func TestEvalDivideByZeroModulo(t *testing.T) {
	f := newFixture(t)
	st := store.New()
	_, err := f.eval(t, "1 % 0", st, formula.EvalOptions{})
	require.Error(t, err)
}

func assertNumberEquals(t *testing.T, want int64, got cty.Value) {
	t.Helper()
	require.True(t, got.Type().Equals(format.Integer.CtyType()) || got.Type().Equals(format.Real.CtyType()))
	gotF, _ := got.AsBigFloat().Float64()
	assert.InDelta(t, float64(want), gotF, 1e-9)
}
