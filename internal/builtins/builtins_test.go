package builtins_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulacore/internal/builtins"
	"github.com/vk/formulacore/internal/ctxlog"
	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/formula"
	"github.com/vk/formulacore/internal/scope"
	"github.com/vk/formulacore/internal/store"
	"github.com/vk/formulacore/internal/varlib"
	"github.com/zclconf/go-cty/cty"
)

func eval(t *testing.T, src string) (cty.Value, error) {
	t.Helper()
	reg := format.NewRegistry()
	lib := varlib.New(reg)
	global := scope.NewGlobal("Global")
	mgr := scope.NewManager(global)
	require.NoError(t, lib.Assert("x", global, format.Integer))
	require.NoError(t, lib.Assert("arr", global, reg.ArrayOf(format.Integer)))

	st := store.New()
	arrID, err := lib.IdentifierFor(mgr.Global(), "arr")
	require.NoError(t, err)
	_, _, err = st.Put(arrID, cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2), cty.NumberIntVal(3)}))
	require.NoError(t, err)

	n, err := formula.Parse(src, "<test>")
	require.NoError(t, err)

	ops := builtins.NewOperators()
	funcs := builtins.NewFunctions()
	ev := formula.NewEvalVisitor(st, lib, ops, funcs, formula.EvalOptions{})
	goCtx := ctxlog.WithLogger(context.Background(), discardLogger())
	return ev.Eval(n, formula.EvalContext{Ctx: goCtx, Scope: mgr.Global()})
}

func TestOperatorsArithmetic(t *testing.T) {
	val, err := eval(t, "2 + 3")
	require.NoError(t, err)
	i, _ := val.AsBigFloat().Int64()
	assert.EqualValues(t, 5, i)
}

func TestOperatorsExponent(t *testing.T) {
	val, err := eval(t, "2 ^ 10")
	require.NoError(t, err)
	f, _ := val.AsBigFloat().Float64()
	assert.Equal(t, 1024.0, f)
}

func TestOperatorsRelational(t *testing.T) {
	val, err := eval(t, "3 > 2")
	require.NoError(t, err)
	assert.True(t, val.True())
}

func TestFunctionLength(t *testing.T) {
	val, err := eval(t, "length(arr)")
	require.NoError(t, err)
	i, _ := val.AsBigFloat().Int64()
	assert.EqualValues(t, 3, i)
}

func TestFunctionMinMaxAbs(t *testing.T) {
	val, err := eval(t, "max(min(5, 2), abs(-1))")
	require.NoError(t, err)
	i, _ := val.AsBigFloat().Int64()
	assert.EqualValues(t, 2, i)
}

func TestFunctionArgCountMismatch(t *testing.T) {
	_, err := eval(t, "abs(1, 2)")
	require.Error(t, err)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
