package solvermanager_test

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
	"github.com/vk/formulacore/internal/modifier"
	"github.com/vk/formulacore/internal/scope"
	"github.com/vk/formulacore/internal/solvermanager"
	"github.com/vk/formulacore/internal/store"
	"github.com/vk/formulacore/internal/varlib"
	"github.com/vk/formulacore/internal/vid"
	"github.com/zclconf/go-cty/cty"
)

type fixture struct {
	si    *scope.Instance
	lib   *varlib.Library
	ops   *builtins.Operators
	funcs *builtins.Functions
	mgr   *solvermanager.Manager
	goCtx context.Context
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	reg := format.NewRegistry()
	lib := varlib.New(reg)
	global := scope.NewGlobal("Global")
	m := scope.NewManager(global)
	for _, n := range names {
		require.NoError(t, lib.Assert(n, global, format.Integer))
	}

	ops := builtins.NewOperators()
	funcs := builtins.NewFunctions()
	mgr := solvermanager.New(lib, store.New(), ops, funcs, formula.EvalOptions{})

	return &fixture{
		si: m.Global(), lib: lib, ops: ops, funcs: funcs, mgr: mgr,
		goCtx: ctxlog.WithLogger(context.Background(), discardLogger()),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fixture) vid(name string) vid.ID {
	id, err := f.lib.IdentifierFor(f.si, name)
	if err != nil {
		panic(err)
	}
	return id
}

// add compiles src as a formula, computes its dependency set, builds a
// modifier of the given constructor kind, and adds it to target under the
// given source identity.
func (f *fixture) add(t *testing.T, target string, priority int, src string, build func(operand *formula.Formula, deps []vid.ID, fmt2 format.Format) modifier.Modifier, source any) (bool, error) {
	t.Helper()
	id := f.vid(target)
	compiled, err := formula.Compile(src, f.si, f.lib, f.ops, f.funcs, id.Format)
	require.NoError(t, err)
	dm, err := compiled.Dependencies(f.si, f.lib, f.funcs)
	require.NoError(t, err)
	m := build(compiled, dm.Variables, id.Format)
	return f.mgr.AddModifier(f.goCtx, id, m, source)
}

func intVal(t *testing.T, got cty.Value) int64 {
	t.Helper()
	i, acc := got.AsBigFloat().Int64()
	require.Zero(t, acc)
	return i
}

func setMod(instruction string) func(*formula.Formula, []vid.ID, format.Format) modifier.Modifier {
	return func(op *formula.Formula, deps []vid.ID, f format.Format) modifier.Modifier {
		return modifier.NewSet(modifier.PrioritySet, instruction, op, deps, f)
	}
}

func addMod(instruction string) func(*formula.Formula, []vid.ID, format.Format) modifier.Modifier {
	return func(op *formula.Formula, deps []vid.ID, f format.Format) modifier.Modifier {
		return modifier.NewAdd(modifier.PriorityAdd, instruction, op, deps, f)
	}
}

func multMod(instruction string) func(*formula.Formula, []vid.ID, format.Format) modifier.Modifier {
	return func(op *formula.Formula, deps []vid.ID, f format.Format) modifier.Modifier {
		return modifier.NewMultiply(modifier.PriorityMultiply, instruction, op, deps, f)
	}
}

func TestSimpleChain(t *testing.T) {
	f := newFixture(t, "a", "b", "c")

	_, err := f.add(t, "a", modifier.PrioritySet, "3", setMod("=3"), "item1")
	require.NoError(t, err)

	_, err = f.add(t, "b", modifier.PriorityAdd, "a+2", addMod("+a+2"), "item2")
	require.NoError(t, err)

	_, err = f.add(t, "c", modifier.PriorityAdd, "b*4", addMod("+b*4"), "item3")
	require.NoError(t, err)

	a, _ := f.mgr.Store().Get(f.vid("a"))
	b, _ := f.mgr.Store().Get(f.vid("b"))
	c, _ := f.mgr.Store().Get(f.vid("c"))
	assert.EqualValues(t, 3, intVal(t, a))
	assert.EqualValues(t, 5, intVal(t, b))
	assert.EqualValues(t, 20, intVal(t, c))

	_, err = f.add(t, "a", modifier.PrioritySet, "5", setMod("=5"), "item4")
	require.NoError(t, err)

	a, _ = f.mgr.Store().Get(f.vid("a"))
	b, _ = f.mgr.Store().Get(f.vid("b"))
	c, _ = f.mgr.Store().Get(f.vid("c"))
	assert.EqualValues(t, 5, intVal(t, a))
	assert.EqualValues(t, 7, intVal(t, b))
	assert.EqualValues(t, 28, intVal(t, c))
}

func TestRemovalReassertsDefaults(t *testing.T) {
	f := newFixture(t, "a", "b", "c")

	_, err := f.add(t, "a", modifier.PrioritySet, "3", setMod("=3"), "item1")
	require.NoError(t, err)
	id := f.vid("b")
	compiledB, err := formula.Compile("a+2", f.si, f.lib, f.ops, f.funcs, id.Format)
	require.NoError(t, err)
	depsB, err := compiledB.Dependencies(f.si, f.lib, f.funcs)
	require.NoError(t, err)
	modB := modifier.NewAdd(modifier.PriorityAdd, "+a+2", compiledB, depsB.Variables, id.Format)
	_, err = f.mgr.AddModifier(f.goCtx, id, modB, "item2")
	require.NoError(t, err)

	_, err = f.add(t, "c", modifier.PriorityMultiply, "b*4", multMod("*b*4"), "item3")
	require.NoError(t, err)

	require.NoError(t, f.mgr.RemoveModifier(f.goCtx, id, modB, "item2"))

	a, _ := f.mgr.Store().Get(f.vid("a"))
	b, _ := f.mgr.Store().Get(f.vid("b"))
	c, _ := f.mgr.Store().Get(f.vid("c"))
	assert.EqualValues(t, 3, intVal(t, a))
	assert.EqualValues(t, 0, intVal(t, b))
	assert.EqualValues(t, 0, intVal(t, c))
}

func TestCycleStableConverges(t *testing.T) {
	f := newFixture(t, "x", "y")

	_, err := f.add(t, "x", modifier.PriorityAdd, "y", addMod("+y"), "item1")
	require.NoError(t, err)
	_, err = f.add(t, "y", modifier.PriorityAdd, "x", addMod("+x"), "item2")
	require.NoError(t, err)

	x, _ := f.mgr.Store().Get(f.vid("x"))
	y, _ := f.mgr.Store().Get(f.vid("y"))
	assert.EqualValues(t, 0, intVal(t, x))
	assert.EqualValues(t, 0, intVal(t, y))
}

func TestCycleDivergentRaisesCycleDetected(t *testing.T) {
	f := newFixture(t, "x", "y")

	_, err := f.add(t, "x", modifier.PrioritySet, "1", setMod("=1"), "item1")
	require.NoError(t, err)
	_, err = f.add(t, "x", modifier.PriorityAdd, "y+1", addMod("+y+1"), "item2")
	require.NoError(t, err)

	_, err = f.add(t, "y", modifier.PriorityAdd, "x+1", addMod("+x+1"), "item3")
	require.Error(t, err)
	var cd *solvermanager.CycleDetectedError
	require.ErrorAs(t, err, &cd)
}

func TestArrayComponentModifierTargetsSinglePosition(t *testing.T) {
	reg := format.NewRegistry()
	lib := varlib.New(reg)
	global := scope.NewGlobal("Global")
	m := scope.NewManager(global)
	arrFmt := reg.ArrayOf(format.Integer)
	require.NoError(t, lib.Assert("arr", global, arrFmt))

	ops := builtins.NewOperators()
	funcs := builtins.NewFunctions()
	mgr := solvermanager.New(lib, store.New(), ops, funcs, formula.EvalOptions{})
	goCtx := ctxlog.WithLogger(context.Background(), discardLogger())
	si := m.Global()

	id, err := lib.IdentifierFor(si, "arr")
	require.NoError(t, err)

	// Seed arr via a priority-0 Set modifier carrying a constant array value
	// (the grammar has no array-literal syntax, spec.md §6), per spec.md S5:
	// "seeded ... via a set-modifier". Process then threads
	// default -> set -> component, exactly like any other modifier stack.
	seed := modifier.NewSetValue(modifier.PrioritySet, "=[10,20,30]",
		cty.ListVal([]cty.Value{cty.NumberIntVal(10), cty.NumberIntVal(20), cty.NumberIntVal(30)}), arrFmt)
	_, err = mgr.AddModifier(goCtx, id, seed, "seed")
	require.NoError(t, err)

	elemFormula, err := formula.Compile("5", si, lib, ops, funcs, format.Integer)
	require.NoError(t, err)
	inner := modifier.NewAdd(modifier.PriorityAdd, "+5", elemFormula, nil, format.Integer)
	comp := modifier.NewArrayComponent(1, inner, arrFmt)

	_, err = mgr.AddModifier(goCtx, id, comp, "item1")
	require.NoError(t, err)

	val, ok := mgr.Store().Get(id)
	require.True(t, ok)
	elems := val.AsValueSlice()
	require.Len(t, elems, 3)
	assert.EqualValues(t, 10, intVal(t, elems[0]))
	assert.EqualValues(t, 25, intVal(t, elems[1]))
	assert.EqualValues(t, 30, intVal(t, elems[2]))
}
