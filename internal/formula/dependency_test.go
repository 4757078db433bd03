package formula_test

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulacore/internal/formula"
)

func (f *fixture) deps(t *testing.T, src string) *formula.DependencyManager {
	t.Helper()
	n, err := formula.Parse(src, "<test>")
	require.NoError(t, err)
	dv := formula.NewDependencyVisitor(f.si, f.lib, f.funcs)
	deps := formula.NewDependencyManager()
	require.NoError(t, dv.Walk(n, deps))
	return deps
}

func varNames(deps *formula.DependencyManager) []string {
	names := make([]string, len(deps.Variables))
	for i, id := range deps.Variables {
		names[i] = id.Name
	}
	return names
}

func TestDependencyCollectsIdentifiers(t *testing.T) {
	f := newFixture(t)
	deps := f.deps(t, "x + y")
	assert.ElementsMatch(t, []string{"x", "y"}, varNames(deps))
}

func TestDependencyDeduplicates(t *testing.T) {
	f := newFixture(t)
	deps := f.deps(t, "x + x + x")
	assert.Equal(t, []string{"x"}, varNames(deps))
}

func TestDependencyDescendsIntoFunctionArgs(t *testing.T) {
	f := newFixture(t)
	deps := f.deps(t, "if(flag, x, y)")
	assert.ElementsMatch(t, []string{"flag", "x", "y"}, varNames(deps))
}

func TestDependencyDefaultArgumentsIsUnset(t *testing.T) {
	f := newFixture(t)
	deps := f.deps(t, "x + 1")
	assert.Equal(t, -1, deps.Arguments)
}

func TestDependencyArgNoteWidensArguments(t *testing.T) {
	f := newFixture(t)
	deps := f.deps(t, "arg(0) + arg(2) + arg(1)")
	assert.Equal(t, 2, deps.Arguments)
}

// TestDependencyCollectsFromNestedCalls diffs the full captured dependency
// set against an expected set with go-cmp, the way a dependency-set
// assertion with more than a couple of names benefits from a structural
// diff over a pairwise ElementsMatch.
func TestDependencyCollectsFromNestedCalls(t *testing.T) {
	f := newFixture(t)
	deps := f.deps(t, "if(flag, x + arg(0), y) + max(x, y)")

	got := varNames(deps)
	sort.Strings(got)
	want := []string{"flag", "x", "y"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dependency variable set mismatch (-want +got):\n%s", diff)
	}
}

func TestDependencyUnknownVariableFails(t *testing.T) {
	f := newFixture(t)
	n, err := formula.Parse("nope + 1", "<test>")
	require.NoError(t, err)
	dv := formula.NewDependencyVisitor(f.si, f.lib, f.funcs)
	err = dv.Walk(n, formula.NewDependencyManager())
	require.Error(t, err)
	var se *formula.SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, formula.UnknownVariable, se.Kind)
}
