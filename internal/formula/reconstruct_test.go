package formula_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulacore/internal/formula"
)

func reconstructSrc(t *testing.T, src string) string {
	t.Helper()
	n, err := formula.Parse(src, "<test>")
	require.NoError(t, err)
	out, err := formula.Reconstruct(n)
	require.NoError(t, err)
	return out
}

func TestReconstructRoundTrip(t *testing.T) {
	cases := []struct{ src, want string }{
		{"1+2", "1 + 2"},
		{"  1   +   2  ", "1 + 2"},
		{"(1 + 2) * 3", "(1 + 2) * 3"},
		{"-x", "-x"},
		{"!flag", "!flag"},
		{`"a\nb"`, `"a\nb"`},
		{"max(1, 2, 3)", "max(1, 2, 3)"},
		{"a == b && c", "a == b && c"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, reconstructSrc(t, c.src))
	}
}

func TestReconstructIsIdempotent(t *testing.T) {
	for _, src := range []string{"1 + 2 * (3 - x)", `max(1, "a", flag)`, "--x"} {
		once := reconstructSrc(t, src)
		twice := reconstructSrc(t, once)
		assert.Equal(t, once, twice)
	}
}
