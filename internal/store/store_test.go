package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/scope"
	"github.com/vk/formulacore/internal/store"
	"github.com/vk/formulacore/internal/vid"
	"github.com/zclconf/go-cty/cty"
)

func testVID(name string, f format.Format) vid.ID {
	global := scope.NewGlobal("Global")
	mgr := scope.NewManager(global)
	return vid.New(mgr.Global(), name, f)
}

func TestPutGetContains(t *testing.T) {
	s := store.New()
	id := testVID("hp", format.Integer)

	assert.False(t, s.Contains(id))
	_, hadPrior, err := s.Put(id, cty.NumberIntVal(10))
	require.NoError(t, err)
	assert.False(t, hadPrior)

	v, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, cty.NumberIntVal(10), v)
	assert.True(t, s.Contains(id))

	prior, hadPrior, err := s.Put(id, cty.NumberIntVal(20))
	require.NoError(t, err)
	assert.True(t, hadPrior)
	assert.Equal(t, cty.NumberIntVal(10), prior)
}

func TestPutRejectsNull(t *testing.T) {
	s := store.New()
	id := testVID("hp", format.Integer)
	_, _, err := s.Put(id, cty.NullVal(cty.Number))
	require.ErrorIs(t, err, store.ErrNullValue)
}

func TestPutRejectsTypeMismatch(t *testing.T) {
	s := store.New()
	id := testVID("hp", format.Integer)
	_, _, err := s.Put(id, cty.StringVal("not a number"))
	require.Error(t, err)
	var mismatch *store.ErrTypeMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestDelete(t *testing.T) {
	s := store.New()
	id := testVID("hp", format.Integer)
	_, _, err := s.Put(id, cty.NumberIntVal(5))
	require.NoError(t, err)
	s.Delete(id)
	assert.False(t, s.Contains(id))
}
