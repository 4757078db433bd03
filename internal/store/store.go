// Package store implements the variable store (C4): a typed map from
// variable identifier to current value (spec.md §3, §4.4).
//
// Grounded on the teacher's internal/inmemorystore package — an ephemeral,
// map-backed store keyed by a canonical identifier string — simplified from
// its sync.Map/concurrent-writer design to a plain map, since this engine's
// propagation model is single-threaded cooperative (spec.md §5: "No
// operation suspends voluntarily... No intrinsic locking"); a multi-threaded
// caller is expected to wrap the whole solver manager (and therefore this
// store) in external mutual exclusion, exactly as spec.md §5 states.
package store

import (
	"errors"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/vid"
	"github.com/zclconf/go-cty/cty"
)

// ErrNullValue is returned by Put when asked to store a null value.
var ErrNullValue = errors.New("store: cannot put a null value")

// ErrTypeMismatch is returned by Put when the value's type is not a
// subformat of the VID's format.
type ErrTypeMismatch struct {
	VID       vid.ID
	ValueType cty.Type
}

func (e *ErrTypeMismatch) Error() string {
	return "store: value of type " + e.ValueType.FriendlyName() + " is not a valid " + e.VID.Format.Name() + " for " + e.VID.String()
}

// Store is the variable store (C4): VID -> value, with no ordering
// guarantees.
type Store struct {
	values map[string]cty.Value
}

// New creates an empty variable store.
func New() *Store {
	return &Store{values: make(map[string]cty.Value)}
}

// Put writes value under id, type-checked against id.Format. It rejects a
// null value (ErrNullValue). It returns the prior value and whether one was
// present.
func (s *Store) Put(id vid.ID, value cty.Value) (prior cty.Value, hadPrior bool, err error) {
	if value.IsNull() {
		return cty.NilVal, false, ErrNullValue
	}
	if !valueConformsTo(value, id.Format) {
		return cty.NilVal, false, &ErrTypeMismatch{VID: id, ValueType: value.Type()}
	}
	key := id.Key()
	prior, hadPrior = s.values[key]
	s.values[key] = value
	return prior, hadPrior, nil
}

// Get returns the value stored for id, if any.
func (s *Store) Get(id vid.ID) (cty.Value, bool) {
	v, ok := s.values[id.Key()]
	return v, ok
}

// Contains reports whether id has a value in the store.
func (s *Store) Contains(id vid.ID) bool {
	_, ok := s.values[id.Key()]
	return ok
}

// Delete removes id's value from the store, if present.
func (s *Store) Delete(id vid.ID) {
	delete(s.values, id.Key())
}

// valueConformsTo is a light structural check that value's cty.Type is
// compatible with f's expected representation; full subformat reasoning
// (e.g. integer-is-subformat-of-real) lives on the Format values themselves
// and is enforced earlier, at modifier-evaluation time. Here we only guard
// against gross type mismatches (a string stored where a number is expected).
func valueConformsTo(value cty.Value, f format.Format) bool {
	want := f.CtyType()
	got := value.Type()
	if want.Equals(got) {
		return true
	}
	// Lists: element types must match or one side be dynamically typed.
	if want.IsListType() && got.IsListType() {
		we, ge := want.ElementType(), got.ElementType()
		return we.Equals(ge) || we == cty.DynamicPseudoType || ge == cty.DynamicPseudoType
	}
	return false
}
