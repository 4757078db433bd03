package format

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps a format name to its Format handle (C1). It is the
// "format registry" collaborator of spec.md §4.1: lookup, default_for,
// is_subformat_of, parse, plus the array_of combinator.
//
// Grounded on the teacher's internal/registry package idiom (map-backed,
// guarded by a mutex, panics only on programmer error such as re-registering
// the same name with a different handle).
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Format
}

// NewRegistry creates a registry pre-populated with the built-in primitive
// formats (integer, real, boolean, string).
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]Format)}
	for _, f := range []Format{Integer, Real, Boolean, String} {
		r.formats[f.Name()] = f
	}
	return r
}

// Register adds a format to the registry under its own Name(). Re-registering
// the exact same Format value (by name) is idempotent; registering a
// different Format under a name already in use is a programmer error.
func (r *Registry) Register(f Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.formats[f.Name()]; ok {
		if existing != f {
			panic(fmt.Sprintf("format: %q already registered with a different handle", f.Name()))
		}
		return
	}
	r.formats[f.Name()] = f
}

// ArrayOf returns (and registers, memoized) the format "array of F".
func (r *Registry) ArrayOf(of Format) Format {
	af := ArrayOf(of)
	r.Register(af)
	return af
}

// Lookup returns the format registered under name, or (nil, false).
func (r *Registry) Lookup(name string) (Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[name]
	return f, ok
}

// DefaultFor returns the default value for f, and whether one exists.
func (r *Registry) DefaultFor(f Format) (defaultValue any, ok bool) {
	v, ok := f.Default()
	if !ok {
		return nil, false
	}
	return v, true
}

// IsSubformatOf reports subformat(A, B).
func (r *Registry) IsSubformatOf(a, b Format) bool {
	if a == nil || b == nil {
		return false
	}
	return a.IsSubformatOf(b)
}

// FormatsWithoutDefault returns every registered format for which Default()
// reports no default value, for diagnostics (spec.md §4.3).
func (r *Registry) FormatsWithoutDefault() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Format
	for _, f := range r.formats {
		if _, ok := f.Default(); !ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
