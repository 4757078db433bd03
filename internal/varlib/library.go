// Package varlib implements the variable library (C3): the mapping
// (legal scope, name) -> format, and the operations that assert and resolve
// variables against it (spec.md §4.3).
//
// Grounded on the teacher's internal/registry package idiom — a
// map-guarded-then-stored registration pattern — but Assert returns errors
// for client-triggered conflicts instead of panicking, since ConflictingFormat
// and ShadowedName are expected, recoverable outcomes of normal use (spec.md
// §7), not programmer bugs.
package varlib

import (
	"strings"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/scope"
	"github.com/vk/formulacore/internal/vid"
)

// Library is the variable library (C3).
type Library struct {
	formats *format.Registry
	byScope map[*scope.Legal]map[string]format.Format
	byName  map[string][]*scope.Legal
}

// New creates an empty variable library backed by the given format registry,
// used only for the formats_without_default diagnostic.
func New(formats *format.Registry) *Library {
	return &Library{
		formats: formats,
		byScope: make(map[*scope.Legal]map[string]format.Format),
		byName:  make(map[string][]*scope.Legal),
	}
}

// Assert declares that a variable named name, of format f, may exist in
// legal scope ls (spec.md §4.3).
func (l *Library) Assert(name string, ls *scope.Legal, f format.Format) error {
	if name == "" || name != strings.TrimSpace(name) {
		return &BadNameError{Name: name}
	}

	if existing, ok := l.byScope[ls]; ok {
		if existingFmt, ok := existing[name]; ok {
			if existingFmt.Name() == f.Name() {
				return nil // idempotent re-assertion
			}
			return &ConflictingFormatError{
				Scope: ls.Name(), Name: name,
				Existing: existingFmt.Name(), Proposed: f.Name(),
			}
		}
	}

	for _, other := range l.byName[name] {
		if other == ls {
			continue
		}
		if ls.IsRelatedTo(other) {
			return &ShadowedNameError{Name: name, Scope: ls.Name(), ConflictScope: other.Name()}
		}
	}

	if l.byScope[ls] == nil {
		l.byScope[ls] = make(map[string]format.Format)
	}
	l.byScope[ls][name] = f
	l.byName[name] = append(l.byName[name], ls)
	return nil
}

// IsLegal reports whether name has been asserted for legal scope ls.
func (l *Library) IsLegal(ls *scope.Legal, name string) bool {
	_, ok := l.FormatOf(ls, name)
	return ok
}

// FormatOf returns the format asserted for (ls, name), if any.
func (l *Library) FormatOf(ls *scope.Legal, name string) (format.Format, bool) {
	m, ok := l.byScope[ls]
	if !ok {
		return nil, false
	}
	f, ok := m[name]
	return f, ok
}

// IdentifierFor resolves name within scope instance si into a VID, failing
// with UnknownVariableError if the name was never asserted for si's legal
// scope (spec.md §4.3).
func (l *Library) IdentifierFor(si *scope.Instance, name string) (vid.ID, error) {
	f, ok := l.FormatOf(si.Legal(), name)
	if !ok {
		return vid.ID{}, &UnknownVariableError{Name: name, Scope: si.Legal().Name()}
	}
	return vid.New(si, name, f), nil
}

// FormatsWithoutDefault returns every format asserted anywhere in the
// library for which the format registry has no default value, for
// diagnostics (spec.md §4.3).
func (l *Library) FormatsWithoutDefault() []format.Format {
	seen := make(map[string]format.Format)
	for _, byName := range l.byScope {
		for _, f := range byName {
			if _, ok := l.formats.DefaultFor(f); !ok {
				seen[f.Name()] = f
			}
		}
	}
	out := make([]format.Format, 0, len(seen))
	for _, f := range seen {
		out = append(out, f)
	}
	return out
}
