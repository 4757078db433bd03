// Package vid implements the variable identifier (VID): the triple
// (scope instance, name, format) that names one reactive cell (spec.md §3).
//
// Grounded on the teacher's internal/nodeid.Address idiom: a small,
// structurally-comparable, canonically-printable identifier type with a
// String() method for display and a Key() method for use as a map key.
package vid

import (
	"fmt"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/scope"
)

// ID is a variable identifier: a structural triple of scope instance, name,
// and format. Equality is structural on all three (spec.md §3).
type ID struct {
	Scope  *scope.Instance
	Name   string
	Format format.Format
}

// New constructs a VID. It does not validate the triple against a variable
// library; validated construction goes through varlib.Library.IdentifierFor.
func New(si *scope.Instance, name string, f format.Format) ID {
	return ID{Scope: si, Name: name, Format: f}
}

// Equal reports structural equality on (scope instance, name, format).
func (id ID) Equal(other ID) bool {
	return id.Scope == other.Scope && id.Name == other.Name && sameFormat(id.Format, other.Format)
}

func sameFormat(a, b format.Format) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name() == b.Name()
}

// Key returns a canonical string suitable for use as a map key. Two VIDs
// that are Equal produce the same Key.
func (id ID) Key() string {
	fname := "<nil>"
	if id.Format != nil {
		fname = id.Format.Name()
	}
	return fmt.Sprintf("%s/%s:%s", id.Scope.String(), id.Name, fname)
}

// String returns a human-readable identity for logging, omitting the format
// (which is implied by context in most log lines).
func (id ID) String() string {
	return fmt.Sprintf("%s.%s", id.Scope.String(), id.Name)
}

// Less implements a total order over VIDs: lexicographically by scope
// instance identity then name, per spec.md §3 ("Ordered containers of VIDs
// compare lexicographically on scope-instance identity then name").
func Less(a, b ID) bool {
	as, bs := a.Scope.String(), b.Scope.String()
	if as != bs {
		return as < bs
	}
	return a.Name < b.Name
}
