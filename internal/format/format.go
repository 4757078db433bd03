// Package format implements the format registry (C1): the handle identifying
// the value type a variable or expression carries, its subtype relation, and
// the parse/default/compare operations the rest of the engine needs without
// caring how a given format is represented underneath.
//
// Values are carried as cty.Value (github.com/zclconf/go-cty), the same
// universal typed-value representation the teacher codebase funnels every
// step input/output through (internal/dag/node_runner.go's
// ctyValueToInterface). A Format wraps a cty.Type plus the metadata spec.md
// §3 requires: managed-class identity, a subtype test, a parser/serializer,
// and an optional default.
package format

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Format is the handle identifying the value type a variable or expression
// carries (spec.md §3, "Format (F)").
type Format interface {
	// Name is the format's managed-class identity, e.g. "integer", "array<string>".
	Name() string

	// CtyType returns the underlying cty.Type values of this format conform to.
	CtyType() cty.Type

	// IsSubformatOf reports whether every value of this format is also a
	// valid value of other (spec.md: "subformat(A, B) iff every value of A
	// is also a valid value of B").
	IsSubformatOf(other Format) bool

	// Parse converts source text into a value of this format, or fails
	// structurally (never panics) per spec.md §4.1.
	Parse(text string) (cty.Value, error)

	// Unparse serializes a value of this format back to text.
	Unparse(v cty.Value) (string, error)

	// Default returns the format's default value, if one is defined, and
	// whether a default exists at all (formats_without_default, spec.md §4.3).
	Default() (cty.Value, bool)
}

// ParseError is returned by Format.Parse when text cannot be interpreted as
// a value of the given format. It is reported structurally, never panicked.
type ParseError struct {
	Format string
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s: %s", e.Text, e.Format, e.Reason)
}

// base is embedded by every concrete format and supplies the identity and
// subtype-test boilerplate (name, cty type, same-name-is-subformat-of-self).
type base struct {
	name    string
	ctyType cty.Type
}

func (b base) Name() string        { return b.name }
func (b base) CtyType() cty.Type   { return b.ctyType }
func (b base) String() string      { return b.name }
func (b base) sameNamed(o Format) bool {
	return o != nil && o.Name() == b.name
}
