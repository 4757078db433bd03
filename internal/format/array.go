package format

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// arrayFormat is the composite format produced by the array_of(F) combinator
// (spec.md §4.1): "a new F whose values are ordered sequences."
type arrayFormat struct {
	base
	of Format
}

// ArrayOf constructs the format "array of F". Composite formats are built by
// combinators rather than declared, per spec.md §4.1.
func ArrayOf(of Format) Format {
	return arrayFormat{
		base: base{name: fmt.Sprintf("array<%s>", of.Name()), ctyType: cty.List(of.CtyType())},
		of:   of,
	}
}

// ElementFormat returns the element format of an array format, or nil if f
// is not an array format.
func ElementFormat(f Format) Format {
	if af, ok := f.(arrayFormat); ok {
		return af.of
	}
	return nil
}

func (f arrayFormat) IsSubformatOf(other Format) bool {
	if f.sameNamed(other) {
		return true
	}
	oaf, ok := other.(arrayFormat)
	if !ok {
		return false
	}
	return f.of.IsSubformatOf(oaf.of)
}

func (f arrayFormat) Parse(text string) (cty.Value, error) {
	// Accepts a comma-separated, bracket-delimited element list: "[1, 2, 3]".
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return cty.NilVal, &ParseError{Format: f.name, Text: text, Reason: "expected '[' ... ']'"}
	}
	inner := strings.TrimSpace(text[1 : len(text)-1])
	if inner == "" {
		return cty.ListValEmpty(f.of.CtyType()), nil
	}
	parts := strings.Split(inner, ",")
	vals := make([]cty.Value, 0, len(parts))
	for _, p := range parts {
		v, err := f.of.Parse(strings.TrimSpace(p))
		if err != nil {
			return cty.NilVal, err
		}
		vals = append(vals, v)
	}
	return cty.ListVal(vals), nil
}

func (f arrayFormat) Unparse(v cty.Value) (string, error) {
	if v.IsNull() || !v.CanIterateElements() {
		return "", &ParseError{Format: f.name, Text: "", Reason: "value is not an array"}
	}
	var sb strings.Builder
	sb.WriteByte('[')
	first := true
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		s, err := f.of.Unparse(ev)
		if err != nil {
			return "", err
		}
		if !first {
			sb.WriteString(", ")
		}
		sb.WriteString(s)
		first = false
	}
	sb.WriteByte(']')
	return sb.String(), nil
}

func (f arrayFormat) Default() (cty.Value, bool) {
	return cty.ListValEmpty(f.of.CtyType()), true
}
