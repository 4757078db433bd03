package format

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Integer is the signed-integer number format. It is a subformat of Real:
// every integer value is a valid real value, mirroring the teacher's
// gocty-based numeric conversions which treat both as cty.Number underneath.
var Integer Format = numberFormat{base: base{name: "integer", ctyType: cty.Number}, integer: true}

// Real is the floating-point number format.
var Real Format = numberFormat{base: base{name: "real", ctyType: cty.Number}, integer: false}

// Boolean is the boolean format.
var Boolean Format = booleanFormat{base{name: "boolean", ctyType: cty.Bool}}

// String is the text format.
var String Format = stringFormat{base{name: "string", ctyType: cty.String}}

type numberFormat struct {
	base
	integer bool
}

func (f numberFormat) IsSubformatOf(other Format) bool {
	if f.sameNamed(other) {
		return true
	}
	// Integer values are valid Real values; Real is not valid Integer.
	return f.integer && other != nil && other.Name() == Real.Name()
}

func (f numberFormat) Parse(text string) (cty.Value, error) {
	text = strings.TrimSpace(text)
	if f.integer {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return cty.NilVal, &ParseError{Format: f.name, Text: text, Reason: "not a valid integer"}
		}
		return cty.NumberIntVal(n), nil
	}
	r, _, err := big.ParseFloat(text, 10, 64, big.ToNearestEven)
	if err != nil {
		return cty.NilVal, &ParseError{Format: f.name, Text: text, Reason: "not a valid real number"}
	}
	return cty.NumberVal(r), nil
}

func (f numberFormat) Unparse(v cty.Value) (string, error) {
	if v.IsNull() || !v.Type().Equals(cty.Number) {
		return "", &ParseError{Format: f.name, Text: "", Reason: "value is not a number"}
	}
	if f.integer {
		var i int64
		if err := gocty.FromCtyValue(v, &i); err != nil {
			return "", &ParseError{Format: f.name, Text: "", Reason: "value is not a valid integer"}
		}
		return strconv.FormatInt(i, 10), nil
	}
	var r float64
	if err := gocty.FromCtyValue(v, &r); err != nil {
		return "", &ParseError{Format: f.name, Text: "", Reason: "value is not a valid real number"}
	}
	return strconv.FormatFloat(r, 'f', -1, 64), nil
}

func (f numberFormat) Default() (cty.Value, bool) {
	return cty.Zero, true
}

type booleanFormat struct{ base }

func (f booleanFormat) IsSubformatOf(other Format) bool { return f.sameNamed(other) }

func (f booleanFormat) Parse(text string) (cty.Value, error) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "true":
		return gocty.ToCtyValue(true, cty.Bool)
	case "false":
		return gocty.ToCtyValue(false, cty.Bool)
	default:
		return cty.NilVal, &ParseError{Format: f.name, Text: text, Reason: "not 'true' or 'false'"}
	}
}

func (f booleanFormat) Unparse(v cty.Value) (string, error) {
	var b bool
	if v.IsNull() || !v.Type().Equals(cty.Bool) {
		return "", &ParseError{Format: f.name, Text: "", Reason: "value is not a boolean"}
	}
	if err := gocty.FromCtyValue(v, &b); err != nil {
		return "", &ParseError{Format: f.name, Text: "", Reason: "value is not a boolean"}
	}
	if b {
		return "true", nil
	}
	return "false", nil
}

func (f booleanFormat) Default() (cty.Value, bool) { return cty.False, true }

type stringFormat struct{ base }

func (f stringFormat) IsSubformatOf(other Format) bool { return f.sameNamed(other) }

func (f stringFormat) Parse(text string) (cty.Value, error) {
	return cty.StringVal(text), nil
}

func (f stringFormat) Unparse(v cty.Value) (string, error) {
	if v.IsNull() || !v.Type().Equals(cty.String) {
		return "", &ParseError{Format: f.name, Text: "", Reason: "value is not a string"}
	}
	return v.AsString(), nil
}

func (f stringFormat) Default() (cty.Value, bool) { return cty.StringVal(""), true }
