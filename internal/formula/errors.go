package formula

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// SemanticError is the structured failure type for the semantic pass
// (spec.md §7: BadFormula, UnknownVariable, BadNumber, BadOperand). Kind
// distinguishes the taxonomy entry; Range carries the offending node's
// source position using hcl.Range.
type SemanticError struct {
	Kind    SemanticErrorKind
	Range   hcl.Range
	Message string
}

// SemanticErrorKind enumerates the §7 error taxonomy entries the semantic,
// dependency, and evaluation passes can raise.
type SemanticErrorKind int

const (
	BadFormula SemanticErrorKind = iota
	UnknownVariable
	BadNumber
	BadOperand
	InvariantViolation
)

func (k SemanticErrorKind) String() string {
	switch k {
	case BadFormula:
		return "BadFormula"
	case UnknownVariable:
		return "UnknownVariable"
	case BadNumber:
		return "BadNumber"
	case BadOperand:
		return "BadOperand"
	case InvariantViolation:
		return "InvariantViolation"
	default:
		return "Unknown"
	}
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Range.Start.Line, e.Range.Start.Column, e.Message)
}

func errAt(kind SemanticErrorKind, n Node, format string, args ...any) error {
	return &SemanticError{Kind: kind, Range: n.Range(), Message: fmt.Sprintf(format, args...)}
}
