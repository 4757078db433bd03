package varlib

import "fmt"

// BadNameError is returned by Assert when a name is empty or edge-whitespaced
// (spec.md §4.3, §7).
type BadNameError struct {
	Name string
}

func (e *BadNameError) Error() string {
	return fmt.Sprintf("varlib: invalid variable name %q", e.Name)
}

// ConflictingFormatError is returned by Assert when (LS, name) already has a
// different format.
type ConflictingFormatError struct {
	Scope    string
	Name     string
	Existing string
	Proposed string
}

func (e *ConflictingFormatError) Error() string {
	return fmt.Sprintf("varlib: %s.%s already asserted with format %s, cannot reassert as %s",
		e.Scope, e.Name, e.Existing, e.Proposed)
}

// ShadowedNameError is returned by Assert when name is already asserted in
// an ancestor or descendant scope.
type ShadowedNameError struct {
	Name          string
	Scope         string
	ConflictScope string
}

func (e *ShadowedNameError) Error() string {
	return fmt.Sprintf("varlib: name %q in scope %s shadows existing assertion in related scope %s",
		e.Name, e.Scope, e.ConflictScope)
}

// UnknownVariableError is returned when a name is not declared in a scope.
type UnknownVariableError struct {
	Name  string
	Scope string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("varlib: unknown variable %q in scope %s", e.Name, e.Scope)
}
