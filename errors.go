package dao

import (
	"fmt"

	"github.com/friendsofgo/errors"

	"github.com/nrfta/go-dao/condition"
	"github.com/nrfta/go-dao/derive"
	"github.com/nrfta/go-dao/templates"
)

type (
	// QueryConstructionError is returned when a filter cannot be built.
	QueryConstructionError = condition.ConstructionError
	// FieldResolutionError is returned when a derived method names an
	// unknown field.
	FieldResolutionError = derive.FieldResolutionError
	// DuplicateTemplateError is returned when a template key is defined
	// twice.
	DuplicateTemplateError = templates.DuplicateTemplateError
)

var (
	// ErrQueryConstruction matches any QueryConstructionError.
	ErrQueryConstruction = condition.ErrConstruction
	// ErrResolution matches any ResolutionError.
	ErrResolution = errors.New("dao: method resolution failed")
	// ErrExecution matches any ExecutionError.
	ErrExecution = errors.New("dao: execution failed")
	// ErrMapping matches any MappingError.
	ErrMapping = errors.New("dao: result mapping failed")
)

// ResolutionError is returned when a method has neither a template nor a
// derivable name, or its signature cannot be served.
type ResolutionError struct {
	Owner  string
	Method string
	Reason string
}

// Error names the method that could not be resolved.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("dao %s.%s: %s", e.Owner, e.Method, e.Reason)
}

// Is reports whether target is ErrResolution.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// ExecutionError wraps a driver error with the statement that caused it.
type ExecutionError struct {
	Owner  string
	Method string
	SQL    string
	Params []any
	Err    error
}

// Error names the method and the driver error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("dao %s.%s: execute %q with %v: %v", e.Owner, e.Method, e.SQL, e.Params, e.Err)
}

// Unwrap returns the driver error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// MappingError is returned when result rows do not fit the declared return
// type.
type MappingError struct {
	Owner  string
	Method string
	Target string
	Err    error
}

// Error names the method and the mapping failure.
func (e *MappingError) Error() string {
	return fmt.Sprintf("dao %s.%s: map result into %s: %v", e.Owner, e.Method, e.Target, e.Err)
}

// Unwrap returns the underlying conversion error.
func (e *MappingError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMapping.
func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}
