package domain

import (
	"errors"
	"fmt"
)

// Common domain errors.
var (
	// ErrKeyNotFound indicates that a requested state key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrEmptyValue indicates that a required value is empty.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// UnitError reports a failure inside a unit of the execution graph.
// It records which unit failed and what it was doing.
type UnitError struct {
	// Unit is the ID of the failing unit.
	Unit string

	// Operation describes what the unit was doing when it failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for UnitError.
func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s: %s: %v", e.Unit, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnitError) Unwrap() error { return e.Err }

// NewUnitError creates a new UnitError.
func NewUnitError(unit, operation string, err error) *UnitError {
	return &UnitError{Unit: unit, Operation: operation, Err: err}
}

// MissingStateError returns a UnitError wrapping ErrKeyNotFound for the
// given key.
func MissingStateError[T any](unit string, key Key[T]) *UnitError {
	return NewUnitError(unit, "read state", fmt.Errorf("%s: %w", key.name, ErrKeyNotFound))
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: make([]string, 0)}
}
