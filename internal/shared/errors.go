package shared

import "fmt"

// ValidationError signals malformed or out-of-range input. Field names the
// offending column or attribute so the admin UI can highlight it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError signals a duplicate unique key (account code, period code,
// column code).
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.Key)
}

// NotFoundError names the entity and identifier that could not be resolved.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// InvalidStateError signals an operation forbidden in the current state,
// such as a write against a closed fiscal year.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return "invalid state: " + e.Reason
}

// DataIntegrityError signals a structurally broken account tree: a dangling
// parent pointer, a kind mismatch between parent and child, or an inactive
// parent referenced by an active node. Surfaced, never silently skipped.
type DataIntegrityError struct {
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return "data integrity: " + e.Reason
}

// SerializationError signals an export requested on a table with nothing to
// render.
type SerializationError struct {
	Reason string
}

func (e *SerializationError) Error() string {
	return "serialization: " + e.Reason
}
