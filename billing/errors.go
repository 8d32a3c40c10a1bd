package billing

import (
	"errors"
	"fmt"

	"github.com/satheeshds/invoicing/models"
)

var (
	// ErrNotFound is returned when an invoice or client id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentUpdate is returned when a record kept changing underneath
	// a read-modify-write cycle and the retries ran out.
	ErrConcurrentUpdate = errors.New("record was modified concurrently")
)

// ValidationError reports malformed or out-of-range input, per field.
type ValidationError struct {
	Fields models.FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.String()
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: models.FieldErrors{field: msg}}
}

// ConflictError reports an operation that is well-formed but not allowed in
// the current state, such as deleting a paid invoice.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func conflictf(format string, args ...any) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

func validation(fields models.FieldErrors) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
