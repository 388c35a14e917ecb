package entries

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEntryNotFound means no entry matches the identifier. A malformed
	// identifier is reported the same way.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrEntryExists is returned when creating an entry whose uuid is taken.
	ErrEntryExists = errors.New("entry already exists")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUUIDMismatch is returned when a request body names a different entry
	// than the request path.
	ErrUUIDMismatch = errors.New("uuid in body does not match uuid in path")
	// ErrNotYetAvailable marks capabilities that are announced but not built.
	ErrNotYetAvailable = errors.New("not yet available")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in one input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
