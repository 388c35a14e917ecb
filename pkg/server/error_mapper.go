package server

import (
	"errors"

	"github.com/unowned-ai/daybook/pkg/entries"
)

// MapError converts a loader error to a ProblemDetails response.
func MapError(err error) *ProblemDetails {
	if err == nil {
		return nil
	}

	var verr *entries.ValidationError
	switch {
	case errors.Is(err, entries.ErrEntryNotFound):
		return NewNotFoundError("entry")
	case errors.As(err, &verr):
		return NewValidationError(verr.Fields)
	case errors.Is(err, entries.ErrUUIDMismatch):
		return NewValidationError([]entries.FieldError{{Field: "uuid", Message: err.Error()}})
	case errors.Is(err, entries.ErrEntryExists):
		return NewConflictError(err.Error())
	case errors.Is(err, entries.ErrNotYetAvailable):
		return NewNotImplementedError("this action")
	default:
		return NewInternalError("")
	}
}
