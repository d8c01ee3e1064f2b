package workflow

import (
	"errors"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyDecided    = errors.New("already decided")
	ErrIncompleteData    = errors.New("incomplete data")
	ErrInvalidApprovers  = errors.New("invalid approvers")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
)

// FieldError is a single failed field rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every failed field, in schema order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// FieldInvalid builds a ValidationError for a single field.
func FieldInvalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Kind names the taxonomy bucket of err, as used on the wire.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidApprovers):
		return "invalid_approvers"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, ErrIncompleteData):
		return "incomplete_data"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "internal"
}

// ErrorForKind is the inverse of Kind for the sentinel buckets.
func ErrorForKind(kind string) error {
	switch kind {
	case "validation":
		return ErrValidation
	case "forbidden":
		return ErrForbidden
	case "invalid_state":
		return ErrInvalidState
	case "invalid_transition":
		return ErrInvalidTransition
	case "already_decided":
		return ErrAlreadyDecided
	case "incomplete_data":
		return ErrIncompleteData
	case "invalid_approvers":
		return ErrInvalidApprovers
	case "not_found":
		return ErrNotFound
	case "conflict":
		return ErrConflict
	}
	return nil
}
