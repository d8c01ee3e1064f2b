package client

import (
	"errors"
	"fmt"
	"net/http"

	"compliance-tracker-api/internal/workflow"
)

var (
	// ErrInProgress is returned without a request when a mutation on the
	// same task is already awaiting its response.
	ErrInProgress = errors.New("a request for this task is already in progress")
	// ErrNetwork wraps transport failures.
	ErrNetwork = errors.New("network failure")
	// ErrServer matches any 5xx response.
	ErrServer = errors.New("server error")
	// ErrUnauthorized matches 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a decoded error envelope.
type APIError struct {
	Status  int
	Kind    string
	Message string
	Reason  string
	Details []workflow.FieldError
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%d %s): %s", e.Message, e.Status, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Kind)
}

// Is maps the error kind back onto the workflow sentinels so callers can
// use errors.Is the same way on both sides of the wire.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrServer:
		return e.Status >= http.StatusInternalServerError
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	sentinel := workflow.ErrorForKind(e.Kind)
	return sentinel != nil && sentinel == target
}

// IsTransient reports whether retrying the same request may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer)
}
