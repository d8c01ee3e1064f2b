package repository

import (
	"fmt"

	"compliance-tracker-api/internal/workflow"
)

// Common repository errors
var (
	// ErrTaskNotFound is returned when a task is not found
	ErrTaskNotFound = fmt.Errorf("task %w", workflow.ErrNotFound)

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = fmt.Errorf("user %w", workflow.ErrNotFound)

	// ErrClientNotFound is returned when a client is not found
	ErrClientNotFound = fmt.Errorf("client %w", workflow.ErrNotFound)

	// ErrStaleTask is returned when a task changed since it was read
	ErrStaleTask = fmt.Errorf("task was modified concurrently: %w", workflow.ErrConflict)
)
