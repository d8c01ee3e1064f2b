package workflow

import (
	"fmt"
	"time"

	"compliance-tracker-api/internal/models"
)

// legacyStatuses maps older literals onto the canonical set.
var legacyStatuses = map[string]models.TaskStatus{
	"on_going": models.StatusInProgress,
	"ongoing":  models.StatusInProgress,
}

// transitions is the graph of manual status changes. pending_approval is
// entered and left only through the approval chain.
var transitions = map[models.TaskStatus][]models.TaskStatus{
	models.StatusNotYetStarted: {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {
		models.StatusPending,
		models.StatusForChecking,
		models.StatusForRevision,
		models.StatusCompleted,
		models.StatusCancelled,
	},
	models.StatusPending:     {models.StatusInProgress, models.StatusCancelled},
	models.StatusForChecking: {models.StatusInProgress, models.StatusForRevision, models.StatusCompleted, models.StatusCancelled},
	models.StatusForRevision: {models.StatusInProgress, models.StatusCompleted, models.StatusCancelled},
}

var statusLabels = map[models.TaskStatus]string{
	models.StatusNotYetStarted:   "Not Yet Started",
	models.StatusInProgress:      "In Progress",
	models.StatusPending:         "Pending",
	models.StatusForChecking:     "For Checking",
	models.StatusForRevision:     "For Revision",
	models.StatusPendingApproval: "Pending Approval",
	models.StatusCompleted:       "Completed",
	models.StatusCancelled:       "Cancelled",
}

// Statuses lists the canonical statuses.
func Statuses() []models.TaskStatus {
	return []models.TaskStatus{
		models.StatusNotYetStarted,
		models.StatusInProgress,
		models.StatusPending,
		models.StatusForChecking,
		models.StatusForRevision,
		models.StatusPendingApproval,
		models.StatusCompleted,
		models.StatusCancelled,
	}
}

// StatusLabel returns the human label of s.
func StatusLabel(s models.TaskStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// NormalizeStatus maps raw onto a canonical status.
func NormalizeStatus(raw string) (models.TaskStatus, bool) {
	if s, ok := legacyStatuses[raw]; ok {
		return s, true
	}
	s := models.TaskStatus(raw)
	_, ok := statusLabels[s]
	return s, ok
}

// CanTransition reports whether the manual graph has an edge from -> to.
func CanTransition(from, to models.TaskStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the manual targets reachable from s.
func NextStatuses(s models.TaskStatus) []models.TaskStatus {
	return append([]models.TaskStatus(nil), transitions[s]...)
}

// Transition moves task to target and returns the history entry to persist
// with it. On error task is left untouched.
func Transition(task *models.Task, target models.TaskStatus, actor Actor, remarks string, now time.Time) (models.StatusHistory, error) {
	if task.RequiresApproval {
		return models.StatusHistory{}, fmt.Errorf("%w: task is awaiting approval", ErrInvalidState)
	}
	if !CanTransition(task.Status, target) {
		return models.StatusHistory{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, target)
	}
	if target == models.StatusCompleted && (isBlankPtr(task.CompletionDate) || isBlankPtr(task.DateComplied)) {
		return models.StatusHistory{}, fmt.Errorf("%w: completion_date and date_complied are required", ErrIncompleteData)
	}

	changeType := models.ChangeManual
	if target == models.StatusCompleted {
		changeType = models.ChangeCompletion
	}
	entry := models.StatusHistory{
		TaskID:     task.ID,
		OldStatus:  task.Status,
		NewStatus:  target,
		ChangedBy:  actor.ID,
		ChangeType: changeType,
		Remarks:    remarks,
		CreatedAt:  now,
	}
	task.Status = target
	if remarks != "" {
		task.Remarks = remarks
	}
	return entry, nil
}

func isBlankPtr(s *string) bool {
	return s == nil || *s == ""
}
