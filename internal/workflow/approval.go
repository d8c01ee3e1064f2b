package workflow

import (
	"fmt"
	"time"

	"compliance-tracker-api/internal/models"

	"gorm.io/datatypes"
)

// Decision is one approver's verdict on the current step. Step, when set, is
// the step the approver believes is current.
type Decision struct {
	Action   models.ApprovalAction
	Comments string
	Step     *int
}

// Outcome is what a decision changed. StatusChange is nil when the chain
// simply advanced.
type Outcome struct {
	Approval     models.ApprovalHistory
	StatusChange *models.StatusHistory
}

// ParseAction accepts approve/reject and their past-tense forms.
func ParseAction(raw string) (models.ApprovalAction, bool) {
	switch raw {
	case "approve", "approved":
		return models.ActionApprove, true
	case "reject", "rejected":
		return models.ActionReject, true
	}
	return "", false
}

// Initiate starts a sequential approval chain on task. approvers must be the
// resolved users in chain order.
func Initiate(task *models.Task, approvers []models.User, actor Actor, now time.Time) (models.StatusHistory, error) {
	if task.AssignedTo != actor.ID && !actor.IsAdmin() {
		return models.StatusHistory{}, fmt.Errorf("%w: only the assignee or an admin can request approval", ErrForbidden)
	}
	if task.RequiresApproval {
		return models.StatusHistory{}, fmt.Errorf("%w: approval already in progress", ErrInvalidState)
	}
	if !eligibleForApproval(task.Status) {
		return models.StatusHistory{}, fmt.Errorf("%w: cannot request approval while %s", ErrInvalidState, task.Status)
	}
	if len(approvers) == 0 {
		return models.StatusHistory{}, fmt.Errorf("%w: at least one approver is required", ErrInvalidApprovers)
	}
	ids := make(datatypes.JSONSlice[uint], 0, len(approvers))
	seen := make(map[uint]struct{}, len(approvers))
	for _, u := range approvers {
		if u.ID == 0 || !u.IsAdmin() || !u.IsActive {
			return models.StatusHistory{}, fmt.Errorf("%w: user %d is not an active admin", ErrInvalidApprovers, u.ID)
		}
		if _, dup := seen[u.ID]; dup {
			return models.StatusHistory{}, fmt.Errorf("%w: user %d listed twice", ErrInvalidApprovers, u.ID)
		}
		seen[u.ID] = struct{}{}
		ids = append(ids, u.ID)
	}

	entry := models.StatusHistory{
		TaskID:     task.ID,
		OldStatus:  task.Status,
		NewStatus:  models.StatusPendingApproval,
		ChangedBy:  actor.ID,
		ChangeType: models.ChangeApprovalInitiated,
		CreatedAt:  now,
	}
	first := ids[0]
	task.RequiresApproval = true
	task.CurrentApprovalStep = 0
	task.PendingApprover = &first
	task.AllApprovers = ids
	task.ApprovalRound++
	task.Status = models.StatusPendingApproval
	return entry, nil
}

// Decide applies actor's decision to the current step of task's chain.
func Decide(task *models.Task, d Decision, actor Actor, now time.Time) (Outcome, error) {
	if d.Action != models.ActionApprove && d.Action != models.ActionReject {
		return Outcome{}, FieldInvalid("action", "Must be one of: approve, reject.")
	}
	if err := checkDecider(task, d, actor); err != nil {
		return Outcome{}, err
	}

	step := task.CurrentApprovalStep
	out := Outcome{Approval: models.ApprovalHistory{
		TaskID:     task.ID,
		ApproverID: actor.ID,
		Action:     d.Action,
		Comments:   d.Comments,
		Step:       step,
		Round:      task.ApprovalRound,
		CreatedAt:  now,
	}}

	if d.Action == models.ActionApprove && step < len(task.AllApprovers)-1 {
		next := task.AllApprovers[step+1]
		task.CurrentApprovalStep = step + 1
		task.PendingApprover = &next
		return out, nil
	}

	change := models.StatusHistory{
		TaskID:    task.ID,
		OldStatus: task.Status,
		ChangedBy: actor.ID,
		Remarks:   d.Comments,
		CreatedAt: now,
	}
	if d.Action == models.ActionApprove {
		today := now.Format(models.DateLayout)
		if isBlankPtr(task.CompletionDate) {
			task.CompletionDate = &today
		}
		if isBlankPtr(task.DateComplied) {
			task.DateComplied = &today
		}
		change.NewStatus = models.StatusCompleted
		change.ChangeType = models.ChangeApprovalApproved
	} else {
		change.NewStatus = models.StatusForRevision
		change.ChangeType = models.ChangeApprovalRejected
	}
	task.Status = change.NewStatus
	task.RequiresApproval = false
	task.PendingApprover = nil
	out.StatusChange = &change
	return out, nil
}

func checkDecider(task *models.Task, d Decision, actor Actor) error {
	if d.Step != nil && task.RequiresApproval && *d.Step != task.CurrentApprovalStep {
		if *d.Step < task.CurrentApprovalStep {
			return fmt.Errorf("%w: step %d is already resolved", ErrAlreadyDecided, *d.Step)
		}
		return fmt.Errorf("%w: step %d is not open", ErrInvalidState, *d.Step)
	}
	if !task.RequiresApproval {
		if (d.Step != nil && task.ApprovalRound > 0) || decidedInRound(task, actor.ID, len(task.AllApprovers)) {
			return fmt.Errorf("%w: approval chain is already resolved", ErrAlreadyDecided)
		}
		return fmt.Errorf("%w: task is not awaiting approval", ErrForbidden)
	}
	if task.PendingApprover == nil || *task.PendingApprover != actor.ID {
		if decidedInRound(task, actor.ID, task.CurrentApprovalStep) {
			return fmt.Errorf("%w: step already decided by this approver", ErrAlreadyDecided)
		}
		return fmt.Errorf("%w: not the pending approver", ErrForbidden)
	}
	return nil
}

// decidedInRound reports whether approverID holds one of the first upTo steps
// of the current chain.
func decidedInRound(task *models.Task, approverID uint, upTo int) bool {
	if upTo > len(task.AllApprovers) {
		upTo = len(task.AllApprovers)
	}
	for _, id := range task.AllApprovers[:upTo] {
		if id == approverID {
			return true
		}
	}
	return false
}
