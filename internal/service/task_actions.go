package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/realtime"
	"compliance-tracker-api/internal/workflow"
)

// Transition moves a task along the manual status graph.
func (s *TaskService) Transition(ctx context.Context, actor workflow.Actor, id uint, req dto.TransitionRequest) (*models.Task, error) {
	target, ok := workflow.NormalizeStatus(req.Status)
	if !ok {
		return nil, workflow.FieldInvalid("status", fmt.Sprintf("%q is not a valid status.", req.Status))
	}
	if err := checkDates(req.CompletionDate, req.DateComplied); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, actor, func(t *models.Task) (change, error) {
		if t.AssignedTo != actor.ID && !actor.IsAdmin() {
			return change{}, fmt.Errorf("%w: only the assignee or an admin can change the status", workflow.ErrForbidden)
		}
		if target == models.StatusCompleted && !t.RequiresApproval && workflow.CanTransition(t.Status, target) &&
			!workflow.PermissionsFor(*t, actor, workflow.ViewTasks).CanMarkComplete {
			return change{}, fmt.Errorf("%w: completion goes through approval unless an admin finishes their own in-progress task", workflow.ErrForbidden)
		}
		applyDates(t, req.CompletionDate, req.DateComplied)
		entry, err := workflow.Transition(t, target, actor, req.Remarks, s.opts.Now())
		if err != nil {
			return change{}, err
		}
		return change{event: realtime.EventTaskStatusChanged, status: &entry}, nil
	})
}

// MarkCompleted is the direct completion path of an admin finishing their
// own task outside the approval chain.
func (s *TaskService) MarkCompleted(ctx context.Context, actor workflow.Actor, id uint, req dto.CompletionRequest) (*models.Task, error) {
	if err := checkDates(&req.CompletionDate, &req.DateComplied); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, actor, func(t *models.Task) (change, error) {
		switch {
		case t.RequiresApproval:
			return change{}, fmt.Errorf("%w: task is awaiting approval", workflow.ErrInvalidState)
		case !actor.IsAdmin() || t.AssignedTo != actor.ID:
			return change{}, fmt.Errorf("%w: only an admin assigned to the task can mark it completed", workflow.ErrForbidden)
		case t.Status != models.StatusInProgress:
			return change{}, fmt.Errorf("%w: only in-progress tasks can be marked completed", workflow.ErrInvalidTransition)
		}
		applyDates(t, &req.CompletionDate, &req.DateComplied)
		entry, err := workflow.Transition(t, models.StatusCompleted, actor, req.Remarks, s.opts.Now())
		if err != nil {
			return change{}, err
		}
		return change{event: realtime.EventTaskStatusChanged, status: &entry}, nil
	})
}

// UpdateDeadline moves the deadline of an open task.
func (s *TaskService) UpdateDeadline(ctx context.Context, actor workflow.Actor, id uint, req dto.DeadlineRequest) (*models.Task, error) {
	deadline := strings.TrimSpace(req.Deadline)
	if deadline == "" {
		return nil, workflow.FieldInvalid("deadline", "This field is required.")
	}
	if _, err := time.Parse(models.DateLayout, deadline); err != nil {
		return nil, workflow.FieldInvalid("deadline", "Must be a date in YYYY-MM-DD format.")
	}

	return s.mutate(ctx, id, actor, func(t *models.Task) (change, error) {
		if t.AssignedTo != actor.ID && !actor.IsAdmin() {
			return change{}, fmt.Errorf("%w: only the assignee or an admin can move the deadline", workflow.ErrForbidden)
		}
		if t.Status.IsTerminal() {
			return change{}, fmt.Errorf("%w: task is %s", workflow.ErrInvalidState, t.Status)
		}
		t.Deadline = deadline
		if req.Remarks != "" {
			t.Remarks = req.Remarks
		}
		return change{event: realtime.EventTaskDeadlineMoved}, nil
	})
}

// InitiateApproval starts an approval chain through approverIDs, in order.
func (s *TaskService) InitiateApproval(ctx context.Context, actor workflow.Actor, id uint, approverIDs []uint) (*models.Task, error) {
	if _, err := s.tasks.GetByID(ctx, id); err != nil {
		return nil, err
	}
	approvers, err := s.users.FindByIDs(ctx, approverIDs)
	if err != nil {
		return nil, err
	}
	found := make(map[uint]struct{}, len(approvers))
	for _, u := range approvers {
		found[u.ID] = struct{}{}
	}
	for _, aid := range approverIDs {
		if _, ok := found[aid]; !ok {
			return nil, fmt.Errorf("%w: user %d does not exist", workflow.ErrInvalidApprovers, aid)
		}
	}

	return s.mutate(ctx, id, actor, func(t *models.Task) (change, error) {
		entry, err := workflow.Initiate(t, approvers, actor, s.opts.Now())
		if err != nil {
			return change{}, err
		}
		return change{event: realtime.EventApprovalRequested, status: &entry}, nil
	})
}

// ProcessApproval records actor's decision on the current approval step.
func (s *TaskService) ProcessApproval(ctx context.Context, actor workflow.Actor, id uint, req dto.ProcessApprovalRequest) (*models.Task, error) {
	action, ok := workflow.ParseAction(req.Action)
	if !ok {
		return nil, workflow.FieldInvalid("action", "Must be one of: approve, reject.")
	}
	decision := workflow.Decision{Action: action, Comments: req.Note(), Step: req.Step}

	return s.mutate(ctx, id, actor, func(t *models.Task) (change, error) {
		outcome, err := workflow.Decide(t, decision, actor, s.opts.Now())
		if err != nil {
			return change{}, err
		}
		return change{
			event:    realtime.EventApprovalDecided,
			status:   outcome.StatusChange,
			approval: &outcome.Approval,
		}, nil
	})
}

func checkDates(completion, complied *string) error {
	var errs []workflow.FieldError
	for _, d := range []struct {
		field string
		value *string
	}{
		{"completion_date", completion},
		{"date_complied", complied},
	} {
		if d.value == nil || strings.TrimSpace(*d.value) == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, strings.TrimSpace(*d.value)); err != nil {
			errs = append(errs, workflow.FieldError{Field: d.field, Message: "Must be a date in YYYY-MM-DD format."})
		}
	}
	if len(errs) > 0 {
		return &workflow.ValidationError{Fields: errs}
	}
	return nil
}

// applyDates sets the completion metadata that was supplied and leaves the
// rest as stored.
func applyDates(t *models.Task, completion, complied *string) {
	if completion != nil && strings.TrimSpace(*completion) != "" {
		v := strings.TrimSpace(*completion)
		t.CompletionDate = &v
	}
	if complied != nil && strings.TrimSpace(*complied) != "" {
		v := strings.TrimSpace(*complied)
		t.DateComplied = &v
	}
}
