package dto

import (
	"time"

	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/workflow"
)

// TransitionRequest represents a minimal request to change status
type TransitionRequest struct {
	Status         string  `json:"status" binding:"required"`
	Remarks        string  `json:"remarks"`
	CompletionDate *string `json:"completion_date"`
	DateComplied   *string `json:"date_complied"`
}

// CompletionRequest is the body of mark_completed
type CompletionRequest struct {
	CompletionDate string `json:"completion_date"`
	DateComplied   string `json:"date_complied"`
	Remarks        string `json:"remarks"`
}

// DeadlineRequest is the body of update-deadline
type DeadlineRequest struct {
	Deadline string `json:"deadline" binding:"required"`
	Remarks  string `json:"remarks"`
}

// InitiateApprovalRequest lists approvers in chain order
type InitiateApprovalRequest struct {
	Approvers []uint `json:"approvers"`
}

// ProcessApprovalRequest is one approver's decision. Step is optional and
// guards against deciding on a step that already moved on.
type ProcessApprovalRequest struct {
	Action   string `json:"action" binding:"required"`
	Comments string `json:"comments"`
	Remarks  string `json:"remarks"`
	Step     *int   `json:"step,omitempty"`
}

// Note returns the decision comment, accepting remarks as an alias.
func (r ProcessApprovalRequest) Note() string {
	if r.Comments != "" {
		return r.Comments
	}
	return r.Remarks
}

// TaskResponse is a task with the fields derived for the requesting actor.
type TaskResponse struct {
	models.Task
	ClientName            string               `json:"client_name"`
	AssignedToName        string               `json:"assigned_to_name"`
	CategoryDisplay       string               `json:"category_display"`
	StatusDisplay         string               `json:"status_display"`
	DeadlineDaysRemaining *int                 `json:"deadline_days_remaining"`
	Permissions           workflow.Permissions `json:"permissions"`
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Count      int64          `json:"count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	Results    []TaskResponse `json:"results"`
}

// Present decorates task for actor looking at it from view on day today.
func Present(task models.Task, actor workflow.Actor, view workflow.View, today time.Time) TaskResponse {
	resp := TaskResponse{
		Task:            task,
		CategoryDisplay: workflow.CategoryDisplay(task.Category),
		StatusDisplay:   workflow.StatusLabel(task.Status),
		Permissions:     workflow.PermissionsFor(task, actor, view),
	}
	if task.Client != nil {
		resp.ClientName = task.Client.Name
	}
	if task.Assignee != nil {
		resp.AssignedToName = task.Assignee.DisplayName()
	}
	if !task.Status.IsTerminal() {
		resp.DeadlineDaysRemaining = DaysUntil(task.Deadline, today)
	}
	return resp
}

// PresentAll decorates every task in tasks.
func PresentAll(tasks []models.Task, actor workflow.Actor, view workflow.View, today time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, Present(t, actor, view, today))
	}
	return out
}

// DaysUntil returns whole calendar days from today to deadline, negative when
// overdue, or nil when deadline does not parse.
func DaysUntil(deadline string, today time.Time) *int {
	d, err := time.Parse(models.DateLayout, deadline)
	if err != nil {
		return nil
	}
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(start).Hours() / 24)
	return &days
}

// Statistics summarises all tasks.
type Statistics struct {
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
	ByPriority map[string]int64 `json:"by_priority"`
	Summary    StatsSummary     `json:"summary"`
}

type StatsSummary struct {
	Total           int64   `json:"total"`
	Overdue         int64   `json:"overdue"`
	DueSoon         int64   `json:"due_soon"`
	PendingApproval int64   `json:"pending_approval"`
	Completed       int64   `json:"completed"`
	CompletionRate  float64 `json:"completion_rate"`
}

// AuditTrail bundles both history logs of a task.
type AuditTrail struct {
	StatusHistory   []models.StatusHistory   `json:"status_history"`
	ApprovalHistory []models.ApprovalHistory `json:"approval_history"`
}
