package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	StatusNotYetStarted   TaskStatus = "not_yet_started"
	StatusInProgress      TaskStatus = "in_progress"
	StatusPending         TaskStatus = "pending"
	StatusForChecking     TaskStatus = "for_checking"
	StatusForRevision     TaskStatus = "for_revision"
	StatusPendingApproval TaskStatus = "pending_approval"
	StatusCompleted       TaskStatus = "completed"
	StatusCancelled       TaskStatus = "cancelled"
)

// IsTerminal reports whether no further transition can leave the status.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// TaskCategory classifies a task and decides which extra fields it carries.
type TaskCategory string

const (
	CategoryCompliance            TaskCategory = "compliance"
	CategoryFinancialStatement    TaskCategory = "financial_statement"
	CategoryAccountingAudit       TaskCategory = "accounting_audit"
	CategoryFinanceImplementation TaskCategory = "finance_implementation"
	CategoryHRImplementation      TaskCategory = "hr_implementation"
	CategoryMiscellaneous         TaskCategory = "miscellaneous"
	CategoryTaxCase               TaskCategory = "tax_case"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Task represents a client task in the system
type Task struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	ClientID       uint         `json:"client" gorm:"column:client_id;not null;index"`
	Category       TaskCategory `json:"category" gorm:"not null;index"`
	Description    string       `json:"description" gorm:"not null"`
	AssignedTo     uint         `json:"assigned_to" gorm:"column:assigned_to;not null;index"`
	Priority       TaskPriority `json:"priority" gorm:"not null;default:'medium'"`
	Deadline       string       `json:"deadline" gorm:"not null;index"`
	Remarks        string       `json:"remarks"`
	DateComplied   *string      `json:"date_complied"`
	CompletionDate *string      `json:"completion_date"`
	Status         TaskStatus   `json:"status" gorm:"not null;default:'not_yet_started';index"`
	CreatedBy      uint         `json:"created_by" gorm:"column:created_by"`

	// Category specific
	Steps          string   `json:"steps,omitempty"`
	Requirements   string   `json:"requirements,omitempty"`
	PeriodCovered  string   `json:"period_covered,omitempty"`
	EngagementDate *string  `json:"engagement_date,omitempty"`
	StatementType  string   `json:"type,omitempty" gorm:"column:statement_type"`
	NeededData     string   `json:"needed_data,omitempty"`
	Area           string   `json:"area,omitempty"`
	TaxCategory    string   `json:"tax_category,omitempty"`
	TaxType        string   `json:"tax_type,omitempty"`
	Form           string   `json:"form,omitempty"`
	WorkingPaper   string   `json:"working_paper,omitempty"`
	TaxPayable     *float64 `json:"tax_payable,omitempty"`
	LastFollowup   *string  `json:"last_followup,omitempty"`

	// Approval chain
	RequiresApproval    bool                      `json:"requires_approval" gorm:"not null;default:false;index"`
	CurrentApprovalStep int                       `json:"current_approval_step" gorm:"not null;default:0"`
	PendingApprover     *uint                     `json:"pending_approver" gorm:"index"`
	AllApprovers        datatypes.JSONSlice[uint] `json:"all_approvers"`
	ApprovalRound       int                       `json:"approval_round" gorm:"not null;default:0"`

	Version    int       `json:"version" gorm:"not null;default:1"`
	CreatedAt  time.Time `json:"created_at"`
	LastUpdate time.Time `json:"last_update" gorm:"column:last_update;autoUpdateTime"`

	Client   *Client `json:"-" gorm:"foreignKey:ClientID"`
	Assignee *User   `json:"-" gorm:"foreignKey:AssignedTo"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// Clone returns a copy that shares no pointers or slices with t.
func (t Task) Clone() Task {
	c := t
	c.DateComplied = cloneString(t.DateComplied)
	c.CompletionDate = cloneString(t.CompletionDate)
	c.EngagementDate = cloneString(t.EngagementDate)
	c.LastFollowup = cloneString(t.LastFollowup)
	if t.TaxPayable != nil {
		v := *t.TaxPayable
		c.TaxPayable = &v
	}
	if t.PendingApprover != nil {
		v := *t.PendingApprover
		c.PendingApprover = &v
	}
	if t.AllApprovers != nil {
		c.AllApprovers = append(datatypes.JSONSlice[uint]{}, t.AllApprovers...)
	}
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
