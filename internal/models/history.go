package models

import "time"

// StatusChangeType records what caused a status change.
type StatusChangeType string

const (
	ChangeManual            StatusChangeType = "manual"
	ChangeCompletion        StatusChangeType = "completion"
	ChangeApprovalInitiated StatusChangeType = "approval_initiated"
	ChangeApprovalApproved  StatusChangeType = "approval_approved"
	ChangeApprovalRejected  StatusChangeType = "approval_rejected"
)

// StatusHistory is one executed status transition. Rows are insert-only.
type StatusHistory struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	TaskID     uint             `json:"task" gorm:"column:task_id;not null;index"`
	OldStatus  TaskStatus       `json:"old_status" gorm:"not null"`
	NewStatus  TaskStatus       `json:"new_status" gorm:"not null"`
	ChangedBy  uint             `json:"changed_by" gorm:"not null"`
	ChangeType StatusChangeType `json:"change_type" gorm:"not null"`
	Remarks    string           `json:"remarks"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TableName specifies the table name for StatusHistory Model
func (StatusHistory) TableName() string {
	return "task_status_history"
}

// ApprovalAction is the decision an approver makes on a step.
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
)

// ApprovalHistory is one approval decision. Rows are insert-only.
type ApprovalHistory struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	TaskID     uint           `json:"task" gorm:"column:task_id;not null;index"`
	ApproverID uint           `json:"approver" gorm:"column:approver_id;not null;index"`
	Action     ApprovalAction `json:"action" gorm:"not null"`
	Comments   string         `json:"comments"`
	Step       int            `json:"approval_step" gorm:"column:approval_step;not null"`
	Round      int            `json:"approval_round" gorm:"column:approval_round;not null"`
	CreatedAt  time.Time      `json:"created_at"`
}

// TableName specifies the table name for ApprovalHistory Model
func (ApprovalHistory) TableName() string {
	return "task_approval_history"
}

// All lists every model handled by AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Client{},
		&Task{},
		&StatusHistory{},
		&ApprovalHistory{},
		&AppLog{},
	}
}
