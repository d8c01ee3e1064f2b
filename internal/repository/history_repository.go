package repository

import (
	"context"

	"compliance-tracker-api/internal/models"

	"gorm.io/gorm"
)

// HistoryRepository reads the append-only audit trails of tasks. Entries are
// written by TaskRepository.Save only.
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// StatusHistory returns the status transitions of a task, oldest first
func (r *HistoryRepository) StatusHistory(ctx context.Context, taskID uint) ([]models.StatusHistory, error) {
	entries := []models.StatusHistory{}
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, err
}

// ApprovalHistory returns the approval decisions of a task, oldest first
func (r *HistoryRepository) ApprovalHistory(ctx context.Context, taskID uint) ([]models.ApprovalHistory, error) {
	entries := []models.ApprovalHistory{}
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, err
}
