package repository

import (
	"context"

	"compliance-tracker-api/internal/models"

	"gorm.io/gorm"
)

// ActivityFilter narrows the activity log. A nil UserID means every user.
type ActivityFilter struct {
	UserID   *uint
	Page     int
	PageSize int
}

// Normalize clamps paging to the same bounds as task listings.
func (f *ActivityFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an entry to the activity log
func (r *ActivityRepository) Create(ctx context.Context, entry *models.AppLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns one page of entries, newest first, with the total count
func (r *ActivityRepository) List(ctx context.Context, f ActivityFilter) ([]models.AppLog, int64, error) {
	f.Normalize()
	q := r.db.WithContext(ctx).Model(&models.AppLog{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	entries := []models.AppLog{}
	err := q.Preload("User").
		Order("created_at desc, id desc").
		Limit(f.PageSize).
		Offset((f.Page - 1) * f.PageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
