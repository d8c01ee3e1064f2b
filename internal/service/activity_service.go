package service

import (
	"context"
	"fmt"

	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/repository"
	"compliance-tracker-api/internal/workflow"

	"go.uber.org/zap"
)

// ActivityService keeps the per-user activity log.
type ActivityService struct {
	logs *repository.ActivityRepository
	opts Options
}

func NewActivityService(logs *repository.ActivityRepository, opts Options) *ActivityService {
	return &ActivityService{logs: logs, opts: opts.withDefaults()}
}

// Record appends entry. Entries without a user are dropped.
func (s *ActivityService) Record(ctx context.Context, entry models.AppLog) error {
	if entry.UserID == 0 {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.opts.Now()
	}
	if err := s.logs.Create(ctx, &entry); err != nil {
		return fmt.Errorf("record %s: %w", entry.Action, err)
	}
	s.opts.Log.Debug("activity recorded",
		zap.Uint("user_id", entry.UserID),
		zap.String("action", entry.Action),
	)
	return nil
}

// List returns one page of the log, newest first. Only admins may read it.
func (s *ActivityService) List(ctx context.Context, actor workflow.Actor, f repository.ActivityFilter) (dto.AppLogPage, error) {
	if !actor.IsAdmin() {
		return dto.AppLogPage{}, fmt.Errorf("%w: only admins can read the activity log", workflow.ErrForbidden)
	}
	f.Normalize()
	entries, total, err := s.logs.List(ctx, f)
	if err != nil {
		return dto.AppLogPage{}, err
	}
	return dto.AppLogPage{
		Count:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: int((total + int64(f.PageSize) - 1) / int64(f.PageSize)),
		Results:    entries,
	}, nil
}
