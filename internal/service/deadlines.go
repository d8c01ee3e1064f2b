package service

import (
	"context"

	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/repository"
)

// UsersWithDeadlines summarises open deadlines per assignee, most overdue
// first. Users without open tasks are left out.
func (s *TaskService) UsersWithDeadlines(ctx context.Context) ([]dto.UserDeadlines, error) {
	rows, err := s.deadlineRows(ctx, repository.GroupByAssignee)
	if err != nil {
		return nil, err
	}
	users, err := s.users.FindByIDs(ctx, ownerIDs(rows))
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]dto.UserDeadlines, 0, len(rows))
	for _, row := range rows {
		u, ok := byID[row.OwnerID]
		if !ok {
			continue
		}
		out = append(out, dto.UserDeadlines{User: u, DeadlineLoad: s.deadlineLoad(row)})
	}
	return out, nil
}

// ClientsWithDeadlines summarises open deadlines per client, most overdue
// first.
func (s *TaskService) ClientsWithDeadlines(ctx context.Context) ([]dto.ClientDeadlines, error) {
	rows, err := s.deadlineRows(ctx, repository.GroupByClient)
	if err != nil {
		return nil, err
	}
	clients, err := s.clients.FindByIDs(ctx, ownerIDs(rows))
	if err != nil {
		return nil, err
	}

	out := make([]dto.ClientDeadlines, 0, len(rows))
	for _, row := range rows {
		c, ok := clients[row.OwnerID]
		if !ok {
			continue
		}
		out = append(out, dto.ClientDeadlines{Client: c, DeadlineLoad: s.deadlineLoad(row)})
	}
	return out, nil
}

// DeadlineTasks lists the open tasks of one user, earliest deadline first.
func (s *TaskService) DeadlineTasks(ctx context.Context, userID uint) ([]models.Task, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.tasks.OpenFor(ctx, userID)
}

func (s *TaskService) deadlineRows(ctx context.Context, g repository.DeadlineGroup) ([]repository.DeadlineRow, error) {
	until := s.opts.Now().AddDate(0, 0, s.opts.DueSoonDays).Format(models.DateLayout)
	return s.tasks.DeadlineLoads(ctx, g, s.today(), until)
}

func (s *TaskService) deadlineLoad(row repository.DeadlineRow) dto.DeadlineLoad {
	return dto.DeadlineLoad{
		OpenTasks:     row.OpenTasks,
		Overdue:       row.Overdue,
		DueSoon:       row.DueSoon,
		NextDeadline:  row.NextDeadline,
		DaysRemaining: dto.DaysUntil(row.NextDeadline, s.opts.Now()),
	}
}

func ownerIDs(rows []repository.DeadlineRow) []uint {
	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = r.OwnerID
	}
	return ids
}
