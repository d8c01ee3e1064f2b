package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"compliance-tracker-api/internal/cache"
	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/realtime"
	"compliance-tracker-api/internal/repository"
	"compliance-tracker-api/internal/workflow"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const statsKey = "all"

// TaskService runs task reads and writes against the repositories, pushing
// an event for every change.
type TaskService struct {
	tasks   *repository.TaskRepository
	users   *repository.UserRepository
	clients *repository.ClientRepository
	history *repository.HistoryRepository
	events  Publisher
	stats   *cache.TTLCache[string, dto.Statistics]
	opts    Options
}

func NewTaskService(
	tasks *repository.TaskRepository,
	users *repository.UserRepository,
	clients *repository.ClientRepository,
	history *repository.HistoryRepository,
	events Publisher,
	opts Options,
) *TaskService {
	opts = opts.withDefaults()
	if events == nil {
		events = nopPublisher{}
	}
	return &TaskService{
		tasks:   tasks,
		users:   users,
		clients: clients,
		history: history,
		events:  events,
		stats:   cache.New[string, dto.Statistics](opts.StatsTTL),
		opts:    opts,
	}
}

// Present decorates task for actor as of now.
func (s *TaskService) Present(task models.Task, actor workflow.Actor, view workflow.View) dto.TaskResponse {
	return dto.Present(task, actor, view, s.opts.Now())
}

func (s *TaskService) today() string {
	return s.opts.Now().Format(models.DateLayout)
}

// List returns one page of tasks matching f.
func (s *TaskService) List(ctx context.Context, actor workflow.Actor, view workflow.View, f repository.TaskFilter) (dto.TaskPage, error) {
	f.Normalize()
	tasks, total, err := s.tasks.List(ctx, f)
	if err != nil {
		return dto.TaskPage{}, err
	}
	return dto.TaskPage{
		Count:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: int((total + int64(f.PageSize) - 1) / int64(f.PageSize)),
		Results:    dto.PresentAll(tasks, actor, view, s.opts.Now()),
	}, nil
}

func (s *TaskService) Get(ctx context.Context, id uint) (*models.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// Create validates payload against its category and stores a new task.
func (s *TaskService) Create(ctx context.Context, actor workflow.Actor, payload workflow.Fields) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can create tasks", workflow.ErrForbidden)
	}
	fields := workflow.WithDefaults(payload)
	if err := workflow.Validate(fields); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, fields); err != nil {
		return nil, err
	}

	task := &models.Task{}
	if err := decodeFields(fields, task); err != nil {
		return nil, err
	}
	task.Status = models.StatusNotYetStarted
	task.CreatedBy = actor.ID
	task.AllApprovers = datatypes.JSONSlice[uint]{}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	created, err := s.tasks.GetByID(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.changed(realtime.EventTaskCreated, created, actor)
	return created, nil
}

// Replace overwrites every editable field of a task (PUT). Absent optional
// fields return to their defaults.
func (s *TaskService) Replace(ctx context.Context, actor workflow.Actor, id uint, payload workflow.Fields) (*models.Task, error) {
	return s.update(ctx, actor, id, payload, false)
}

// Patch changes only the fields present in payload (PATCH).
func (s *TaskService) Patch(ctx context.Context, actor workflow.Actor, id uint, payload workflow.Fields) (*models.Task, error) {
	return s.update(ctx, actor, id, payload, true)
}

func (s *TaskService) update(ctx context.Context, actor workflow.Actor, id uint, payload workflow.Fields, partial bool) (*models.Task, error) {
	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(current, actor); err != nil {
		return nil, err
	}
	if raw, ok := payload["category"]; ok {
		if c, _ := raw.(string); c != string(current.Category) {
			return nil, workflow.FieldInvalid("category", "Category cannot be changed.")
		}
	}

	merged := workflow.DefaultValues(current.Category)
	if partial {
		if merged, err = fieldsOf(current); err != nil {
			return nil, err
		}
	}
	for k, v := range payload {
		merged[k] = v
	}
	merged["category"] = string(current.Category)
	merged = workflow.WithDefaults(merged)

	if err := workflow.Validate(merged); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, merged); err != nil {
		return nil, err
	}

	_, err = s.mutate(ctx, id, actor, func(t *models.Task) (change, error) {
		if err := checkEditable(t, actor); err != nil {
			return change{}, err
		}
		if err := decodeFields(merged, t); err != nil {
			return change{}, err
		}
		return change{event: realtime.EventTaskUpdated}, nil
	})
	if err != nil {
		return nil, err
	}
	// Client and assignee may have changed; reload the associations.
	return s.tasks.GetByID(ctx, id)
}

// Delete removes a task. Its history rows stay behind as the audit trail.
func (s *TaskService) Delete(ctx context.Context, actor workflow.Actor, id uint) error {
	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := checkEditable(current, actor); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(realtime.EventTaskDeleted, current, actor)
	return nil
}

func (s *TaskService) StatusHistory(ctx context.Context, id uint) ([]models.StatusHistory, error) {
	if _, err := s.tasks.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.history.StatusHistory(ctx, id)
}

func (s *TaskService) ApprovalHistory(ctx context.Context, id uint) ([]models.ApprovalHistory, error) {
	if _, err := s.tasks.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ApprovalHistory(ctx, id)
}

// PendingApprovals lists the tasks waiting on actor's decision.
func (s *TaskService) PendingApprovals(ctx context.Context, actor workflow.Actor) ([]models.Task, error) {
	return s.tasks.PendingFor(ctx, actor.ID)
}

// Overdue lists open tasks past their deadline.
func (s *TaskService) Overdue(ctx context.Context) ([]models.Task, error) {
	return s.tasks.Overdue(ctx, s.today())
}

// DueSoon lists open tasks due within days. Non-positive days use the
// configured window.
func (s *TaskService) DueSoon(ctx context.Context, days int) ([]models.Task, error) {
	if days <= 0 {
		days = s.opts.DueSoonDays
	}
	until := s.opts.Now().AddDate(0, 0, days).Format(models.DateLayout)
	return s.tasks.DueSoon(ctx, s.today(), until)
}

// Statistics returns the dashboard counters, cached until the next change.
func (s *TaskService) Statistics(ctx context.Context) (dto.Statistics, error) {
	return s.stats.GetOrLoad(statsKey, func() (dto.Statistics, error) {
		var st dto.Statistics
		var err error
		if st.ByStatus, err = s.tasks.CountBy(ctx, "status"); err != nil {
			return st, err
		}
		if st.ByCategory, err = s.tasks.CountBy(ctx, "category"); err != nil {
			return st, err
		}
		if st.ByPriority, err = s.tasks.CountBy(ctx, "priority"); err != nil {
			return st, err
		}

		until := s.opts.Now().AddDate(0, 0, s.opts.DueSoonDays).Format(models.DateLayout)
		sum, err := s.tasks.Summary(ctx, s.today(), until)
		if err != nil {
			return st, err
		}
		st.Summary = dto.StatsSummary{
			Total:           sum.Total,
			Overdue:         sum.Overdue,
			DueSoon:         sum.DueSoon,
			PendingApproval: sum.PendingApproval,
			Completed:       sum.Completed,
		}
		if sum.Total > 0 {
			st.Summary.CompletionRate = math.Round(float64(sum.Completed)/float64(sum.Total)*10000) / 100
		}
		return st, nil
	})
}

// change describes what an operation did to a task.
type change struct {
	event    realtime.EventType
	status   *models.StatusHistory
	approval *models.ApprovalHistory
}

type operation func(task *models.Task) (change, error)

// mutate applies op to a copy of the stored task and saves it with the
// history entries op produced. A concurrent write makes it re-run op once on
// the fresh row, so a decision that has since been made elsewhere surfaces
// as op's own error.
func (s *TaskService) mutate(ctx context.Context, id uint, actor workflow.Actor, op operation) (*models.Task, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.tasks.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		ch, err := op(&next)
		if err != nil {
			return nil, err
		}

		err = s.tasks.Save(ctx, &next, current.Version, ch.status, ch.approval)
		if errors.Is(err, repository.ErrStaleTask) && attempt == 1 {
			s.opts.Log.Info("task changed concurrently, re-evaluating",
				zap.Uint("task_id", id),
				zap.Int("version", current.Version),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.changed(ch.event, &next, actor)
		return &next, nil
	}
}

func (s *TaskService) changed(evt realtime.EventType, task *models.Task, actor workflow.Actor) {
	s.stats.Clear()
	s.events.Publish(realtime.Event{
		Type:            evt,
		TaskID:          task.ID,
		ActorID:         actor.ID,
		Status:          string(task.Status),
		PendingApprover: task.PendingApprover,
		Version:         task.Version,
		At:              s.opts.Now(),
	}, recipients(task, actor.ID)...)
}

func checkEditable(task *models.Task, actor workflow.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins can edit or delete tasks", workflow.ErrForbidden)
	}
	if !workflow.PermissionsFor(*task, actor, workflow.ViewTasks).CanEdit {
		return fmt.Errorf("%w: only tasks that have not started can be edited or deleted", workflow.ErrInvalidState)
	}
	return nil
}

// checkReferences turns a missing client or assignee into field errors.
func (s *TaskService) checkReferences(ctx context.Context, fields workflow.Fields) error {
	var errs []workflow.FieldError
	if id, ok := fieldID(fields["client"]); ok {
		if _, err := s.clients.GetByID(ctx, id); err != nil {
			if !errors.Is(err, workflow.ErrNotFound) {
				return err
			}
			errs = append(errs, workflow.FieldError{Field: "client", Message: "Client does not exist."})
		}
	}
	if id, ok := fieldID(fields["assigned_to"]); ok {
		u, err := s.users.GetByID(ctx, id)
		switch {
		case errors.Is(err, workflow.ErrNotFound):
			errs = append(errs, workflow.FieldError{Field: "assigned_to", Message: "User does not exist."})
		case err != nil:
			return err
		case !u.IsActive:
			errs = append(errs, workflow.FieldError{Field: "assigned_to", Message: "User is not active."})
		}
	}
	if len(errs) > 0 {
		return &workflow.ValidationError{Fields: errs}
	}
	return nil
}

// decodeFields writes the schema fields of a validated payload onto task.
func decodeFields(fields workflow.Fields, task *models.Task) error {
	cat, _ := fields["category"].(string)
	schema, _ := workflow.SchemaFor(models.TaskCategory(cat))
	raw, err := json.Marshal(schema.Filter(fields))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, task)
}

// fieldsOf renders a stored task as a payload map.
func fieldsOf(task *models.Task) (workflow.Fields, error) {
	raw, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	fields := workflow.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func fieldID(v any) (uint, bool) {
	switch n := v.(type) {
	case float64:
		if n >= 1 && n == math.Trunc(n) {
			return uint(n), true
		}
	case int:
		if n >= 1 {
			return uint(n), true
		}
	case uint:
		return n, n >= 1
	case json.Number:
		if i, err := n.Int64(); err == nil && i >= 1 {
			return uint(i), true
		}
	}
	return 0, false
}
