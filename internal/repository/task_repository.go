package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"compliance-tracker-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskFilter narrows a task listing. Zero values mean "no filter".
type TaskFilter struct {
	AssignedTo       *uint
	ClientID         *uint
	Category         models.TaskCategory
	Statuses         []models.TaskStatus
	ExcludeStatuses  []models.TaskStatus
	Priority         models.TaskPriority
	RequiresApproval *bool
	PendingApprover  *uint
	DeadlineGTE      string
	DeadlineLTE      string
	DeadlineLT       string
	Search           string
	Ordering         string
	Page             int
	PageSize         int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var orderings = map[string]string{
	"deadline":     "deadline asc, id asc",
	"-deadline":    "deadline desc, id desc",
	"priority":     "priority asc, id asc",
	"-priority":    "priority desc, id desc",
	"created_at":   "created_at asc, id asc",
	"-created_at":  "created_at desc, id desc",
	"last_update":  "last_update asc, id asc",
	"-last_update": "last_update desc, id desc",
	"status":       "status asc, id asc",
	"-status":      "status desc, id desc",
}

// Normalize clamps paging and resolves the ordering clause.
func (f *TaskFilter) Normalize() string {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	order, ok := orderings[f.Ordering]
	if !ok {
		f.Ordering = "-created_at"
		order = orderings[f.Ordering]
	}
	return order
}

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	task.Version = 1
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// GetByID retrieves a task with its client and assignee
func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	result := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Assignee").
		First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// List returns one page of tasks matching f and the total match count
func (r *TaskRepository) List(ctx context.Context, f TaskFilter) ([]models.Task, int64, error) {
	order := f.Normalize()

	total, err := r.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	var tasks []models.Task
	err = r.applyFilter(r.db.WithContext(ctx), f).
		Preload("Client").
		Preload("Assignee").
		Order(order).
		Limit(f.PageSize).
		Offset((f.Page - 1) * f.PageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Count returns how many tasks match f, ignoring paging
func (r *TaskRepository) Count(ctx context.Context, f TaskFilter) (int64, error) {
	var total int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.Task{}), f).Count(&total).Error
	return total, err
}

// CountBy groups all tasks by one of status, category or priority
func (r *TaskRepository) CountBy(ctx context.Context, column string) (map[string]int64, error) {
	switch column {
	case "status", "category", "priority":
	default:
		return nil, errors.New("unsupported grouping column: " + column)
	}

	type row struct {
		Bucket string
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select(column + " AS bucket, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Bucket] = rw.Total
	}
	return counts, nil
}

// PendingFor returns the tasks whose current approval step waits on approverID
func (r *TaskRepository) PendingFor(ctx context.Context, approverID uint) ([]models.Task, error) {
	yes := true
	return r.find(ctx, TaskFilter{RequiresApproval: &yes, PendingApprover: &approverID}, "deadline asc, id asc")
}

// Overdue returns open tasks whose deadline is before today (YYYY-MM-DD)
func (r *TaskRepository) Overdue(ctx context.Context, today string) ([]models.Task, error) {
	return r.find(ctx, TaskFilter{DeadlineLT: today, ExcludeStatuses: terminalStatuses}, "deadline asc, id asc")
}

// OpenFor returns the open tasks assigned to userID, earliest deadline first
func (r *TaskRepository) OpenFor(ctx context.Context, userID uint) ([]models.Task, error) {
	return r.find(ctx, TaskFilter{AssignedTo: &userID, ExcludeStatuses: terminalStatuses}, "deadline asc, id asc")
}

// DueSoon returns open tasks due between today and until, both inclusive
func (r *TaskRepository) DueSoon(ctx context.Context, today, until string) ([]models.Task, error) {
	return r.find(ctx, TaskFilter{DeadlineGTE: today, DeadlineLTE: until, ExcludeStatuses: terminalStatuses}, "deadline asc, id asc")
}

// Summary holds the headline counters of the task table.
type Summary struct {
	Total           int64
	Overdue         int64
	DueSoon         int64
	PendingApproval int64
	Completed       int64
}

// Summary counts tasks overall and in the overdue, due soon, awaiting
// approval and completed buckets
func (r *TaskRepository) Summary(ctx context.Context, today, until string) (Summary, error) {
	yes := true
	var s Summary
	counts := []struct {
		dst *int64
		f   TaskFilter
	}{
		{&s.Total, TaskFilter{}},
		{&s.Overdue, TaskFilter{DeadlineLT: today, ExcludeStatuses: terminalStatuses}},
		{&s.DueSoon, TaskFilter{DeadlineGTE: today, DeadlineLTE: until, ExcludeStatuses: terminalStatuses}},
		{&s.PendingApproval, TaskFilter{RequiresApproval: &yes}},
		{&s.Completed, TaskFilter{Statuses: []models.TaskStatus{models.StatusCompleted}}},
	}
	for _, c := range counts {
		n, err := r.Count(ctx, c.f)
		if err != nil {
			return Summary{}, err
		}
		*c.dst = n
	}
	return s, nil
}

var terminalStatuses = []models.TaskStatus{models.StatusCompleted, models.StatusCancelled}

func (r *TaskRepository) find(ctx context.Context, f TaskFilter, order string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := r.applyFilter(r.db.WithContext(ctx), f).
		Preload("Client").
		Preload("Assignee").
		Order(order).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) applyFilter(q *gorm.DB, f TaskFilter) *gorm.DB {
	if f.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *f.AssignedTo)
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if len(f.ExcludeStatuses) > 0 {
		q = q.Where("status NOT IN ?", f.ExcludeStatuses)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.RequiresApproval != nil {
		q = q.Where("requires_approval = ?", *f.RequiresApproval)
	}
	if f.PendingApprover != nil {
		q = q.Where("pending_approver = ?", *f.PendingApprover)
	}
	if f.DeadlineGTE != "" {
		q = q.Where("deadline >= ?", f.DeadlineGTE)
	}
	if f.DeadlineLTE != "" {
		q = q.Where("deadline <= ?", f.DeadlineLTE)
	}
	if f.DeadlineLT != "" {
		q = q.Where("deadline < ?", f.DeadlineLT)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(description) LIKE ? OR LOWER(remarks) LIKE ? OR client_id IN (?)",
			like, like,
			r.db.Model(&models.Client{}).Select("id").Where("LOWER(name) LIKE ?", like))
	}
	return q
}

// Save writes task if it still has version expected, together with the
// history entries describing the change. Everything happens in one transaction.
func (r *TaskRepository) Save(ctx context.Context, task *models.Task, expected int, status *models.StatusHistory, approval *models.ApprovalHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task.Version = expected + 1
		result := tx.Model(task).
			Where("version = ?", expected).
			Select("*").
			Omit(clause.Associations, "created_at").
			Updates(task)
		if result.Error != nil {
			task.Version = expected
			return result.Error
		}
		if result.RowsAffected == 0 {
			task.Version = expected
			var n int64
			if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrTaskNotFound
			}
			return ErrStaleTask
		}

		if status != nil {
			status.TaskID = task.ID
			if err := tx.Create(status).Error; err != nil {
				task.Version = expected
				return err
			}
		}
		if approval != nil {
			approval.TaskID = task.ID
			if err := tx.Create(approval).Error; err != nil {
				task.Version = expected
				return err
			}
		}
		return nil
	})
}

// Delete removes a task by its ID
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeadlineGroup is the column open tasks are grouped on by DeadlineLoads.
type DeadlineGroup string

const (
	GroupByAssignee DeadlineGroup = "assigned_to"
	GroupByClient   DeadlineGroup = "client_id"
)

// DeadlineRow counts the open tasks of one assignee or client.
type DeadlineRow struct {
	OwnerID      uint
	OpenTasks    int64
	Overdue      int64
	DueSoon      int64
	NextDeadline string
}

// DeadlineLoads groups open tasks by g, most overdue first, then by the
// earliest deadline. Due soon covers today through until, both inclusive.
func (r *TaskRepository) DeadlineLoads(ctx context.Context, g DeadlineGroup, today, until string) ([]DeadlineRow, error) {
	if g != GroupByAssignee && g != GroupByClient {
		return nil, fmt.Errorf("cannot group deadlines by %q", g)
	}
	col := string(g)

	rows := []DeadlineRow{}
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Select(col+" AS owner_id, COUNT(*) AS open_tasks, "+
			"COUNT(CASE WHEN deadline < ? THEN 1 END) AS overdue, "+
			"COUNT(CASE WHEN deadline >= ? AND deadline <= ? THEN 1 END) AS due_soon, "+
			"MIN(deadline) AS next_deadline", today, today, until).
		Where("status NOT IN ?", terminalStatuses).
		Group(col).
		Order("overdue desc, next_deadline asc, owner_id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
