package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/middleware"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/repository"
	"compliance-tracker-api/internal/service"
	"compliance-tracker-api/internal/workflow"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List handles GET /api/tasks
// Query params: assigned_to, client, category, status (comma separated),
// priority, requires_approval, deadline__gte, deadline__lte, search,
// ordering, page, page_size
func (h *TaskHandler) List(c *gin.Context) {
	f, err := parseTaskFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	h.list(c, workflow.ViewTasks, f)
}

// MyTasks handles GET /api/my-tasks
// Same filters as List, restricted to tasks assigned to the caller
func (h *TaskHandler) MyTasks(c *gin.Context) {
	f, err := parseTaskFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	me := middleware.CurrentActor(c).ID
	f.AssignedTo = &me
	h.list(c, workflow.ViewMyTasks, f)
}

func (h *TaskHandler) list(c *gin.Context, view workflow.View, f repository.TaskFilter) {
	page, err := h.tasks.List(c.Request.Context(), middleware.CurrentActor(c), view, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /api/tasks/:id?view=my_tasks
func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, task, workflow.ParseView(c.Query("view")))
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var payload workflow.Fields
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadPayload(c, err)
		return
	}
	task, err := h.tasks.Create(c.Request.Context(), middleware.CurrentActor(c), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, task, workflow.ViewTasks)
}

// Replace handles PUT /api/tasks/:id
func (h *TaskHandler) Replace(c *gin.Context) {
	h.update(c, h.tasks.Replace)
}

// Patch handles PATCH /api/tasks/:id
func (h *TaskHandler) Patch(c *gin.Context) {
	h.update(c, h.tasks.Patch)
}

type updateFunc func(ctx context.Context, actor workflow.Actor, id uint, payload workflow.Fields) (*models.Task, error)

func (h *TaskHandler) update(c *gin.Context, apply updateFunc) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var payload workflow.Fields
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadPayload(c, err)
		return
	}
	task, err := apply(c.Request.Context(), middleware.CurrentActor(c), id, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, task, workflow.ViewTasks)
}

// Delete handles DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStatus handles PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadPayload(c, err)
		return
	}
	task, err := h.tasks.Transition(c.Request.Context(), middleware.CurrentActor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, task, workflow.ViewTasks)
}

// MarkCompleted handles POST /api/tasks/:id/mark_completed
func (h *TaskHandler) MarkCompleted(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadPayload(c, err)
		return
	}
	task, err := h.tasks.MarkCompleted(c.Request.Context(), middleware.CurrentActor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, task, workflow.ViewMyTasks)
}

// UpdateDeadline handles POST /api/tasks/:id/update-deadline
func (h *TaskHandler) UpdateDeadline(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.DeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadPayload(c, err)
		return
	}
	task, err := h.tasks.UpdateDeadline(c.Request.Context(), middleware.CurrentActor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, task, workflow.ViewTasks)
}

// InitiateApproval handles POST /api/tasks/:id/initiate-approval
func (h *TaskHandler) InitiateApproval(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.InitiateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadPayload(c, err)
		return
	}
	task, err := h.tasks.InitiateApproval(c.Request.Context(), middleware.CurrentActor(c), id, req.Approvers)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, task, workflow.ViewTasks)
}

// ProcessApproval handles POST /api/tasks/:id/process-approval
func (h *TaskHandler) ProcessApproval(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.ProcessApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadPayload(c, err)
		return
	}
	task, err := h.tasks.ProcessApproval(c.Request.Context(), middleware.CurrentActor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, task, workflow.ViewTasks)
}

// StatusHistory handles GET /api/tasks/:id/status-history
func (h *TaskHandler) StatusHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entries, err := h.tasks.StatusHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ApprovalHistory handles GET /api/tasks/:id/task-approvals
func (h *TaskHandler) ApprovalHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entries, err := h.tasks.ApprovalHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// PendingApprovals handles GET /api/tasks/pending-approvals
func (h *TaskHandler) PendingApprovals(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	tasks, err := h.tasks.PendingApprovals(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondList(c, tasks)
}

// Overdue handles GET /api/tasks/overdue
func (h *TaskHandler) Overdue(c *gin.Context) {
	tasks, err := h.tasks.Overdue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondList(c, tasks)
}

// DueSoon handles GET /api/tasks/due_soon?days=7
func (h *TaskHandler) DueSoon(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, workflow.FieldInvalid("days", "Must be a positive whole number."))
			return
		}
		days = n
	}
	tasks, err := h.tasks.DueSoon(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondList(c, tasks)
}

// UsersWithDeadlines handles GET /api/users/users-with-deadlines
func (h *TaskHandler) UsersWithDeadlines(c *gin.Context) {
	rows, err := h.tasks.UsersWithDeadlines(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// DeadlineTasks handles GET /api/users/:id/deadlines-tasks
func (h *TaskHandler) DeadlineTasks(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tasks, err := h.tasks.DeadlineTasks(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondList(c, tasks)
}

// ClientsWithDeadlines handles GET /api/clients/client-with-deadlines
func (h *TaskHandler) ClientsWithDeadlines(c *gin.Context) {
	rows, err := h.tasks.ClientsWithDeadlines(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Statistics handles GET /api/tasks/statistics
func (h *TaskHandler) Statistics(c *gin.Context) {
	stats, err := h.tasks.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *TaskHandler) respond(c *gin.Context, code int, task *models.Task, view workflow.View) {
	c.JSON(code, h.tasks.Present(*task, middleware.CurrentActor(c), view))
}

func (h *TaskHandler) respondList(c *gin.Context, tasks []models.Task) {
	actor := middleware.CurrentActor(c)
	out := make([]dto.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, h.tasks.Present(t, actor, workflow.ViewTasks))
	}
	c.JSON(http.StatusOK, out)
}

func parseTaskFilter(c *gin.Context) (repository.TaskFilter, error) {
	var (
		f    repository.TaskFilter
		errs []workflow.FieldError
	)
	idParam := func(name string) *uint {
		raw := c.Query(name)
		if raw == "" {
			return nil
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			errs = append(errs, workflow.FieldError{Field: name, Message: "Must be a valid id."})
			return nil
		}
		id := uint(n)
		return &id
	}
	intParam := func(name string) int {
		raw := c.Query(name)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, workflow.FieldError{Field: name, Message: "Must be a positive whole number."})
			return 0
		}
		return n
	}
	dateParam := func(name string) string {
		raw := c.Query(name)
		if raw == "" {
			return ""
		}
		if _, err := time.Parse(models.DateLayout, raw); err != nil {
			errs = append(errs, workflow.FieldError{Field: name, Message: "Must be a date in YYYY-MM-DD format."})
			return ""
		}
		return raw
	}

	f.AssignedTo = idParam("assigned_to")
	f.ClientID = idParam("client")
	f.Page = intParam("page")
	f.PageSize = intParam("page_size")
	f.DeadlineGTE = dateParam("deadline__gte")
	f.DeadlineLTE = dateParam("deadline__lte")
	f.Search = c.Query("search")
	f.Ordering = c.Query("ordering")

	if raw := c.Query("category"); raw != "" {
		cat := models.TaskCategory(raw)
		if !workflow.IsKnownCategory(cat) {
			errs = append(errs, workflow.FieldError{Field: "category", Message: "Unknown category."})
		}
		f.Category = cat
	}
	if raw := c.Query("priority"); raw != "" {
		f.Priority = models.TaskPriority(raw)
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s, ok := workflow.NormalizeStatus(strings.TrimSpace(part))
			if !ok {
				errs = append(errs, workflow.FieldError{Field: "status", Message: "Unknown status " + strconv.Quote(part) + "."})
				continue
			}
			f.Statuses = append(f.Statuses, s)
		}
	}
	if raw := c.Query("requires_approval"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, workflow.FieldError{Field: "requires_approval", Message: "Must be true or false."})
		} else {
			f.RequiresApproval = &b
		}
	}

	if len(errs) > 0 {
		return f, &workflow.ValidationError{Fields: errs}
	}
	return f, nil
}
