// Package client is a typed caller of the task API that keeps a local task
// store in sync with successful responses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"compliance-tracker-api/internal/apierrors"
	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/workflow"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout  = 15 * time.Second
	inFlightTTL     = 2 * time.Minute
	refreshPageSize = 100
)

// Client talks to one API server on behalf of one user.
type Client struct {
	baseURL  string
	http     *http.Client
	lang     string
	store    *Store
	inflight *InFlight
	refresh  singleflight.Group

	mu      sync.RWMutex
	token   string
	renewal string
	actor   workflow.Actor
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets a previously issued token and the actor it belongs to.
func WithToken(token string, actor workflow.Actor) Option {
	return func(c *Client) {
		c.token = token
		c.actor = actor
	}
}

func WithLanguage(lang string) Option {
	return func(c *Client) { c.lang = lang }
}

func WithStore(s *Store) Option {
	return func(c *Client) { c.store = s }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		store:    NewStore(),
		inflight: NewInFlight(inFlightTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Store() *Store { return c.store }

// Actor is the user the client is logged in as.
func (c *Client) Actor() workflow.Actor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.actor
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Busy reports whether a mutation on task id is awaiting its response.
func (c *Client) Busy(id uint) bool {
	return c.inflight.Active(id)
}

// Permissions is the advisory local gate for the logged in actor. The
// server applies the same rules on every mutation.
func (c *Client) Permissions(task models.Task, view workflow.View) workflow.Permissions {
	return workflow.PermissionsFor(task, c.Actor(), view)
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (dto.LoginResponse, error) {
	var resp dto.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", nil, dto.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return resp, err
	}
	c.mu.Lock()
	c.token = resp.Token
	c.renewal = resp.Refresh
	c.actor = workflow.Actor{ID: resp.UserID, Role: resp.Role}
	c.mu.Unlock()
	return resp, nil
}

// RenewToken trades the refresh token from Login for a new access token.
func (c *Client) RenewToken(ctx context.Context) error {
	c.mu.RLock()
	renewal := c.renewal
	c.mu.RUnlock()
	if renewal == "" {
		return fmt.Errorf("%w: no refresh token, log in first", ErrUnauthorized)
	}

	var resp dto.RefreshResponse
	if err := c.do(ctx, http.MethodPost, "/api/token/refresh", nil, dto.RefreshRequest{Refresh: renewal}, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = resp.Access
	c.mu.Unlock()
	return nil
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/api/me", nil, nil, &u)
	return u, err
}

// ListTasks fetches one page of the task listing.
func (c *Client) ListTasks(ctx context.Context, q url.Values) (dto.TaskPage, error) {
	var page dto.TaskPage
	err := c.do(ctx, http.MethodGet, "/api/tasks", q, nil, &page)
	return page, err
}

// MyTasks fetches one page of tasks assigned to the actor.
func (c *Client) MyTasks(ctx context.Context, q url.Values) (dto.TaskPage, error) {
	var page dto.TaskPage
	err := c.do(ctx, http.MethodGet, "/api/my-tasks", q, nil, &page)
	return page, err
}

// Refresh reloads every page of q into the store. Concurrent calls share one
// round of requests.
func (c *Client) Refresh(ctx context.Context, q url.Values) ([]dto.TaskResponse, error) {
	key := q.Encode()
	v, err, _ := c.refresh.Do(key, func() (any, error) {
		return c.fetchAll(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	tasks := v.([]dto.TaskResponse)
	c.store.ReplaceAll(tasks)
	return tasks, nil
}

func (c *Client) fetchAll(ctx context.Context, q url.Values) ([]dto.TaskResponse, error) {
	params := url.Values{}
	for k, v := range q {
		params[k] = append([]string(nil), v...)
	}
	params.Set("page_size", strconv.Itoa(refreshPageSize))

	var all []dto.TaskResponse
	for page := 1; ; page++ {
		params.Set("page", strconv.Itoa(page))
		p, err := c.ListTasks(ctx, params)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Results...)
		if page >= p.TotalPages || len(p.Results) == 0 {
			break
		}
	}
	if all == nil {
		all = []dto.TaskResponse{}
	}
	return all, nil
}

// GetTask fetches one task and stores it.
func (c *Client) GetTask(ctx context.Context, id uint, view workflow.View) (dto.TaskResponse, error) {
	var task dto.TaskResponse
	q := url.Values{}
	if view != "" {
		q.Set("view", string(view))
	}
	if err := c.do(ctx, http.MethodGet, taskPath(id, ""), q, nil, &task); err != nil {
		return task, err
	}
	c.store.Upsert(task)
	return task, nil
}

// CreateTask posts a new task with category specific fields.
func (c *Client) CreateTask(ctx context.Context, fields workflow.Fields) (dto.TaskResponse, error) {
	var task dto.TaskResponse
	if err := c.do(ctx, http.MethodPost, "/api/tasks", nil, fields, &task); err != nil {
		return task, err
	}
	c.store.Upsert(task)
	return task, nil
}

func (c *Client) PatchTask(ctx context.Context, id uint, fields workflow.Fields) (dto.TaskResponse, error) {
	return c.mutate(ctx, id, http.MethodPatch, "", fields)
}

func (c *Client) ReplaceTask(ctx context.Context, id uint, fields workflow.Fields) (dto.TaskResponse, error) {
	return c.mutate(ctx, id, http.MethodPut, "", fields)
}

// DeleteTask removes a task and drops it from the store.
func (c *Client) DeleteTask(ctx context.Context, id uint) error {
	if !c.inflight.Begin(id) {
		return ErrInProgress
	}
	defer c.inflight.Done(id)

	if err := c.do(ctx, http.MethodDelete, taskPath(id, ""), nil, nil, nil); err != nil {
		return err
	}
	c.store.Remove(id)
	return nil
}

func (c *Client) UpdateStatus(ctx context.Context, id uint, req dto.TransitionRequest) (dto.TaskResponse, error) {
	return c.mutate(ctx, id, http.MethodPatch, "status", req)
}

func (c *Client) MarkCompleted(ctx context.Context, id uint, req dto.CompletionRequest) (dto.TaskResponse, error) {
	return c.mutate(ctx, id, http.MethodPost, "mark_completed", req)
}

func (c *Client) UpdateDeadline(ctx context.Context, id uint, req dto.DeadlineRequest) (dto.TaskResponse, error) {
	return c.mutate(ctx, id, http.MethodPost, "update-deadline", req)
}

// InitiateApproval starts a chain through approvers, in order.
func (c *Client) InitiateApproval(ctx context.Context, id uint, approvers []uint) (dto.TaskResponse, error) {
	return c.mutate(ctx, id, http.MethodPost, "initiate-approval", dto.InitiateApprovalRequest{Approvers: approvers})
}

func (c *Client) ProcessApproval(ctx context.Context, id uint, req dto.ProcessApprovalRequest) (dto.TaskResponse, error) {
	return c.mutate(ctx, id, http.MethodPost, "process-approval", req)
}

func (c *Client) Approve(ctx context.Context, id uint, comments string) (dto.TaskResponse, error) {
	return c.ProcessApproval(ctx, id, dto.ProcessApprovalRequest{Action: string(models.ActionApprove), Comments: comments})
}

func (c *Client) Reject(ctx context.Context, id uint, comments string) (dto.TaskResponse, error) {
	return c.ProcessApproval(ctx, id, dto.ProcessApprovalRequest{Action: string(models.ActionReject), Comments: comments})
}

func (c *Client) StatusHistory(ctx context.Context, id uint) ([]models.StatusHistory, error) {
	var out []models.StatusHistory
	err := c.do(ctx, http.MethodGet, taskPath(id, "status-history"), nil, nil, &out)
	return out, err
}

func (c *Client) ApprovalHistory(ctx context.Context, id uint) ([]models.ApprovalHistory, error) {
	var out []models.ApprovalHistory
	err := c.do(ctx, http.MethodGet, taskPath(id, "task-approvals"), nil, nil, &out)
	return out, err
}

// AuditTrail fetches both histories of a task concurrently.
func (c *Client) AuditTrail(ctx context.Context, id uint) (dto.AuditTrail, error) {
	var trail dto.AuditTrail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := c.StatusHistory(gctx, id)
		trail.StatusHistory = entries
		return err
	})
	g.Go(func() error {
		entries, err := c.ApprovalHistory(gctx, id)
		trail.ApprovalHistory = entries
		return err
	})
	if err := g.Wait(); err != nil {
		return dto.AuditTrail{}, err
	}
	return trail, nil
}

func (c *Client) PendingApprovals(ctx context.Context) ([]dto.TaskResponse, error) {
	return c.list(ctx, "/api/tasks/pending-approvals", nil)
}

func (c *Client) Overdue(ctx context.Context) ([]dto.TaskResponse, error) {
	return c.list(ctx, "/api/tasks/overdue", nil)
}

// DueSoon lists open tasks due within days. days <= 0 uses the server default.
func (c *Client) DueSoon(ctx context.Context, days int) ([]dto.TaskResponse, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	return c.list(ctx, "/api/tasks/due_soon", q)
}

func (c *Client) Statistics(ctx context.Context) (dto.Statistics, error) {
	var stats dto.Statistics
	err := c.do(ctx, http.MethodGet, "/api/tasks/statistics", nil, nil, &stats)
	return stats, err
}

func (c *Client) Users(ctx context.Context, role models.Role) ([]models.User, error) {
	q := url.Values{}
	if role != "" {
		q.Set("role", string(role))
	}
	var resp struct {
		Users []models.User `json:"users"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users", q, nil, &resp)
	return resp.Users, err
}

func (c *Client) Clients(ctx context.Context, search string) ([]models.Client, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	var out []models.Client
	err := c.do(ctx, http.MethodGet, "/api/clients", q, nil, &out)
	return out, err
}

func (c *Client) CreateClient(ctx context.Context, req dto.CreateClientRequest) (models.Client, error) {
	var out models.Client
	err := c.do(ctx, http.MethodPost, "/api/clients", nil, req, &out)
	return out, err
}

// ClientBirthdays lists clients with a birthday today or within 30 days.
func (c *Client) ClientBirthdays(ctx context.Context) (dto.ClientBirthdays, error) {
	var out dto.ClientBirthdays
	err := c.do(ctx, http.MethodGet, "/api/clients/birthdays", nil, nil, &out)
	return out, err
}

func (c *Client) UsersWithDeadlines(ctx context.Context) ([]dto.UserDeadlines, error) {
	var out []dto.UserDeadlines
	err := c.do(ctx, http.MethodGet, "/api/users/users-with-deadlines", nil, nil, &out)
	return out, err
}

func (c *Client) ClientsWithDeadlines(ctx context.Context) ([]dto.ClientDeadlines, error) {
	var out []dto.ClientDeadlines
	err := c.do(ctx, http.MethodGet, "/api/clients/client-with-deadlines", nil, nil, &out)
	return out, err
}

// ActivityLog fetches one page of the activity log. user 0 means everyone.
func (c *Client) ActivityLog(ctx context.Context, user uint, page int) (dto.AppLogPage, error) {
	q := url.Values{}
	if user != 0 {
		q.Set("user", strconv.FormatUint(uint64(user), 10))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var out dto.AppLogPage
	err := c.do(ctx, http.MethodGet, "/api/app-logs", q, nil, &out)
	return out, err
}

func (c *Client) list(ctx context.Context, path string, q url.Values) ([]dto.TaskResponse, error) {
	var out []dto.TaskResponse
	err := c.do(ctx, http.MethodGet, path, q, nil, &out)
	return out, err
}

// mutate sends a request that changes task id. Only one may be outstanding
// per task; the store is written only when the server accepted it.
func (c *Client) mutate(ctx context.Context, id uint, method, action string, body any) (dto.TaskResponse, error) {
	var task dto.TaskResponse
	if !c.inflight.Begin(id) {
		return task, ErrInProgress
	}
	defer c.inflight.Done(id)

	if err := c.do(ctx, method, taskPath(id, action), nil, body, &task); err != nil {
		return task, err
	}
	c.store.Upsert(task)
	return task, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrNetwork, method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var envelope apierrors.JsonErr
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.ErrDetails.Kind != "" {
		apiErr.Kind = envelope.ErrDetails.Kind
		apiErr.Message = envelope.ErrDetails.Message
		apiErr.Reason = envelope.ErrDetails.Reason
		apiErr.Details = envelope.ErrDetails.Details
	}
	return apiErr
}

func taskPath(id uint, action string) string {
	p := "/api/tasks/" + strconv.FormatUint(uint64(id), 10)
	if action != "" {
		p += "/" + action
	}
	return p
}
