package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"compliance-tracker-api/internal/auth"
	"compliance-tracker-api/internal/client"
	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/realtime"
	"compliance-tracker-api/internal/repository"
	"compliance-tracker-api/internal/routes"
	"compliance-tracker-api/internal/service"
	"compliance-tracker-api/internal/testutil"
	"compliance-tracker-api/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAPI serves the real router over in-memory sqlite with ana (admin),
// ben (admin) and sam (staff) registered.
func newAPI(t *testing.T) (*httptest.Server, map[string]uint) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	users := service.NewUserService(userRepo)
	hub := realtime.NewHub(nil)
	clientRepo := repository.NewClientRepository(db)
	opts := service.Options{Now: func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }}
	tasks := service.NewTaskService(
		repository.NewTaskRepository(db),
		userRepo,
		clientRepo,
		repository.NewHistoryRepository(db),
		hub,
		opts,
	)

	router := routes.SetupRoutes(routes.Deps{
		Tasks:    tasks,
		Users:    users,
		Clients:  service.NewClientService(clientRepo, opts),
		Activity: service.NewActivityService(repository.NewActivityRepository(db), opts),
		Tokens:   auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", Issuer: "test", Audience: "test", TTL: time.Hour}),
		Hub:      hub,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ids := map[string]uint{}
	for _, u := range []dto.CreateUserRequest{
		{Username: "ana", Password: "secret-ana", Role: models.RoleAdmin},
		{Username: "ben", Password: "secret-ben", Role: models.RoleAdmin},
		{Username: "sam", Password: "secret-sam", Role: models.RoleStaff},
	} {
		created, err := users.Register(context.Background(), u)
		require.NoError(t, err)
		ids[u.Username] = created.ID
	}
	return srv, ids
}

func loggedIn(t *testing.T, srv *httptest.Server, username string) *client.Client {
	t.Helper()
	c := client.New(srv.URL)
	_, err := c.Login(context.Background(), username, "secret-"+username)
	require.NoError(t, err)
	return c
}

func complianceTask(clientID, assignee uint) workflow.Fields {
	return workflow.Fields{
		"client":          clientID,
		"category":        "compliance",
		"description":     "Renew business permit",
		"assigned_to":     assignee,
		"deadline":        "2025-03-20",
		"steps":           "Collect, file, pay",
		"requirements":    "Barangay clearance",
		"period_covered":  "2025",
		"engagement_date": "2025-01-10",
	}
}

func TestClient_LoginKeepsActor(t *testing.T) {
	srv, ids := newAPI(t)
	ana := loggedIn(t, srv, "ana")

	assert.NotEmpty(t, ana.Token())
	assert.Equal(t, workflow.Actor{ID: ids["ana"], Role: models.RoleAdmin}, ana.Actor())

	me, err := ana.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana", me.Username)
}

func TestClient_LoginFailureIsUnauthorized(t *testing.T) {
	srv, _ := newAPI(t)
	c := client.New(srv.URL)

	_, err := c.Login(context.Background(), "ana", "wrong-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Empty(t, c.Token())
}

func TestClient_ApprovalChainKeepsStoreInSync(t *testing.T) {
	srv, ids := newAPI(t)
	ctx := context.Background()
	ana := loggedIn(t, srv, "ana")
	sam := loggedIn(t, srv, "sam")
	ben := loggedIn(t, srv, "ben")

	acme, err := ana.CreateClient(ctx, dto.CreateClientRequest{Name: "Acme Trading"})
	require.NoError(t, err)
	created, err := ana.CreateTask(ctx, complianceTask(acme.ID, ids["sam"]))
	require.NoError(t, err)

	var snapshots [][]dto.TaskResponse
	unsubscribe := sam.Store().Subscribe(func(tasks []dto.TaskResponse) {
		snapshots = append(snapshots, tasks)
	})
	defer unsubscribe()

	tasks, err := sam.Refresh(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Len(t, snapshots, 1)

	local := sam.Store().All()[0]
	assert.Equal(t, local.Permissions, sam.Permissions(local.Task, workflow.ViewTasks))

	_, err = sam.UpdateStatus(ctx, created.ID, dto.TransitionRequest{Status: "in_progress"})
	require.NoError(t, err)
	task, err := sam.InitiateApproval(ctx, created.ID, []uint{ids["ana"], ids["ben"]})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, task.Status)

	stored, ok := sam.Store().Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingApproval, stored.Status)
	assert.Len(t, snapshots, 3)

	pending, err := ana.PendingApprovals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Permissions.CanApprove)

	_, err = ana.Approve(ctx, created.ID, "ok")
	require.NoError(t, err)
	task, err = ben.Approve(ctx, created.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, task.Status)

	trail, err := ben.AuditTrail(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, trail.ApprovalHistory, 2)
	require.NotEmpty(t, trail.StatusHistory)
	assert.Equal(t, models.StatusCompleted, trail.StatusHistory[len(trail.StatusHistory)-1].NewStatus)
}

func TestClient_DeadlineQueues(t *testing.T) {
	srv, ids := newAPI(t)
	ctx := context.Background()
	ana := loggedIn(t, srv, "ana")
	sam := loggedIn(t, srv, "sam")

	acme, err := ana.CreateClient(ctx, dto.CreateClientRequest{Name: "Acme Trading"})
	require.NoError(t, err)

	deadlines := map[string]uint{}
	for _, d := range []string{"2025-03-10", "2025-03-14", "2025-03-18", "2025-05-01"} {
		fields := complianceTask(acme.ID, ids["sam"])
		fields["deadline"] = d
		created, err := ana.CreateTask(ctx, fields)
		require.NoError(t, err, d)
		deadlines[d] = created.ID
	}

	overdue, err := sam.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, deadlines["2025-03-10"], overdue[0].ID)
	require.NotNil(t, overdue[0].DeadlineDaysRemaining)
	assert.Equal(t, -4, *overdue[0].DeadlineDaysRemaining)

	week, err := sam.DueSoon(ctx, 0)
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.Equal(t, deadlines["2025-03-14"], week[0].ID)
	assert.Equal(t, deadlines["2025-03-18"], week[1].ID)

	today, err := sam.DueSoon(ctx, 1)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, deadlines["2025-03-14"], today[0].ID)

	_, err = ana.UpdateStatus(ctx, deadlines["2025-03-10"], dto.TransitionRequest{Status: "cancelled"})
	require.NoError(t, err)
	overdue, err = sam.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	pending, err := ana.PendingApprovals(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	id := deadlines["2025-03-18"]
	_, err = sam.UpdateStatus(ctx, id, dto.TransitionRequest{Status: "in_progress"})
	require.NoError(t, err)
	_, err = sam.InitiateApproval(ctx, id, []uint{ids["ben"], ids["ana"]})
	require.NoError(t, err)

	pending, err = ana.PendingApprovals(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "ana is second in the chain")

	ben := loggedIn(t, srv, "ben")
	pending, err = ben.PendingApprovals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
}

func TestClient_RenewTokenAndReports(t *testing.T) {
	srv, ids := newAPI(t)
	ctx := context.Background()

	err := client.New(srv.URL).RenewToken(ctx)
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	ana := loggedIn(t, srv, "ana")
	sam := loggedIn(t, srv, "sam")
	require.NoError(t, sam.RenewToken(ctx))
	me, err := sam.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sam", me.Username)

	acme, err := ana.CreateClient(ctx, dto.CreateClientRequest{Name: "Acme Trading", Birthday: "1990-03-14"})
	require.NoError(t, err)
	_, err = ana.CreateTask(ctx, complianceTask(acme.ID, ids["sam"]))
	require.NoError(t, err)

	birthdays, err := sam.ClientBirthdays(ctx)
	require.NoError(t, err)
	require.Len(t, birthdays.Today, 1)
	assert.Equal(t, acme.ID, birthdays.Today[0].ID)

	users, err := sam.UsersWithDeadlines(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, ids["sam"], users[0].User.ID)

	clients, err := sam.ClientsWithDeadlines(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Acme Trading", clients[0].Client.Name)

	_, err = sam.ActivityLog(ctx, 0, 0)
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	log, err := ana.ActivityLog(ctx, ids["ana"], 1)
	require.NoError(t, err)
	require.NotEmpty(t, log.Results)
	assert.Equal(t, "create_task", log.Results[0].Action)
}

func TestClient_ErrorsMapToWorkflowSentinels(t *testing.T) {
	srv, ids := newAPI(t)
	ctx := context.Background()
	ana := loggedIn(t, srv, "ana")
	sam := loggedIn(t, srv, "sam")

	acme, err := ana.CreateClient(ctx, dto.CreateClientRequest{Name: "Acme Trading"})
	require.NoError(t, err)

	_, err = sam.CreateTask(ctx, complianceTask(acme.ID, ids["sam"]))
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	invalid := complianceTask(acme.ID, ids["sam"])
	delete(invalid, "period_covered")
	_, err = ana.CreateTask(ctx, invalid)
	require.ErrorIs(t, err, workflow.ErrValidation)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "period_covered", apiErr.Details[0].Field)

	task, err := ana.CreateTask(ctx, complianceTask(acme.ID, ids["sam"]))
	require.NoError(t, err)
	before := sam.Store().Len()

	_, err = sam.UpdateStatus(ctx, task.ID, dto.TransitionRequest{Status: "completed"})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	_, err = sam.Approve(ctx, task.ID, "")
	assert.ErrorIs(t, err, workflow.ErrForbidden)
	_, err = sam.GetTask(ctx, 9999, workflow.ViewTasks)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	assert.Equal(t, before, sam.Store().Len(), "failed calls never touch the store")
	assert.False(t, client.IsTransient(err))
}

func TestClient_DeleteRemovesFromStore(t *testing.T) {
	srv, ids := newAPI(t)
	ctx := context.Background()
	ana := loggedIn(t, srv, "ana")

	acme, err := ana.CreateClient(ctx, dto.CreateClientRequest{Name: "Acme Trading"})
	require.NoError(t, err)
	task, err := ana.CreateTask(ctx, complianceTask(acme.ID, ids["sam"]))
	require.NoError(t, err)
	require.Equal(t, 1, ana.Store().Len())

	require.NoError(t, ana.DeleteTask(ctx, task.ID))
	assert.Equal(t, 0, ana.Store().Len())
}

func TestClient_InFlightRejectsDuplicateWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(arrived)
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dto.TaskResponse{Task: models.Task{ID: 7, Status: models.StatusInProgress}})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := c.UpdateStatus(ctx, 7, dto.TransitionRequest{Status: "in_progress"})
		done <- err
	}()
	<-arrived
	assert.True(t, c.Busy(7))

	_, err := c.UpdateStatus(ctx, 7, dto.TransitionRequest{Status: "in_progress"})
	assert.ErrorIs(t, err, client.ErrInProgress)
	assert.ErrorIs(t, c.DeleteTask(ctx, 7), client.ErrInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, c.Busy(7))

	_, err = c.UpdateStatus(ctx, 7, dto.TransitionRequest{Status: "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_TransientFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"kind":"internal","message":"Internal server error"}}`))
	}))

	c := client.New(srv.URL)
	_, err := c.Statistics(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrServer)
	assert.True(t, client.IsTransient(err))

	srv.Close()
	_, err = c.Statistics(context.Background())
	assert.ErrorIs(t, err, client.ErrNetwork)
	assert.True(t, client.IsTransient(err))
}

func TestClient_RefreshFollowsPagesAndSharesCalls(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		page := dto.TaskPage{Page: 1, PageSize: 100, TotalPages: 2, Count: 2}
		if r.URL.Query().Get("page") == "2" {
			page.Page = 2
			page.Results = []dto.TaskResponse{{Task: models.Task{ID: 2}}}
		} else {
			page.Results = []dto.TaskResponse{{Task: models.Task{ID: 1}}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	var wg sync.WaitGroup
	results := make([][]dto.TaskResponse, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tasks, err := c.Refresh(context.Background(), nil)
			assert.NoError(t, err)
			results[i] = tasks
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, tasks := range results {
		require.Len(t, tasks, 2)
		assert.Equal(t, uint(1), tasks[0].ID)
		assert.Equal(t, uint(2), tasks[1].ID)
	}
	assert.Equal(t, int32(2), hits.Load(), "one request per page")
	assert.Equal(t, 2, c.Store().Len())
}

func TestAPIError_Is(t *testing.T) {
	err := &client.APIError{Status: http.StatusConflict, Kind: "already_decided"}
	assert.ErrorIs(t, err, workflow.ErrAlreadyDecided)
	assert.NotErrorIs(t, err, workflow.ErrConflict)
	assert.NotErrorIs(t, err, client.ErrServer)

	unknown := &client.APIError{Status: http.StatusTeapot, Kind: "teapot"}
	assert.NotErrorIs(t, unknown, workflow.ErrValidation)
	assert.Contains(t, unknown.Error(), "418")
}
