package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/realtime"
	"compliance-tracker-api/internal/repository"
	"compliance-tracker-api/internal/service"
	"compliance-tracker-api/internal/testutil"
	"compliance-tracker-api/internal/workflow"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type publisherMock struct {
	mock.Mock
	mu sync.Mutex
}

func (m *publisherMock) Publish(evt realtime.Event, recipients ...uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Called(evt, recipients)
}

func eventOf(t realtime.EventType) any {
	return mock.MatchedBy(func(e realtime.Event) bool { return e.Type == t })
}

type TaskServiceSuite struct {
	suite.Suite

	db     *gorm.DB
	ctx    context.Context
	pub    *publisherMock
	svc    *service.TaskService
	client models.Client
	staff  models.User
	first  models.User
	second models.User
	now    time.Time
}

func TestTaskServiceSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceSuite))
}

func (s *TaskServiceSuite) SetupTest() {
	db, err := testutil.NewInMemoryDB()
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	s.pub = new(publisherMock)
	s.pub.On("Publish", mock.Anything, mock.Anything).Return()

	s.svc = service.NewTaskService(
		repository.NewTaskRepository(db),
		repository.NewUserRepository(db),
		repository.NewClientRepository(db),
		repository.NewHistoryRepository(db),
		s.pub,
		service.Options{Now: func() time.Time { return s.now }},
	)
	s.client = testutil.SeedClient(db, "Acme Trading")
	s.staff = testutil.SeedUser(db, "sam", models.RoleStaff)
	s.first = testutil.SeedUser(db, "ana", models.RoleAdmin)
	s.second = testutil.SeedUser(db, "ben", models.RoleAdmin)
}

func (s *TaskServiceSuite) actor(u models.User) workflow.Actor {
	return workflow.ActorFromUser(u)
}

func (s *TaskServiceSuite) taxPayload() workflow.Fields {
	return workflow.Fields{
		"client":          float64(s.client.ID),
		"category":        "tax_case",
		"description":     "File quarterly percentage tax",
		"assigned_to":     float64(s.staff.ID),
		"priority":        "high",
		"deadline":        "2025-04-25",
		"tax_category":    "RP",
		"tax_type":        "PT",
		"form":            "2551Q",
		"working_paper":   "WP-2025-Q1",
		"tax_payable":     1250.75,
		"period_covered":  "Q1 2025",
		"engagement_date": "2025-01-05",
	}
}

func (s *TaskServiceSuite) seed(status models.TaskStatus) models.Task {
	return testutil.SeedTask(s.db, s.client, s.staff, status, "2025-04-01")
}

func (s *TaskServiceSuite) TestCreate_StoresValidatedTask() {
	task, err := s.svc.Create(s.ctx, s.actor(s.first), s.taxPayload())
	s.Require().NoError(err)

	s.Equal(models.StatusNotYetStarted, task.Status)
	s.Equal(s.first.ID, task.CreatedBy)
	s.Equal("2551Q", task.Form)
	s.Equal(1250.75, *task.TaxPayable)
	s.Equal("Acme Trading", task.Client.Name)
	s.Equal(1, task.Version)
	s.pub.AssertCalled(s.T(), "Publish", eventOf(realtime.EventTaskCreated), mock.Anything)
}

func (s *TaskServiceSuite) TestCreate_RejectsStaffAndBadPayloads() {
	_, err := s.svc.Create(s.ctx, s.actor(s.staff), s.taxPayload())
	s.ErrorIs(err, workflow.ErrForbidden)

	payload := s.taxPayload()
	delete(payload, "form")
	payload["client"] = float64(999)
	_, err = s.svc.Create(s.ctx, s.actor(s.first), payload)
	var verr *workflow.ValidationError
	s.Require().True(errors.As(err, &verr))
	s.True(verr.Has("form"))

	payload = s.taxPayload()
	payload["client"] = float64(999)
	_, err = s.svc.Create(s.ctx, s.actor(s.first), payload)
	s.Require().True(errors.As(err, &verr))
	s.True(verr.Has("client"))

	payload = s.taxPayload()
	payload["category"] = "payroll"
	_, err = s.svc.Create(s.ctx, s.actor(s.first), payload)
	s.Require().True(errors.As(err, &verr))
	s.True(verr.Has("category"))
}

func (s *TaskServiceSuite) TestPatch_KeepsOtherFieldsAndCategory() {
	created, err := s.svc.Create(s.ctx, s.actor(s.first), s.taxPayload())
	s.Require().NoError(err)

	patched, err := s.svc.Patch(s.ctx, s.actor(s.first), created.ID, workflow.Fields{"description": "Amended"})
	s.Require().NoError(err)
	s.Equal("Amended", patched.Description)
	s.Equal("2551Q", patched.Form)
	s.Equal(2, patched.Version)

	_, err = s.svc.Patch(s.ctx, s.actor(s.first), created.ID, workflow.Fields{"category": "compliance"})
	s.ErrorIs(err, workflow.ErrValidation)
}

func (s *TaskServiceSuite) TestReplace_ResetsAbsentOptionalFields() {
	created, err := s.svc.Create(s.ctx, s.actor(s.first), s.taxPayload())
	s.Require().NoError(err)

	payload := s.taxPayload()
	delete(payload, "engagement_date")
	payload["period_covered"] = "Q2 2025"
	payload["engagement_date"] = "2025-04-01"
	replaced, err := s.svc.Replace(s.ctx, s.actor(s.first), created.ID, payload)
	s.Require().NoError(err)
	s.Equal("Q2 2025", replaced.PeriodCovered)

	payload = s.taxPayload()
	delete(payload, "description")
	_, err = s.svc.Replace(s.ctx, s.actor(s.first), created.ID, payload)
	s.ErrorIs(err, workflow.ErrValidation)
}

func (s *TaskServiceSuite) TestEditAndDelete_OnlyBeforeWorkStarts() {
	started := s.seed(models.StatusInProgress)

	_, err := s.svc.Patch(s.ctx, s.actor(s.first), started.ID, workflow.Fields{"description": "x"})
	s.ErrorIs(err, workflow.ErrInvalidState)
	s.ErrorIs(s.svc.Delete(s.ctx, s.actor(s.first), started.ID), workflow.ErrInvalidState)

	fresh := s.seed(models.StatusNotYetStarted)
	s.ErrorIs(s.svc.Delete(s.ctx, s.actor(s.staff), fresh.ID), workflow.ErrForbidden)
	s.Require().NoError(s.svc.Delete(s.ctx, s.actor(s.first), fresh.ID))

	_, err = s.svc.Get(s.ctx, fresh.ID)
	s.ErrorIs(err, workflow.ErrNotFound)
}

func (s *TaskServiceSuite) TestTransition_WritesHistory() {
	task := s.seed(models.StatusNotYetStarted)

	updated, err := s.svc.Transition(s.ctx, s.actor(s.staff), task.ID, dto.TransitionRequest{Status: "on_going", Remarks: "started"})
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, updated.Status)

	trail, err := s.svc.StatusHistory(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal(models.StatusNotYetStarted, trail[0].OldStatus)
	s.Equal(models.ChangeManual, trail[0].ChangeType)

	_, err = s.svc.Transition(s.ctx, s.actor(s.staff), task.ID, dto.TransitionRequest{Status: "not_yet_started"})
	s.ErrorIs(err, workflow.ErrInvalidTransition)

	_, err = s.svc.Transition(s.ctx, s.actor(s.staff), task.ID, dto.TransitionRequest{Status: "completed"})
	s.ErrorIs(err, workflow.ErrForbidden)

	own := testutil.SeedTask(s.db, s.client, s.first, models.StatusInProgress, "2025-04-01")
	_, err = s.svc.Transition(s.ctx, s.actor(s.first), own.ID, dto.TransitionRequest{Status: "completed"})
	s.ErrorIs(err, workflow.ErrIncompleteData)

	_, err = s.svc.Transition(s.ctx, s.actor(s.staff), task.ID, dto.TransitionRequest{Status: "archived"})
	s.ErrorIs(err, workflow.ErrValidation)
}

func (s *TaskServiceSuite) TestTransition_CompletionReservedForAssignedAdmin() {
	completion, complied := "2025-03-14", "2025-03-13"
	req := dto.TransitionRequest{Status: "completed", CompletionDate: &completion, DateComplied: &complied}

	for _, from := range []models.TaskStatus{models.StatusInProgress, models.StatusForRevision, models.StatusForChecking} {
		task := s.seed(from)
		_, err := s.svc.Transition(s.ctx, s.actor(s.staff), task.ID, req)
		s.ErrorIs(err, workflow.ErrForbidden, from)

		stored, err := s.svc.Get(s.ctx, task.ID)
		s.Require().NoError(err)
		s.Equal(from, stored.Status)
	}

	other := s.seed(models.StatusInProgress)
	_, err := s.svc.Transition(s.ctx, s.actor(s.first), other.ID, req)
	s.ErrorIs(err, workflow.ErrForbidden)

	own := testutil.SeedTask(s.db, s.client, s.first, models.StatusInProgress, "2025-04-01")
	done, err := s.svc.Transition(s.ctx, s.actor(s.first), own.ID, req)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
}

func (s *TaskServiceSuite) TestMarkCompleted_AdminOwnTaskOnly() {
	own := testutil.SeedTask(s.db, s.client, s.first, models.StatusInProgress, "2025-04-01")
	req := dto.CompletionRequest{CompletionDate: "2025-03-14", DateComplied: "2025-03-13"}

	_, err := s.svc.MarkCompleted(s.ctx, s.actor(s.second), own.ID, req)
	s.ErrorIs(err, workflow.ErrForbidden)

	done, err := s.svc.MarkCompleted(s.ctx, s.actor(s.first), own.ID, req)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
	s.Equal("2025-03-13", *done.DateComplied)

	trail, err := s.svc.StatusHistory(s.ctx, own.ID)
	s.Require().NoError(err)
	s.Equal(models.ChangeCompletion, trail[len(trail)-1].ChangeType)
}

func (s *TaskServiceSuite) TestUpdateDeadline() {
	task := s.seed(models.StatusInProgress)

	moved, err := s.svc.UpdateDeadline(s.ctx, s.actor(s.staff), task.ID, dto.DeadlineRequest{Deadline: "2025-06-30", Remarks: "client extension"})
	s.Require().NoError(err)
	s.Equal("2025-06-30", moved.Deadline)
	s.Equal("client extension", moved.Remarks)

	_, err = s.svc.UpdateDeadline(s.ctx, s.actor(s.staff), task.ID, dto.DeadlineRequest{Deadline: "30/06/2025"})
	s.ErrorIs(err, workflow.ErrValidation)

	closed := s.seed(models.StatusCancelled)
	_, err = s.svc.UpdateDeadline(s.ctx, s.actor(s.first), closed.ID, dto.DeadlineRequest{Deadline: "2025-06-30"})
	s.ErrorIs(err, workflow.ErrInvalidState)
}

func (s *TaskServiceSuite) TestApprovalChain_EndToEnd() {
	task := s.seed(models.StatusInProgress)

	started, err := s.svc.InitiateApproval(s.ctx, s.actor(s.staff), task.ID, []uint{s.first.ID, s.second.ID})
	s.Require().NoError(err)
	s.Equal(models.StatusPendingApproval, started.Status)
	s.Equal(s.first.ID, *started.PendingApprover)
	s.pub.AssertCalled(s.T(), "Publish", eventOf(realtime.EventApprovalRequested), mock.Anything)

	pending, err := s.svc.PendingApprovals(s.ctx, s.actor(s.first))
	s.Require().NoError(err)
	s.Len(pending, 1)

	_, err = s.svc.ProcessApproval(s.ctx, s.actor(s.second), task.ID, dto.ProcessApprovalRequest{Action: "approve"})
	s.ErrorIs(err, workflow.ErrForbidden)

	step, err := s.svc.ProcessApproval(s.ctx, s.actor(s.first), task.ID, dto.ProcessApprovalRequest{Action: "approve", Comments: "ok"})
	s.Require().NoError(err)
	s.Equal(s.second.ID, *step.PendingApprover)
	s.Equal(models.StatusPendingApproval, step.Status)

	_, err = s.svc.ProcessApproval(s.ctx, s.actor(s.first), task.ID, dto.ProcessApprovalRequest{Action: "approve"})
	s.ErrorIs(err, workflow.ErrAlreadyDecided)

	done, err := s.svc.ProcessApproval(s.ctx, s.actor(s.second), task.ID, dto.ProcessApprovalRequest{Action: "approved"})
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
	s.False(done.RequiresApproval)
	s.Nil(done.PendingApprover)

	approvals, err := s.svc.ApprovalHistory(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Require().Len(approvals, 2)
	s.Equal(s.first.ID, approvals[0].ApproverID)
	s.Equal(s.second.ID, approvals[1].ApproverID)
}

func (s *TaskServiceSuite) TestApprovalChain_RejectReturnsForRevision() {
	task := s.seed(models.StatusInProgress)
	_, err := s.svc.InitiateApproval(s.ctx, s.actor(s.staff), task.ID, []uint{s.first.ID, s.second.ID})
	s.Require().NoError(err)

	rejected, err := s.svc.ProcessApproval(s.ctx, s.actor(s.first), task.ID, dto.ProcessApprovalRequest{Action: "reject", Remarks: "missing schedule"})
	s.Require().NoError(err)
	s.Equal(models.StatusForRevision, rejected.Status)
	s.False(rejected.RequiresApproval)

	approvals, err := s.svc.ApprovalHistory(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal("missing schedule", approvals[0].Comments)

	again, err := s.svc.InitiateApproval(s.ctx, s.actor(s.staff), task.ID, []uint{s.second.ID})
	s.Require().NoError(err)
	s.Equal(2, again.ApprovalRound)
}

func (s *TaskServiceSuite) TestInitiateApproval_RejectsBadApprovers() {
	task := s.seed(models.StatusInProgress)

	_, err := s.svc.InitiateApproval(s.ctx, s.actor(s.staff), task.ID, []uint{s.first.ID, 404})
	s.ErrorIs(err, workflow.ErrInvalidApprovers)

	_, err = s.svc.InitiateApproval(s.ctx, s.actor(s.staff), task.ID, []uint{s.staff.ID})
	s.ErrorIs(err, workflow.ErrInvalidApprovers)

	_, err = s.svc.InitiateApproval(s.ctx, s.actor(s.staff), task.ID, nil)
	s.ErrorIs(err, workflow.ErrInvalidApprovers)

	stored, err := s.svc.Get(s.ctx, task.ID)
	s.Require().NoError(err)
	s.False(stored.RequiresApproval)
	s.Equal(1, stored.Version)
}

func (s *TaskServiceSuite) TestInitiateApproval_MissingTaskIsNotFound() {
	_, err := s.svc.InitiateApproval(s.ctx, s.actor(s.staff), 9999, []uint{404})
	s.ErrorIs(err, workflow.ErrNotFound)
	s.NotErrorIs(err, workflow.ErrInvalidApprovers)
}

func (s *TaskServiceSuite) TestConcurrentApprovals_OneWins() {
	task := s.seed(models.StatusInProgress)
	_, err := s.svc.InitiateApproval(s.ctx, s.actor(s.staff), task.ID, []uint{s.first.ID})
	s.Require().NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.ProcessApproval(s.ctx, s.actor(s.first), task.ID, dto.ProcessApprovalRequest{Action: "approve"})
		}(i)
	}
	wg.Wait()

	var ok, decided int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, workflow.ErrAlreadyDecided), errors.Is(err, workflow.ErrConflict):
			decided++
		}
	}
	s.Equal(1, ok)
	s.Equal(1, decided)

	approvals, err := s.svc.ApprovalHistory(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Len(approvals, 1)
}

func (s *TaskServiceSuite) TestDeadlineQueriesAndStatistics() {
	testutil.SeedTask(s.db, s.client, s.staff, models.StatusInProgress, "2025-03-01")
	testutil.SeedTask(s.db, s.client, s.staff, models.StatusNotYetStarted, "2025-03-18")
	testutil.SeedTask(s.db, s.client, s.staff, models.StatusCompleted, "2025-03-02")
	testutil.SeedTask(s.db, s.client, s.staff, models.StatusNotYetStarted, "2025-05-30")

	overdue, err := s.svc.Overdue(s.ctx)
	s.Require().NoError(err)
	s.Len(overdue, 1)

	soon, err := s.svc.DueSoon(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(soon, 1)

	wide, err := s.svc.DueSoon(s.ctx, 90)
	s.Require().NoError(err)
	s.Len(wide, 2)

	stats, err := s.svc.Statistics(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(4, stats.Summary.Total)
	s.EqualValues(2, stats.ByStatus["not_yet_started"])
	s.EqualValues(4, stats.ByCategory["miscellaneous"])
	s.Equal(25.0, stats.Summary.CompletionRate)

	// cached until a change goes through the service
	testutil.SeedTask(s.db, s.client, s.staff, models.StatusInProgress, "2025-04-01")
	cached, err := s.svc.Statistics(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(4, cached.Summary.Total)

	_, err = s.svc.Create(s.ctx, s.actor(s.first), s.taxPayload())
	s.Require().NoError(err)
	fresh, err := s.svc.Statistics(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(6, fresh.Summary.Total)
}

func (s *TaskServiceSuite) TestList_PresentsPermissions() {
	s.seed(models.StatusNotYetStarted)
	s.seed(models.StatusInProgress)

	page, err := s.svc.List(s.ctx, s.actor(s.first), workflow.ViewTasks, repository.TaskFilter{Ordering: "deadline"})
	s.Require().NoError(err)
	s.EqualValues(2, page.Count)
	s.Equal(1, page.TotalPages)
	s.Equal(repository.DefaultPageSize, page.PageSize)

	editable := 0
	for _, r := range page.Results {
		if r.Permissions.CanEdit {
			editable++
		}
	}
	s.Equal(1, editable)

	mine, err := s.svc.List(s.ctx, s.actor(s.first), workflow.ViewMyTasks, repository.TaskFilter{})
	s.Require().NoError(err)
	for _, r := range mine.Results {
		s.False(r.Permissions.CanEdit)
	}
}

func (s *TaskServiceSuite) TestDeadlineSummaries() {
	other := testutil.SeedClient(s.db, "Beacon Foods")
	testutil.SeedTask(s.db, s.client, s.staff, models.StatusInProgress, "2025-03-10")
	testutil.SeedTask(s.db, other, s.staff, models.StatusNotYetStarted, "2025-03-20")
	testutil.SeedTask(s.db, other, s.first, models.StatusNotYetStarted, "2025-03-15")
	testutil.SeedTask(s.db, other, s.second, models.StatusCancelled, "2025-03-01")

	users, err := s.svc.UsersWithDeadlines(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("sam", users[0].User.Username)
	s.EqualValues(2, users[0].OpenTasks)
	s.EqualValues(1, users[0].Overdue)
	s.EqualValues(1, users[0].DueSoon)
	s.Equal("2025-03-10", users[0].NextDeadline)
	s.Require().NotNil(users[0].DaysRemaining)
	s.Equal(-4, *users[0].DaysRemaining)
	s.Equal("ana", users[1].User.Username)
	s.Equal(1, *users[1].DaysRemaining)

	clients, err := s.svc.ClientsWithDeadlines(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(clients, 2)
	s.Equal("Acme Trading", clients[0].Client.Name)
	s.Equal("Beacon Foods", clients[1].Client.Name)
	s.EqualValues(2, clients[1].OpenTasks)
	s.EqualValues(0, clients[1].Overdue)
	s.Equal("2025-03-15", clients[1].NextDeadline)
}
