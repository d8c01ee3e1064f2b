package workflow

import (
	"errors"
	"testing"

	"compliance-tracker-api/internal/models"

	"github.com/stretchr/testify/require"
)

var (
	approverA = models.User{ID: 10, Username: "ana", Role: models.RoleAdmin, IsActive: true}
	approverB = models.User{ID: 11, Username: "ben", Role: models.RoleAdmin, IsActive: true}
	approverC = models.User{ID: 12, Username: "cat", Role: models.RoleAdmin, IsActive: true}
	staffer   = models.User{ID: 20, Username: "sam", Role: models.RoleStaff, IsActive: true}
	boss      = Actor{ID: 1, Role: models.RoleAdmin}
)

func taxCaseForRevision() models.Task {
	return models.Task{
		ID:         42,
		Category:   models.CategoryTaxCase,
		AssignedTo: staffer.ID,
		Status:     models.StatusForRevision,
	}
}

func TestInitiate_AdminOnForRevisionTaxCase(t *testing.T) {
	task := taxCaseForRevision()

	entry, err := Initiate(&task, []models.User{approverA, approverB}, boss, now)
	require.NoError(t, err)
	require.True(t, task.RequiresApproval)
	require.Equal(t, approverA.ID, *task.PendingApprover)
	require.Equal(t, 0, task.CurrentApprovalStep)
	require.Equal(t, []uint{10, 11}, []uint(task.AllApprovers))
	require.Equal(t, models.StatusPendingApproval, task.Status)
	require.Equal(t, 1, task.ApprovalRound)
	require.Equal(t, models.ChangeApprovalInitiated, entry.ChangeType)
	require.Equal(t, models.StatusForRevision, entry.OldStatus)
}

func TestInitiate_Preconditions(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(*models.Task)
		actor     Actor
		approvers []models.User
		want      error
	}{
		{"stranger", nil, Actor{ID: 99, Role: models.RoleStaff}, []models.User{approverA}, ErrForbidden},
		{"already in chain", func(t *models.Task) { t.RequiresApproval = true }, boss, []models.User{approverA}, ErrInvalidState},
		{"not started", func(t *models.Task) { t.Status = models.StatusNotYetStarted }, boss, []models.User{approverA}, ErrInvalidState},
		{"empty list", nil, boss, nil, ErrInvalidApprovers},
		{"staff approver", nil, boss, []models.User{approverA, staffer}, ErrInvalidApprovers},
		{"duplicate approver", nil, boss, []models.User{approverA, approverA}, ErrInvalidApprovers},
		{"inactive approver", nil, boss, []models.User{{ID: 13, Role: models.RoleAdmin}}, ErrInvalidApprovers},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := taxCaseForRevision()
			if tc.mutate != nil {
				tc.mutate(&task)
			}
			before := task.Clone()
			_, err := Initiate(&task, tc.approvers, tc.actor, now)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
			require.Equal(t, before, task)
		})
	}
}

func TestInitiate_AssigneeMayRequest(t *testing.T) {
	task := taxCaseForRevision()
	task.Status = models.StatusInProgress
	_, err := Initiate(&task, []models.User{approverA}, ActorFromUser(staffer), now)
	require.NoError(t, err)
}

func TestDecide_ApproveAdvancesThenRejectEnds(t *testing.T) {
	task := taxCaseForRevision()
	_, err := Initiate(&task, []models.User{approverA, approverB}, boss, now)
	require.NoError(t, err)

	out, err := Decide(&task, Decision{Action: models.ActionApprove}, ActorFromUser(approverA), now)
	require.NoError(t, err)
	require.Nil(t, out.StatusChange)
	require.Equal(t, 1, task.CurrentApprovalStep)
	require.Equal(t, approverB.ID, *task.PendingApprover)
	require.Equal(t, models.StatusPendingApproval, task.Status)
	require.Equal(t, models.ActionApprove, out.Approval.Action)
	require.Equal(t, 0, out.Approval.Step)

	out, err = Decide(&task, Decision{Action: models.ActionReject, Comments: "insufficient documentation"}, ActorFromUser(approverB), now)
	require.NoError(t, err)
	require.False(t, task.RequiresApproval)
	require.Nil(t, task.PendingApprover)
	require.Equal(t, models.StatusForRevision, task.Status)
	require.Equal(t, models.ActionReject, out.Approval.Action)
	require.Equal(t, 1, out.Approval.Step)
	require.Equal(t, "insufficient documentation", out.Approval.Comments)
	require.NotNil(t, out.StatusChange)
	require.Equal(t, models.ChangeApprovalRejected, out.StatusChange.ChangeType)
}

func TestDecide_NApprovalsComplete(t *testing.T) {
	chain := []models.User{approverA, approverB, approverC}
	task := taxCaseForRevision()
	_, err := Initiate(&task, chain, boss, now)
	require.NoError(t, err)

	for i, u := range chain {
		require.True(t, task.RequiresApproval, "step %d", i)
		_, err := Decide(&task, Decision{Action: models.ActionApprove}, ActorFromUser(u), now)
		require.NoError(t, err)
	}
	require.False(t, task.RequiresApproval)
	require.Equal(t, models.StatusCompleted, task.Status)
	require.Equal(t, "2025-03-14", *task.CompletionDate)
	require.Equal(t, "2025-03-14", *task.DateComplied)
}

func TestDecide_RejectAtFirstStepEndsChain(t *testing.T) {
	task := taxCaseForRevision()
	_, err := Initiate(&task, []models.User{approverA, approverB, approverC}, boss, now)
	require.NoError(t, err)

	_, err = Decide(&task, Decision{Action: models.ActionReject}, ActorFromUser(approverA), now)
	require.NoError(t, err)
	require.False(t, task.RequiresApproval)
	require.Equal(t, models.StatusForRevision, task.Status)
}

func TestDecide_Rejections(t *testing.T) {
	task := taxCaseForRevision()
	_, err := Initiate(&task, []models.User{approverA, approverB}, boss, now)
	require.NoError(t, err)

	_, err = Decide(&task, Decision{Action: models.ActionApprove}, ActorFromUser(approverB), now)
	require.True(t, errors.Is(err, ErrForbidden), "out of turn: %v", err)

	_, err = Decide(&task, Decision{Action: "maybe"}, ActorFromUser(approverA), now)
	require.True(t, errors.Is(err, ErrValidation))

	_, err = Decide(&task, Decision{Action: models.ActionApprove}, ActorFromUser(approverA), now)
	require.NoError(t, err)

	before := task.Clone()
	_, err = Decide(&task, Decision{Action: models.ActionApprove}, ActorFromUser(approverA), now)
	require.True(t, errors.Is(err, ErrAlreadyDecided), "replay: %v", err)

	stale := 0
	_, err = Decide(&task, Decision{Action: models.ActionApprove, Step: &stale}, ActorFromUser(approverB), now)
	require.True(t, errors.Is(err, ErrAlreadyDecided), "stale step: %v", err)
	require.Equal(t, before, task)
}

func TestDecide_AfterChainResolved(t *testing.T) {
	task := taxCaseForRevision()
	_, err := Initiate(&task, []models.User{approverA}, boss, now)
	require.NoError(t, err)
	_, err = Decide(&task, Decision{Action: models.ActionReject}, ActorFromUser(approverA), now)
	require.NoError(t, err)

	_, err = Decide(&task, Decision{Action: models.ActionReject}, ActorFromUser(approverA), now)
	require.True(t, errors.Is(err, ErrAlreadyDecided))

	_, err = Decide(&task, Decision{Action: models.ActionApprove}, ActorFromUser(staffer), now)
	require.True(t, errors.Is(err, ErrForbidden))
}

func TestDecide_NeverInitiated(t *testing.T) {
	task := taxCaseForRevision()
	step := 0
	_, err := Decide(&task, Decision{Action: models.ActionApprove, Step: &step}, ActorFromUser(approverA), now)
	require.True(t, errors.Is(err, ErrForbidden))
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("approved")
	require.True(t, ok)
	require.Equal(t, models.ActionApprove, a)
	_, ok = ParseAction("skip")
	require.False(t, ok)
}
