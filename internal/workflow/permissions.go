package workflow

import "compliance-tracker-api/internal/models"

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uint        `json:"id"`
	Role models.Role `json:"role"`
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// ActorFromUser builds an Actor from a stored user.
func ActorFromUser(u models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// View is the list a task is being looked at from.
type View string

const (
	ViewTasks   View = "tasks"
	ViewMyTasks View = "my_tasks"
)

// ParseView maps a query value onto a View, defaulting to ViewTasks.
func ParseView(raw string) View {
	if View(raw) == ViewMyTasks {
		return ViewMyTasks
	}
	return ViewTasks
}

// Permissions is the capability set of one actor on one task.
type Permissions struct {
	CanView             bool `json:"can_view"`
	CanEdit             bool `json:"can_edit"`
	CanDelete           bool `json:"can_delete"`
	CanInitiateApproval bool `json:"can_initiate_approval"`
	CanApprove          bool `json:"can_approve"`
	CanMarkComplete     bool `json:"can_mark_complete"`
}

// PermissionsFor derives what actor may do with task from view. It reads
// only its arguments.
func PermissionsFor(task models.Task, actor Actor, view View) Permissions {
	authenticated := actor.ID != 0
	isAssignee := authenticated && task.AssignedTo == actor.ID
	editable := actor.IsAdmin() && view == ViewTasks && task.Status == models.StatusNotYetStarted

	return Permissions{
		CanView:   authenticated,
		CanEdit:   editable,
		CanDelete: editable,
		CanInitiateApproval: (isAssignee || actor.IsAdmin()) &&
			!task.RequiresApproval &&
			eligibleForApproval(task.Status),
		CanApprove: authenticated &&
			task.RequiresApproval &&
			task.PendingApprover != nil &&
			*task.PendingApprover == actor.ID,
		CanMarkComplete: actor.IsAdmin() &&
			isAssignee &&
			task.Status == models.StatusInProgress &&
			!task.RequiresApproval,
	}
}

func eligibleForApproval(s models.TaskStatus) bool {
	return s == models.StatusForRevision || s == models.StatusInProgress
}
