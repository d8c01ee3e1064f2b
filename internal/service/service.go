package service

import (
	"errors"
	"time"

	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/realtime"

	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown user, a
// wrong password or a deactivated account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Publisher delivers task events to connected users.
type Publisher interface {
	Publish(evt realtime.Event, recipients ...uint)
}

type nopPublisher struct{}

func (nopPublisher) Publish(realtime.Event, ...uint) {}

// Options tunes the services. Zero values pick the defaults.
type Options struct {
	DueSoonDays int
	StatsTTL    time.Duration
	Now         func() time.Time
	Log         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.DueSoonDays <= 0 {
		o.DueSoonDays = 7
	}
	if o.StatsTTL <= 0 {
		o.StatsTTL = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = zap.L()
	}
	return o
}

// recipients lists everyone with a stake in task.
func recipients(task *models.Task, actorID uint) []uint {
	ids := []uint{task.AssignedTo, task.CreatedBy, actorID}
	if task.PendingApprover != nil {
		ids = append(ids, *task.PendingApprover)
	}
	return append(ids, task.AllApprovers...)
}
