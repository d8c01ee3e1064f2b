package middleware

import (
	"context"
	"net/http"

	"compliance-tracker-api/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActivityRecorder stores user actions.
type ActivityRecorder interface {
	Record(ctx context.Context, entry models.AppLog) error
}

// ActivityLog records each successful write of an identified user. actions
// names routes by "METHOD /full/path"; unnamed routes are recorded under that
// key.
func ActivityLog(rec ActivityRecorder, actions map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		actor := CurrentActor(c)
		if actor.ID == 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		key := c.Request.Method + " " + c.FullPath()
		action, ok := actions[key]
		if !ok {
			action = key
		}
		entry := models.AppLog{
			UserID:    actor.ID,
			Action:    action,
			Details:   c.Request.Method + " " + c.Request.URL.Path,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if err := rec.Record(c.Request.Context(), entry); err != nil {
			zap.L().Warn("activity not recorded",
				zap.String("action", action),
				zap.String("request_id", c.GetString("request_id")),
				zap.Error(err),
			)
		}
	}
}
