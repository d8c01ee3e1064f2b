package handlers

import (
	"net/http"
	"strconv"

	"compliance-tracker-api/internal/middleware"
	"compliance-tracker-api/internal/repository"
	"compliance-tracker-api/internal/service"
	"compliance-tracker-api/internal/workflow"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activity *service.ActivityService
}

func NewActivityHandler(activity *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// List handles GET /api/app-logs?user=&page=&page_size=
func (h *ActivityHandler) List(c *gin.Context) {
	var (
		f    repository.ActivityFilter
		errs []workflow.FieldError
	)
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"page", &f.Page},
		{"page_size", &f.PageSize},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, workflow.FieldError{Field: p.name, Message: "Must be a positive whole number."})
			continue
		}
		*p.dst = n
	}
	if raw := c.Query("user"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			errs = append(errs, workflow.FieldError{Field: "user", Message: "Must be a valid id."})
		} else {
			id := uint(n)
			f.UserID = &id
		}
	}
	if len(errs) > 0 {
		respondError(c, &workflow.ValidationError{Fields: errs})
		return
	}

	page, err := h.activity.List(c.Request.Context(), middleware.CurrentActor(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
