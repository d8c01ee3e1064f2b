package handlers

import (
	"net/http"
	"strconv"

	"compliance-tracker-api/internal/apierrors"
	"compliance-tracker-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError writes err in the API error envelope. Server faults are
// logged; client faults are only attached to the context for the access log.
func respondError(c *gin.Context, err error) {
	body := apierrors.FromError(err, middleware.GetLang(c))
	if body.ErrDetails.Code >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(body.ErrDetails.Code, body)
}

func respondBadPayload(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest,
		apierrors.CreateError(http.StatusBadRequest, "validation", apierrors.MsgInvalidPayload, middleware.GetLang(c)))
}

// pathID reads the :id parameter, answering 400 itself when it is not a
// positive integer.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			apierrors.CreateError(http.StatusBadRequest, "validation", apierrors.MsgInvalidID, middleware.GetLang(c)))
		return 0, false
	}
	return uint(id), true
}
