package handlers

import (
	"errors"
	"net/http"

	"compliance-tracker-api/internal/apierrors"
	"compliance-tracker-api/internal/auth"
	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/middleware"
	"compliance-tracker-api/internal/service"
	"compliance-tracker-api/internal/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	users  *service.UserService
	tokens *auth.TokenManager
}

func NewAuthHandler(users *service.UserService, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// Login handles the login endpoint
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadPayload(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		zap.L().Info("login rejected", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, apierrors.CreateError(
			http.StatusUnauthorized, apierrors.KindUnauthorized, apierrors.MsgInvalidCredentials, middleware.GetLang(c)))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.GenerateToken(*user)
	if err != nil {
		respondError(c, err)
		return
	}
	refresh, err := h.tokens.GenerateRefreshToken(*user)
	if err != nil {
		respondError(c, err)
		return
	}
	// the login route runs before authentication; expose the user to the
	// access and activity logs
	c.Set(middleware.UserIDKey, user.ID)
	c.Set(middleware.RoleKey, user.Role)

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:    token,
		Refresh:  refresh,
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Message:  "Login successful",
	})
}

// Me returns the authenticated user
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), middleware.CurrentActor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Refresh trades a refresh token for a new access token
// POST /api/token/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadPayload(c, err)
		return
	}

	claims, err := h.tokens.ValidateRefreshToken(req.Refresh)
	if err != nil {
		zap.L().Info("refresh rejected", zap.Error(err))
		h.unauthorized(c)
		return
	}
	user, err := h.users.Get(c.Request.Context(), claims.UserID)
	if errors.Is(err, workflow.ErrNotFound) || (err == nil && !user.IsActive) {
		h.unauthorized(c)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.GenerateToken(*user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RefreshResponse{Access: token})
}

func (h *AuthHandler) unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apierrors.CreateError(
		http.StatusUnauthorized, apierrors.KindUnauthorized, apierrors.MsgUnauthorized, middleware.GetLang(c)))
}
