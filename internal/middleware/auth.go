package middleware

import (
	"net/http"
	"strings"

	"compliance-tracker-api/internal/apierrors"
	"compliance-tracker-api/internal/auth"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/workflow"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
	RoleKey     = "role"
)

// JWTAuthMiddleware validates JWT token in Authorization header
func JWTAuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		tokenString := ""
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// Fallback for WebSocket/browser where custom headers cannot be set: allow token in query param
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		// Store user info in context for use in handlers
		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Set(RoleKey, claims.Role)

		c.Next()
	}
}

// RequireRole lets the request through only for the given role.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentActor(c).Role != role {
			err := apierrors.CreateError(http.StatusForbidden, "forbidden", apierrors.MsgForbidden, GetLang(c))
			c.AbortWithStatusJSON(http.StatusForbidden, err)
			return
		}
		c.Next()
	}
}

// CurrentActor returns the authenticated caller. The zero Actor means the
// request did not pass JWTAuthMiddleware.
func CurrentActor(c *gin.Context) workflow.Actor {
	id, _ := c.Get(UserIDKey)
	role, _ := c.Get(RoleKey)
	uid, _ := id.(uint)
	r, _ := role.(models.Role)
	return workflow.Actor{ID: uid, Role: r}
}

func abortUnauthorized(c *gin.Context) {
	err := apierrors.CreateError(http.StatusUnauthorized, apierrors.KindUnauthorized, apierrors.MsgUnauthorized, GetLang(c))
	c.AbortWithStatusJSON(http.StatusUnauthorized, err)
}
