package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"fructus/internal/core/appctx"
	"fructus/internal/core/apperror"
	"fructus/internal/domain/auth"
)

// TokenValidator interface for token validation.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.Actor, error)
}

// Auth middleware validates bearer tokens and populates the actor.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		actor, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := appctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Set("actor_role", actor.Role)
		c.Set("actor_account", actor.AccountID)

		c.Next()
	}
}

// RequireAdmin rejects non-admin actors.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := appctx.GetActor(c.Request.Context())
		if actor == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if actor.Role != auth.RoleAdmin {
			_ = c.Error(apperror.NewForbidden("admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAccount lets the admin through always, and a seller only when
// the :accountID path parameter names its own account. Keeps one seller
// from reading or moving another seller's stock.
func RequireAccount(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := appctx.GetActor(c.Request.Context())
		if actor == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if actor.Role == auth.RoleAdmin {
			c.Next()
			return
		}
		if actor.AccountID == "" || actor.AccountID != c.Param(param) {
			_ = c.Error(apperror.NewForbidden("account mismatch"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
