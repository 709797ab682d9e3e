// Package handlers implements the v1 HTTP API.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"fructus/internal/core/appctx"
	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/domain/auth"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// BindJSON binds and validates a JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers the error on the Gin context and aborts. The JSON
// response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseID parses a path parameter as an id.
func (h *BaseHandler) ParseID(c *gin.Context, param string) (id.ID, bool) {
	v, err := id.Parse(c.Param(param))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id").WithDetail("param", param))
		return id.Nil(), false
	}
	return v, true
}

// ParseIntQuery parses an integer query parameter with a default.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// Actor returns the authenticated actor, or nil.
func (h *BaseHandler) Actor(c *gin.Context) *appctx.Actor {
	return appctx.GetActor(c.Request.Context())
}

// AuthorizeAccount checks that the actor owns the given account, with
// the admin passing always. Document routes addressed by document id
// bypass the :accountID path guard, so handlers call this after loading
// the document; a seller must not act on another seller's documents.
// On failure the error is registered and false returned.
func (h *BaseHandler) AuthorizeAccount(c *gin.Context, accountID id.ID) bool {
	actor := appctx.GetActor(c.Request.Context())
	if actor == nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return false
	}
	if actor.Role == auth.RoleAdmin {
		return true
	}
	if actor.AccountID != accountID.String() {
		h.Error(c, apperror.NewForbidden("account mismatch"))
		return false
	}
	return true
}
