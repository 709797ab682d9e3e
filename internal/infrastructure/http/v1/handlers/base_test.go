package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fructus/internal/core/appctx"
	"fructus/internal/core/apperror"
	"fructus/internal/core/id"
	"fructus/internal/domain/auth"
)

func testContext(t *testing.T, actor *appctx.Actor) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if actor != nil {
		req = req.WithContext(appctx.WithActor(req.Context(), actor))
	}
	c.Request = req
	return c
}

func contextErrorCode(c *gin.Context) string {
	if len(c.Errors) == 0 {
		return ""
	}
	return apperror.Code(c.Errors.Last().Err)
}

func TestAuthorizeAccount_OwnerPasses(t *testing.T) {
	accountID := id.New()
	c := testContext(t, &appctx.Actor{Role: auth.RoleSeller, AccountID: accountID.String()})

	var h BaseHandler
	assert.True(t, h.AuthorizeAccount(c, accountID))
	assert.Empty(t, c.Errors)
}

func TestAuthorizeAccount_AdminPassesForAnyAccount(t *testing.T) {
	c := testContext(t, &appctx.Actor{Role: auth.RoleAdmin})

	var h BaseHandler
	assert.True(t, h.AuthorizeAccount(c, id.New()))
	assert.Empty(t, c.Errors)
}

func TestAuthorizeAccount_OtherSellerForbidden(t *testing.T) {
	// A seller acting on a document that belongs to a different account
	// must be rejected even though the route carries no :accountID to
	// guard on.
	c := testContext(t, &appctx.Actor{Role: auth.RoleSeller, AccountID: id.New().String()})

	var h BaseHandler
	assert.False(t, h.AuthorizeAccount(c, id.New()))
	require.NotEmpty(t, c.Errors)
	assert.Equal(t, apperror.CodeForbidden, contextErrorCode(c))
	assert.True(t, c.IsAborted())
}

func TestAuthorizeAccount_MissingActorUnauthorized(t *testing.T) {
	c := testContext(t, nil)

	var h BaseHandler
	assert.False(t, h.AuthorizeAccount(c, id.New()))
	require.NotEmpty(t, c.Errors)
	assert.Equal(t, apperror.CodeUnauthorized, contextErrorCode(c))
}
