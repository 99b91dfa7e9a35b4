package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/career-assistant/internal/api/auth"
	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/handler"
	"github.com/cuongbtq/career-assistant/internal/api/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	userID     = "6f1c2a4e-8d0b-4c6a-9e3f-1a2b3c4d5e01"
	adminID    = "6f1c2a4e-8d0b-4c6a-9e3f-1a2b3c4d5e02"
	demotedID  = "6f1c2a4e-8d0b-4c6a-9e3f-1a2b3c4d5e03"
	inactiveID = "6f1c2a4e-8d0b-4c6a-9e3f-1a2b3c4d5e04"
	brokenID   = "6f1c2a4e-8d0b-4c6a-9e3f-1a2b3c4d5e05"
	unknownID  = "6f1c2a4e-8d0b-4c6a-9e3f-1a2b3c4d5e99"
)

type fakeUsers map[string]*model.User

func (f fakeUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if id == brokenID {
		return nil, errors.New("connection reset")
	}
	u, ok := f[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func testUsers() fakeUsers {
	return fakeUsers{
		userID:     {ID: userID, Role: domain.RoleUser, IsActive: true},
		adminID:    {ID: adminID, Role: domain.RoleAdmin, IsActive: true},
		demotedID:  {ID: demotedID, Role: domain.RoleUser, IsActive: true},
		inactiveID: {ID: inactiveID, Role: domain.RoleUser, IsActive: false},
	}
}

func newEngine(tokens *auth.TokenManager) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggerMiddleware(logger), CORSMiddleware())
	r.GET("/open", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ctxRequestID)) })

	private := r.Group("/private", AuthMiddleware(tokens, testUsers(), logger), IDParamsMiddleware("item_id"))
	private.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, handler.CurrentUserID(c)) })
	private.GET("/admin", RequireRole(domain.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	private.GET("/items/:item_id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("item_id")) })

	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newEngine(auth.NewTokenManager(strings.Repeat("k", 32), "test", time.Hour))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	r := newEngine(auth.NewTokenManager(strings.Repeat("k", 32), "test", time.Hour))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/open", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenManager(strings.Repeat("k", 32), "test", time.Hour)
	other := auth.NewTokenManager(strings.Repeat("x", 32), "test", time.Hour)
	r := newEngine(tokens)

	issue := func(id string, role domain.UserRole) string {
		token, err := tokens.Issue(id, role)
		require.NoError(t, err)
		return token
	}
	userToken := issue(userID, domain.RoleUser)
	adminToken := issue(adminID, domain.RoleAdmin)

	forged, err := other.Issue(userID, domain.RoleAdmin)
	require.NoError(t, err)
	refresh, err := tokens.IssueRefresh(userID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "no header", path: "/private/me", status: http.StatusUnauthorized, body: "missing bearer token"},
		{name: "wrong scheme", path: "/private/me", header: "Basic " + userToken, status: http.StatusUnauthorized, body: "missing bearer token"},
		{name: "foreign signature", path: "/private/me", header: "Bearer " + forged, status: http.StatusUnauthorized, body: "invalid token"},
		{name: "refresh token", path: "/private/me", header: "Bearer " + refresh, status: http.StatusUnauthorized, body: "invalid token"},
		{name: "subject not an id", path: "/private/me", header: "Bearer " + issue("user-1", domain.RoleUser), status: http.StatusUnauthorized, body: "invalid token"},
		{name: "valid", path: "/private/me", header: "Bearer " + userToken, status: http.StatusOK, body: userID},
		{name: "lowercase scheme", path: "/private/me", header: "bearer " + userToken, status: http.StatusOK, body: userID},
		{name: "unknown user", path: "/private/me", header: "Bearer " + issue(unknownID, domain.RoleAdmin), status: http.StatusUnauthorized, body: "user not found"},
		{name: "inactive user", path: "/private/me", header: "Bearer " + issue(inactiveID, domain.RoleUser), status: http.StatusUnauthorized, body: "user is inactive"},
		{name: "lookup failure", path: "/private/me", header: "Bearer " + issue(brokenID, domain.RoleUser), status: http.StatusInternalServerError, body: "Failed to authenticate"},
		{name: "user on admin route", path: "/private/admin", header: "Bearer " + userToken, status: http.StatusForbidden, body: "forbidden"},
		{name: "admin on admin route", path: "/private/admin", header: "Bearer " + adminToken, status: http.StatusNoContent},
		{name: "demoted admin token", path: "/private/admin", header: "Bearer " + issue(demotedID, domain.RoleAdmin), status: http.StatusForbidden, body: "forbidden"},
		{name: "valid path id", path: "/private/items/" + unknownID, header: "Bearer " + userToken, status: http.StatusOK, body: unknownID},
		{name: "path id not an id", path: "/private/items/nope", header: "Bearer " + userToken, status: http.StatusNotFound, body: "is not a valid id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}
