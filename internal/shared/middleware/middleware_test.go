package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/shared"
	"library-backend/pkg/jwt"
)

func newRouter(m *jwt.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), RequestID())

	r.GET("/me", AuthMiddleware(m), func(c *gin.Context) {
		id, ok := GetUserID(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	r.GET("/admin", AuthMiddleware(m), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func get(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	m := jwt.NewManager("secret", time.Hour)
	r := newRouter(m)
	userID := uuid.New()

	token, err := m.GenerateAccessToken(userID.String(), "user")
	require.NoError(t, err)

	w := get(r, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer nope").Code)

	badSubject, err := m.GenerateAccessToken("not-a-uuid", "user")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer "+badSubject).Code)
}

func TestAdminMiddleware(t *testing.T) {
	m := jwt.NewManager("secret", time.Hour)
	r := newRouter(m)

	user, _ := m.GenerateAccessToken(uuid.NewString(), "user")
	admin, _ := m.GenerateAccessToken(uuid.NewString(), shared.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", "Bearer "+user).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", "Bearer "+admin).Code)
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := newRouter(jwt.NewManager("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), "SYS_001")

	w = get(r, "/admin", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader), "generated when absent")
}
