package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const secret = "test-secret-with-enough-length-000"

func newRouter(t *testing.T, roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zaptest.NewLogger(t)), AuthMiddleware(secret, zaptest.NewLogger(t)))
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": util.GetUserFromContext(c).UserID})
	}
	if len(roles) > 0 {
		r.GET("/", RoleMiddleware(roles...), handler)
	} else {
		r.GET("/", handler)
	}
	return r
}

func call(r *gin.Engine, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func token(t *testing.T, role model.UserRole, key string) string {
	t.Helper()
	tok, err := util.GenerateJWT(42, role, "u@example.com", key, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(t)

	assert.Equal(t, http.StatusUnauthorized, call(r, ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, "garbage"))
	assert.Equal(t, http.StatusUnauthorized, call(r, token(t, model.Student, "another-secret")))
	assert.Equal(t, http.StatusOK, call(r, token(t, model.Student, secret)))
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(t, model.Teacher)

	assert.Equal(t, http.StatusForbidden, call(r, token(t, model.Student, secret)))
	assert.Equal(t, http.StatusOK, call(r, token(t, model.Teacher, secret)))
	assert.Equal(t, http.StatusOK, call(r, token(t, model.Admin, secret)))
}
