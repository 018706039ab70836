package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/voxelhub-backend/internal/db"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevHeaderAuth(t *testing.T) {
	e := echo.New()
	m := NewDevAuthMiddleware()
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("uid").(string))
	}, m.RequireAuth)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(DevUserHeader, "maker-1")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "maker-1", rec.Body.String())

	assert.Nil(t, m.TokenVerifier())
	_, err := m.VerifyUID(context.Background(), "token")
	require.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	users := repository.NewUserRepository(conn)
	require.NoError(t, users.Save(context.Background(), &model.User{UID: "maker-1", Role: model.RoleMaker}))
	require.NoError(t, users.Save(context.Background(), &model.User{UID: "client-1", Role: model.RoleClient}))

	e := echo.New()
	m := NewDevAuthMiddleware()
	e.GET("/maker-only", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, m.RequireAuth, RequireRole(users, model.RoleMaker))

	tests := []struct {
		uid  string
		want int
	}{
		{"maker-1", http.StatusNoContent},
		{"client-1", http.StatusForbidden},
		{"unregistered", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/maker-only", nil)
			req.Header.Set(DevUserHeader, tt.uid)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
