package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital_legacy_echo/internal/middleware"
	"digital_legacy_echo/internal/models"
)

type fakeSessions struct{}

func (fakeSessions) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if idToken != "good-token" {
		return nil, errors.New("invalid id token")
	}
	return &auth.Token{UID: "uid-1"}, nil
}

func (fakeSessions) SessionCookie(_ context.Context, idToken string, expiresIn time.Duration) (string, error) {
	return "cookie-for-" + idToken, nil
}

func TestHandleLogin(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = middleware.JSONErrorHandler
	h := NewAuthHandler(fakeSessions{}, true)
	e.POST("/auth/login", h.HandleLogin)
	e.POST("/auth/logout", h.HandleLogout)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{name: "missing header", header: "", code: http.StatusUnauthorized},
		{name: "not bearer", header: "Token good-token", code: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad", code: http.StatusUnauthorized},
		{name: "ok", header: "Bearer good-token", code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)

			if tt.code == http.StatusOK {
				cookies := rec.Result().Cookies()
				require.Len(t, cookies, 1)
				assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
				assert.Equal(t, "cookie-for-good-token", cookies[0].Value)
				assert.True(t, cookies[0].HttpOnly)
				assert.True(t, cookies[0].Secure)
			}
		})
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestHandleLoginWithoutFirebase(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = middleware.JSONErrorHandler
	e.POST("/auth/login", NewAuthHandler(nil, false).HandleLogin)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStoreUserRoleGrant(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodPost, "/api/admin/users", `{"email":"new@example.com","password":"secret1","role":"admin"}`)
	assertStatus(t, rec, http.StatusForbidden)

	rec = srv.do(http.MethodPost, "/api/admin/users", `{"email":"bad","password":"secret1"}`)
	assertStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "Invalid email", errorMessage(t, rec))

	require.NoError(t, srv.db.Create(&models.User{Email: "a@example.com", Role: models.RoleAdmin}).Error)
	rec = srv.do(http.MethodGet, "/api/admin/users", "")
	assertStatus(t, rec, http.StatusOK)
	var users []models.User
	decode(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(http.MethodGet, "/health", "")
	assertStatus(t, rec, http.StatusOK)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
