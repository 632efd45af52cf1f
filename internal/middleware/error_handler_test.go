package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestJSONErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{name: "http error", err: echo.NewHTTPError(http.StatusConflict, "Status transition not allowed"), code: http.StatusConflict, body: `{"error":"Status transition not allowed"}`},
		{name: "default message", err: echo.ErrNotFound, code: http.StatusNotFound, body: `{"error":"Not Found"}`},
		{name: "plain error", err: errors.New("pq: connection refused"), code: http.StatusInternalServerError, body: `{"error":"Internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			JSONErrorHandler(tt.err, c)

			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

type sampleRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Status string `json:"status" validate:"required,oneof=new paid"`
}

func TestRequestValidator(t *testing.T) {
	v := NewRequestValidator()

	assert.NoError(t, v.Validate(&sampleRequest{Email: "a@example.com", Status: "paid"}))

	err := v.Validate(&sampleRequest{Email: "nope", Status: "lost"})
	var he *echo.HTTPError
	assert.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Contains(t, he.Message, "email must be a valid email")
	assert.Contains(t, he.Message, "status must be one of: new paid")
}
