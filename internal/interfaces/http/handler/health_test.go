package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catalogmirror/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *HealthHandler) (*httptest.ResponseRecorder, dto.Response, HealthResponse) {
	t.Helper()
	r := gin.New()
	r.GET("/health", h.Health)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp, dataAs[HealthResponse](t, resp)
}

func TestHealthHandler(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    nil,
		})

		rec, resp, health := serveHealth(t, h)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, map[string]string{"database": "ok"}, health.Checks)
	})

	t.Run("failing dependency degrades to 503", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
		})

		rec, resp, health := serveHealth(t, h)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeUnavailable, resp.Error.Code)
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "dial tcp: connection refused", health.Checks["redis"])
	})
}
