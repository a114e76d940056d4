package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/catalogmirror/backend/internal/interfaces/http/dto"
	"github.com/catalogmirror/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func newTestEngine(registrar interface{ RegisterRoutes(*gin.RouterGroup) }) *gin.Engine {
	r := gin.New()
	api := r.Group("/api/v1", middleware.RequestID(), middleware.OrganizationScope(middleware.ScopeConfig{}))
	registrar.RegisterRoutes(api)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, org uuid.UUID, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	rec := serveWithHeaders(t, r, method, path, body, map[string]string{middleware.OrganizationIDHeader: org.String()})

	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func serveWithHeaders(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = raw
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func dataAs[T any](t *testing.T, resp dto.Response) T {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
