package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{ServiceName: "test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.Nil(t, mp.Handler())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewMeterProvider_PrometheusHandler(t *testing.T) {
	ctx := context.Background()
	mp, err := NewMeterProvider(ctx, MetricsConfig{PrometheusEnabled: true, ServiceName: "catalog-mirror-test"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = mp.Shutdown(ctx) }()
	require.True(t, mp.IsEnabled())

	m, err := NewCatalogMetrics(mp)
	require.NoError(t, err)
	m.JobFinished(ctx, integration.SyncTypeProducts, integration.SyncStatusSuccess, "", 3*time.Second)

	handler := mp.Handler()
	require.NotNil(t, handler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sync_jobs_total")
	assert.Contains(t, string(body), "sync_duration_seconds")
	assert.Contains(t, string(body), "go_goroutines")
}
