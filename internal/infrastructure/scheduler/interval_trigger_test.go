package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appintegration "github.com/catalogmirror/backend/internal/application/integration"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStarter struct {
	mock.Mock
	mu    sync.Mutex
	calls int
}

func (m *mockStarter) StartSync(ctx context.Context, org uuid.UUID, syncType integration.SyncType) (*appintegration.SyncJobResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	args := m.Called(ctx, org, syncType)
	resp, _ := args.Get(0).(*appintegration.SyncJobResponse)
	return resp, args.Error(1)
}

func (m *mockStarter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestParseOrganizations(t *testing.T) {
	id := uuid.New()
	got, err := ParseOrganizations([]string{id.String()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, got)

	_, err = ParseOrganizations([]string{"not-a-uuid"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewIntervalTrigger_Validation(t *testing.T) {
	_, err := NewIntervalTrigger(IntervalTriggerConfig{SyncType: integration.SyncTypeFull}, &mockStarter{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewIntervalTrigger(IntervalTriggerConfig{Interval: time.Hour, SyncType: "everything"}, &mockStarter{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestIntervalTrigger_TriggerNow(t *testing.T) {
	idle, busy, broken := uuid.New(), uuid.New(), uuid.New()
	starter := &mockStarter{}
	starter.On("StartSync", mock.Anything, idle, integration.SyncTypeFull).
		Return(&appintegration.SyncJobResponse{JobID: uuid.New()}, nil)
	starter.On("StartSync", mock.Anything, busy, integration.SyncTypeFull).
		Return(nil, shared.ErrSyncAlreadyRunning)
	starter.On("StartSync", mock.Anything, broken, integration.SyncTypeFull).
		Return(nil, errors.New("database down"))

	trigger, err := NewIntervalTrigger(IntervalTriggerConfig{
		Interval:      time.Hour,
		Organizations: []uuid.UUID{idle, busy, broken},
		SyncType:      integration.SyncTypeFull,
	}, starter, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, trigger.TriggerNow(context.Background()))
	starter.AssertNumberOfCalls(t, "StartSync", 3)
}

func TestIntervalTrigger_Loop(t *testing.T) {
	org := uuid.New()
	starter := &mockStarter{}
	starter.On("StartSync", mock.Anything, org, integration.SyncTypeProducts).
		Return(&appintegration.SyncJobResponse{JobID: uuid.New()}, nil)

	trigger, err := NewIntervalTrigger(IntervalTriggerConfig{
		Interval:      5 * time.Millisecond,
		Organizations: []uuid.UUID{org},
		SyncType:      integration.SyncTypeProducts,
	}, starter, nil)
	require.NoError(t, err)

	require.NoError(t, trigger.Start(context.Background()))
	assert.Eventually(t, func() bool { return starter.callCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))

	stopped := starter.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, starter.callCount())
}
