package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeLease struct {
	refreshed atomic.Int32
	released  atomic.Int32
}

func (l *fakeLease) Refresh(context.Context) error {
	l.refreshed.Add(1)
	return nil
}

func (l *fakeLease) Release(context.Context) error {
	l.released.Add(1)
	return nil
}

type fakeLock struct {
	mu    sync.Mutex
	held  map[string]bool
	lease *fakeLease
	err   error
}

func (f *fakeLock) Acquire(_ context.Context, key string) (JobLease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.held[key] {
		return nil, shared.ErrSyncAlreadyRunning
	}
	f.held[key] = true
	return f.lease, nil
}

type fakeArchive struct {
	mu    sync.Mutex
	saved []integration.SyncJob
}

func (a *fakeArchive) Save(_ context.Context, job *integration.SyncJob) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, job.Snapshot())
	return nil
}

func (a *fakeArchive) FindByID(_ context.Context, organizationID, jobID uuid.UUID) (*integration.SyncJob, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.saved) - 1; i >= 0; i-- {
		if a.saved[i].ID == jobID && a.saved[i].OrganizationID == organizationID {
			job := a.saved[i]
			return &job, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (a *fakeArchive) List(_ context.Context, organizationID uuid.UUID, _ *integration.SyncType, _ shared.Pagination) ([]integration.SyncJob, int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []integration.SyncJob
	for _, j := range a.saved {
		if j.OrganizationID == organizationID {
			out = append(out, j)
		}
	}
	return out, int64(len(out)), nil
}

type fakeSyncMetrics struct {
	mu        sync.Mutex
	finished  []integration.SyncStatus
	items     map[string]int
	conflicts int
}

func newFakeSyncMetrics() *fakeSyncMetrics {
	return &fakeSyncMetrics{items: make(map[string]int)}
}

func (m *fakeSyncMetrics) JobFinished(_ context.Context, _ integration.SyncType, status integration.SyncStatus, _ integration.SyncErrorReason, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, status)
}

func (m *fakeSyncMetrics) ItemsSynced(_ context.Context, kind string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[kind] += count
}

func (m *fakeSyncMetrics) ConflictsDetected(_ context.Context, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts += count
}

func TestSyncJobController_Start(t *testing.T) {
	ctx := context.Background()
	org := uuid.New()

	t.Run("second start of the same type is refused", func(t *testing.T) {
		c := NewSyncJobController(zaptest.NewLogger(t))

		first, err := c.Start(ctx, org, integration.SyncTypeProducts)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusSyncing, first.Status)

		_, err = c.Start(ctx, org, integration.SyncTypeProducts)
		assert.ErrorIs(t, err, shared.ErrSyncAlreadyRunning)
		assert.Len(t, c.List(org), 1)
	})

	t.Run("other types and organizations run independently", func(t *testing.T) {
		c := NewSyncJobController(nil)

		_, err := c.Start(ctx, org, integration.SyncTypeProducts)
		require.NoError(t, err)
		_, err = c.Start(ctx, org, integration.SyncTypeVariations)
		require.NoError(t, err)
		_, err = c.Start(ctx, uuid.New(), integration.SyncTypeProducts)
		require.NoError(t, err)
	})

	t.Run("concurrent starts produce exactly one job", func(t *testing.T) {
		c := NewSyncJobController(nil)
		var wg sync.WaitGroup
		var started, refused atomic.Int32
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.Start(ctx, org, integration.SyncTypeFull)
				switch {
				case err == nil:
					started.Add(1)
				case shared.IsCode(err, shared.CodeSyncAlreadyRunning):
					refused.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), started.Load())
		assert.Equal(t, int32(31), refused.Load())
	})

	t.Run("invalid input", func(t *testing.T) {
		c := NewSyncJobController(nil)

		_, err := c.Start(ctx, uuid.Nil, integration.SyncTypeProducts)
		assert.ErrorIs(t, err, shared.ErrInvalidScope)
		_, err = c.Start(ctx, org, integration.SyncType("orders"))
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("distributed lock refusal frees the local slot", func(t *testing.T) {
		c := NewSyncJobController(nil)
		c.SetJobLock(&fakeLock{err: shared.ErrSyncAlreadyRunning})

		_, err := c.Start(ctx, org, integration.SyncTypeProducts)
		assert.ErrorIs(t, err, shared.ErrSyncAlreadyRunning)
		assert.False(t, c.IsActive(org, integration.SyncTypeProducts))
		assert.Empty(t, c.List(org))
	})

	t.Run("lease is refreshed on progress and released on finish", func(t *testing.T) {
		lease := &fakeLease{}
		c := NewSyncJobController(nil)
		c.SetJobLock(&fakeLock{held: map[string]bool{}, lease: lease})

		job, err := c.Start(ctx, org, integration.SyncTypeProducts)
		require.NoError(t, err)
		require.NoError(t, c.ReportProgress(ctx, job.ID, integration.ProgressUpdate{Progress: 10}))
		_, err = c.Complete(ctx, job.ID, true, "")
		require.NoError(t, err)

		assert.Equal(t, int32(1), lease.refreshed.Load())
		assert.Equal(t, int32(1), lease.released.Load())
	})
}

func TestSyncJobController_ReportProgress(t *testing.T) {
	ctx := context.Background()
	c := NewSyncJobController(zaptest.NewLogger(t))
	job, err := c.Start(ctx, uuid.New(), integration.SyncTypeProducts)
	require.NoError(t, err)

	require.NoError(t, c.ReportProgress(ctx, job.ID, integration.ProgressUpdate{Progress: 50, ItemsProcessed: 10, TotalItems: 40, CurrentStep: "page 1"}))
	require.NoError(t, c.ReportProgress(ctx, job.ID, integration.ProgressUpdate{Progress: 30, ItemsProcessed: 5, TotalItems: 60}))

	got, ok := c.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, 50, got.Progress)
	assert.Equal(t, 10, got.ItemsProcessed)
	assert.Equal(t, 60, got.TotalItems)
	assert.Equal(t, "page 1", got.CurrentStep)

	err = c.ReportProgress(ctx, uuid.New(), integration.ProgressUpdate{Progress: 1})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSyncJobController_Finish(t *testing.T) {
	ctx := context.Background()
	org := uuid.New()

	t.Run("success forces progress to 100", func(t *testing.T) {
		metrics := newFakeSyncMetrics()
		archive := &fakeArchive{}
		c := NewSyncJobController(nil)
		c.SetMetrics(metrics)
		c.SetArchive(archive)

		job, _ := c.Start(ctx, org, integration.SyncTypeProducts)
		_ = c.ReportProgress(ctx, job.ID, integration.ProgressUpdate{Progress: 40})
		done, err := c.Complete(ctx, job.ID, true, "")

		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusSuccess, done.Status)
		assert.Equal(t, 100, done.Progress)
		assert.NotNil(t, done.FinishedAt)
		assert.Equal(t, []integration.SyncStatus{integration.SyncStatusSuccess}, metrics.finished)
		require.Len(t, archive.saved, 1)
		assert.False(t, c.IsActive(org, integration.SyncTypeProducts))
	})

	t.Run("failure keeps last progress", func(t *testing.T) {
		c := NewSyncJobController(nil)
		job, _ := c.Start(ctx, org, integration.SyncTypeProducts)
		_ = c.ReportProgress(ctx, job.ID, integration.ProgressUpdate{Progress: 40})

		done, err := c.Fail(ctx, job.ID, integration.SyncErrorReasonProvider, "provider down")

		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusError, done.Status)
		assert.Equal(t, 40, done.Progress)
		assert.Equal(t, integration.SyncErrorReasonProvider, done.ErrorReason)
		assert.Equal(t, "provider down", done.ErrorMessage)
	})

	t.Run("cancel then start again", func(t *testing.T) {
		c := NewSyncJobController(nil)
		job, _ := c.Start(ctx, org, integration.SyncTypeFull)

		cancelled, err := c.Cancel(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusError, cancelled.Status)
		assert.Equal(t, integration.SyncErrorReasonCancelled, cancelled.ErrorReason)
		assert.True(t, c.IsCancelled(job.ID))

		next, err := c.Start(ctx, org, integration.SyncTypeFull)
		require.NoError(t, err)
		assert.NotEqual(t, job.ID, next.ID)
	})

	t.Run("finished jobs cannot change", func(t *testing.T) {
		c := NewSyncJobController(nil)
		job, _ := c.Start(ctx, org, integration.SyncTypeProducts)
		_, err := c.Complete(ctx, job.ID, true, "")
		require.NoError(t, err)

		_, err = c.Cancel(ctx, job.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		err = c.ReportProgress(ctx, job.ID, integration.ProgressUpdate{Progress: 10})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("history is bounded", func(t *testing.T) {
		c := NewSyncJobController(nil)
		c.SetHistoryLimit(1)
		first, _ := c.Start(ctx, org, integration.SyncTypeProducts)
		_, _ = c.Complete(ctx, first.ID, true, "")
		second, _ := c.Start(ctx, org, integration.SyncTypeProducts)
		_, _ = c.Complete(ctx, second.ID, false, "boom")

		_, ok := c.Get(first.ID)
		assert.False(t, ok)
		_, ok = c.Get(second.ID)
		assert.True(t, ok)
	})

	t.Run("snapshots are copies", func(t *testing.T) {
		c := NewSyncJobController(nil)
		job, _ := c.Start(ctx, org, integration.SyncTypeProducts)
		require.NoError(t, c.AttachReport(job.ID, &integration.SyncReport{ProductsUpserted: 3}))

		got, _ := c.Get(job.ID)
		got.Report.ProductsUpserted = 99
		again, _ := c.Get(job.ID)
		assert.Equal(t, 3, again.Report.ProductsUpserted)
	})

	t.Run("unknown job", func(t *testing.T) {
		c := NewSyncJobController(nil)
		_, err := c.Cancel(ctx, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}
