package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func archivedJob(t *testing.T, org uuid.UUID, syncType integration.SyncType, startedAt time.Time) *integration.SyncJob {
	t.Helper()
	job, err := integration.NewSyncJob(org, syncType)
	require.NoError(t, err)
	require.NoError(t, job.Start(startedAt))
	return job
}

func TestGormSyncJobArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("save is an upsert on the job id", func(t *testing.T) {
		db := newTestDB(t)
		archive := NewGormSyncJobArchive(db)
		org := newOrganization(t, db)
		job := archivedJob(t, org, integration.SyncTypeProducts, mirrorEpoch)

		require.NoError(t, job.Cancel(mirrorEpoch.Add(time.Minute)))
		require.NoError(t, archive.Save(ctx, job))

		job.Report = &integration.SyncReport{
			ProductsUpserted: 4,
			Skipped:          []catalog.RecordFailure{{Kind: catalog.RecordKindProduct, ID: 9, Reason: "missing id"}},
		}
		require.NoError(t, archive.Save(ctx, job))

		got, err := archive.FindByID(ctx, org, job.ID)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusError, got.Status)
		assert.Equal(t, integration.SyncErrorReasonCancelled, got.ErrorReason)
		require.NotNil(t, got.FinishedAt)
		require.NotNil(t, got.Report)
		assert.Equal(t, 4, got.Report.ProductsUpserted)
		require.Len(t, got.Report.Skipped, 1)
		assert.Equal(t, int64(9), got.Report.Skipped[0].ID)

		_, total, err := archive.List(ctx, org, nil, shared.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("lookups are organization scoped", func(t *testing.T) {
		db := newTestDB(t)
		archive := NewGormSyncJobArchive(db)
		org := newOrganization(t, db)
		job := archivedJob(t, org, integration.SyncTypeFull, mirrorEpoch)
		require.NoError(t, job.Complete(true, "", mirrorEpoch.Add(time.Minute)))
		require.NoError(t, archive.Save(ctx, job))

		_, err := archive.FindByID(ctx, uuid.New(), job.ID)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})

	t.Run("list filters by type, most recent first", func(t *testing.T) {
		db := newTestDB(t)
		archive := NewGormSyncJobArchive(db)
		org := newOrganization(t, db)
		for i, st := range []integration.SyncType{integration.SyncTypeProducts, integration.SyncTypeVariations, integration.SyncTypeProducts} {
			job := archivedJob(t, org, st, mirrorEpoch.Add(time.Duration(i)*time.Hour))
			require.NoError(t, job.Complete(true, "", mirrorEpoch.Add(time.Duration(i)*time.Hour+time.Minute)))
			require.NoError(t, archive.Save(ctx, job))
		}

		products := integration.SyncTypeProducts
		jobs, total, err := archive.List(ctx, org, &products, shared.Pagination{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, jobs, 2)
		assert.True(t, jobs[0].StartedAt.After(jobs[1].StartedAt))
		assert.Nil(t, jobs[0].Report)
	})
}

func TestGormOrganizationResolver(t *testing.T) {
	db := newTestDB(t)
	org := newOrganization(t, db)
	resolver := NewGormOrganizationResolver(db)

	ok, err := resolver.Exists(context.Background(), org)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
