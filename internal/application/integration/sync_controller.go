package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobLock provides cross-process exclusion for sync starts
type JobLock interface {
	// Acquire takes the lock for key. It returns ErrSyncAlreadyRunning when
	// another holder owns it.
	Acquire(ctx context.Context, key string) (JobLease, error)
}

// JobLease is a held JobLock
type JobLease interface {
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

// SyncMetrics observes sync job outcomes
type SyncMetrics interface {
	JobFinished(ctx context.Context, syncType integration.SyncType, status integration.SyncStatus, reason integration.SyncErrorReason, duration time.Duration)
	ItemsSynced(ctx context.Context, kind string, count int)
	ConflictsDetected(ctx context.Context, count int)
}

// DefaultHistoryLimit is how many finished jobs the controller keeps in memory
const DefaultHistoryLimit = 200

type jobKey struct {
	organizationID uuid.UUID
	syncType       integration.SyncType
}

func (k jobKey) String() string {
	return "catalog-sync:" + k.organizationID.String() + ":" + string(k.syncType)
}

type trackedJob struct {
	job   *integration.SyncJob
	lease JobLease
}

// SyncJobController owns every sync job state. At most one job per
// (organization, sync type) is syncing at any time; a second start is refused,
// never queued.
type SyncJobController struct {
	mu       sync.Mutex
	active   map[jobKey]uuid.UUID
	jobs     map[uuid.UUID]*trackedJob
	finished []uuid.UUID

	lock         JobLock
	archive      integration.SyncJobArchive
	metrics      SyncMetrics
	logger       *zap.Logger
	now          func() time.Time
	historyLimit int
}

// NewSyncJobController creates a controller with in-process exclusion only
func NewSyncJobController(logger *zap.Logger) *SyncJobController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncJobController{
		active:       make(map[jobKey]uuid.UUID),
		jobs:         make(map[uuid.UUID]*trackedJob),
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		historyLimit: DefaultHistoryLimit,
	}
}

// SetJobLock enables cross-replica exclusion
func (c *SyncJobController) SetJobLock(lock JobLock) {
	c.lock = lock
}

// SetArchive sets where finished jobs are persisted
func (c *SyncJobController) SetArchive(archive integration.SyncJobArchive) {
	c.archive = archive
}

// SetMetrics sets the metrics sink
func (c *SyncJobController) SetMetrics(m SyncMetrics) {
	c.metrics = m
}

// SetClock overrides the time source
func (c *SyncJobController) SetClock(now func() time.Time) {
	c.now = now
}

// SetHistoryLimit bounds the finished jobs kept in memory
func (c *SyncJobController) SetHistoryLimit(n int) {
	if n > 0 {
		c.historyLimit = n
	}
}

// Start creates a job and moves it to syncing. The (organization, sync type)
// slot is claimed with an insert-if-absent under the controller mutex, so of
// two concurrent starts exactly one wins.
func (c *SyncJobController) Start(ctx context.Context, organizationID uuid.UUID, syncType integration.SyncType) (integration.SyncJob, error) {
	job, err := integration.NewSyncJob(organizationID, syncType)
	if err != nil {
		return integration.SyncJob{}, err
	}
	key := jobKey{organizationID: organizationID, syncType: syncType}

	c.mu.Lock()
	if running, ok := c.active[key]; ok {
		c.mu.Unlock()
		return integration.SyncJob{}, shared.NewDomainError(shared.CodeSyncAlreadyRunning,
			fmt.Sprintf("%s sync %s is already running for organization %s", syncType, running, organizationID))
	}
	c.active[key] = job.ID
	c.jobs[job.ID] = &trackedJob{job: job}
	c.mu.Unlock()

	var lease JobLease
	if c.lock != nil {
		lease, err = c.lock.Acquire(ctx, key.String())
		if err != nil {
			c.mu.Lock()
			delete(c.active, key)
			delete(c.jobs, job.ID)
			c.mu.Unlock()
			return integration.SyncJob{}, err
		}
	}

	c.mu.Lock()
	tracked := c.jobs[job.ID]
	tracked.lease = lease
	_ = job.Start(c.now())
	snapshot := job.Snapshot()
	c.mu.Unlock()

	c.logger.Info("Sync job started",
		zap.String("job_id", job.ID.String()),
		zap.String("organization_id", organizationID.String()),
		zap.String("sync_type", string(syncType)),
	)
	return snapshot, nil
}

// ReportProgress applies a progress update to a syncing job. Regressions are
// clamped and logged, not rejected.
func (c *SyncJobController) ReportProgress(ctx context.Context, jobID uuid.UUID, update integration.ProgressUpdate) error {
	c.mu.Lock()
	tracked, ok := c.jobs[jobID]
	if !ok {
		c.mu.Unlock()
		return shared.NewDomainError(shared.CodeNotFound, "sync job "+jobID.String()+" not found")
	}
	clamped, err := tracked.job.ApplyProgress(update)
	lease := tracked.lease
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if len(clamped) > 0 {
		c.logger.Warn("Sync progress regression clamped",
			zap.String("job_id", jobID.String()),
			zap.Strings("fields", clamped),
			zap.Int("reported_progress", update.Progress),
			zap.Int("reported_items_processed", update.ItemsProcessed),
		)
	}
	if lease != nil {
		if err := lease.Refresh(ctx); err != nil {
			c.logger.Warn("Failed to refresh sync job lock", zap.String("job_id", jobID.String()), zap.Error(err))
		}
	}
	return nil
}

// AttachReport stores the run report on the job
func (c *SyncJobController) AttachReport(jobID uuid.UUID, report *integration.SyncReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tracked, ok := c.jobs[jobID]
	if !ok {
		return shared.NewDomainError(shared.CodeNotFound, "sync job "+jobID.String()+" not found")
	}
	tracked.job.Report = report
	return nil
}

// Complete ends a syncing job. A failure keeps the last reported progress.
func (c *SyncJobController) Complete(ctx context.Context, jobID uuid.UUID, success bool, errorMessage string) (integration.SyncJob, error) {
	return c.finish(ctx, jobID, func(j *integration.SyncJob, now time.Time) error {
		return j.Complete(success, errorMessage, now)
	})
}

// Fail ends a syncing job in error with an explicit reason
func (c *SyncJobController) Fail(ctx context.Context, jobID uuid.UUID, reason integration.SyncErrorReason, errorMessage string) (integration.SyncJob, error) {
	return c.finish(ctx, jobID, func(j *integration.SyncJob, now time.Time) error {
		return j.Fail(reason, errorMessage, now)
	})
}

// Cancel ends a syncing job in error with reason cancelled. The driving loop
// notices between pages and stops; a new job may start right away.
func (c *SyncJobController) Cancel(ctx context.Context, jobID uuid.UUID) (integration.SyncJob, error) {
	return c.finish(ctx, jobID, func(j *integration.SyncJob, now time.Time) error {
		return j.Cancel(now)
	})
}

func (c *SyncJobController) finish(ctx context.Context, jobID uuid.UUID, transition func(*integration.SyncJob, time.Time) error) (integration.SyncJob, error) {
	c.mu.Lock()
	tracked, ok := c.jobs[jobID]
	if !ok {
		c.mu.Unlock()
		return integration.SyncJob{}, shared.NewDomainError(shared.CodeNotFound, "sync job "+jobID.String()+" not found")
	}
	if err := transition(tracked.job, c.now()); err != nil {
		c.mu.Unlock()
		return integration.SyncJob{}, err
	}
	key := jobKey{organizationID: tracked.job.OrganizationID, syncType: tracked.job.SyncType}
	if c.active[key] == jobID {
		delete(c.active, key)
	}
	lease := tracked.lease
	tracked.lease = nil
	c.finished = append(c.finished, jobID)
	c.evictLocked()
	snapshot := tracked.job.Snapshot()
	c.mu.Unlock()

	if lease != nil {
		if err := lease.Release(ctx); err != nil {
			c.logger.Warn("Failed to release sync job lock", zap.String("job_id", jobID.String()), zap.Error(err))
		}
	}
	c.record(ctx, snapshot)
	return snapshot, nil
}

// evictLocked drops the oldest finished jobs beyond the history limit
func (c *SyncJobController) evictLocked() {
	for len(c.finished) > c.historyLimit {
		delete(c.jobs, c.finished[0])
		c.finished = c.finished[1:]
	}
}

func (c *SyncJobController) record(ctx context.Context, job integration.SyncJob) {
	var duration time.Duration
	if job.FinishedAt != nil {
		duration = job.FinishedAt.Sub(job.StartedAt)
	}
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("organization_id", job.OrganizationID.String()),
		zap.String("sync_type", string(job.SyncType)),
		zap.String("status", string(job.Status)),
		zap.Int("progress", job.Progress),
		zap.Duration("duration", duration),
	}
	if job.Status == integration.SyncStatusError {
		fields = append(fields, zap.String("error_reason", string(job.ErrorReason)), zap.String("error_message", job.ErrorMessage))
		c.logger.Warn("Sync job finished with error", fields...)
	} else {
		c.logger.Info("Sync job finished", fields...)
	}

	if c.metrics != nil {
		c.metrics.JobFinished(ctx, job.SyncType, job.Status, job.ErrorReason, duration)
	}
	c.Archive(ctx, job)
}

// Archive persists a finished job snapshot. Archive failures are logged only;
// the in-memory state stays authoritative for the running process.
func (c *SyncJobController) Archive(ctx context.Context, job integration.SyncJob) {
	if c.archive == nil {
		return
	}
	if err := c.archive.Save(ctx, &job); err != nil {
		c.logger.Error("Failed to archive sync job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}

// Get returns a snapshot of a job known to this process
func (c *SyncJobController) Get(jobID uuid.UUID) (integration.SyncJob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tracked, ok := c.jobs[jobID]
	if !ok {
		return integration.SyncJob{}, false
	}
	return tracked.job.Snapshot(), true
}

// IsCancelled reports whether the job was cancelled
func (c *SyncJobController) IsCancelled(jobID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	tracked, ok := c.jobs[jobID]
	return ok && tracked.job.IsCancelled()
}

// IsActive reports whether a job of this type is syncing for the organization
func (c *SyncJobController) IsActive(organizationID uuid.UUID, syncType integration.SyncType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[jobKey{organizationID: organizationID, syncType: syncType}]
	return ok
}

// List returns snapshots of the organization's jobs known to this process,
// most recently started first
func (c *SyncJobController) List(organizationID uuid.UUID) []integration.SyncJob {
	c.mu.Lock()
	out := make([]integration.SyncJob, 0)
	for _, tracked := range c.jobs {
		if tracked.job.OrganizationID == organizationID {
			out = append(out, tracked.job.Snapshot())
		}
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
