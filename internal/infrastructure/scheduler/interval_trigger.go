package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	appintegration "github.com/catalogmirror/backend/internal/application/integration"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncStarter starts a sync job for an organization
type SyncStarter interface {
	StartSync(ctx context.Context, organizationID uuid.UUID, syncType integration.SyncType) (*appintegration.SyncJobResponse, error)
}

// IntervalTriggerConfig holds configuration for the periodic sync trigger
type IntervalTriggerConfig struct {
	Interval      time.Duration
	Organizations []uuid.UUID
	SyncType      integration.SyncType
}

// ParseOrganizations parses configured organization ids
func ParseOrganizations(ids []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: organization %q: %v", ErrInvalidConfig, raw, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// IntervalTrigger starts a sync for every configured organization on a fixed
// interval. An organization whose previous sync is still running is skipped.
type IntervalTrigger struct {
	config  IntervalTriggerConfig
	starter SyncStarter
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a stopped trigger
func NewIntervalTrigger(config IntervalTriggerConfig, starter SyncStarter, logger *zap.Logger) (*IntervalTrigger, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if !config.SyncType.IsValid() {
		return nil, fmt.Errorf("%w: unknown sync type %q", ErrInvalidConfig, config.SyncType)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalTrigger{
		config:  config,
		starter: starter,
		logger:  logger.Named("sync_trigger"),
	}, nil
}

// Start starts the trigger loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Sync trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Int("organizations", len(t.config.Organizations)),
		zap.String("sync_type", string(t.config.SyncType)),
	)
	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.TriggerNow(ctx)
		}
	}
}

// TriggerNow starts a sync for each configured organization and returns how
// many were started
func (t *IntervalTrigger) TriggerNow(ctx context.Context) int {
	started := 0
	for _, org := range t.config.Organizations {
		job, err := t.starter.StartSync(ctx, org, t.config.SyncType)
		switch {
		case shared.IsCode(err, shared.CodeSyncAlreadyRunning):
			t.logger.Debug("Previous sync still running, skipping", zap.String("organization_id", org.String()))
		case err != nil:
			t.logger.Error("Failed to start scheduled sync",
				zap.String("organization_id", org.String()),
				zap.Error(err),
			)
		default:
			started++
			t.logger.Info("Scheduled sync started",
				zap.String("organization_id", org.String()),
				zap.String("job_id", job.JobID.String()),
			)
		}
	}
	return started
}
