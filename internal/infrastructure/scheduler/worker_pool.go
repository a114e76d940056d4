package scheduler

import (
	"context"
	"fmt"
	"sync"

	appintegration "github.com/catalogmirror/backend/internal/application/integration"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// JobRunner drives one started sync job to a terminal state
type JobRunner interface {
	Run(ctx context.Context, job integration.SyncJob)
}

// WorkerPoolConfig sizes the pool
type WorkerPoolConfig struct {
	Workers   int
	QueueSize int
}

// DefaultWorkerPoolConfig returns default pool sizing
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:   4,
		QueueSize: 64,
	}
}

// Validate checks the pool sizing
func (c WorkerPoolConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// WorkerPool executes started sync jobs on a bounded set of goroutines. Jobs
// are already syncing when submitted, so a full queue is reported back to the
// caller instead of blocking the request.
type WorkerPool struct {
	config WorkerPoolConfig
	runner JobRunner
	logger *zap.Logger

	jobs      chan integration.SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

var _ appintegration.JobDispatcher = (*WorkerPool)(nil)

// NewWorkerPool creates a stopped pool
func NewWorkerPool(config WorkerPoolConfig, runner JobRunner, logger *zap.Logger) (*WorkerPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		config: config,
		runner: runner,
		logger: logger.Named("sync_pool"),
	}, nil
}

// Start launches the workers. Jobs run under a context derived from ctx with
// its cancellation detached; only Stop cancels running jobs.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.jobs = make(chan integration.SyncJob, p.config.QueueSize)
	p.isRunning = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx, p.jobs, i)
	}

	p.logger.Info("Sync worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
	)
	return nil
}

// Stop stops accepting jobs and waits for queued and running jobs to finish.
// When ctx expires first, running jobs are cancelled and ctx.Err is returned.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Sync worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		p.logger.Warn("Sync worker pool stop timed out, running jobs were cancelled")
		return ctx.Err()
	}
}

// Submit queues a started job without blocking
func (p *WorkerPool) Submit(job integration.SyncJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		p.logger.Debug("Sync job queued",
			zap.String("job_id", job.ID.String()),
			zap.String("sync_type", string(job.SyncType)),
		)
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *WorkerPool) worker(ctx context.Context, jobs <-chan integration.SyncJob, workerID int) {
	defer p.wg.Done()
	for job := range jobs {
		p.process(ctx, job, workerID)
	}
}

func (p *WorkerPool) process(ctx context.Context, job integration.SyncJob, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Sync job panicked",
				zap.Int("worker_id", workerID),
				zap.String("job_id", job.ID.String()),
				zap.Any("panic", r),
			)
		}
	}()

	p.logger.Debug("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
	)
	p.runner.Run(ctx, job)
}
