package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	inventoryapp "github.com/catalogmirror/backend/internal/application/inventory"
	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogMirror is the write side of the catalog mirror used by the sync loop
type CatalogMirror interface {
	UpsertProducts(ctx context.Context, organizationID uuid.UUID, page []catalog.MirroredProduct) (*catalog.UpsertResult, error)
	UpsertVariations(ctx context.Context, organizationID uuid.UUID, page []catalog.MirroredVariation) (*catalog.UpsertResult, error)
	ListVariableProductIDs(ctx context.Context, organizationID uuid.UUID) ([]int64, error)
}

// Reconciler resolves touched stock against the adjustment ledger
type Reconciler interface {
	Reconcile(ctx context.Context, organizationID uuid.UUID, touched []catalog.TouchedStock, syncStart time.Time) (*inventoryapp.ReconcileResult, error)
}

// JobDispatcher runs started jobs in the background
type JobDispatcher interface {
	Submit(job integration.SyncJob) error
}

// ReportExporter publishes finished sync reports
type ReportExporter interface {
	Export(ctx context.Context, job integration.SyncJob) (string, error)
}

// RetryPolicy bounds retries of retriable provider errors
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when no policy is configured
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     5,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     10 * time.Second,
}

// Progress bands per phase. A full sync spends the products band on products
// and the rest on variations; reconciliation takes the tail.
const (
	progressReconcile = 95
	progressFullSplit = 60
)

var errSyncCancelled = errors.New("sync cancelled")

// SyncService starts sync jobs and drives them page by page
type SyncService struct {
	controller *SyncJobController
	orgs       shared.OrganizationResolver
	provider   integration.CatalogProvider
	mirror     CatalogMirror
	reconciler Reconciler
	dispatcher JobDispatcher
	exporter   ReportExporter
	metrics    SyncMetrics
	retry      RetryPolicy
	logger     *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(
	controller *SyncJobController,
	orgs shared.OrganizationResolver,
	provider integration.CatalogProvider,
	mirror CatalogMirror,
	reconciler Reconciler,
	logger *zap.Logger,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		controller: controller,
		orgs:       orgs,
		provider:   provider,
		mirror:     mirror,
		reconciler: reconciler,
		retry:      DefaultRetryPolicy,
		logger:     logger,
	}
}

// SetDispatcher sets the background runner for started jobs
func (s *SyncService) SetDispatcher(d JobDispatcher) {
	s.dispatcher = d
}

// SetExporter enables report export
func (s *SyncService) SetExporter(e ReportExporter) {
	s.exporter = e
}

// SetMetrics sets the metrics sink
func (s *SyncService) SetMetrics(m SyncMetrics) {
	s.metrics = m
}

// SetRetryPolicy overrides the provider retry policy
func (s *SyncService) SetRetryPolicy(p RetryPolicy) {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	s.retry = p
}

// StartSync claims the (organization, sync type) slot and hands the job to the
// dispatcher. It returns as soon as the job is syncing.
func (s *SyncService) StartSync(ctx context.Context, organizationID uuid.UUID, syncType integration.SyncType) (*SyncJobResponse, error) {
	if err := shared.ResolveOrganization(ctx, s.orgs, organizationID); err != nil {
		return nil, err
	}
	job, err := s.controller.Start(ctx, organizationID, syncType)
	if err != nil {
		return nil, err
	}

	if s.dispatcher == nil {
		go s.Run(context.WithoutCancel(ctx), job)
		return ToSyncJobResponse(job), nil
	}
	if err := s.dispatcher.Submit(job); err != nil {
		failed, ferr := s.controller.Fail(ctx, job.ID, integration.SyncErrorReasonInternal, "failed to schedule sync: "+err.Error())
		if ferr != nil {
			return nil, ferr
		}
		return ToSyncJobResponse(failed), nil
	}
	return ToSyncJobResponse(job), nil
}

// CancelSync cancels a syncing job of the organization
func (s *SyncService) CancelSync(ctx context.Context, organizationID, jobID uuid.UUID) (*SyncJobResponse, error) {
	if err := shared.ResolveOrganization(ctx, s.orgs, organizationID); err != nil {
		return nil, err
	}
	job, ok := s.controller.Get(jobID)
	if !ok || job.OrganizationID != organizationID {
		return nil, shared.NewDomainError(shared.CodeNotFound, "sync job "+jobID.String()+" not found")
	}
	cancelled, err := s.controller.Cancel(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return ToSyncJobResponse(cancelled), nil
}

// GetJob returns a job of the organization, falling back to the archive for
// jobs this process no longer tracks
func (s *SyncService) GetJob(ctx context.Context, organizationID, jobID uuid.UUID) (*SyncJobResponse, error) {
	if err := shared.ResolveOrganization(ctx, s.orgs, organizationID); err != nil {
		return nil, err
	}
	if job, ok := s.controller.Get(jobID); ok && job.OrganizationID == organizationID {
		return ToSyncJobResponse(job), nil
	}
	if s.controller.archive == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "sync job "+jobID.String()+" not found")
	}
	job, err := s.controller.archive.FindByID(ctx, organizationID, jobID)
	if err != nil {
		return nil, err
	}
	return ToSyncJobResponse(*job), nil
}

// ListJobs returns the organization's syncing jobs followed by finished ones,
// most recent first. Finished jobs come from the archive when one is set.
func (s *SyncService) ListJobs(ctx context.Context, organizationID uuid.UUID, syncType *integration.SyncType, page shared.Pagination) (shared.Paginated[SyncJobResponse], error) {
	if err := shared.ResolveOrganization(ctx, s.orgs, organizationID); err != nil {
		return shared.Paginated[SyncJobResponse]{}, err
	}
	page = page.Normalize()
	if syncType != nil && !syncType.IsValid() {
		return shared.Paginated[SyncJobResponse]{}, shared.NewDomainError(shared.CodeValidation, "unknown sync type "+string(*syncType))
	}

	if s.controller.archive != nil {
		archived, total, err := s.controller.archive.List(ctx, organizationID, syncType, page)
		if err != nil {
			return shared.Paginated[SyncJobResponse]{}, err
		}
		items := make([]SyncJobResponse, 0, len(archived))
		if page.Page == 1 {
			for _, job := range s.controller.List(organizationID) {
				if !job.Status.IsTerminal() && (syncType == nil || job.SyncType == *syncType) {
					items = append(items, *ToSyncJobResponse(job))
				}
			}
		}
		for _, job := range archived {
			items = append(items, *ToSyncJobResponse(job))
		}
		return shared.NewPaginated(items, total, page), nil
	}

	var matched []SyncJobResponse
	for _, job := range s.controller.List(organizationID) {
		if syncType == nil || job.SyncType == *syncType {
			matched = append(matched, *ToSyncJobResponse(job))
		}
	}
	start := min(page.Offset(), len(matched))
	end := min(start+page.PageSize, len(matched))
	return shared.NewPaginated(matched[start:end], int64(len(matched)), page), nil
}

// runState accumulates one run's outcome
type runState struct {
	job       integration.SyncJob
	report    *integration.SyncReport
	touched   map[string]catalog.TouchedStock
	order     []string
	processed int
	total     int
}

func (r *runState) addResult(result *catalog.UpsertResult, kind string) {
	if kind == catalog.RecordKindProduct {
		r.report.ProductsUpserted += result.Upserted
	} else {
		r.report.VariationsUpserted += result.Upserted
	}
	r.report.Unchanged += result.Unchanged
	r.report.Skipped = append(r.report.Skipped, result.Failures...)
	for _, t := range result.Touched {
		key := t.Target.Key()
		if _, seen := r.touched[key]; !seen {
			r.order = append(r.order, key)
		}
		r.touched[key] = t
	}
}

// addSkipped records items the provider returned but could not decode
func (r *runState) addSkipped(failures []catalog.RecordFailure) {
	r.report.Skipped = append(r.report.Skipped, failures...)
}

func (r *runState) touchedList() []catalog.TouchedStock {
	out := make([]catalog.TouchedStock, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.touched[key])
	}
	return out
}

// Run drives a started job to a terminal state: fetch a page, upsert it,
// report progress, until the provider has no next cursor. The touched records
// are then reconciled once against the ledger. A run that stops early still
// reconciles what it already wrote.
func (s *SyncService) Run(ctx context.Context, job integration.SyncJob) {
	state := &runState{
		job:     job,
		report:  &integration.SyncReport{},
		touched: make(map[string]catalog.TouchedStock),
	}
	logger := s.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("organization_id", job.OrganizationID.String()),
		zap.String("sync_type", string(job.SyncType)),
	)

	err := s.runPhases(ctx, state)
	if err == nil {
		err = s.checkCancelled(ctx, job.ID)
	}
	if err == nil {
		err = s.reconcile(ctx, state)
	} else if len(state.order) > 0 {
		s.repair(ctx, state, logger)
	}
	_ = s.controller.AttachReport(job.ID, state.report)

	switch {
	case errors.Is(err, errSyncCancelled):
		logger.Info("Sync loop stopped after cancellation", zap.Int("items_processed", state.processed))
		if finished, ok := s.controller.Get(job.ID); ok {
			s.controller.Archive(ctx, finished)
		}
		return
	case err != nil:
		reason := integration.SyncErrorReasonInternal
		var pe *integration.ProviderError
		if errors.As(err, &pe) {
			reason = integration.SyncErrorReasonProvider
		}
		if _, ferr := s.controller.Fail(ctx, job.ID, reason, err.Error()); ferr != nil {
			logger.Warn("Failed to mark sync job as failed", zap.Error(ferr), zap.NamedError("cause", err))
		}
		return
	}

	finished, err := s.controller.Complete(ctx, job.ID, true, "")
	if err != nil {
		// cancelled while reconciling
		logger.Info("Sync job was finished concurrently", zap.Error(err))
		return
	}
	s.export(ctx, finished, logger)
}

func (s *SyncService) runPhases(ctx context.Context, state *runState) error {
	org := state.job.OrganizationID
	switch state.job.SyncType {
	case integration.SyncTypeProducts:
		_, err := s.syncProducts(ctx, state, 0, progressReconcile, false)
		return err
	case integration.SyncTypeVariations:
		parents, err := s.mirror.ListVariableProductIDs(ctx, org)
		if err != nil {
			return err
		}
		return s.syncVariations(ctx, state, parents, 0, progressReconcile)
	case integration.SyncTypeFull:
		parents, err := s.syncProducts(ctx, state, 0, progressFullSplit, true)
		if err != nil {
			return err
		}
		return s.syncVariations(ctx, state, parents, progressFullSplit, progressReconcile)
	default:
		return shared.NewDomainError(shared.CodeValidation, "unknown sync type "+string(state.job.SyncType))
	}
}

// syncProducts pages through products. When collectVariable is set it returns
// the ids of variable products that made it into the mirror.
func (s *SyncService) syncProducts(ctx context.Context, state *runState, from, to int, collectVariable bool) ([]int64, error) {
	org := state.job.OrganizationID
	var variable []int64
	cursor := ""
	pageNo := 0
	for {
		if err := s.checkCancelled(ctx, state.job.ID); err != nil {
			return nil, err
		}
		pageNo++
		page, err := fetchWithRetry(ctx, s, "fetch products page", func(ctx context.Context) (*integration.ProductPage, error) {
			return s.provider.FetchProductsPage(ctx, cursor)
		})
		if err != nil {
			return nil, err
		}
		if err := s.checkCancelled(ctx, state.job.ID); err != nil {
			return nil, err
		}

		for i := range page.Items {
			page.Items[i].OrganizationID = org
		}
		result, err := s.mirror.UpsertProducts(ctx, org, page.Items)
		if err != nil {
			return nil, err
		}
		state.addResult(result, catalog.RecordKindProduct)
		state.addSkipped(page.Skipped)
		if collectVariable {
			failed := failedIDs(result, catalog.RecordKindProduct)
			for _, p := range page.Items {
				if p.IsVariable() && !failed[p.ID] {
					variable = append(variable, p.ID)
				}
			}
		}
		if s.metrics != nil {
			s.metrics.ItemsSynced(ctx, catalog.RecordKindProduct, result.Upserted)
		}

		state.processed += len(page.Items) + len(page.Skipped)
		if page.Total > state.total {
			state.total = page.Total
		}
		progress := from
		if page.Total > 0 {
			progress = from + (to-from)*min(state.processed, page.Total)/page.Total
		}
		s.reportProgress(ctx, state, progress, fmt.Sprintf("products page %d", pageNo))

		if page.NextCursor == "" {
			return variable, nil
		}
		cursor = page.NextCursor
	}
}

func (s *SyncService) syncVariations(ctx context.Context, state *runState, parents []int64, from, to int) error {
	org := state.job.OrganizationID
	for idx, parentID := range parents {
		cursor := ""
		for {
			if err := s.checkCancelled(ctx, state.job.ID); err != nil {
				return err
			}
			page, err := fetchWithRetry(ctx, s, "fetch variations page", func(ctx context.Context) (*integration.VariationPage, error) {
				return s.provider.FetchVariationsPage(ctx, parentID, cursor)
			})
			if err != nil {
				return err
			}
			if err := s.checkCancelled(ctx, state.job.ID); err != nil {
				return err
			}

			for i := range page.Items {
				page.Items[i].OrganizationID = org
				if page.Items[i].ParentID == 0 {
					page.Items[i].ParentID = parentID
				}
			}
			result, err := s.mirror.UpsertVariations(ctx, org, page.Items)
			if err != nil {
				return err
			}
			state.addResult(result, catalog.RecordKindVariation)
			state.addSkipped(page.Skipped)
			if s.metrics != nil {
				s.metrics.ItemsSynced(ctx, catalog.RecordKindVariation, result.Upserted)
			}
			state.processed += len(page.Items) + len(page.Skipped)

			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
		progress := from + (to-from)*(idx+1)/len(parents)
		s.reportProgress(ctx, state, progress, fmt.Sprintf("variations of product %d", parentID))
	}
	return nil
}

func (s *SyncService) reconcile(ctx context.Context, state *runState) error {
	s.reportProgress(ctx, state, progressReconcile, "reconciling stock")

	result, err := s.reconciler.Reconcile(ctx, state.job.OrganizationID, state.touchedList(), state.job.StartedAt)
	s.recordReconciliation(ctx, state, result)
	return err
}

// repair reconciles the records an interrupted run already wrote. Their stock
// was overwritten with external values and must get the ledger entries back.
func (s *SyncService) repair(ctx context.Context, state *runState, logger *zap.Logger) {
	result, err := s.reconciler.Reconcile(context.WithoutCancel(ctx), state.job.OrganizationID, state.touchedList(), state.job.StartedAt)
	s.recordReconciliation(ctx, state, result)
	if err != nil {
		logger.Error("Failed to reconcile records of an interrupted sync", zap.Int("touched", len(state.order)), zap.Error(err))
	}
}

func (s *SyncService) recordReconciliation(ctx context.Context, state *runState, result *inventoryapp.ReconcileResult) {
	if result == nil {
		return
	}
	state.report.Reconciled = result.Reconciled
	state.report.Conflicts = result.Conflicts
	if s.metrics != nil && len(result.Conflicts) > 0 {
		s.metrics.ConflictsDetected(ctx, len(result.Conflicts))
	}
}

func (s *SyncService) reportProgress(ctx context.Context, state *runState, progress int, step string) {
	err := s.controller.ReportProgress(ctx, state.job.ID, integration.ProgressUpdate{
		Progress:       progress,
		CurrentStep:    step,
		ItemsProcessed: state.processed,
		TotalItems:     max(state.total, state.processed),
	})
	if err != nil && !shared.IsCode(err, shared.CodeInvalidState) {
		s.logger.Warn("Failed to report sync progress", zap.String("job_id", state.job.ID.String()), zap.Error(err))
	}
}

func (s *SyncService) checkCancelled(ctx context.Context, jobID uuid.UUID) error {
	if s.controller.IsCancelled(jobID) {
		return errSyncCancelled
	}
	return ctx.Err()
}

func (s *SyncService) export(ctx context.Context, job integration.SyncJob, logger *zap.Logger) {
	if s.exporter == nil || job.Report == nil {
		return
	}
	location, err := s.exporter.Export(ctx, job)
	if err != nil {
		logger.Error("Failed to export sync report", zap.Error(err))
		return
	}
	logger.Info("Sync report exported", zap.String("location", location))
}

// fetchWithRetry retries retriable provider errors with exponential backoff.
// Anything else stops immediately.
func fetchWithRetry[T any](ctx context.Context, s *SyncService, op string, fetch func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	if s.retry.InitialInterval > 0 {
		b.InitialInterval = s.retry.InitialInterval
	}
	if s.retry.MaxInterval > 0 {
		b.MaxInterval = s.retry.MaxInterval
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fetch(ctx)
		if err != nil && !integration.IsRetriable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.retry.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("Catalog provider call failed, retrying",
				zap.String("op", op),
				zap.Duration("retry_in", next),
				zap.Error(err),
			)
		}),
	)
}

func failedIDs(result *catalog.UpsertResult, kind string) map[int64]bool {
	failed := make(map[int64]bool)
	for _, f := range result.Skipped() {
		if f.Kind == kind {
			failed[f.ID] = true
		}
	}
	return failed
}
