package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/inventory"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Adjustment outcomes reported to metrics
const (
	OutcomeRecorded      = "recorded"
	OutcomeInvalidScope  = "invalid_scope"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeStaleBaseline = "stale_baseline"
	OutcomeNegativeStock = "negative_stock"
	OutcomeError         = "error"
)

// AdjustmentMetrics observes ledger writes
type AdjustmentMetrics interface {
	AdjustmentRecorded(ctx context.Context, adjustmentType inventory.AdjustmentType, outcome string)
}

// LedgerService is the stock adjustment ledger. Each recorded adjustment and the
// resulting mirrored stock are written in one transaction.
type LedgerService struct {
	orgs        shared.OrganizationResolver
	txScope     TransactionScope
	adjustments inventory.StockAdjustmentRepository
	metrics     AdjustmentMetrics
	logger      *zap.Logger
	now         func() time.Time

	retryAttempts uint
	retryInterval time.Duration
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	orgs shared.OrganizationResolver,
	txScope TransactionScope,
	adjustments inventory.StockAdjustmentRepository,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		orgs:          orgs,
		txScope:       txScope,
		adjustments:   adjustments,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		retryAttempts: 3,
		retryInterval: 20 * time.Millisecond,
	}
}

// SetMetrics sets the metrics sink
func (s *LedgerService) SetMetrics(m AdjustmentMetrics) {
	s.metrics = m
}

// SetClock overrides the time source used for created_at
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// SetRetryPolicy configures RecordRelativeAdjustment's bounded retry on STALE_BASELINE
func (s *LedgerService) SetRetryPolicy(attempts uint, interval time.Duration) {
	if attempts > 0 {
		s.retryAttempts = attempts
	}
	s.retryInterval = interval
}

// RecordAdjustment appends a ledger entry and updates the mirrored stock.
// Checks run in order: organization scope, baseline equality against the
// current stock, then the non-negative result.
func (s *LedgerService) RecordAdjustment(ctx context.Context, in inventory.NewStockAdjustmentInput) (*inventory.StockAdjustment, error) {
	if err := shared.ResolveOrganization(ctx, s.orgs, in.OrganizationID); err != nil {
		s.observe(ctx, in.AdjustmentType, outcomeFor(err))
		return nil, err
	}
	if err := in.Validate(); err != nil {
		s.observe(ctx, in.AdjustmentType, OutcomeInvalidInput)
		return nil, err
	}

	target := in.Target()
	var recorded *inventory.StockAdjustment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		level, err := repos.MirrorRepo().FindStock(ctx, in.OrganizationID, target)
		if err != nil {
			return err
		}
		if level.StockQuantity != in.QuantityBefore {
			return shared.NewDomainError(shared.CodeStaleBaseline, fmt.Sprintf(
				"quantity_before %d does not match current stock %d of %s", in.QuantityBefore, level.StockQuantity, target))
		}

		adj, err := inventory.NewStockAdjustment(in, s.now())
		if err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().Append(ctx, adj); err != nil {
			return err
		}
		status := catalog.StockStatusAfter(level.StockStatus, adj.QuantityAfter)
		if err := repos.MirrorRepo().CompareAndSetStock(ctx, in.OrganizationID, target, level.Version, adj.QuantityAfter, status); err != nil {
			return err
		}
		recorded = adj
		return nil
	})
	if err != nil {
		s.observe(ctx, in.AdjustmentType, outcomeFor(err))
		s.logger.Info("Stock adjustment rejected",
			zap.String("organization_id", in.OrganizationID.String()),
			zap.String("target", target.String()),
			zap.String("adjustment_type", in.AdjustmentType.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.observe(ctx, in.AdjustmentType, OutcomeRecorded)
	s.logger.Info("Stock adjustment recorded",
		zap.String("organization_id", in.OrganizationID.String()),
		zap.String("adjustment_id", recorded.ID.String()),
		zap.String("target", target.String()),
		zap.Int64("quantity_before", recorded.QuantityBefore),
		zap.Int64("quantity_after", recorded.QuantityAfter),
	)
	return recorded, nil
}

// RecordRelativeAdjustment applies a delta against whatever the current stock is.
// The baseline is re-read and the write retried a bounded number of times while
// it loses races with concurrent adjustments.
func (s *LedgerService) RecordRelativeAdjustment(ctx context.Context, in inventory.NewStockAdjustmentInput) (*inventory.StockAdjustment, error) {
	if err := shared.ResolveOrganization(ctx, s.orgs, in.OrganizationID); err != nil {
		return nil, err
	}

	operation := func() (*inventory.StockAdjustment, error) {
		var current int64
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			level, err := repos.MirrorRepo().FindStock(ctx, in.OrganizationID, in.Target())
			if err != nil {
				return err
			}
			current = level.StockQuantity
			return nil
		})
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		attempt := in
		attempt.QuantityBefore = current
		adj, err := s.RecordAdjustment(ctx, attempt)
		if err != nil && !shared.IsCode(err, shared.CodeStaleBaseline) {
			return nil, backoff.Permanent(err)
		}
		return adj, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.retryInterval)),
		backoff.WithMaxTries(s.retryAttempts),
	)
}

// ListAdjustments returns ledger entries most recent first. It has no side effects.
func (s *LedgerService) ListAdjustments(ctx context.Context, organizationID uuid.UUID, filter inventory.AdjustmentFilter) (shared.Paginated[inventory.StockAdjustment], error) {
	if err := shared.ResolveOrganization(ctx, s.orgs, organizationID); err != nil {
		return shared.Paginated[inventory.StockAdjustment]{}, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return shared.Paginated[inventory.StockAdjustment]{}, shared.NewDomainError(shared.CodeValidation, "date range start is after its end")
	}
	filter.Pagination = filter.Pagination.Normalize()

	items, total, err := s.adjustments.List(ctx, organizationID, filter)
	if err != nil {
		return shared.Paginated[inventory.StockAdjustment]{}, err
	}
	return shared.NewPaginated(items, total, filter.Pagination), nil
}

func (s *LedgerService) observe(ctx context.Context, t inventory.AdjustmentType, outcome string) {
	if s.metrics != nil {
		s.metrics.AdjustmentRecorded(ctx, t, outcome)
	}
}

func outcomeFor(err error) string {
	switch {
	case shared.IsCode(err, shared.CodeInvalidScope):
		return OutcomeInvalidScope
	case shared.IsCode(err, shared.CodeStaleBaseline):
		return OutcomeStaleBaseline
	case shared.IsCode(err, shared.CodeNegativeStockRejected):
		return OutcomeNegativeStock
	case shared.IsCode(err, shared.CodeValidation):
		return OutcomeInvalidInput
	default:
		return OutcomeError
	}
}
