package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/inventory"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileResult summarizes one reconciliation pass
type ReconcileResult struct {
	// Reconciled counts records whose stored stock was rewritten
	Reconciled int
	Conflicts  []catalog.ReconciliationConflict
}

// Resolution is the outcome of replaying ledger entries on an external baseline
type Resolution struct {
	Value int64
	// Attempted is the unclamped sum of the baseline and every entry
	Attempted int64
	Conflict  bool
}

// ResolveStock replays entries, oldest first, on top of the external stock.
// The running total never goes below zero: an entry that would drive it
// negative clamps it to zero and marks a conflict.
func ResolveStock(external int64, entries []inventory.StockAdjustment) Resolution {
	r := Resolution{Value: external, Attempted: external}
	for _, e := range entries {
		r.Attempted += e.QuantityAdjusted
		r.Value += e.QuantityAdjusted
		if r.Value < 0 {
			r.Value = 0
			r.Conflict = true
		}
	}
	return r
}

// StockReconciler merges the external stock baseline stored on each mirrored
// record with the ledger adjustments the external catalog has not seen yet.
type StockReconciler struct {
	txScope TransactionScope
	logger  *zap.Logger

	retryAttempts uint
	retryInterval time.Duration
}

// NewStockReconciler creates a new StockReconciler
func NewStockReconciler(txScope TransactionScope, logger *zap.Logger) *StockReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockReconciler{
		txScope:       txScope,
		logger:        logger,
		retryAttempts: 5,
		retryInterval: 20 * time.Millisecond,
	}
}

// SetRetryPolicy bounds how often one record is re-resolved after losing a
// race with a concurrent ledger write
func (r *StockReconciler) SetRetryPolicy(attempts uint, interval time.Duration) {
	if attempts > 0 {
		r.retryAttempts = attempts
	}
	r.retryInterval = interval
}

// Reconcile resolves every touched record. Each record is re-read inside a
// transaction and every ledger entry created after its stored external
// snapshot is replayed on the external stock, including entries recorded while
// the sync was running. The write is a version compare-and-swap, so a ledger
// write that lands in between forces a fresh resolution.
// Conflicts are reported, never returned as errors.
func (r *StockReconciler) Reconcile(ctx context.Context, organizationID uuid.UUID, touched []catalog.TouchedStock, syncStart time.Time) (*ReconcileResult, error) {
	ordered := make([]catalog.TouchedStock, len(touched))
	copy(ordered, touched)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].Target, ordered[j].Target
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return variationOrder(a) < variationOrder(b)
	})

	result := &ReconcileResult{}
	for _, t := range ordered {
		outcome, err := backoff.Retry(ctx, func() (recordOutcome, error) {
			out, err := r.reconcileOne(ctx, organizationID, t.Target, syncStart)
			if err != nil && !shared.IsCode(err, shared.CodeStaleBaseline) {
				return out, backoff.Permanent(err)
			}
			return out, err
		},
			backoff.WithBackOff(backoff.NewConstantBackOff(r.retryInterval)),
			backoff.WithMaxTries(r.retryAttempts),
		)
		if err != nil {
			return result, fmt.Errorf("reconcile %s: %w", t.Target, err)
		}
		if outcome.vanished {
			continue
		}
		if outcome.conflict != nil {
			result.Conflicts = append(result.Conflicts, *outcome.conflict)
		}
		if outcome.written {
			result.Reconciled++
		}
	}
	return result, nil
}

type recordOutcome struct {
	vanished bool
	written  bool
	conflict *catalog.ReconciliationConflict
}

func (r *StockReconciler) reconcileOne(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, syncStart time.Time) (recordOutcome, error) {
	var out recordOutcome
	err := r.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		level, err := repos.MirrorRepo().FindStock(ctx, organizationID, target)
		if err != nil {
			if shared.IsCode(err, shared.CodeNotFound) {
				r.logger.Warn("Touched record vanished before reconciliation",
					zap.String("organization_id", organizationID.String()),
					zap.String("target", target.String()),
				)
				out.vanished = true
				return nil
			}
			return err
		}

		entries, err := repos.AdjustmentRepo().ListSince(ctx, organizationID, target, level.ExternalUpdatedAt)
		if err != nil {
			return err
		}
		res := ResolveStock(level.ExternalStock, entries)

		if res.Conflict {
			out.conflict = &catalog.ReconciliationConflict{
				ProductID:     target.ProductID,
				VariationID:   target.VariationID,
				ExternalStock: level.ExternalStock,
				Attempted:     res.Attempted,
				Written:       res.Value,
			}
			r.logger.Warn("Reconciliation conflict, stock clamped to zero",
				zap.String("organization_id", organizationID.String()),
				zap.String("target", target.String()),
				zap.Int64("external_stock", level.ExternalStock),
				zap.Int64("attempted", res.Attempted),
				zap.Int("ledger_entries", len(entries)),
				zap.Int("entries_during_sync", countAfter(entries, syncStart)),
			)
		}

		if level.StockQuantity == res.Value && level.ReconciliationConflict == res.Conflict {
			return nil
		}
		status := catalog.StockStatusAfter(level.StockStatus, res.Value)
		if err := repos.MirrorRepo().SetStock(ctx, organizationID, target, level.Version, res.Value, status, res.Conflict); err != nil {
			return err
		}
		out.written = true
		return nil
	})
	if err != nil {
		return recordOutcome{}, err
	}
	return out, nil
}

func countAfter(entries []inventory.StockAdjustment, t time.Time) int {
	n := 0
	for _, e := range entries {
		if e.CreatedAt.After(t) {
			n++
		}
	}
	return n
}

func variationOrder(t catalog.StockTarget) int64 {
	if t.VariationID == nil {
		return 0
	}
	return *t.VariationID
}
