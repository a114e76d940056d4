package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MirrorService is the catalog mirror store: tenant-scoped upserts of external
// records, reads with staleness advice, and the reconciler's stock overwrite.
type MirrorService struct {
	repo   catalog.MirrorRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewMirrorService creates a new MirrorService
func NewMirrorService(repo catalog.MirrorRepository, logger *zap.Logger) *MirrorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MirrorService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for sync timestamps
func (s *MirrorService) SetClock(now func() time.Time) {
	s.now = now
}

// UpsertProducts writes a page of products keyed by (organization, id) with
// last-write-wins on updated_at. Invalid records are skipped and reported; the
// rest of the page is still applied. Only storage failures abort the page.
func (s *MirrorService) UpsertProducts(ctx context.Context, organizationID uuid.UUID, page []catalog.MirroredProduct) (*catalog.UpsertResult, error) {
	if organizationID == uuid.Nil {
		return nil, shared.ErrInvalidScope
	}
	result := &catalog.UpsertResult{}
	syncedAt := s.now()

	for i := range page {
		incoming := page[i]
		if err := incoming.ValidateForUpsert(organizationID); err != nil {
			result.Failures = append(result.Failures, productFailure(&incoming, err))
			continue
		}
		incoming.PrepareNew(syncedAt)

		outcome, err := s.upsertProduct(ctx, &incoming, syncedAt)
		if err != nil {
			if isRecordLevel(err) {
				result.Failures = append(result.Failures, productFailure(&incoming, err))
				continue
			}
			return result, err
		}
		s.tally(result, outcome, catalog.TouchedStock{
			Target:        catalog.ProductTarget(incoming.ID),
			ExternalStock: incoming.StockQuantity,
			SnapshotTime:  incoming.UpdatedAt,
		})
	}

	s.logger.Debug("Products page upserted",
		zap.String("organization_id", organizationID.String()),
		zap.Int("upserted", result.Upserted),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

// UpsertVariations writes a page of variations. A record whose parent is not
// mirrored in the same organization fails alone; malformed attributes are
// dropped from the record and reported as warnings.
func (s *MirrorService) UpsertVariations(ctx context.Context, organizationID uuid.UUID, page []catalog.MirroredVariation) (*catalog.UpsertResult, error) {
	if organizationID == uuid.Nil {
		return nil, shared.ErrInvalidScope
	}
	result := &catalog.UpsertResult{}
	syncedAt := s.now()

	parentIDs := make([]int64, 0, len(page))
	for _, v := range page {
		if v.ParentID > 0 {
			parentIDs = append(parentIDs, v.ParentID)
		}
	}
	parents, err := s.repo.ExistingProductIDs(ctx, organizationID, parentIDs)
	if err != nil {
		return nil, err
	}

	for i := range page {
		incoming := page[i]
		if err := incoming.ValidateForUpsert(organizationID); err != nil {
			result.Failures = append(result.Failures, variationFailure(&incoming, err.Error(), false))
			continue
		}
		if !parents[incoming.ParentID] {
			result.Failures = append(result.Failures, variationFailure(&incoming, "parent product is not mirrored for this organization", false))
			continue
		}

		attrs, rejected := catalog.NormalizeAttributes(incoming.Attributes)
		incoming.Attributes = attrs
		for _, reason := range rejected {
			result.Failures = append(result.Failures, variationFailure(&incoming, reason, true))
		}
		incoming.PrepareNew(syncedAt)

		outcome, err := s.upsertVariation(ctx, &incoming, syncedAt)
		if err != nil {
			if isRecordLevel(err) {
				result.Failures = append(result.Failures, variationFailure(&incoming, err.Error(), false))
				continue
			}
			return result, err
		}
		s.tally(result, outcome, catalog.TouchedStock{
			Target:        catalog.VariationTarget(incoming.ParentID, incoming.ID),
			ExternalStock: incoming.StockQuantity,
			SnapshotTime:  incoming.UpdatedAt,
		})
	}

	s.logger.Debug("Variations page upserted",
		zap.String("organization_id", organizationID.String()),
		zap.Int("upserted", result.Upserted),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

type upsertOutcome int

const (
	outcomeWritten upsertOutcome = iota
	outcomeIdentical
	outcomeOlder
)

func (s *MirrorService) upsertProduct(ctx context.Context, incoming *catalog.MirroredProduct, syncedAt time.Time) (upsertOutcome, error) {
	existing, err := s.repo.FindProduct(ctx, incoming.OrganizationID, incoming.ID)
	if err != nil {
		if !shared.IsCode(err, shared.CodeNotFound) {
			return 0, err
		}
		return outcomeWritten, s.repo.InsertProduct(ctx, incoming)
	}
	if !existing.SupersededBy(incoming) {
		return outcomeOlder, nil
	}
	if existing.SameContent(incoming) {
		return outcomeIdentical, s.repo.TouchSynced(ctx, incoming.OrganizationID, catalog.ProductTarget(incoming.ID))
	}
	existing.ApplyExternal(incoming, syncedAt)
	return outcomeWritten, s.repo.UpdateProduct(ctx, existing)
}

func (s *MirrorService) upsertVariation(ctx context.Context, incoming *catalog.MirroredVariation, syncedAt time.Time) (upsertOutcome, error) {
	existing, err := s.repo.FindVariation(ctx, incoming.OrganizationID, incoming.ParentID, incoming.ID)
	if err != nil {
		if !shared.IsCode(err, shared.CodeNotFound) {
			return 0, err
		}
		return outcomeWritten, s.repo.InsertVariation(ctx, incoming)
	}
	if !existing.SupersededBy(incoming) {
		return outcomeOlder, nil
	}
	if existing.SameContent(incoming) {
		return outcomeIdentical, s.repo.TouchSynced(ctx, incoming.OrganizationID, catalog.VariationTarget(incoming.ParentID, incoming.ID))
	}
	existing.ApplyExternal(incoming, syncedAt)
	return outcomeWritten, s.repo.UpdateVariation(ctx, existing)
}

// tally counts the outcome. Records older than the stored copy are not touched:
// their external stock is not a valid baseline for reconciliation.
func (s *MirrorService) tally(result *catalog.UpsertResult, outcome upsertOutcome, touched catalog.TouchedStock) {
	switch outcome {
	case outcomeWritten:
		result.Upserted++
		result.Touched = append(result.Touched, touched)
	case outcomeIdentical:
		result.Unchanged++
		result.Touched = append(result.Touched, touched)
	case outcomeOlder:
		result.Unchanged++
	}
}

// GetProduct returns a mirrored product
func (s *MirrorService) GetProduct(ctx context.Context, organizationID uuid.UUID, productID int64) (*catalog.MirroredProduct, error) {
	if organizationID == uuid.Nil {
		return nil, shared.ErrInvalidScope
	}
	return s.repo.FindProduct(ctx, organizationID, productID)
}

// GetVariations returns the variations of a product ordered by id ascending
func (s *MirrorService) GetVariations(ctx context.Context, organizationID uuid.UUID, parentID int64) ([]catalog.MirroredVariation, error) {
	if organizationID == uuid.Nil {
		return nil, shared.ErrInvalidScope
	}
	return s.repo.ListVariations(ctx, organizationID, parentID)
}

// GetStock reads stock for a product or variation. When maxStaleness is positive
// and the record was last refreshed before now-maxStaleness, RefreshAdvised is set.
func (s *MirrorService) GetStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, maxStaleness time.Duration) (*catalog.StockLevel, error) {
	if organizationID == uuid.Nil {
		return nil, shared.ErrInvalidScope
	}
	level, err := s.repo.FindStock(ctx, organizationID, target)
	if err != nil {
		return nil, err
	}
	level.MarkStaleness(s.now(), maxStaleness)
	return level, nil
}

// ListVariableProductIDs returns the ids of mirrored variable products, ascending
func (s *MirrorService) ListVariableProductIDs(ctx context.Context, organizationID uuid.UUID) ([]int64, error) {
	if organizationID == uuid.Nil {
		return nil, shared.ErrInvalidScope
	}
	return s.repo.ListVariableProductIDs(ctx, organizationID)
}

// isRecordLevel reports errors that affect one record only
func isRecordLevel(err error) bool {
	var de *shared.DomainError
	return errors.As(err, &de)
}

func productFailure(p *catalog.MirroredProduct, err error) catalog.RecordFailure {
	return catalog.RecordFailure{Kind: catalog.RecordKindProduct, ID: p.ID, Reason: err.Error()}
}

func variationFailure(v *catalog.MirroredVariation, reason string, warning bool) catalog.RecordFailure {
	return catalog.RecordFailure{
		Kind:     catalog.RecordKindVariation,
		ID:       v.ID,
		ParentID: v.ParentID,
		Reason:   reason,
		Warning:  warning,
	}
}
