package handler

import (
	"context"
	"time"

	appintegration "github.com/catalogmirror/backend/internal/application/integration"
	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/domain/inventory"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockCatalogReader struct {
	mock.Mock
}

func (m *mockCatalogReader) GetProduct(ctx context.Context, organizationID uuid.UUID, productID int64) (*catalog.MirroredProduct, error) {
	args := m.Called(ctx, organizationID, productID)
	if p := args.Get(0); p != nil {
		return p.(*catalog.MirroredProduct), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogReader) GetVariations(ctx context.Context, organizationID uuid.UUID, parentID int64) ([]catalog.MirroredVariation, error) {
	args := m.Called(ctx, organizationID, parentID)
	if v := args.Get(0); v != nil {
		return v.([]catalog.MirroredVariation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogReader) GetStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, maxStaleness time.Duration) (*catalog.StockLevel, error) {
	args := m.Called(ctx, organizationID, target, maxStaleness)
	if l := args.Get(0); l != nil {
		return l.(*catalog.StockLevel), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSyncJobs struct {
	mock.Mock
}

func (m *mockSyncJobs) StartSync(ctx context.Context, organizationID uuid.UUID, syncType integration.SyncType) (*appintegration.SyncJobResponse, error) {
	args := m.Called(ctx, organizationID, syncType)
	if j := args.Get(0); j != nil {
		return j.(*appintegration.SyncJobResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncJobs) CancelSync(ctx context.Context, organizationID, jobID uuid.UUID) (*appintegration.SyncJobResponse, error) {
	args := m.Called(ctx, organizationID, jobID)
	if j := args.Get(0); j != nil {
		return j.(*appintegration.SyncJobResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncJobs) GetJob(ctx context.Context, organizationID, jobID uuid.UUID) (*appintegration.SyncJobResponse, error) {
	args := m.Called(ctx, organizationID, jobID)
	if j := args.Get(0); j != nil {
		return j.(*appintegration.SyncJobResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncJobs) ListJobs(ctx context.Context, organizationID uuid.UUID, syncType *integration.SyncType, page shared.Pagination) (shared.Paginated[appintegration.SyncJobResponse], error) {
	args := m.Called(ctx, organizationID, syncType, page)
	return args.Get(0).(shared.Paginated[appintegration.SyncJobResponse]), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) RecordAdjustment(ctx context.Context, in inventory.NewStockAdjustmentInput) (*inventory.StockAdjustment, error) {
	args := m.Called(ctx, in)
	if a := args.Get(0); a != nil {
		return a.(*inventory.StockAdjustment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) RecordRelativeAdjustment(ctx context.Context, in inventory.NewStockAdjustmentInput) (*inventory.StockAdjustment, error) {
	args := m.Called(ctx, in)
	if a := args.Get(0); a != nil {
		return a.(*inventory.StockAdjustment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) ListAdjustments(ctx context.Context, organizationID uuid.UUID, filter inventory.AdjustmentFilter) (shared.Paginated[inventory.StockAdjustment], error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(shared.Paginated[inventory.StockAdjustment]), args.Error(1)
}
