package inventory

import (
	"context"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrganizationResolver is a mock implementation of shared.OrganizationResolver
type MockOrganizationResolver struct {
	mock.Mock
}

func (m *MockOrganizationResolver) Exists(ctx context.Context, organizationID uuid.UUID) (bool, error) {
	args := m.Called(ctx, organizationID)
	return args.Bool(0), args.Error(1)
}

// MockAdjustmentRepository is a mock implementation of inventory.StockAdjustmentRepository
type MockAdjustmentRepository struct {
	mock.Mock
}

func (m *MockAdjustmentRepository) Append(ctx context.Context, adjustment *inventory.StockAdjustment) error {
	return m.Called(ctx, adjustment).Error(0)
}

func (m *MockAdjustmentRepository) List(ctx context.Context, organizationID uuid.UUID, filter inventory.AdjustmentFilter) ([]inventory.StockAdjustment, int64, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]inventory.StockAdjustment), args.Get(1).(int64), args.Error(2)
}

func (m *MockAdjustmentRepository) ListSince(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, after time.Time) ([]inventory.StockAdjustment, error) {
	args := m.Called(ctx, organizationID, target, after)
	return args.Get(0).([]inventory.StockAdjustment), args.Error(1)
}

// MockStockRepository implements only the stock methods of catalog.MirrorRepository;
// the embedded interface panics if anything else is called.
type MockStockRepository struct {
	catalog.MirrorRepository
	mock.Mock
}

func (m *MockStockRepository) FindStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget) (*catalog.StockLevel, error) {
	args := m.Called(ctx, organizationID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.StockLevel), args.Error(1)
}

func (m *MockStockRepository) CompareAndSetStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, expectedVersion int, quantity int64, status catalog.StockStatus) error {
	return m.Called(ctx, organizationID, target, expectedVersion, quantity, status).Error(0)
}

func (m *MockStockRepository) SetStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, expectedVersion int, quantity int64, status catalog.StockStatus, conflict bool) error {
	return m.Called(ctx, organizationID, target, expectedVersion, quantity, status, conflict).Error(0)
}
