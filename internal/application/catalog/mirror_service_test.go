package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/catalogmirror/backend/internal/domain/catalog"
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMirrorRepository is a mock implementation of catalog.MirrorRepository
type MockMirrorRepository struct {
	mock.Mock
}

func (m *MockMirrorRepository) FindProduct(ctx context.Context, organizationID uuid.UUID, productID int64) (*catalog.MirroredProduct, error) {
	args := m.Called(ctx, organizationID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.MirroredProduct), args.Error(1)
}

func (m *MockMirrorRepository) FindVariation(ctx context.Context, organizationID uuid.UUID, parentID, variationID int64) (*catalog.MirroredVariation, error) {
	args := m.Called(ctx, organizationID, parentID, variationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.MirroredVariation), args.Error(1)
}

func (m *MockMirrorRepository) ListVariations(ctx context.Context, organizationID uuid.UUID, parentID int64) ([]catalog.MirroredVariation, error) {
	args := m.Called(ctx, organizationID, parentID)
	return args.Get(0).([]catalog.MirroredVariation), args.Error(1)
}

func (m *MockMirrorRepository) ListVariableProductIDs(ctx context.Context, organizationID uuid.UUID) ([]int64, error) {
	args := m.Called(ctx, organizationID)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockMirrorRepository) ExistingProductIDs(ctx context.Context, organizationID uuid.UUID, ids []int64) (map[int64]bool, error) {
	args := m.Called(ctx, organizationID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]bool), args.Error(1)
}

func (m *MockMirrorRepository) InsertProduct(ctx context.Context, product *catalog.MirroredProduct) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockMirrorRepository) UpdateProduct(ctx context.Context, product *catalog.MirroredProduct) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockMirrorRepository) InsertVariation(ctx context.Context, variation *catalog.MirroredVariation) error {
	return m.Called(ctx, variation).Error(0)
}

func (m *MockMirrorRepository) UpdateVariation(ctx context.Context, variation *catalog.MirroredVariation) error {
	return m.Called(ctx, variation).Error(0)
}

func (m *MockMirrorRepository) TouchSynced(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget) error {
	return m.Called(ctx, organizationID, target).Error(0)
}

func (m *MockMirrorRepository) FindStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget) (*catalog.StockLevel, error) {
	args := m.Called(ctx, organizationID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.StockLevel), args.Error(1)
}

func (m *MockMirrorRepository) CompareAndSetStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, expectedVersion int, quantity int64, status catalog.StockStatus) error {
	return m.Called(ctx, organizationID, target, expectedVersion, quantity, status).Error(0)
}

func (m *MockMirrorRepository) SetStock(ctx context.Context, organizationID uuid.UUID, target catalog.StockTarget, expectedVersion int, quantity int64, status catalog.StockStatus, conflict bool) error {
	return m.Called(ctx, organizationID, target, expectedVersion, quantity, status, conflict).Error(0)
}

var fixedNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestService(repo *MockMirrorRepository) *MirrorService {
	svc := NewMirrorService(repo, nil)
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func notFound() error {
	return shared.NewDomainError(shared.CodeNotFound, "not mirrored")
}

func TestMirrorService_UpsertProducts(t *testing.T) {
	ctx := context.Background()
	org := uuid.New()
	modified := fixedNow.Add(-time.Hour)

	t.Run("inserts new and rejects invalid records", func(t *testing.T) {
		repo := new(MockMirrorRepository)
		svc := newTestService(repo)

		repo.On("FindProduct", ctx, org, int64(1)).Return(nil, notFound())
		repo.On("InsertProduct", ctx, mock.MatchedBy(func(p *catalog.MirroredProduct) bool {
			return p.ID == 1 && p.Version == 1 && p.StockStatus == catalog.StockStatusInStock && p.SyncedAt.Equal(fixedNow)
		})).Return(nil)

		result, err := svc.UpsertProducts(ctx, org, []catalog.MirroredProduct{
			{ID: 1, OrganizationID: org, StockQuantity: 5, UpdatedAt: modified},
			{ID: 0, OrganizationID: org},
			{ID: 2},
			{ID: 3, OrganizationID: uuid.New()},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Upserted)
		assert.Equal(t, 1, result.Count())
		require.Len(t, result.Failures, 3)
		assert.Equal(t, int64(2), result.Failures[1].ID)
		require.Len(t, result.Touched, 1)
		assert.Equal(t, int64(5), result.Touched[0].ExternalStock)
		assert.Equal(t, modified, result.Touched[0].SnapshotTime)
		repo.AssertExpectations(t)
	})

	t.Run("older record loses under last-write-wins", func(t *testing.T) {
		repo := new(MockMirrorRepository)
		svc := newTestService(repo)

		stored := &catalog.MirroredProduct{ID: 1, OrganizationID: org, UpdatedAt: modified, Version: 3}
		repo.On("FindProduct", ctx, org, int64(1)).Return(stored, nil)

		result, err := svc.UpsertProducts(ctx, org, []catalog.MirroredProduct{
			{ID: 1, OrganizationID: org, Name: "stale", UpdatedAt: modified.Add(-time.Minute)},
		})

		require.NoError(t, err)
		assert.Equal(t, 0, result.Upserted)
		assert.Equal(t, 1, result.Unchanged)
		assert.Empty(t, result.Touched)
		repo.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything)
	})

	t.Run("identical record only refreshes sync time", func(t *testing.T) {
		repo := new(MockMirrorRepository)
		svc := newTestService(repo)

		stored := &catalog.MirroredProduct{
			ID: 1, OrganizationID: org, Name: "Mug", Type: catalog.ProductTypeSimple,
			StockQuantity: 4, ExternalStockQuantity: 4, StockStatus: catalog.StockStatusInStock,
			UpdatedAt: modified, Version: 2,
		}
		repo.On("FindProduct", ctx, org, int64(1)).Return(stored, nil)
		repo.On("TouchSynced", ctx, org, catalog.ProductTarget(1)).Return(nil)

		result, err := svc.UpsertProducts(ctx, org, []catalog.MirroredProduct{
			{ID: 1, OrganizationID: org, Name: "Mug", StockQuantity: 4, UpdatedAt: modified},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Unchanged)
		assert.Len(t, result.Touched, 1)
		repo.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything)
	})

	t.Run("newer record overwrites", func(t *testing.T) {
		repo := new(MockMirrorRepository)
		svc := newTestService(repo)

		stored := &catalog.MirroredProduct{ID: 1, OrganizationID: org, Name: "Mug", StockQuantity: 4, UpdatedAt: modified, Version: 2}
		repo.On("FindProduct", ctx, org, int64(1)).Return(stored, nil)
		repo.On("UpdateProduct", ctx, mock.MatchedBy(func(p *catalog.MirroredProduct) bool {
			return p.Name == "Big Mug" && p.StockQuantity == 9 && p.ExternalStockQuantity == 9 && p.Version == 2
		})).Return(nil)

		result, err := svc.UpsertProducts(ctx, org, []catalog.MirroredProduct{
			{ID: 1, OrganizationID: org, Name: "Big Mug", StockQuantity: 9, UpdatedAt: modified.Add(time.Minute)},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Upserted)
		repo.AssertExpectations(t)
	})

	t.Run("concurrent overwrite is reported per record", func(t *testing.T) {
		repo := new(MockMirrorRepository)
		svc := newTestService(repo)

		stored := &catalog.MirroredProduct{ID: 1, OrganizationID: org, UpdatedAt: modified, Version: 2}
		repo.On("FindProduct", ctx, org, int64(1)).Return(stored, nil)
		repo.On("UpdateProduct", ctx, mock.Anything).Return(shared.ErrStaleBaseline)

		result, err := svc.UpsertProducts(ctx, org, []catalog.MirroredProduct{
			{ID: 1, OrganizationID: org, Name: "x", UpdatedAt: modified.Add(time.Minute)},
		})

		require.NoError(t, err)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, 0, result.Count())
	})

	t.Run("storage failure aborts the page", func(t *testing.T) {
		repo := new(MockMirrorRepository)
		svc := newTestService(repo)

		repo.On("FindProduct", ctx, org, int64(1)).Return(nil, errors.New("connection reset"))

		_, err := svc.UpsertProducts(ctx, org, []catalog.MirroredProduct{{ID: 1, OrganizationID: org}})
		assert.EqualError(t, err, "connection reset")
	})

	t.Run("missing organization", func(t *testing.T) {
		svc := newTestService(new(MockMirrorRepository))
		_, err := svc.UpsertProducts(ctx, uuid.Nil, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidScope)
	})
}

func TestMirrorService_UpsertVariations(t *testing.T) {
	ctx := context.Background()
	org := uuid.New()

	repo := new(MockMirrorRepository)
	svc := newTestService(repo)

	repo.On("ExistingProductIDs", ctx, org, []int64{10, 99}).Return(map[int64]bool{10: true}, nil)
	repo.On("FindVariation", ctx, org, int64(10), int64(11)).Return(nil, notFound())
	repo.On("InsertVariation", ctx, mock.MatchedBy(func(v *catalog.MirroredVariation) bool {
		return v.ID == 11 && len(v.Attributes) == 1 && v.Attributes[0].Name == "Size"
	})).Return(nil)

	result, err := svc.UpsertVariations(ctx, org, []catalog.MirroredVariation{
		{ID: 11, ParentID: 10, OrganizationID: org, StockQuantity: 2, Attributes: []catalog.VariationAttribute{
			{Name: "Size", Option: "M"},
			{Name: "", Option: "Blue"},
		}},
		{ID: 12, ParentID: 99, OrganizationID: org},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Upserted)
	require.Len(t, result.Failures, 2)
	assert.True(t, result.Failures[0].Warning)
	assert.Equal(t, int64(12), result.Failures[1].ID)
	assert.Contains(t, result.Failures[1].Reason, "parent")
	assert.Len(t, result.Skipped(), 1)
	require.Len(t, result.Touched, 1)
	assert.Equal(t, catalog.VariationTarget(10, 11), result.Touched[0].Target)
	repo.AssertExpectations(t)
}

func TestMirrorService_GetStock(t *testing.T) {
	ctx := context.Background()
	org := uuid.New()
	repo := new(MockMirrorRepository)
	svc := newTestService(repo)

	target := catalog.VariationTarget(10, 11)
	repo.On("FindStock", ctx, org, target).Return(&catalog.StockLevel{
		Target: target, StockQuantity: 3, StockStatus: catalog.StockStatusInStock,
		SyncedAt: fixedNow.Add(-2 * time.Hour),
	}, nil)

	level, err := svc.GetStock(ctx, org, target, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), level.StockQuantity)
	assert.True(t, level.RefreshAdvised)
}
