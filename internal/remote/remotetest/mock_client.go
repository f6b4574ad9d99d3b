// Package remotetest provides a testify mock of remote.Client.
package remotetest

import (
	"context"

	"restock-sync/internal/domain"
	"restock-sync/internal/remote"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of remote.Client
type MockClient struct {
	mock.Mock
}

var _ remote.Client = (*MockClient)(nil)

func (m *MockClient) ListSupplies(ctx context.Context) ([]domain.Supply, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Supply), args.Error(1)
}

func (m *MockClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockClient) ListCustomSupplies(ctx context.Context, userID int64) ([]domain.CustomSupply, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CustomSupply), args.Error(1)
}

func (m *MockClient) CreateCustomSupply(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error) {
	args := m.Called(ctx, supply)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomSupply), args.Error(1)
}

func (m *MockClient) UpdateCustomSupply(ctx context.Context, supply domain.CustomSupply) (*domain.CustomSupply, error) {
	args := m.Called(ctx, supply)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomSupply), args.Error(1)
}

func (m *MockClient) DeleteCustomSupply(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockClient) ListBatches(ctx context.Context, userID int64) ([]domain.Batch, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Batch), args.Error(1)
}

func (m *MockClient) CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	args := m.Called(ctx, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}

func (m *MockClient) UpdateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	args := m.Called(ctx, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}

func (m *MockClient) DeleteBatch(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockClient) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockClient) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockClient) ListOrdersByAdminRestaurant(ctx context.Context, adminRestaurantID int64) ([]domain.Order, error) {
	args := m.Called(ctx, adminRestaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockClient) ListOrdersBySupplier(ctx context.Context, supplierID int64) ([]domain.Order, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockClient) UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}
