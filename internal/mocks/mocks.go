package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"checkout-service/internal/domain"
	"checkout-service/internal/infra"
	"checkout-service/internal/repository"
)

type MockOrderRepository struct {
	mock.Mock
}

type MockGatewayClient struct {
	mock.Mock
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, message any) error {
	args := m.Called(ctx, topic, message)
	return args.Error(0)
}

func (m *MockGatewayClient) CreateOrder(ctx context.Context, req infra.CreateGatewayOrderRequest) (*infra.GatewayOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.GatewayOrder), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, orderID string, fn repository.UpdateFunc) (*domain.Order, error) {
	args := m.Called(ctx, orderID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}
