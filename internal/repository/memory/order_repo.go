// Package memory keeps orders in process memory. Orders do not survive a restart.
package memory

import (
	"context"
	"sync"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"
)

type orderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func NewOrderRepository() repository.OrderRepository {
	return &orderRepo{orders: make(map[string]*domain.Order)}
}

func (r *orderRepo) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.OrderID]; ok {
		return repository.ErrDuplicateOrder
	}
	r.orders[order.OrderID] = order.Clone()
	return nil
}

func (r *orderRepo) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *orderRepo) Update(_ context.Context, orderID string, fn repository.UpdateFunc) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return current.Clone(), err
	}
	r.orders[orderID] = next
	return next.Clone(), nil
}
