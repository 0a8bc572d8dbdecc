package repository

import (
	"context"
	"errors"

	"checkout-service/internal/domain"
)

var (
	ErrNotFound       = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already exists")
)

// UpdateFunc mutates an order inside an atomic read-modify-write. Returning an
// error aborts the update.
type UpdateFunc func(o *domain.Order) error

type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)
	// Update loads the order, applies fn and persists the result as one atomic
	// step. If fn fails nothing is written and the stored order is returned
	// together with fn's error.
	Update(ctx context.Context, orderID string, fn UpdateFunc) (*domain.Order, error)
}
