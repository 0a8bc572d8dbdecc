package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrDuplicateOrder
	}
	return err
}

func (r *orderRepo) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).First(&o, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Update locks the row with SELECT ... FOR UPDATE for the duration of fn.
func (r *orderRepo) Update(ctx context.Context, orderID string, fn repository.UpdateFunc) (*domain.Order, error) {
	var out *domain.Order
	var fnErr error

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o domain.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, "order_id = ?", orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		out = o.Clone()

		if fnErr = fn(&o); fnErr != nil {
			return fnErr
		}
		if err := tx.Save(&o).Error; err != nil {
			return err
		}
		out = &o
		return nil
	})

	if err != nil {
		if fnErr != nil {
			return out, fnErr
		}
		return nil, err
	}
	return out, nil
}
