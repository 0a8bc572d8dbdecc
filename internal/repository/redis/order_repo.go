// Package redis stores orders as JSON documents in Redis so several service
// replicas can share them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"
)

const maxUpdateRetries = 10

var ErrContention = errors.New("order update lost too many optimistic retries")

type orderRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewOrderRepository(rdb *redis.Client) repository.OrderRepository {
	return &orderRepo{rdb: rdb, prefix: "checkout:order:"}
}

func (r *orderRepo) key(orderID string) string {
	return r.prefix + orderID
}

func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, r.key(order.OrderID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrDuplicateOrder
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	raw, err := r.rdb.Get(ctx, r.key(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

// Update uses WATCH/MULTI so concurrent callbacks for one order serialize;
// the loser of a race retries against the fresh value.
func (r *orderRepo) Update(ctx context.Context, orderID string, fn repository.UpdateFunc) (*domain.Order, error) {
	key := r.key(orderID)

	for i := 0; i < maxUpdateRetries; i++ {
		var out *domain.Order
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return repository.ErrNotFound
			}
			if err != nil {
				return err
			}
			current, err := decode(raw)
			if err != nil {
				return err
			}
			out = current

			next := current.Clone()
			if err := fn(next); err != nil {
				return err
			}
			data, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("marshal order: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			if err != nil {
				return err
			}
			out = next
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return out, err
	}
	return nil, ErrContention
}

func decode(raw []byte) (*domain.Order, error) {
	var o domain.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &o, nil
}
