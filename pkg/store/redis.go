package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxWatchRetries = 16

// Redis stores values as JSON strings under <prefix><id>, with an optional TTL
// refreshed on every write. Update uses WATCH/MULTI optimistic locking.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store. A zero ttl keeps keys forever.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration) *Redis[T] {
	if prefix == "" {
		prefix = "invoice:run:"
	}
	return &Redis[T]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Redis[T]) key(id string) string {
	return r.prefix + id
}

func (r *Redis[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("get state %s: %w", id, err)
	}
	return decode[T](data)
}

func (r *Redis[T]) Put(ctx context.Context, id string, v T) error {
	data, err := encode(v)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("put state %s: %w", id, err)
	}
	return nil
}

func (r *Redis[T]) Update(ctx context.Context, id string, fn func(T) (T, error)) (T, error) {
	var next T
	key := r.key(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}

		current, err := decode[T](data)
		if err != nil {
			return err
		}

		next, err = fn(current)
		if err != nil {
			return err
		}

		encoded, err := encode(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, r.ttl)
			return nil
		})
		return err
	}

	for range maxWatchRetries {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var zero T
		return zero, err
	}

	var zero T
	return zero, fmt.Errorf("%w: %s", ErrConflict, id)
}
