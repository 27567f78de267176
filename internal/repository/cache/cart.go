package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/plant_store/internal/domain"
)

// CartStore keeps carts in Redis as JSON documents that expire after a period of inactivity
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore creates a Redis backed cart store
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

func (s *CartStore) key(userID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", userID.String())
}

// Get returns the stored cart of the user
func (s *CartStore) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		return nil, translateRedisError(err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &cart, nil
}

// SaveIfVersion writes the cart under WATCH so a concurrent writer makes the
// transaction fail instead of being overwritten
func (s *CartStore) SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int) error {
	key := s.key(cart.UserID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current := 0
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var stored domain.Cart
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("decode cart: %w", err)
			}
			current = stored.Version
		}

		if current != expected {
			return domain.ErrConflict
		}

		next := *cart
		next.Version = expected + 1
		payload, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("encode cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		cart.Version = next.Version
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: cart changed concurrently", domain.ErrConflict)
	}
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("%w: cart was modified, reload it and retry", domain.ErrConflict)
	}
	return translateRedisError(err)
}

// Delete removes the cart of the user
func (s *CartStore) Delete(ctx context.Context, userID uuid.UUID) error {
	return translateRedisError(s.client.Del(ctx, s.key(userID)).Err())
}

// translateRedisError maps a missing key to ErrNotFound and connection
// failures to ErrStoreUnavailable
func translateRedisError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}
