package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/store"
)

// DefaultKey is the fixed slot the cart snapshot lives under.
const DefaultKey = "cart"

// Store persists the cart snapshot under a single Redis key.
type Store struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// New creates a Redis-backed cart store. A zero ttl keeps the snapshot forever.
func New(client *redis.Client, key string, ttl time.Duration) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

// Load reads the snapshot. A missing key yields an empty cart.
func (s *Store) Load(ctx context.Context) (domain.CartState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EmptyCart(), nil
		}
		return domain.CartState{}, fmt.Errorf("redis get cart: %w", err)
	}
	return store.Decode(data)
}

// Save overwrites the snapshot with the given state.
func (s *Store) Save(ctx context.Context, state domain.CartState) error {
	data, err := store.Encode(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}
