package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/kopi-pos/internal/cache"
)

const defaultTTL = 6 * time.Hour

// Store persists carts as JSON in Redis. Every save refreshes the TTL.
type Store struct {
	c *cache.JSON
}

// NewStore constructs a Store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{c: cache.New(client, ttl)}
}

func key(id uuid.UUID) string {
	return "cart:" + id.String()
}

// Get loads a cart or returns ErrNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Cart, error) {
	var c Cart
	ok, err := s.c.GetJSON(ctx, key(id), &c)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return &c, nil
}

// Save writes the cart.
func (s *Store) Save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = time.Now().UTC()
	if err := s.c.SetJSON(ctx, key(c.ID), c); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes the cart.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	return s.c.Delete(ctx, key(id))
}
