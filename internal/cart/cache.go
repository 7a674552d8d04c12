package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	"github.com/angelmondragon/eshop-backend/pkg/redis"
)

// ErrCacheMiss is returned by Cache.Get when no cart is cached.
var ErrCacheMiss = errors.New("cart cache miss")

// Cache keeps read copies of carts keyed by owner. Delete moves the owner's
// version forward, so a load that started before it can no longer be stored.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Version(ctx context.Context, userID uuid.UUID) (string, error)
	SetIfVersion(ctx context.Context, userID uuid.UUID, version string, cart *models.Cart) (bool, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Version(ctx context.Context, versionKey string) (string, error)
	BumpVersion(ctx context.Context, versionKey string, ttl time.Duration, keys ...string) error
	SetIfVersion(ctx context.Context, versionKey, version, key string, value any, ttl time.Duration) (bool, error)
	CartKey(ownerID string) string
	CartVersionKey(ownerID string) string
}

// versionTTL outlives any cached copy.
const versionTTL = 24 * time.Hour

// RedisCache stores carts as JSON with a jittered TTL.
type RedisCache struct {
	store   redisStore
	baseTTL time.Duration
}

// NewRedisCache builds a cache over the shared redis client.
func NewRedisCache(store redisStore, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 15 * time.Minute
	}
	return &RedisCache{store: store, baseTTL: baseTTL}
}

func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	raw, err := c.store.Get(ctx, c.store.CartKey(userID.String()))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &cart, nil
}

func (c *RedisCache) Version(ctx context.Context, userID uuid.UUID) (string, error) {
	v, err := c.store.Version(ctx, c.store.CartVersionKey(userID.String()))
	if err != nil {
		return "", fmt.Errorf("redis get cart version: %w", err)
	}
	return v, nil
}

func (c *RedisCache) SetIfVersion(ctx context.Context, userID uuid.UUID, version string, cart *models.Cart) (bool, error) {
	payload, err := json.Marshal(cart)
	if err != nil {
		return false, fmt.Errorf("marshal cart: %w", err)
	}
	owner := userID.String()
	jitter := time.Duration(rand.IntN(5)) * time.Minute
	stored, err := c.store.SetIfVersion(ctx, c.store.CartVersionKey(owner), version, c.store.CartKey(owner), payload, c.baseTTL+jitter)
	if err != nil {
		return false, fmt.Errorf("redis set cart: %w", err)
	}
	return stored, nil
}

func (c *RedisCache) Delete(ctx context.Context, userID uuid.UUID) error {
	owner := userID.String()
	if err := c.store.BumpVersion(ctx, c.store.CartVersionKey(owner), versionTTL, c.store.CartKey(owner)); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID) (*models.Cart, error) { return nil, ErrCacheMiss }
func (noopCache) Version(context.Context, uuid.UUID) (string, error) { return "", nil }
func (noopCache) SetIfVersion(context.Context, uuid.UUID, string, *models.Cart) (bool, error) {
	return false, nil
}
func (noopCache) Delete(context.Context, uuid.UUID) error { return nil }
