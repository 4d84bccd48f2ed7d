package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
)

const versionKey = "catalog:version"

// RedisCatalogCache stores product listings under versioned keys.
// Invalidate bumps the version, which orphans every previous entry; the
// orphans expire on their own TTL.
type RedisCatalogCache struct {
	client *redis.Client
}

func NewRedisCatalogCache(addr string, password string, db int) *RedisCatalogCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCatalogCache{client: client}
}

func (c *RedisCatalogCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

func (c *RedisCatalogCache) GetProducts(ctx context.Context, key string) ([]domain.Product, bool, error) {
	full, err := c.fullKey(ctx, key)
	if err != nil {
		return nil, false, err
	}

	val, err := c.client.Get(ctx, full).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisCatalogCache) SetProducts(ctx context.Context, key string, products []domain.Product, ttl time.Duration) error {
	full, err := c.fullKey(ctx, key)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, full, payload, ttl).Err()
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, versionKey).Err()
}

func (c *RedisCatalogCache) fullKey(ctx context.Context, key string) (string, error) {
	ver, err := c.client.Get(ctx, versionKey).Result()
	if err == redis.Nil {
		ver = "0"
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("catalog:%s:%s", ver, key), nil
}
