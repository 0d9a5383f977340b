package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	domain "github.com/vmandke/vending-machine/internal/entity"
	"github.com/vmandke/vending-machine/internal/usecase"
)

// RedisCatalogCache serves public product reads without touching the engine
// lock. Stale-for-TTL entries are acceptable for a catalog view.
type RedisCatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCatalogCache(rdb *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{rdb: rdb, ttl: ttl}
}

func key(name string) string { return "catalog:product:" + name }

func (r *RedisCatalogCache) SetProduct(ctx context.Context, p domain.Product) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key(p.Name), body, r.ttl).Err()
}

func (r *RedisCatalogCache) GetProduct(ctx context.Context, name string) (domain.Product, bool, error) {
	val, err := r.rdb.Get(ctx, key(name)).Bytes()
	if err == redis.Nil {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, err
	}
	var p domain.Product
	if err := json.Unmarshal(val, &p); err != nil {
		return domain.Product{}, false, err
	}
	return p, true, nil
}

func (r *RedisCatalogCache) Invalidate(ctx context.Context, name string) error {
	return r.rdb.Del(ctx, key(name)).Err()
}

var _ usecase.CatalogCache = (*RedisCatalogCache)(nil)
