package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/go-redis/redis/v8"
)

const (
	sessionCartTTL  = 7 * 24 * time.Hour
	productCacheTTL = 30 * time.Minute
)

// RedisRepository holds anonymous session carts and the product read cache.
type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func sessionCartKey(sessionKey string) string {
	return fmt.Sprintf("cart:session:%s", sessionKey)
}

// SessionCart returns the anonymous cart for a session key, empty if none.
func (r *RedisRepository) SessionCart(ctx context.Context, sessionKey string) (models.SessionCart, error) {
	var cart models.SessionCart
	err := r.GetJSON(ctx, sessionCartKey(sessionKey), &cart)
	if errors.Is(err, redis.Nil) {
		return models.SessionCart{}, nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *RedisRepository) SaveSessionCart(ctx context.Context, sessionKey string, cart models.SessionCart) error {
	return r.SetJSON(ctx, sessionCartKey(sessionKey), cart, sessionCartTTL)
}

func (r *RedisRepository) DeleteSessionCart(ctx context.Context, sessionKey string) error {
	return r.Del(ctx, sessionCartKey(sessionKey))
}

func productCacheKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func (r *RedisRepository) CacheProduct(ctx context.Context, p *models.Product) error {
	return r.SetJSON(ctx, productCacheKey(p.ID), p, productCacheTTL)
}

func (r *RedisRepository) GetProductCache(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.GetJSON(ctx, productCacheKey(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *RedisRepository) InvalidateProduct(ctx context.Context, id string) error {
	return r.Del(ctx, productCacheKey(id))
}
