// Package cache обертка над Redis для JSON-значений и счетчиков.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/randomlife/internal/config"
)

// Cache хранит значения в Redis в виде JSON.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к Redis и делает ping.
func InitServer(ctx context.Context, cfg config.Redis) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// Get декодирует значение по key в result. found равен false при промахе.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет value как JSON. Нулевой expiration хранит ключ бессрочно.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache.Invalidate: %w", err)
	}
	return nil
}

// Incr увеличивает счетчик по key и возвращает новое значение. TTL
// ставится при создании счетчика, окно начинается с первого обращения.
func (c *Cache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	const op = "cache.Incr"
	n, err := c.Db.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 && ttl > 0 {
		if err := c.Db.Expire(ctx, key, ttl).Err(); err != nil {
			return n, fmt.Errorf("%s: %w", op, err)
		}
	}
	return n, nil
}

// Close закрывает пул соединений.
func (c *Cache) Close() error {
	return c.Db.Close()
}
