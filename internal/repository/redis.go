package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"villastay/internal/config"
	"villastay/internal/models"

	"github.com/redis/go-redis/v9"
)

const minQuoteTTL = time.Second

type RedisQuoteStore struct {
	client *redis.Client
}

// NewRedisClient builds a client from config. It does not dial.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisQuoteStore(client *redis.Client) *RedisQuoteStore {
	return &RedisQuoteStore{client: client}
}

func quoteKey(id string) string {
	return "cancel_quote:" + id
}

func (r *RedisQuoteStore) SaveQuote(ctx context.Context, quote *models.CancellationQuote) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	ttl := time.Until(quote.ExpiresAt)
	if ttl < minQuoteTTL {
		ttl = minQuoteTTL
	}

	if err := r.client.Set(ctx, quoteKey(quote.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set quote in redis: %w", err)
	}
	return nil
}

func (r *RedisQuoteStore) GetQuote(ctx context.Context, id string) (*models.CancellationQuote, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, quoteKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote from redis: %w", err)
	}

	var quote models.CancellationQuote
	if err := json.Unmarshal([]byte(val), &quote); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	return &quote, nil
}

func (r *RedisQuoteStore) DeleteQuote(ctx context.Context, id string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, quoteKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete quote from redis: %w", err)
	}
	return nil
}

// CheckRateLimit is a fixed window counter keyed by caller.
func (r *RedisQuoteStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rk := "rate_limit:" + key
	count, err := r.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, rk, window)
	}
	return count <= int64(limit), nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
