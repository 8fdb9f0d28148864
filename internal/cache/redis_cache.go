package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"smartfit/backend/internal/domain"
)

type RedisReceiptCache struct {
	client *redis.Client
}

func NewRedisReceiptCache(addr string, password string, db int) *RedisReceiptCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisReceiptCache{client: client}
}

func (c *RedisReceiptCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReceiptCache) Close() error {
	return c.client.Close()
}

func receiptKey(saleID int64) string {
	return fmt.Sprintf("receipt:%d", saleID)
}

func (c *RedisReceiptCache) Get(ctx context.Context, saleID int64) (*domain.Receipt, bool, error) {
	val, err := c.client.Get(ctx, receiptKey(saleID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var receipt domain.Receipt
	if err := json.Unmarshal([]byte(val), &receipt); err != nil {
		return nil, false, err
	}
	return &receipt, true, nil
}

func (c *RedisReceiptCache) Set(ctx context.Context, saleID int64, receipt *domain.Receipt, ttl time.Duration) error {
	if receipt == nil {
		return nil
	}
	payload, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, receiptKey(saleID), payload, ttl).Err()
}
