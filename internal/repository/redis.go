package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookable/internal/config"
	"bookable/internal/domain"
	"bookable/internal/models"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisSlotCache shares generated slot lists between API instances.
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	return &RedisSlotCache{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisSlotCache) GetSlots(ctx context.Context, key domain.SlotCacheKey) ([]models.Slot, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get slots from redis: %w", err)
	}

	var slots []models.Slot
	if err := json.Unmarshal(val, &slots); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal slots: %w", err)
	}
	return slots, true, nil
}

func (r *RedisSlotCache) SetSlots(ctx context.Context, key domain.SlotCacheKey, slots []models.Slot) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}

	if err := r.client.Set(ctx, key.String(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set slots in redis: %w", err)
	}
	return nil
}

func (r *RedisSlotCache) InvalidateDate(ctx context.Context, serviceID int64, date time.Time) error {
	return r.deletePrefix(ctx, domain.DatePrefix(serviceID, date))
}

func (r *RedisSlotCache) InvalidateService(ctx context.Context, serviceID int64) error {
	return r.deletePrefix(ctx, domain.ServicePrefix(serviceID))
}

func (r *RedisSlotCache) deletePrefix(ctx context.Context, prefix string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	iter := r.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	keys := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan slot keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete slot keys: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
