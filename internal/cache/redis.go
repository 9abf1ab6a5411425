package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codr1/Rollcall/internal/config"
)

type RedisStats struct {
	client *redis.Client
	ttl    time.Duration
}

// ConnectRedis opens a client for cfg and pings it before returning.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStats, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisStats(client, cfg.StatsTTL), nil
}

func NewRedisStats(client *redis.Client, ttl time.Duration) *RedisStats {
	return &RedisStats{client: client, ttl: ttl}
}

func (r *RedisStats) Get(ctx context.Context, teamID int64, dst any) (bool, error) {
	data, err := r.client.Get(ctx, StatsKey(teamID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get cached stats for team %d: %w", teamID, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached stats for team %d: %w", teamID, err)
	}
	return true, nil
}

func (r *RedisStats) Set(ctx context.Context, teamID int64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode stats for team %d: %w", teamID, err)
	}
	if err := r.client.Set(ctx, StatsKey(teamID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache stats for team %d: %w", teamID, err)
	}
	return nil
}

func (r *RedisStats) Invalidate(ctx context.Context, teamID int64) error {
	if err := r.client.Del(ctx, StatsKey(teamID)).Err(); err != nil {
		return fmt.Errorf("invalidate stats for team %d: %w", teamID, err)
	}
	return nil
}

func (r *RedisStats) Close() error {
	return r.client.Close()
}
