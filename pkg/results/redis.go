package results

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures RedisSink
type RedisConfig struct {
	URL string
	Key string
	TTL time.Duration // 0 keeps the hash forever
}

// RedisSink stores results in one Redis hash mapping document name to label
type RedisSink struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSink connects to Redis and verifies the connection
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisSink{
		client: client,
		key:    cfg.Key,
		ttl:    cfg.TTL,
	}, nil
}

// Write stores the label of r under its name
func (s *RedisSink) Write(ctx context.Context, r Result) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, r.Name, r.Label)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store result in redis: %w", err)
	}
	return nil
}

// Labels returns every stored name and label
func (s *RedisSink) Labels(ctx context.Context) (map[string]string, error) {
	return s.client.HGetAll(ctx, s.key).Result()
}

// Clear removes the results hash
func (s *RedisSink) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}
