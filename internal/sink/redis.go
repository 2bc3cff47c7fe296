package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/pairstream/internal/model"
)

// RedisConfig configures the Redis sink.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisSink keeps the latest observation per pair: one hash field in
// <prefix>:latest and one <prefix>:pair:<key> string with TTL.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisSinkFromClient(rdb, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisSinkFromClient wraps an existing client.
func NewRedisSinkFromClient(rdb *redis.Client, prefix string, ttl time.Duration) *RedisSink {
	return &RedisSink{rdb: rdb, prefix: prefix, ttl: ttl}
}

// LatestKey is the hash holding every pair's latest observation.
func (s *RedisSink) LatestKey() string {
	return s.prefix + ":latest"
}

// PairKey is the per-pair key expiring after TTL.
func (s *RedisSink) PairKey(key model.PairKey) string {
	return s.prefix + ":pair:" + string(key)
}

// Record stores obs as the latest value for its pair.
func (s *RedisSink) Record(ctx context.Context, obs model.Observation) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.LatestKey(), string(obs.PairKey), data)
	pipe.Set(ctx, s.PairKey(obs.PairKey), data, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store observation: %w", err)
	}
	return nil
}

// Latest returns the stored observation for key.
func (s *RedisSink) Latest(ctx context.Context, key model.PairKey) (model.Observation, error) {
	var obs model.Observation
	data, err := s.rdb.HGet(ctx, s.LatestKey(), string(key)).Bytes()
	if err != nil {
		return obs, err
	}
	if err := json.Unmarshal(data, &obs); err != nil {
		return obs, fmt.Errorf("unmarshal observation: %w", err)
	}
	return obs, nil
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
