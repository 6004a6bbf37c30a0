package prefs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis keys for preference fields.
const (
	keyRadiusMeters = "prefs:radius_meters"
	keyVoiceEnabled = "prefs:voice_enabled"
	keyNavActive    = "prefs:navigation_active"
)

// RedisRepository is a Redis-backed implementation of Repository, used when
// preferences must be shared across engine restarts or replicas.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a Redis preference store.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// OpenRedisFromEnv builds a Redis client from REDIS_HOST/REDIS_PORT/
// REDIS_PASS/REDIS_DB. Returns nil when REDIS_HOST is unset so callers can
// fall back to the in-memory store.
func OpenRedisFromEnv() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	return redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASS"),
		DB:       db,
	})
}

// RadiusMeters implements Repository.
func (r *RedisRepository) RadiusMeters(ctx context.Context) (float64, error) {
	val, err := r.client.Get(ctx, keyRadiusMeters).Float64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return defaultRadius, nil
		}
		return 0, fmt.Errorf("read radius preference: %w", err)
	}
	return val, nil
}

// SetRadiusMeters implements Repository.
func (r *RedisRepository) SetRadiusMeters(ctx context.Context, radius float64) error {
	if err := r.client.Set(ctx, keyRadiusMeters, radius, 0).Err(); err != nil {
		return fmt.Errorf("write radius preference: %w", err)
	}
	return nil
}

// VoiceEnabled implements Repository.
func (r *RedisRepository) VoiceEnabled(ctx context.Context) (bool, error) {
	return r.getBool(ctx, keyVoiceEnabled)
}

// SetVoiceEnabled implements Repository.
func (r *RedisRepository) SetVoiceEnabled(ctx context.Context, enabled bool) error {
	return r.setBool(ctx, keyVoiceEnabled, enabled)
}

// NavigationActive implements Repository.
func (r *RedisRepository) NavigationActive(ctx context.Context) (bool, error) {
	return r.getBool(ctx, keyNavActive)
}

// SetNavigationActive implements Repository.
func (r *RedisRepository) SetNavigationActive(ctx context.Context, active bool) error {
	return r.setBool(ctx, keyNavActive, active)
}

func (r *RedisRepository) getBool(ctx context.Context, key string) (bool, error) {
	val, err := r.client.Get(ctx, key).Bool()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisRepository) setBool(ctx context.Context, key string, val bool) error {
	if err := r.client.Set(ctx, key, val, 0).Err(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
