package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

var (
	// ErrNotInitialized is returned by every operation on a store that has no client.
	// It is a programming error and is never retried.
	ErrNotInitialized = errors.New("key-value store not initialized")

	// ErrMalformedValue means the key exists but does not parse as the requested type.
	ErrMalformedValue = errors.New("malformed stored value")
)

// RedisStore is the typed get/set service the battle core persists through.
// Every value is a plain Redis string.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) ready() error {
	if s == nil || s.rdb == nil {
		return ErrNotInitialized
	}
	return nil
}

func (s *RedisStore) getRaw(ctx context.Context, key string) (string, bool, error) {
	if err := s.ready(); err != nil {
		return "", false, err
	}
	val, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) setRaw(ctx context.Context, key, val string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, val, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetDouble(ctx context.Context, key string) (float64, bool, error) {
	raw, ok, err := s.getRaw(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s=%q", ErrMalformedValue, key, raw)
	}
	return v, true, nil
}

func (s *RedisStore) GetInt(ctx context.Context, key string) (int64, bool, error) {
	raw, ok, err := s.getRaw(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s=%q", ErrMalformedValue, key, raw)
	}
	return v, true, nil
}

func (s *RedisStore) GetBool(ctx context.Context, key string) (bool, bool, error) {
	raw, ok, err := s.getRaw(ctx, key)
	if err != nil || !ok {
		return false, false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%w: %s=%q", ErrMalformedValue, key, raw)
	}
	return v, true, nil
}

func (s *RedisStore) GetString(ctx context.Context, key string) (string, bool, error) {
	return s.getRaw(ctx, key)
}

func (s *RedisStore) SetDouble(ctx context.Context, key string, v float64) error {
	return s.setRaw(ctx, key, strconv.FormatFloat(v, 'g', -1, 64))
}

func (s *RedisStore) SetInt(ctx context.Context, key string, v int64) error {
	return s.setRaw(ctx, key, strconv.FormatInt(v, 10))
}

func (s *RedisStore) SetBool(ctx context.Context, key string, v bool) error {
	return s.setRaw(ctx, key, strconv.FormatBool(v))
}

func (s *RedisStore) SetString(ctx context.Context, key string, v string) error {
	return s.setRaw(ctx, key, v)
}

// RemoveKeysWithPrefix scans for prefix* and deletes everything found.
func (s *RedisStore) RemoveKeysWithPrefix(ctx context.Context, prefix string) error {
	if err := s.ready(); err != nil {
		return err
	}

	var cursor uint64
	var keysToDelete []string
	for {
		keys, cur, err := s.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan %s*: %w", prefix, err)
		}
		keysToDelete = append(keysToDelete, keys...)
		cursor = cur
		if cursor == 0 {
			break
		}
	}

	if len(keysToDelete) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keysToDelete...).Err(); err != nil {
		return fmt.Errorf("delete %d keys under %s: %w", len(keysToDelete), prefix, err)
	}
	return nil
}
