package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// Batch collects writes that Commit applies in a single MULTI/EXEC. A key set twice
// keeps its last value.
type Batch struct {
	keys []string
	vals map[string]string
}

func NewBatch() *Batch {
	return &Batch{vals: make(map[string]string)}
}

func (b *Batch) set(key, val string) {
	if _, ok := b.vals[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.vals[key] = val
}

func (b *Batch) SetDouble(key string, v float64) {
	b.set(key, strconv.FormatFloat(v, 'g', -1, 64))
}

func (b *Batch) SetInt(key string, v int64) {
	b.set(key, strconv.FormatInt(v, 10))
}

func (b *Batch) SetBool(key string, v bool) {
	b.set(key, strconv.FormatBool(v))
}

func (b *Batch) SetString(key, v string) {
	b.set(key, v)
}

// Keys lists the staged keys in the order they were first set.
func (b *Batch) Keys() []string {
	return append([]string(nil), b.keys...)
}

func (b *Batch) Len() int {
	return len(b.keys)
}

// Commit writes every staged value atomically. An empty batch is a no-op.
func (s *RedisStore) Commit(ctx context.Context, b *Batch) error {
	if err := s.ready(); err != nil {
		return err
	}
	if b == nil || b.Len() == 0 {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range b.keys {
			pipe.Set(ctx, k, b.vals[k], 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit %d keys: %w", b.Len(), err)
	}
	return nil
}
