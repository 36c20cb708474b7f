package battle

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-battle/entities"
	"go-battle/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

const testNamespace = "battle:test:"

type templateMap map[string]*entities.CardTemplate

func (m templateMap) ByID(id string) (*entities.CardTemplate, bool) {
	t, ok := m[id]
	return t, ok
}

// fixedCard costs the same regardless of level or multiplier and adds the given rates.
func fixedCard(id string, units entities.Resource, cost int, add entities.RateSet) *entities.CardTemplate {
	return &entities.CardTemplate{
		ID:        id,
		Name:      id,
		CostUnits: units,
		Level:     1,
		EvolveAt:  10,
		Cost: func(entities.Card, entities.EffectContext) int {
			return cost
		},
		Effect: func(_ entities.Card, ctx entities.EffectContext) entities.RateSet {
			out := ctx.Rates
			for i, v := range add.Shared {
				out.Shared[i] += v
			}
			out.PrivateGold += add.PrivateGold
			return out
		},
	}
}

// seqRand replays vals forever.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	svc   *Service
	mr    *miniredis.Miniredis
	store *repository.RedisStore
	clock *fakeClock
}

func newTestEnv(t *testing.T, templates templateMap, cfg Config) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := repository.NewRedisStore(rdb)
	clock := newFakeClock()
	if cfg.Namespace == "" {
		cfg.Namespace = testNamespace
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = &seqRand{vals: []float64{0.5}}
	}
	svc := New(store, templates, cfg)
	t.Cleanup(svc.Stop)
	return &testEnv{svc: svc, mr: mr, store: store, clock: clock}
}

// hookStore calls before ahead of every Commit; a non-nil result fails the commit.
type hookStore struct {
	*repository.RedisStore
	before func(b *repository.Batch) error
}

func (h *hookStore) Commit(ctx context.Context, b *repository.Batch) error {
	if h.before != nil {
		if err := h.before(b); err != nil {
			return err
		}
	}
	return h.RedisStore.Commit(ctx, b)
}

type hookedEnv struct {
	svc   *Service
	mr    *miniredis.Miniredis
	store *hookStore
}

func newHookedEnv(t *testing.T, templates templateMap, cfg Config) *hookedEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := &hookStore{RedisStore: repository.NewRedisStore(rdb)}
	cfg.Namespace = testNamespace
	if cfg.Clock == nil {
		cfg.Clock = newFakeClock().Now
	}
	if cfg.Rand == nil {
		cfg.Rand = &seqRand{vals: []float64{0.5}}
	}
	svc := New(store, templates, cfg)
	t.Cleanup(svc.Stop)
	return &hookedEnv{svc: svc, mr: mr, store: store}
}

// withoutTick returns l with the timestamp cleared, for comparisons.
func withoutTick(l entities.Ledger) entities.Ledger {
	l.LastTickMillis = 0
	return l
}
