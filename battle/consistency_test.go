package battle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go-battle/entities"
	"go-battle/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDuringTickShowsPreviousLedger(t *testing.T) {
	ctx := context.Background()
	env := newHookedEnv(t, templateMap{}, Config{})

	var l entities.Ledger
	l.SharedRates[entities.Gold] = 5
	require.NoError(t, env.svc.SeedLedger(ctx, l))

	var mid []View
	env.store.before = func(*repository.Batch) error {
		v, err := env.svc.State(ctx)
		if err != nil {
			return err
		}
		mid = append(mid, v)
		return nil
	}
	require.NoError(t, env.svc.Tick(ctx, 1))
	env.store.before = nil

	require.NotEmpty(t, mid)
	for _, v := range mid {
		assert.Equal(t, 0.0, v.Ledger.Shared[entities.Gold])
		assert.Equal(t, v.Ledger.Shared[entities.Gold], v.Ledger.TotalGained[entities.Primary])
	}

	v, err := env.svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v.Ledger.Shared[entities.Gold])
	assert.Equal(t, 5.0, v.Ledger.TotalGained[entities.Primary])
}

func TestListenersSeeTheStateTheyAreToldAbout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, templateMap{}, Config{})
	var l entities.Ledger
	l.SharedRates[entities.Gold] = 5
	require.NoError(t, env.svc.SeedLedger(ctx, l))

	var seen []float64
	env.svc.Subscribe(func(e Event) {
		if e.Kind != EventTick {
			return
		}
		if v, err := env.svc.State(ctx); err == nil {
			seen = append(seen, v.Ledger.Shared[entities.Gold])
		}
	})
	require.NoError(t, env.svc.Tick(ctx, 1))
	require.NoError(t, env.svc.Tick(ctx, 1))
	assert.Equal(t, []float64{5, 10}, seen)
}

func TestStateDoesNotCreateLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, templateMap{}, Config{StartingLedger: goldRateLedger()})

	v, err := env.svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Ledger.PrivateGoldRates[entities.Primary])
	assert.Empty(t, env.mr.Keys())
}

func TestClearedServiceRefusesEverything(t *testing.T) {
	ctx := context.Background()
	tmpl := fixedCard("echo", entities.Gold, 0, entities.RateSet{})
	env := newTestEnv(t, templateMap{"echo": tmpl}, Config{StartingLedger: goldRateLedger()})
	deck := entities.Deck{{CardID: "echo", Probability: 1}}
	decks := [entities.SideCount]entities.Deck{deck, deck}
	require.NoError(t, env.svc.Prepare(ctx, decks))
	require.NoError(t, env.svc.ClearGameState(ctx))

	_, err := env.svc.State(ctx)
	assert.ErrorIs(t, err, ErrCleared)
	_, err = env.svc.Purchase(ctx, entities.Primary)
	assert.ErrorIs(t, err, ErrCleared)
	_, err = env.svc.Ledger(ctx)
	assert.ErrorIs(t, err, ErrCleared)
	_, err = env.svc.DrawCard(ctx, entities.Primary)
	assert.ErrorIs(t, err, ErrCleared)
	_, err = env.svc.SelectAction(ctx)
	assert.ErrorIs(t, err, ErrCleared)
	assert.ErrorIs(t, env.svc.Tick(ctx, 1), ErrCleared)
	assert.ErrorIs(t, env.svc.Resume(ctx), ErrCleared)
	assert.ErrorIs(t, env.svc.Start(ctx), ErrCleared)
	assert.ErrorIs(t, env.svc.SeedLedger(ctx, goldRateLedger()), ErrCleared)
	assert.ErrorIs(t, env.svc.SetDeck(ctx, entities.Primary, deck), ErrCleared)
	assert.ErrorIs(t, env.svc.Prepare(ctx, decks), ErrCleared)
	assert.False(t, env.svc.Running())

	for _, k := range env.mr.Keys() {
		assert.False(t, strings.HasPrefix(k, testNamespace), "recreated key %s", k)
	}
	assert.NoError(t, env.svc.ClearGameState(ctx), "clearing twice is harmless")
}

func TestFailedPurchaseCommitChangesNothing(t *testing.T) {
	ctx := context.Background()
	tmpl := fixedCard("echo", entities.Gold, 0, entities.RateSet{}.Add(entities.Gold, 1))
	env := newHookedEnv(t, templateMap{"echo": tmpl}, Config{})
	deck := entities.Deck{{CardID: "echo", Probability: 1}}
	require.NoError(t, env.svc.Prepare(ctx, [entities.SideCount]entities.Deck{deck, nil}))

	env.store.before = func(*repository.Batch) error { return errors.New("connection reset") }
	ok, err := env.svc.Purchase(ctx, entities.Primary)
	require.Error(t, err)
	assert.False(t, ok)

	var batches [][]string
	env.store.before = func(b *repository.Batch) error {
		batches = append(batches, b.Keys())
		return nil
	}
	for _, side := range []entities.Side{entities.Primary, entities.Secondary} {
		m, err := env.svc.Multipliers().Get(ctx, side, "echo")
		require.NoError(t, err)
		assert.Equal(t, 1.0, m, side.String())
	}
	played, err := env.svc.PlayCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, played.Played(entities.Primary, "echo"))
	l, err := env.svc.Ledger(ctx)
	require.NoError(t, err)
	assert.Zero(t, l.SharedRates[entities.Gold])

	ok, err = env.svc.Purchase(ctx, entities.Primary)
	require.NoError(t, err)
	require.True(t, ok)

	keys := keyspace(testNamespace)
	var together bool
	for _, b := range batches {
		together = together || containsAll(b,
			keys.multiplier(entities.Primary, "echo"),
			keys.multiplier(entities.Secondary, "echo"),
			keys.played(),
			keys.sharedRate(entities.Gold),
		)
	}
	assert.True(t, together, "purchase writes land in one batch: %v", batches)

	p, err := env.svc.Multipliers().Get(ctx, entities.Primary, "echo")
	require.NoError(t, err)
	s, err := env.svc.Multipliers().Get(ctx, entities.Secondary, "echo")
	require.NoError(t, err)
	assert.Equal(t, 2.0, p)
	assert.Equal(t, 0.5, s)
}

func containsAll(keys []string, want ...string) bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func TestMalformedInitializedFlagKeepsStoredLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, templateMap{}, Config{StartingLedger: goldRateLedger()})

	var l entities.Ledger
	l.PrivateGold[entities.Primary] = 42
	require.NoError(t, env.svc.SeedLedger(ctx, l))
	env.mr.Set(keyspace(testNamespace).initialized(), "maybe")

	got, err := env.svc.Ledger(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.PrivateGold[entities.Primary])
	assert.Zero(t, got.PrivateGoldRates[entities.Primary], "the starting ledger was not reapplied")
}

func TestMalformedInitializedFlagWithoutLedgerStartsFresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, templateMap{}, Config{StartingLedger: goldRateLedger()})
	env.mr.Set(keyspace(testNamespace).initialized(), "maybe")

	got, err := env.svc.Ledger(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.PrivateGoldRates[entities.Primary])
}
