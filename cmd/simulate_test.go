package cmd

import (
	"context"
	"testing"
	"time"

	"go-battle/catalog"
	"go-battle/config"
	"go-battle/dto"
	"go-battle/repository"
	"go-battle/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimManager(t *testing.T) *service.Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cat, err := catalog.Default()
	require.NoError(t, err)
	m := service.NewManager(repository.NewRedisStore(rdb), cat, config.BattleConfig{
		TickInterval:            time.Hour,
		Speed:                   1,
		Seed:                    11,
		StartingPrivateGoldRate: 1,
	}, nil)
	t.Cleanup(m.Shutdown)
	return m
}

func TestRunSimulationRespectsTickBudget(t *testing.T) {
	ctx := context.Background()
	m := newSimManager(t)
	speed := 2.0
	id, err := m.Create(ctx, dto.CreateBattleRequest{Speed: &speed, Paused: true})
	require.NoError(t, err)

	res, err := runSimulation(ctx, m, id, 5, false)
	require.NoError(t, err)
	assert.Equal(t, id, res.battleID)
	assert.LessOrEqual(t, res.ticks, 5)
	assert.Zero(t, res.purchases)
	assert.Equal(t, id, res.state.BattleID)
	assert.Positive(t, res.state.Primary.TotalGained)
}

func TestRunSimulationUnknownBattle(t *testing.T) {
	m := newSimManager(t)
	_, err := runSimulation(context.Background(), m, "nope", 3, true)
	assert.ErrorIs(t, err, service.ErrBattleNotFound)
}

func TestRunSimulationZeroTicks(t *testing.T) {
	ctx := context.Background()
	m := newSimManager(t)
	id, err := m.Create(ctx, dto.CreateBattleRequest{Paused: true})
	require.NoError(t, err)

	res, err := runSimulation(ctx, m, id, 0, true)
	require.NoError(t, err)
	assert.Zero(t, res.ticks)
}
