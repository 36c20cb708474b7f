package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go-battle/battle"
	"go-battle/catalog"
	"go-battle/config"
	"go-battle/dto"
	"go-battle/entities"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	ErrBattleNotFound = errors.New("battle not found")
	ErrInvalidSpeed   = errors.New("speed must be a finite number >= 0")
)

// ChangeFunc is told about every event of every battle the manager owns.
type ChangeFunc func(battleID string, e battle.Event)

type managedBattle struct {
	id         string
	svc        *battle.Service
	speed      atomic.Uint64 // math.Float64bits
	createdAt  time.Time
	lastActive atomic.Int64 // unix millis of the last event
	stopWatch  func()
}

func (b *managedBattle) Speed() float64 {
	return math.Float64frombits(b.speed.Load())
}

func (b *managedBattle) setSpeed(v float64) {
	b.speed.Store(math.Float64bits(v))
}

// Manager owns every live battle. Each battle persists under its own
// "battle:<id>:" namespace of the shared store.
type Manager struct {
	store   battle.Store
	catalog *catalog.Catalog
	cfg     config.BattleConfig
	logger  *zap.Logger

	// ctx outlives requests; tick loops run on it until Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	battles  map[string]*managedBattle
	onChange ChangeFunc
}

func NewManager(store battle.Store, cat *catalog.Catalog, cfg config.BattleConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:   store,
		catalog: cat,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		battles: make(map[string]*managedBattle),
	}
}

// OnChange installs the single change listener. Battles created earlier are covered too.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Manager) emit(battleID string, e battle.Event) {
	m.mu.RLock()
	fn := m.onChange
	m.mu.RUnlock()
	if fn != nil {
		fn(battleID, e)
	}
}

func newBattleID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func namespace(battleID string) string {
	return fmt.Sprintf("battle:%s:", battleID)
}

func (m *Manager) startingLedger() entities.Ledger {
	var l entities.Ledger
	for _, side := range []entities.Side{entities.Primary, entities.Secondary} {
		l.PrivateGold[side] = m.cfg.StartingPrivateGold
		l.PrivateGoldRates[side] = m.cfg.StartingPrivateGoldRate
	}
	return l
}

func (m *Manager) newRand() battle.RandomSource {
	seed := m.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewSource(seed))
}

// Create sets up a battle with the catalog decks and, unless paused, starts its tick loop.
func (m *Manager) Create(ctx context.Context, req dto.CreateBattleRequest) (string, error) {
	speed := m.cfg.Speed
	if req.Speed != nil {
		speed = *req.Speed
	}
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
		return "", ErrInvalidSpeed
	}

	id := newBattleID()
	mb := &managedBattle{id: id, createdAt: time.Now()}
	mb.setSpeed(speed)
	mb.lastActive.Store(mb.createdAt.UnixMilli())

	logger := m.logger.With(zap.String("battle_id", id))
	mb.svc = battle.New(m.store, m.catalog, battle.Config{
		Namespace:      namespace(id),
		Logger:         logger,
		Rand:           m.newRand(),
		Speed:          mb.Speed,
		TickInterval:   m.cfg.TickInterval,
		StartingLedger: m.startingLedger(),
	})
	mb.stopWatch = mb.svc.Subscribe(func(e battle.Event) {
		mb.lastActive.Store(time.Now().UnixMilli())
		m.emit(id, e)
	})

	decks := [entities.SideCount]entities.Deck{
		m.catalog.Deck(entities.Primary),
		m.catalog.Deck(entities.Secondary),
	}
	if err := mb.svc.Prepare(ctx, decks); err != nil {
		mb.stopWatch()
		return "", fmt.Errorf("prepare battle %s: %w", id, err)
	}
	if !req.Paused {
		if err := mb.svc.Start(m.ctx); err != nil {
			mb.stopWatch()
			return "", fmt.Errorf("start battle %s: %w", id, err)
		}
	}

	m.mu.Lock()
	m.battles[id] = mb
	m.mu.Unlock()

	logger.Info("battle created", zap.Float64("speed", speed), zap.Bool("paused", req.Paused))
	return id, nil
}

func (m *Manager) get(id string) (*managedBattle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mb, ok := m.battles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBattleNotFound, id)
	}
	return mb, nil
}

// gone reports operations that raced a Delete as not found.
func gone(id string, err error) error {
	if errors.Is(err, battle.ErrCleared) {
		return fmt.Errorf("%w: %s", ErrBattleNotFound, id)
	}
	return err
}

// Battle exposes the underlying service for hosts that drive it directly.
func (m *Manager) Battle(id string) (*battle.Service, error) {
	mb, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return mb.svc, nil
}

func (m *Manager) List() []entities.BattleInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]entities.BattleInfo, 0, len(m.battles))
	for id, mb := range m.battles {
		status := entities.BattleStatusStopped
		if mb.svc.Running() {
			status = entities.BattleStatusRunning
		}
		list = append(list, entities.BattleInfo{
			BattleID:  id,
			Status:    status,
			Speed:     mb.Speed(),
			CreatedAt: mb.createdAt.UnixMilli(),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt < list[j].CreatedAt })
	return list
}

func (m *Manager) State(ctx context.Context, id string) (dto.BattleState, error) {
	mb, err := m.get(id)
	if err != nil {
		return dto.BattleState{}, err
	}
	v, err := mb.svc.State(ctx)
	if err != nil {
		return dto.BattleState{}, fmt.Errorf("battle %s state: %w", id, gone(id, err))
	}
	return toBattleState(id, mb.Speed(), v), nil
}

func (m *Manager) Purchase(ctx context.Context, id string, side entities.Side) (bool, error) {
	mb, err := m.get(id)
	if err != nil {
		return false, err
	}
	ok, err := mb.svc.Purchase(ctx, side)
	return ok, gone(id, err)
}

// Resume catches a battle up on elapsed time and restarts its loop if it was stopped.
func (m *Manager) Resume(ctx context.Context, id string) error {
	mb, err := m.get(id)
	if err != nil {
		return err
	}
	if mb.svc.Running() {
		return gone(id, mb.svc.Resume(ctx))
	}
	return gone(id, mb.svc.Start(m.ctx))
}

// Tick advances a battle by hand, at its configured speed unless speed is given.
func (m *Manager) Tick(ctx context.Context, id string, speed *float64) error {
	mb, err := m.get(id)
	if err != nil {
		return err
	}
	s := mb.Speed()
	if speed != nil {
		s = *speed
	}
	return gone(id, mb.svc.Tick(ctx, s))
}

func (m *Manager) SetSpeed(id string, speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
		return ErrInvalidSpeed
	}
	mb, err := m.get(id)
	if err != nil {
		return err
	}
	mb.setSpeed(speed)
	m.logger.Info("battle speed changed", zap.String("battle_id", id), zap.Float64("speed", speed))
	return nil
}

// Delete stops the battle and removes all of its persisted state.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	mb, ok := m.battles[id]
	delete(m.battles, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrBattleNotFound, id)
	}

	err := mb.svc.ClearGameState(ctx)
	mb.stopWatch()
	if err != nil {
		return fmt.Errorf("delete battle %s: %w", id, err)
	}
	m.logger.Info("battle deleted", zap.String("battle_id", id))
	return nil
}

// Shutdown stops every tick loop. Persisted state is kept so battles can be resumed.
func (m *Manager) Shutdown() {
	m.cancel()
	m.mu.RLock()
	battles := make([]*managedBattle, 0, len(m.battles))
	for _, mb := range m.battles {
		battles = append(battles, mb)
	}
	m.mu.RUnlock()

	for _, mb := range battles {
		mb.svc.Stop()
	}
}
