// Package battle runs the two-sided resource economy and the computer opponent.
//
// All state lives in a Store under one namespace. The live ledger is only written while
// holding the operation lock; the opponent's lookahead works on copies.
package battle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-battle/entities"
	"go-battle/repository"
	"go-battle/utils"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// ErrCleared is returned by every operation on a service after ClearGameState.
var ErrCleared = errors.New("battle state cleared")

type Config struct {
	// Namespace prefixes every key, e.g. "battle:3f2a9c1d:".
	Namespace      string
	Logger         *zap.Logger
	Rand           RandomSource
	Clock          Clock
	Speed          SpeedProvider
	TickInterval   time.Duration
	StartingLedger entities.Ledger
}

type Service struct {
	store       Store
	templates   TemplateSource
	keys        keyspace
	multipliers *MultiplierLedger

	rng      RandomSource
	now      Clock
	speed    SpeedProvider
	logger   *zap.Logger
	interval time.Duration
	starting entities.Ledger

	// opMu serializes every mutation of persisted state.
	opMu sync.Mutex

	// pending events are delivered once the operation has published its snapshot.
	pending []Event

	mu           sync.RWMutex
	canPurchase  bool
	lastDecision Decision
	committed    *snapshot
	cleared      bool

	loopMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}

	obs observers
}

func New(store Store, templates TemplateSource, cfg Config) *Service {
	if cfg.Namespace == "" {
		cfg.Namespace = "battle:"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Speed == nil {
		cfg.Speed = func() float64 { return 1 }
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	keys := keyspace(cfg.Namespace)
	return &Service{
		store:       store,
		templates:   templates,
		keys:        keys,
		multipliers: &MultiplierLedger{store: store, keys: keys},
		rng:         cfg.Rand,
		now:         cfg.Clock,
		speed:       cfg.Speed,
		logger:      cfg.Logger,
		interval:    cfg.TickInterval,
		starting:    cfg.StartingLedger,
	}
}

func (s *Service) Multipliers() *MultiplierLedger {
	return s.multipliers
}

// Prepare stores both decks and draws an opening card for each side.
func (s *Service) Prepare(ctx context.Context, decks [entities.SideCount]entities.Deck) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.finish(ctx, s.prepareLocked(ctx, decks))
}

func (s *Service) prepareLocked(ctx context.Context, decks [entities.SideCount]entities.Deck) error {
	if _, err := s.loadLedger(ctx); err != nil {
		return err
	}
	for side, deck := range decks {
		if err := s.setDeckLocked(ctx, entities.Side(side), deck); err != nil {
			return err
		}
		if _, err := s.drawLocked(ctx, entities.Side(side)); err != nil {
			return err
		}
	}
	return s.refreshPurchasable(ctx)
}

func (s *Service) ensureOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cleared {
		return ErrCleared
	}
	return nil
}

// readDouble treats absent and malformed values alike.
func (s *Service) readDouble(ctx context.Context, key string, def float64) (float64, error) {
	v, ok, err := s.store.GetDouble(ctx, key)
	if errors.Is(err, repository.ErrMalformedValue) {
		s.logger.Warn("malformed value, using default", zap.String("key", key), zap.Error(err))
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// Ledger returns the current ledger, creating it on first access.
func (s *Service) Ledger(ctx context.Context) (entities.Ledger, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return entities.Ledger{}, err
	}
	return s.loadLedger(ctx)
}

func (s *Service) startingLedger() entities.Ledger {
	l := s.starting
	l.LastTickMillis = 0
	sanitize(&l)
	return l
}

// loadLedger reads the ledger and persists the starting ledger if there is none yet.
func (s *Service) loadLedger(ctx context.Context) (entities.Ledger, error) {
	l, initialized, err := s.readLedger(ctx)
	if err != nil || initialized {
		return l, err
	}
	if err := s.saveLedger(ctx, l); err != nil {
		return entities.Ledger{}, err
	}
	return l, nil
}

// readLedger never writes. An uninitialized namespace reads as the starting ledger.
func (s *Service) readLedger(ctx context.Context) (entities.Ledger, bool, error) {
	initialized, _, err := s.store.GetBool(ctx, s.keys.initialized())
	if errors.Is(err, repository.ErrMalformedValue) {
		// every save writes last_tick, so its presence means the pools are there
		_, initialized, err = s.store.GetString(ctx, s.keys.lastTick())
		if err != nil {
			return entities.Ledger{}, false, fmt.Errorf("load ledger: %w", err)
		}
		if initialized {
			s.logger.Warn("initialized flag unreadable, keeping stored ledger")
		} else {
			s.logger.Warn("initialized flag unreadable and no ledger stored, starting fresh")
		}
	} else if err != nil {
		return entities.Ledger{}, false, fmt.Errorf("load ledger: %w", err)
	}
	if !initialized {
		return s.startingLedger(), false, nil
	}

	var l entities.Ledger
	for _, r := range entities.Resources() {
		if l.Shared[r], err = s.readDouble(ctx, s.keys.shared(r), 0); err != nil {
			return l, false, fmt.Errorf("load ledger: %w", err)
		}
		if l.SharedRates[r], err = s.readDouble(ctx, s.keys.sharedRate(r), 0); err != nil {
			return l, false, fmt.Errorf("load ledger: %w", err)
		}
	}
	for _, side := range []entities.Side{entities.Primary, entities.Secondary} {
		if l.PrivateGold[side], err = s.readDouble(ctx, s.keys.privateGold(side), 0); err != nil {
			return l, false, fmt.Errorf("load ledger: %w", err)
		}
		if l.PrivateGoldRates[side], err = s.readDouble(ctx, s.keys.privateGoldRate(side), 0); err != nil {
			return l, false, fmt.Errorf("load ledger: %w", err)
		}
		if l.TotalGained[side], err = s.readDouble(ctx, s.keys.totalGained(side), 0); err != nil {
			return l, false, fmt.Errorf("load ledger: %w", err)
		}
	}
	last, _, err := s.store.GetInt(ctx, s.keys.lastTick())
	if err != nil && !errors.Is(err, repository.ErrMalformedValue) {
		return l, false, fmt.Errorf("load ledger: %w", err)
	}
	l.LastTickMillis = last
	sanitize(&l)
	return l, true, nil
}

func (s *Service) stageLedger(b *repository.Batch, l entities.Ledger) {
	for _, r := range entities.Resources() {
		b.SetDouble(s.keys.shared(r), l.Shared[r])
		b.SetDouble(s.keys.sharedRate(r), utils.FiniteOr(l.SharedRates[r], 0))
	}
	for _, side := range []entities.Side{entities.Primary, entities.Secondary} {
		b.SetDouble(s.keys.privateGold(side), l.PrivateGold[side])
		b.SetDouble(s.keys.privateGoldRate(side), utils.FiniteOr(l.PrivateGoldRates[side], 0))
		b.SetDouble(s.keys.totalGained(side), utils.FiniteOr(l.TotalGained[side], 0))
	}
	b.SetInt(s.keys.lastTick(), l.LastTickMillis)
	b.SetBool(s.keys.initialized(), true)
}

// saveLedger writes the whole ledger in one batch.
func (s *Service) saveLedger(ctx context.Context, l entities.Ledger) error {
	b := repository.NewBatch()
	s.stageLedger(b, l)
	if err := s.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// SeedLedger overwrites the persisted ledger. Intended for hosts restoring a game and for tests.
func (s *Service) SeedLedger(ctx context.Context, l entities.Ledger) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	sanitize(&l)
	if err := s.saveLedger(ctx, l); err != nil {
		return err
	}
	return s.finish(ctx, s.refreshPurchasable(ctx))
}

// CurrentCard reads side's card snapshot and re-injects its live multiplier. Missing,
// empty or unparseable snapshots read as no card.
func (s *Service) CurrentCard(ctx context.Context, side entities.Side) (*entities.Card, error) {
	raw, ok, err := s.store.GetString(ctx, s.keys.currentCard(side))
	if err != nil {
		return nil, fmt.Errorf("load current card: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var snap entities.CardSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.Warn("discarding malformed card snapshot", zap.Stringer("side", side), zap.Error(err))
		return nil, nil
	}
	tmpl, ok := s.templates.ByID(snap.CardID)
	if !ok {
		s.logger.Warn("card snapshot references unknown card", zap.String("card_id", snap.CardID))
		return nil, nil
	}
	mult, err := s.multipliers.Get(ctx, side, snap.CardID)
	if err != nil {
		return nil, err
	}
	level := snap.Level
	if level < 1 {
		level = 1
	}
	card := entities.Card{Template: tmpl}.CopyWith(level, snap.Experience, mult)
	return &card, nil
}

func (s *Service) saveCurrentCard(ctx context.Context, side entities.Side, card *entities.Card) error {
	raw := ""
	if card != nil {
		b, err := json.Marshal(card.Snapshot())
		if err != nil {
			return err
		}
		raw = string(b)
	}
	if err := s.store.SetString(ctx, s.keys.currentCard(side), raw); err != nil {
		return fmt.Errorf("save current card: %w", err)
	}
	return nil
}

func (s *Service) SetDeck(ctx context.Context, side entities.Side, deck entities.Deck) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.setDeckLocked(ctx, side, deck)
}

func (s *Service) setDeckLocked(ctx context.Context, side entities.Side, deck entities.Deck) error {
	b, err := json.Marshal(deck)
	if err != nil {
		return err
	}
	if err := s.store.SetString(ctx, s.keys.deck(side), string(b)); err != nil {
		return fmt.Errorf("save deck: %w", err)
	}
	return nil
}

// Deck returns side's deck; absent or malformed decks are empty.
func (s *Service) Deck(ctx context.Context, side entities.Side) (entities.Deck, error) {
	raw, ok, err := s.store.GetString(ctx, s.keys.deck(side))
	if err != nil {
		return nil, fmt.Errorf("load deck: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var deck entities.Deck
	if err := json.Unmarshal([]byte(raw), &deck); err != nil {
		s.logger.Warn("discarding malformed deck", zap.Stringer("side", side), zap.Error(err))
		return nil, nil
	}
	return deck, nil
}

func (s *Service) PlayCounts(ctx context.Context) (entities.PlayCounts, error) {
	raw, ok, err := s.store.GetString(ctx, s.keys.played())
	if err != nil {
		return nil, fmt.Errorf("load play counts: %w", err)
	}
	played := entities.PlayCounts{}
	if !ok {
		return played, nil
	}
	if err := json.Unmarshal([]byte(raw), &played); err != nil {
		s.logger.Warn("discarding malformed play counts", zap.Error(err))
		return entities.PlayCounts{}, nil
	}
	return played, nil
}

func (s *Service) stagePlayCounts(b *repository.Batch, played entities.PlayCounts) error {
	raw, err := json.Marshal(played)
	if err != nil {
		return err
	}
	b.SetString(s.keys.played(), string(raw))
	return nil
}

// DrawCard replaces side's current card with a fresh draw from its deck.
func (s *Service) DrawCard(ctx context.Context, side entities.Side) (*entities.Card, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	card, err := s.drawLocked(ctx, side)
	if err == nil && side == entities.Primary {
		err = s.refreshPurchasable(ctx)
	}
	if err := s.finish(ctx, err); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *Service) drawLocked(ctx context.Context, side entities.Side) (*entities.Card, error) {
	deck, err := s.Deck(ctx, side)
	if err != nil {
		return nil, err
	}
	card, err := Draw(deck, s.rng, s.templates, func(cardID string) (float64, error) {
		return s.multipliers.Get(ctx, side, cardID)
	})
	if err != nil {
		return nil, err
	}
	if err := s.saveCurrentCard(ctx, side, card); err != nil {
		return nil, err
	}
	e := Event{Kind: EventDraw, Side: side, Success: card != nil}
	if card != nil {
		e.CardID = card.ID()
	}
	s.queue(e)
	return card, nil
}

// refreshPurchasable recomputes the cached primary purchasability flag.
func (s *Service) refreshPurchasable(ctx context.Context) error {
	l, err := s.loadLedger(ctx)
	if err != nil {
		return err
	}
	card, err := s.CurrentCard(ctx, entities.Primary)
	if err != nil {
		return err
	}
	played, err := s.PlayCounts(ctx)
	if err != nil {
		return err
	}
	can := card != nil && CanBuy(&l, *card, entities.Primary, played)
	s.mu.Lock()
	s.canPurchase = can
	s.mu.Unlock()
	return s.store.SetBool(ctx, s.keys.canPurchase(), can)
}

// CanPurchase is the cached answer to "can the primary side buy its current card".
func (s *Service) CanPurchase() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canPurchase
}

// LastDecision is what the opponent chose on the most recent tick.
func (s *Service) LastDecision() Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDecision
}

// ClearGameState stops the tick loop and deletes everything under the namespace. The
// service is unusable afterwards: every later operation returns ErrCleared.
func (s *Service) ClearGameState(ctx context.Context) error {
	s.Stop()

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	s.cleared = true
	s.committed = nil
	s.canPurchase = false
	s.lastDecision = Decision{}
	s.mu.Unlock()
	s.pending = nil

	if err := s.store.RemoveKeysWithPrefix(ctx, string(s.keys)); err != nil {
		return fmt.Errorf("clear game state: %w", err)
	}
	s.logger.Info("battle state cleared", zap.String("namespace", string(s.keys)))
	s.notify(Event{Kind: EventReset, Success: true})
	return nil
}

// snapshot is the battle as of the last completed operation.
type snapshot struct {
	ledger   entities.Ledger
	cards    [entities.SideCount]*entities.Card
	played   entities.PlayCounts
	decision Decision
}

// readSnapshot reads the persisted state without creating anything.
func (s *Service) readSnapshot(ctx context.Context) (*snapshot, error) {
	l, _, err := s.readLedger(ctx)
	if err != nil {
		return nil, err
	}
	played, err := s.PlayCounts(ctx)
	if err != nil {
		return nil, err
	}
	snap := &snapshot{ledger: l, played: played, decision: s.LastDecision()}
	for _, side := range []entities.Side{entities.Primary, entities.Secondary} {
		if snap.cards[side], err = s.CurrentCard(ctx, side); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// finish publishes the snapshot State serves and then delivers the queued events, so
// listeners that read State see the change they were told about. Callers hold opMu.
func (s *Service) finish(ctx context.Context, opErr error) error {
	events := s.pending
	s.pending = nil

	snap, err := s.readSnapshot(ctx)
	if err == nil {
		s.mu.Lock()
		if !s.cleared {
			s.committed = snap
		}
		s.mu.Unlock()
	}
	for _, e := range events {
		s.notify(e)
	}
	if opErr != nil {
		return opErr
	}
	return err
}

// View is a read-only picture of the battle for presentation layers.
type View struct {
	Ledger      entities.Ledger
	Cards       [entities.SideCount]*entities.Card
	Costs       [entities.SideCount]int
	Affordable  [entities.SideCount]bool
	CanPurchase bool
	Influence   float64
	Decision    Decision
	Running     bool
}

// State returns the battle as of the last completed operation. It never waits for an
// operation in flight and never writes. Before the first operation of this service it
// reads the store directly.
func (s *Service) State(ctx context.Context) (View, error) {
	s.mu.RLock()
	cleared, snap := s.cleared, s.committed
	s.mu.RUnlock()
	if cleared {
		return View{}, ErrCleared
	}
	if snap == nil {
		var err error
		if snap, err = s.readSnapshot(ctx); err != nil {
			return View{}, err
		}
	}

	v := View{Ledger: snap.ledger, Decision: snap.decision}
	for _, side := range []entities.Side{entities.Primary, entities.Secondary} {
		if snap.cards[side] == nil {
			continue
		}
		card := *snap.cards[side]
		v.Cards[side] = &card
		v.Costs[side] = CostOf(&v.Ledger, card, side, snap.played)
		v.Affordable[side] = CanBuy(&v.Ledger, card, side, snap.played)
	}
	v.CanPurchase = v.Affordable[entities.Primary]
	v.Influence = utils.Clamp01(Influence(v.Ledger))
	v.Running = s.Running()
	return v, nil
}
