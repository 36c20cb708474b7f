package battle

import (
	"context"
	"errors"
	"math"
	"time"

	"go-battle/repository"
	"go-battle/utils"

	"go.uber.org/zap"
)

// Tick advances the ledger by speed seconds of accrual, then lets the opponent act.
// A zero, negative or non-finite speed only stamps the tick time.
func (s *Service) Tick(ctx context.Context, speed float64) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.finish(ctx, s.tickLocked(ctx, speed))
}

func (s *Service) tickLocked(ctx context.Context, speed float64) error {
	l, err := s.loadLedger(ctx)
	if err != nil {
		return err
	}
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		l.LastTickMillis = s.now().UnixMilli()
		return s.saveLedger(ctx, l)
	}

	Advance(&l, speed)
	l.LastTickMillis = s.now().UnixMilli()
	if err := s.saveLedger(ctx, l); err != nil {
		return err
	}
	if err := s.refreshPurchasable(ctx); err != nil {
		return err
	}
	if err := s.runOpponent(ctx); err != nil {
		return err
	}
	s.queue(Event{Kind: EventTick, Success: true})
	return nil
}

// Position loads what the opponent needs to score its options.
func (s *Service) Position(ctx context.Context) (Position, error) {
	var p Position
	l, _, err := s.readLedger(ctx)
	if err != nil {
		return p, err
	}
	played, err := s.PlayCounts(ctx)
	if err != nil {
		return p, err
	}
	current, err := s.CurrentCard(ctx, opponentSide)
	if err != nil {
		return p, err
	}
	deck, err := s.Deck(ctx, opponentSide)
	if err != nil {
		return p, err
	}

	p = Position{Ledger: l, Current: current, Played: played}
	for _, e := range deck {
		if e.Probability <= 0 {
			continue
		}
		tmpl, ok := s.templates.ByID(e.CardID)
		if !ok {
			continue
		}
		mult, err := s.multipliers.Get(ctx, opponentSide, e.CardID)
		if err != nil {
			return p, err
		}
		p.Candidates = append(p.Candidates, Candidate{
			Card:        Materialize(tmpl, e.Level, mult),
			Probability: e.Probability,
		})
	}
	return p, nil
}

// SelectAction scores the opponent's options against the persisted state without acting.
func (s *Service) SelectAction(ctx context.Context) (Decision, error) {
	if err := s.ensureOpen(); err != nil {
		return Decision{}, err
	}
	p, err := s.Position(ctx)
	if err != nil {
		return Decision{}, err
	}
	return SelectAction(p), nil
}

func (s *Service) runOpponent(ctx context.Context) error {
	d, err := s.SelectAction(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lastDecision = d
	s.mu.Unlock()

	if d.Action != ActionPlay {
		return nil
	}
	ok, err := s.purchaseLocked(ctx, opponentSide)
	if err != nil {
		return err
	}
	s.logger.Debug("opponent played",
		zap.Bool("purchased", ok),
		zap.Float64("play", d.Play),
		zap.Float64("draw", d.Draw),
		zap.Float64("wait", d.Wait),
	)
	return nil
}

// Resume catches up on time spent offline with a single tick of floor(elapsed seconds).
// A battle that never ticked is only stamped.
func (s *Service) Resume(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.finish(ctx, s.resumeLocked(ctx))
}

func (s *Service) resumeLocked(ctx context.Context) error {
	l, err := s.loadLedger(ctx)
	if err != nil {
		return err
	}
	now := s.now().UnixMilli()
	elapsed := float64(now-l.LastTickMillis) / 1000
	if l.LastTickMillis > 0 && elapsed > 0 {
		s.logger.Info("offline catch-up", zap.Float64("elapsed_seconds", elapsed))
		if err := s.tickLocked(ctx, math.Floor(elapsed)); err != nil {
			return err
		}
	} else {
		l.LastTickMillis = now
		if err := s.saveLedger(ctx, l); err != nil {
			return err
		}
	}
	s.queue(Event{Kind: EventResume, Success: true})
	return nil
}

// Start catches up and then ticks every interval until Stop or ctx is done.
// Calling Start on a running battle does nothing.
func (s *Service) Start(ctx context.Context) error {
	if s.Running() {
		return nil
	}
	if err := s.Resume(ctx); err != nil {
		return err
	}

	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(ctx, s.stop, s.done)
	s.logger.Info("battle tick loop started", zap.Duration("interval", s.interval))
	return nil
}

// Stop prevents further ticks and waits for the loop to exit. An in-flight tick finishes.
func (s *Service) Stop() {
	s.loopMu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.loopMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	s.logger.Info("battle tick loop stopped")
}

func (s *Service) Running() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	return s.stop != nil
}

func (s *Service) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			if err := s.tryTick(ctx); err != nil {
				if errors.Is(err, repository.ErrNotInitialized) {
					s.logger.Error("store not initialized, tick loop exiting", zap.Error(err))
					return
				}
				if errors.Is(err, ErrCleared) {
					return
				}
				s.logger.Error("tick failed", zap.Error(err))
			}
		}
	}
}

// tryTick skips the tick when another operation holds the lock; ticks never overlap.
func (s *Service) tryTick(ctx context.Context) error {
	if !s.opMu.TryLock() {
		s.logger.Debug("tick skipped, previous operation still running")
		return nil
	}
	defer s.opMu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.finish(ctx, s.tickLocked(ctx, s.currentSpeed()))
}

func (s *Service) LastTick(ctx context.Context) (int64, error) {
	l, err := s.Ledger(ctx)
	if err != nil {
		return 0, err
	}
	return l.LastTickMillis, nil
}

// currentSpeed reads the provider: non-finite means 1, negative means paused.
func (s *Service) currentSpeed() float64 {
	return math.Max(0, utils.FiniteOr(s.speed(), 1))
}
