package battle

import (
	"context"
	"fmt"

	"go-battle/entities"
	"go-battle/repository"

	"go.uber.org/zap"
)

// Purchase buys side's current card if it can be paid for. Insufficient funds is a
// false result, never an error, and leaves every pool untouched.
func (s *Service) Purchase(ctx context.Context, side entities.Side) (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	ok, err := s.purchaseLocked(ctx, side)
	if err := s.finish(ctx, err); err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Service) purchaseLocked(ctx context.Context, side entities.Side) (bool, error) {
	card, err := s.CurrentCard(ctx, side)
	if err != nil {
		return false, err
	}
	l, err := s.loadLedger(ctx)
	if err != nil {
		return false, err
	}
	played, err := s.PlayCounts(ctx)
	if err != nil {
		return false, err
	}

	if card == nil || !CanBuy(&l, *card, side, played) {
		if side == entities.Primary {
			if err := s.refreshPurchasable(ctx); err != nil {
				return false, err
			}
		}
		e := Event{Kind: EventPurchase, Side: side}
		if card != nil {
			e.CardID = card.ID()
		}
		s.queue(e)
		return false, nil
	}

	cost := CostOf(&l, *card, side, played)
	if !Spend(&l, cost, card.Units(), side) {
		return false, nil
	}
	ApplyEffect(&l, side, *card, played)
	played.Increment(side, card.ID())

	// ledger, multipliers and play counts change together or not at all
	b := repository.NewBatch()
	s.stageLedger(b, l)
	if err := s.multipliers.stagePurchase(ctx, b, side, *card); err != nil {
		return false, err
	}
	if err := s.stagePlayCounts(b, played); err != nil {
		return false, err
	}
	if err := s.store.Commit(ctx, b); err != nil {
		return false, fmt.Errorf("save purchase: %w", err)
	}
	if _, err := s.drawLocked(ctx, side); err != nil {
		return false, err
	}
	if err := s.refreshPurchasable(ctx); err != nil {
		return false, err
	}

	s.logger.Info("card purchased",
		zap.Stringer("side", side),
		zap.String("card_id", card.ID()),
		zap.Int("level", card.Level),
		zap.Int("cost", cost),
		zap.Stringer("units", card.Units()),
	)
	s.queue(Event{Kind: EventPurchase, Side: side, Success: true, CardID: card.ID()})
	return true, nil
}
