package battle

import (
	"context"
	"errors"

	"go-battle/entities"
	"go-battle/repository"
	"go-battle/utils"
)

// FactorFor is how much one purchase of card moves its multipliers.
func FactorFor(card entities.Card) float64 {
	level := card.Level
	if level < 1 {
		level = 1
	}
	return 1 + 1/float64(level)
}

// MultiplierLedger holds the persisted per-(side, card) cost multipliers. Unseen keys and
// corrupt values read as 1.
type MultiplierLedger struct {
	store Store
	keys  keyspace
}

func (m *MultiplierLedger) Get(ctx context.Context, side entities.Side, cardID string) (float64, error) {
	v, ok, err := m.store.GetDouble(ctx, m.keys.multiplier(side, cardID))
	if errors.Is(err, repository.ErrMalformedValue) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return utils.PositiveOr(v, 1), nil
}

func (m *MultiplierLedger) Set(ctx context.Context, side entities.Side, cardID string, v float64) error {
	return m.store.SetDouble(ctx, m.keys.multiplier(side, cardID), utils.PositiveOr(v, 1))
}

// ApplyPurchase makes card dearer for the buyer and cheaper for the other side by the
// same factor, so the product of the two multipliers never changes. Both values are
// written together.
func (m *MultiplierLedger) ApplyPurchase(ctx context.Context, buyer entities.Side, card entities.Card) error {
	b := repository.NewBatch()
	if err := m.stagePurchase(ctx, b, buyer, card); err != nil {
		return err
	}
	return m.store.Commit(ctx, b)
}

func (m *MultiplierLedger) stagePurchase(ctx context.Context, b *repository.Batch, buyer entities.Side, card entities.Card) error {
	f := FactorFor(card)
	id := card.ID()

	own, err := m.Get(ctx, buyer, id)
	if err != nil {
		return err
	}
	other, err := m.Get(ctx, buyer.Other(), id)
	if err != nil {
		return err
	}
	b.SetDouble(m.keys.multiplier(buyer, id), utils.PositiveOr(own*f, 1))
	b.SetDouble(m.keys.multiplier(buyer.Other(), id), utils.PositiveOr(other/f, 1))
	return nil
}
