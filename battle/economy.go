package battle

import (
	"math"

	"go-battle/entities"
	"go-battle/utils"
)

// Purchasable reports whether side can pay cost in units. Gold may come from the shared
// pool, the private pool or both; every other resource only from its shared pool.
func Purchasable(l *entities.Ledger, cost int, units entities.Resource, side entities.Side) bool {
	if cost <= 0 {
		return true
	}
	c := float64(cost)
	shared := SharedAvailable(l, units, side)
	if units != entities.Gold {
		return shared >= c
	}
	private := PrivateAvailable(l, side)
	return shared >= c || private >= c || shared+private >= c
}

// Spend takes cost from side's pools, shared gold first. On insufficient funds nothing
// is touched and false is returned.
func Spend(l *entities.Ledger, cost int, units entities.Resource, side entities.Side) bool {
	if cost <= 0 {
		return true
	}
	c := float64(cost)
	shared := SharedAvailable(l, units, side)

	if units != entities.Gold {
		if shared < c {
			return false
		}
		l.Shared[units] = StoreValue(ViewValue(l.Shared[units], side)-c, side)
		return true
	}

	private := PrivateAvailable(l, side)
	if shared+private < c {
		return false
	}
	useShared := math.Min(shared, c)
	l.Shared[entities.Gold] = StoreValue(ViewValue(l.Shared[entities.Gold], side)-useShared, side)
	l.PrivateGold[side] -= c - useShared
	return true
}

func effectContext(l *entities.Ledger, side entities.Side, played entities.PlayCounts) entities.EffectContext {
	return entities.EffectContext{Side: side, Rates: RatesFor(l, side), Played: played}
}

// CostOf prices card for side against the given ledger.
func CostOf(l *entities.Ledger, card entities.Card, side entities.Side, played entities.PlayCounts) int {
	return card.CostIn(effectContext(l, side, played))
}

// CanBuy combines pricing and Purchasable.
func CanBuy(l *entities.Ledger, card entities.Card, side entities.Side, played entities.PlayCounts) bool {
	if card.Template == nil {
		return false
	}
	return Purchasable(l, CostOf(l, card, side, played), card.Units(), side)
}

// ApplyEffect runs the card effect on side's rates and writes the result back.
func ApplyEffect(l *entities.Ledger, side entities.Side, card entities.Card, played entities.PlayCounts) {
	rates := card.Apply(effectContext(l, side, played))
	for i := range rates.Shared {
		rates.Shared[i] = utils.FiniteOr(rates.Shared[i], 0)
	}
	rates.PrivateGold = utils.FiniteOr(rates.PrivateGold, 0)
	WriteRates(l, side, rates)
}

// BuyHypothetical is the ledger half of a purchase: spend then apply the effect.
// Multipliers, play counters and the replacement draw are left to the caller.
func BuyHypothetical(l *entities.Ledger, card entities.Card, side entities.Side, played entities.PlayCounts) bool {
	if !CanBuy(l, card, side, played) {
		return false
	}
	if !Spend(l, CostOf(l, card, side, played), card.Units(), side) {
		return false
	}
	ApplyEffect(l, side, card, played)
	return true
}

// Advance accrues speed seconds worth of every rate. Shared gains are credited to the
// primary total when positive and to the secondary total when negative; private pools
// only credit their owner, and only for gains.
func Advance(l *entities.Ledger, speed float64) {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return
	}
	for i := range l.Shared {
		delta := l.SharedRates[i] * speed
		l.Shared[i] += delta
		switch {
		case delta > 0:
			l.TotalGained[entities.Primary] += delta
		case delta < 0:
			l.TotalGained[entities.Secondary] += -delta
		}
	}
	for side := range l.PrivateGold {
		delta := l.PrivateGoldRates[side] * speed
		l.PrivateGold[side] += delta
		if delta > 0 {
			l.TotalGained[side] += delta
		}
	}
}

// sanitize coerces anything non-finite that came out of storage.
func sanitize(l *entities.Ledger) {
	for i := range l.Shared {
		l.Shared[i] = utils.FiniteOr(l.Shared[i], 0)
		l.SharedRates[i] = utils.FiniteOr(l.SharedRates[i], 0)
	}
	for side := range l.PrivateGold {
		l.PrivateGold[side] = utils.FiniteOr(l.PrivateGold[side], 0)
		l.PrivateGoldRates[side] = utils.FiniteOr(l.PrivateGoldRates[side], 0)
		l.TotalGained[side] = math.Max(0, utils.FiniteOr(l.TotalGained[side], 0))
	}
}
