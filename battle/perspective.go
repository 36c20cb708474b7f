package battle

import (
	"math"

	"go-battle/entities"
)

// ViewValue reads a stored shared quantity from side's point of view.
func ViewValue(stored float64, side entities.Side) float64 {
	if side == entities.Secondary {
		return -stored
	}
	return stored
}

// StoreValue is the inverse of ViewValue.
func StoreValue(view float64, side entities.Side) float64 {
	if side == entities.Secondary {
		return -view
	}
	return view
}

// RatesFor returns side's accrual rates in its own perspective.
func RatesFor(l *entities.Ledger, side entities.Side) entities.RateSet {
	var rs entities.RateSet
	for i, r := range l.SharedRates {
		rs.Shared[i] = ViewValue(r, side)
	}
	rs.PrivateGold = l.PrivateGoldRates[side]
	return rs
}

// WriteRates stores rates expressed in side's perspective back into the ledger.
func WriteRates(l *entities.Ledger, side entities.Side, rs entities.RateSet) {
	for i, r := range rs.Shared {
		l.SharedRates[i] = StoreValue(r, side)
	}
	l.PrivateGoldRates[side] = rs.PrivateGold
}

// SharedAvailable is what side could spend from shared pool r right now.
func SharedAvailable(l *entities.Ledger, r entities.Resource, side entities.Side) float64 {
	return math.Max(0, ViewValue(l.Shared[r], side))
}

func PrivateAvailable(l *entities.Ledger, side entities.Side) float64 {
	return math.Max(0, l.PrivateGold[side])
}
