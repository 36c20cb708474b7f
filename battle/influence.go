package battle

import (
	"math"

	"go-battle/entities"
	"go-battle/utils"
)

// Influence estimates who is ahead: 0 and below is a secondary win, 1 and above a
// primary win. Each side's holdings are weighed against the other's lifetime gains plus
// an hour of its current income. The two terms are deliberately not symmetric.
// Callers clamp the result.
func Influence(l entities.Ledger) float64 {
	var posShared, negShared, posRate, negRate float64
	for i := range l.Shared {
		posShared += math.Max(0, l.Shared[i])
		negShared += math.Min(0, l.Shared[i])
		posRate += math.Max(0, l.SharedRates[i])
		negRate += math.Min(0, l.SharedRates[i])
	}

	playerOnHand := posShared + l.PrivateGold[entities.Primary]
	oppOnHand := l.PrivateGold[entities.Secondary] + math.Abs(negShared)

	playerHourGain := 3600 * (posRate + math.Max(0, l.PrivateGoldRates[entities.Primary]))
	oppHourGain := 3600 * (math.Abs(negRate) + math.Max(0, l.PrivateGoldRates[entities.Secondary]))

	oppDenom := utils.FiniteOr(l.TotalGained[entities.Secondary]+1+oppHourGain, 1)
	playerDenom := utils.FiniteOr(l.TotalGained[entities.Primary]+1+playerHourGain, 1)

	return utils.FiniteOr(0.5+playerOnHand/oppDenom-oppOnHand/playerDenom, 0.5)
}
