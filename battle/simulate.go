package battle

import (
	"math"

	"go-battle/entities"
)

// Lookahead schedule. These are tuning values, not derived ones.
const (
	scheduleGrowth   = 1.1
	scheduleDivisor  = 11
	lookaheadHorizon = 365 * 24 * 3600 // seconds
)

// nextScheduleStep grows t by 10%, always by at least one.
func nextScheduleStep(t int) int {
	n := int(math.Floor(float64(t) * scheduleGrowth))
	if n <= t {
		n = t + 1
	}
	return n
}

// PredictOutcome fast-forwards a copy of l until influence leaves (0,1). It returns 1/t
// when the secondary side wins at step t, -1/t when the primary side does and 0 when
// nothing resolves within a simulated year. A ledger that is already decided scores ±1.
func PredictOutcome(l entities.Ledger) float64 {
	inf := Influence(l)
	if inf <= 0 {
		return 1
	}
	if inf >= 1 {
		return -1
	}

	elapsed := 0.0
	for t := 1; elapsed < lookaheadHorizon; t = nextScheduleStep(t) {
		step := math.Ceil(float64(t) / scheduleDivisor)
		Advance(&l, step)
		elapsed += step

		inf = Influence(l)
		if inf <= 0 {
			return 1 / float64(t)
		}
		if inf >= 1 {
			return -1 / float64(t)
		}
	}
	return 0
}
