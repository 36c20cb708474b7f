package entities

// Ledger is the resource state of a battle, stored from the primary side's point of view.
// It is a plain value: assigning it copies every pool, which is what hypothetical
// simulation relies on.
type Ledger struct {
	Shared      [ResourceCount]float64 `json:"shared"`
	SharedRates [ResourceCount]float64 `json:"sharedRates"`

	// Private pools are indexed by Side and never sign-flipped.
	PrivateGold      [SideCount]float64 `json:"privateGold"`
	PrivateGoldRates [SideCount]float64 `json:"privateGoldRates"`

	// TotalGained only ever grows; the influence model uses it as a denominator.
	TotalGained [SideCount]float64 `json:"totalGained"`

	LastTickMillis int64 `json:"lastTickMillis"`
}

// RateSet is the per-second accrual of one side, expressed in that side's perspective.
// Card effects receive one and return the adjusted set.
type RateSet struct {
	Shared      [ResourceCount]float64
	PrivateGold float64
}

// Add returns a copy with delta added to the shared rate of r.
func (rs RateSet) Add(r Resource, delta float64) RateSet {
	rs.Shared[r] += delta
	return rs
}
