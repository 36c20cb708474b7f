package battle

import (
	"fmt"

	"go-battle/entities"
)

// The computer always plays the secondary side.
const opponentSide = entities.Secondary

type Action int

const (
	ActionWait Action = iota
	ActionDraw
	ActionPlay
)

func (a Action) String() string {
	switch a {
	case ActionWait:
		return "wait"
	case ActionDraw:
		return "draw"
	case ActionPlay:
		return "play"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Candidate is a card the opponent could draw next, with its deck weight.
type Candidate struct {
	Card        entities.Card
	Probability float64
}

// Position is everything the opponent scores against. Ledger is a private copy.
type Position struct {
	Ledger     entities.Ledger
	Current    *entities.Card
	Candidates []Candidate
	Played     entities.PlayCounts
}

// Decision records the chosen action and the scores behind it. Play is only
// meaningful when CanPlay is set.
type Decision struct {
	Action  Action  `json:"action"`
	Wait    float64 `json:"wait"`
	Draw    float64 `json:"draw"`
	Play    float64 `json:"play"`
	CanPlay bool    `json:"canPlay"`
}

func WaitValue(p Position) float64 {
	return PredictOutcome(p.Ledger)
}

// PlayValue scores buying card for side on a copy of l. If the purchase cannot go
// through the untouched copy is scored.
func PlayValue(l entities.Ledger, card entities.Card, side entities.Side, played entities.PlayCounts) float64 {
	BuyHypothetical(&l, card, side, played)
	return PredictOutcome(l)
}

// DrawValue is the weight-averaged PlayValue over everything the deck could produce.
func DrawValue(p Position) float64 {
	total, sum := 0.0, 0.0
	for _, c := range p.Candidates {
		if c.Probability <= 0 {
			continue
		}
		total += c.Probability
		sum += c.Probability * PlayValue(p.Ledger, c.Card, opponentSide, p.Played)
	}
	if total <= 0 {
		return WaitValue(p)
	}
	return sum / total
}

// SelectAction picks the best-scoring action. Equal scores prefer play, then draw.
// Play is never chosen for a card the opponent cannot afford.
func SelectAction(p Position) Decision {
	d := Decision{Wait: WaitValue(p), Draw: DrawValue(p)}

	d.Action = ActionWait
	best := d.Wait
	if d.Draw >= best {
		d.Action = ActionDraw
		best = d.Draw
	}
	if p.Current != nil && CanBuy(&p.Ledger, *p.Current, opponentSide, p.Played) {
		d.CanPlay = true
		d.Play = PlayValue(p.Ledger, *p.Current, opponentSide, p.Played)
		if d.Play >= best {
			d.Action = ActionPlay
		}
	}
	return d
}
