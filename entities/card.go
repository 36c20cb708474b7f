package entities

import "fmt"

// CostFunc prices a card instance. The result is in whole units of the template's CostUnits.
type CostFunc func(card Card, ctx EffectContext) int

// EffectFunc turns the purchaser's current rates into the rates after the card is played.
type EffectFunc func(card Card, ctx EffectContext) RateSet

// CardTemplate is the read-only catalog definition of a card.
type CardTemplate struct {
	ID         string
	Name       string
	CostUnits  Resource
	Level      int
	Experience int
	EvolveAt   int
	Cost       CostFunc
	Effect     EffectFunc
}

// Card is a materialized template: a level, the experience at that level and the cost
// multiplier that was current for the drawing side when it was read.
type Card struct {
	Template   *CardTemplate
	Level      int
	Experience int
	Multiplier float64
}

func (c Card) ID() string {
	if c.Template == nil {
		return ""
	}
	return c.Template.ID
}

func (c Card) Units() Resource {
	return c.Template.CostUnits
}

// CopyWith returns the same card with the given level, experience and multiplier.
func (c Card) CopyWith(level, experience int, multiplier float64) Card {
	c.Level = level
	c.Experience = experience
	c.Multiplier = multiplier
	return c
}

func (c Card) CostIn(ctx EffectContext) int {
	if c.Template == nil || c.Template.Cost == nil {
		return 0
	}
	return c.Template.Cost(c, ctx)
}

func (c Card) Apply(ctx EffectContext) RateSet {
	if c.Template == nil || c.Template.Effect == nil {
		return ctx.Rates
	}
	return c.Template.Effect(c, ctx)
}

func (c Card) Snapshot() CardSnapshot {
	return CardSnapshot{CardID: c.ID(), Level: c.Level, Experience: c.Experience}
}

func (c Card) String() string {
	return fmt.Sprintf("%s@L%d x%.3f", c.ID(), c.Level, c.Multiplier)
}

// CardSnapshot is the persisted form of a side's current card. The multiplier is
// deliberately absent; it is re-read from the multiplier ledger every time.
type CardSnapshot struct {
	CardID     string `json:"cardId"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
}

// EffectContext is everything a cost or effect function may look at.
type EffectContext struct {
	Side   Side
	Rates  RateSet
	Played PlayCounts
}

// PlayCounts counts successful purchases per side and card.
type PlayCounts map[string]int

func playKey(side Side, cardID string) string {
	return side.String() + ":" + cardID
}

func (p PlayCounts) Played(side Side, cardID string) int {
	if p == nil {
		return 0
	}
	return p[playKey(side, cardID)]
}

func (p PlayCounts) Increment(side Side, cardID string) {
	p[playKey(side, cardID)]++
}

func (p PlayCounts) Clone() PlayCounts {
	out := make(PlayCounts, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
