package battle

import (
	"fmt"

	"go-battle/entities"
)

// pickEntry maps a uniform roll in [0,1) to a deck index, or -1 for an empty or
// weightless deck. The scan is inclusive: the first entry whose cumulative weight
// reaches the scaled roll wins.
func pickEntry(deck entities.Deck, roll float64) int {
	total := deck.TotalWeight()
	if len(deck) == 0 || total <= 0 {
		return -1
	}
	target := roll * total
	acc := 0.0
	for i, e := range deck {
		if e.Probability <= 0 {
			continue
		}
		acc += e.Probability
		if target <= acc {
			return i
		}
	}
	// rounding left target just above the final sum
	for i := len(deck) - 1; i >= 0; i-- {
		if deck[i].Probability > 0 {
			return i
		}
	}
	return -1
}

// Materialize fixes a template at level with the experience that level starts at.
func Materialize(tmpl *entities.CardTemplate, level int, multiplier float64) entities.Card {
	if level < 1 {
		level = 1
	}
	step := tmpl.EvolveAt
	if step < 1 {
		step = 1
	}
	return entities.Card{Template: tmpl}.CopyWith(level, (level-1)*step, multiplier)
}

// Draw picks one card from deck. multiplier supplies the drawing side's current value for
// a card id. A nil card with nil error means the deck had nothing to draw.
func Draw(deck entities.Deck, rng RandomSource, templates TemplateSource, multiplier func(cardID string) (float64, error)) (*entities.Card, error) {
	idx := pickEntry(deck, rng.Float64())
	if idx < 0 {
		return nil, nil
	}
	entry := deck[idx]
	tmpl, ok := templates.ByID(entry.CardID)
	if !ok {
		return nil, fmt.Errorf("deck references unknown card %q", entry.CardID)
	}
	mult, err := multiplier(entry.CardID)
	if err != nil {
		return nil, err
	}
	card := Materialize(tmpl, entry.Level, mult)
	return &card, nil
}
