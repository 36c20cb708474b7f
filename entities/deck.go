package entities

// DeckEntry is one weighted slot of a deck. Probabilities are relative weights and are
// normalized when drawing.
type DeckEntry struct {
	CardID      string  `json:"cardId" yaml:"card" mapstructure:"card"`
	Probability float64 `json:"probability" yaml:"probability" mapstructure:"probability"`
	Level       int     `json:"level" yaml:"level" mapstructure:"level"`
}

type Deck []DeckEntry

// TotalWeight sums every positive probability.
func (d Deck) TotalWeight() float64 {
	total := 0.0
	for _, e := range d {
		if e.Probability > 0 {
			total += e.Probability
		}
	}
	return total
}
