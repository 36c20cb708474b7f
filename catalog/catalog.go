// Package catalog loads card templates and starting decks from YAML.
package catalog

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"reflect"

	"go-battle/entities"
	"go-battle/utils"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var defaultCatalog []byte

type effectDef struct {
	Resource entities.Resource `mapstructure:"resource"`
	Private  bool              `mapstructure:"private"`
	Add      float64           `mapstructure:"add"`
	Scale    float64           `mapstructure:"scale"`
}

type cardDef struct {
	ID          string            `mapstructure:"id"`
	Name        string            `mapstructure:"name"`
	CostUnits   entities.Resource `mapstructure:"cost_units"`
	BaseCost    float64           `mapstructure:"base_cost"`
	LevelGrowth float64           `mapstructure:"level_growth"`
	PlayedStep  float64           `mapstructure:"played_step"`
	Level       int               `mapstructure:"level"`
	Experience  int               `mapstructure:"experience"`
	EvolveAt    int               `mapstructure:"evolve_at"`
	Effects     []effectDef       `mapstructure:"effects"`
}

type fileDef struct {
	Cards []cardDef                       `mapstructure:"cards"`
	Decks map[string][]entities.DeckEntry `mapstructure:"decks"`
}

// Catalog is an immutable set of card templates plus one starting deck per side.
type Catalog struct {
	cards map[string]*entities.CardTemplate
	order []string
	decks [entities.SideCount]entities.Deck
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Load(data)
}

// stringToResourceHookFunc lets YAML name resources ("gold", "life", ...).
func stringToResourceHookFunc() mapstructure.DecodeHookFuncType {
	resourceType := reflect.TypeOf(entities.Resource(0))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() == reflect.String && to == resourceType {
			return entities.ParseResource(data.(string))
		}
		return data, nil
	}
}

func Load(data []byte) (*Catalog, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	var def fileDef
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToResourceHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &def,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{cards: make(map[string]*entities.CardTemplate, len(def.Cards))}
	for _, cd := range def.Cards {
		tmpl, err := buildTemplate(cd)
		if err != nil {
			return nil, err
		}
		if _, dup := c.cards[tmpl.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", tmpl.ID)
		}
		c.cards[tmpl.ID] = tmpl
		c.order = append(c.order, tmpl.ID)
	}

	for name, entries := range def.Decks {
		side, err := entities.ParseSide(name)
		if err != nil {
			return nil, fmt.Errorf("deck %q: %w", name, err)
		}
		deck := make(entities.Deck, 0, len(entries))
		for i, e := range entries {
			if _, ok := c.cards[e.CardID]; !ok {
				return nil, fmt.Errorf("deck %s entry %d: unknown card %q", name, i, e.CardID)
			}
			if e.Probability < 0 || e.Probability > 1 || math.IsNaN(e.Probability) {
				return nil, fmt.Errorf("deck %s entry %d: probability %v outside [0,1]", name, i, e.Probability)
			}
			if e.Level < 1 {
				e.Level = 1
			}
			deck = append(deck, e)
		}
		c.decks[side] = deck
	}
	return c, nil
}

func buildTemplate(cd cardDef) (*entities.CardTemplate, error) {
	if cd.ID == "" {
		return nil, fmt.Errorf("card without id")
	}
	if !cd.CostUnits.Valid() {
		return nil, fmt.Errorf("card %s: invalid cost units", cd.ID)
	}
	for i, e := range cd.Effects {
		if !e.Private && !e.Resource.Valid() {
			return nil, fmt.Errorf("card %s effect %d: invalid resource", cd.ID, i)
		}
	}
	if cd.Level < 1 {
		cd.Level = 1
	}
	if cd.LevelGrowth <= 0 {
		cd.LevelGrowth = 1
	}
	name := cd.Name
	if name == "" {
		name = cd.ID
	}
	return &entities.CardTemplate{
		ID:         cd.ID,
		Name:       name,
		CostUnits:  cd.CostUnits,
		Level:      cd.Level,
		Experience: cd.Experience,
		EvolveAt:   cd.EvolveAt,
		Cost:       costFunc(cd),
		Effect:     effectFunc(cd.Effects),
	}, nil
}

// maxCost stands in for costs that overflow or do not compute; nothing can pay it.
const maxCost = math.MaxInt32

func costFunc(cd cardDef) entities.CostFunc {
	return func(card entities.Card, ctx entities.EffectContext) int {
		level := card.Level
		if level < 1 {
			level = 1
		}
		mult := utils.PositiveOr(card.Multiplier, 1)
		played := float64(ctx.Played.Played(ctx.Side, card.ID()))
		raw := cd.BaseCost*math.Pow(cd.LevelGrowth, float64(level-1))*mult + cd.PlayedStep*played
		switch {
		case math.IsNaN(raw) || raw >= maxCost:
			return maxCost
		case raw <= 0:
			return 0
		}
		// repeated multiply/divide leaves values like 5.0000000001
		return int(math.Ceil(raw - 1e-9))
	}
}

func effectFunc(defs []effectDef) entities.EffectFunc {
	return func(card entities.Card, ctx entities.EffectContext) entities.RateSet {
		rates := ctx.Rates
		level := card.Level
		if level < 1 {
			level = 1
		}
		for _, e := range defs {
			target := &rates.PrivateGold
			if !e.Private {
				target = &rates.Shared[e.Resource]
			}
			*target += e.Add * float64(level)
			if e.Scale != 0 {
				*target *= e.Scale
			}
		}
		return rates
	}
}

// ByID looks up a template.
func (c *Catalog) ByID(id string) (*entities.CardTemplate, bool) {
	t, ok := c.cards[id]
	return t, ok
}

// Deck returns a copy of the starting deck for side.
func (c *Catalog) Deck(side entities.Side) entities.Deck {
	return append(entities.Deck(nil), c.decks[side]...)
}

// Templates returns every template in file order.
func (c *Catalog) Templates() []*entities.CardTemplate {
	out := make([]*entities.CardTemplate, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.cards[id])
	}
	return out
}
