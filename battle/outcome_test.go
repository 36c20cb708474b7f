package battle

import (
	"math"
	"testing"

	"go-battle/entities"

	"github.com/stretchr/testify/assert"
)

func TestInfluenceNeutral(t *testing.T) {
	assert.Equal(t, 0.5, Influence(entities.Ledger{}))
}

func TestInfluenceFormula(t *testing.T) {
	var l entities.Ledger
	l.Shared[entities.Gold] = 10
	l.Shared[entities.Antimatter] = -4
	l.PrivateGold[entities.Primary] = 1
	l.PrivateGold[entities.Secondary] = 2
	l.SharedRates[entities.Gold] = 0.01
	l.SharedRates[entities.Death] = -0.02
	l.PrivateGoldRates[entities.Primary] = 0.005
	l.PrivateGoldRates[entities.Secondary] = -0.1
	l.TotalGained[entities.Primary] = 50
	l.TotalGained[entities.Secondary] = 30

	playerOnHand := 10.0 + 1
	oppOnHand := 2.0 + 4
	playerHour := 3600 * (0.01 + 0.005)
	oppHour := 3600 * 0.02
	want := 0.5 + playerOnHand/(30+1+oppHour) - oppOnHand/(50+1+playerHour)

	assert.InDelta(t, want, Influence(l), 1e-12)
}

func TestInfluenceNonFinite(t *testing.T) {
	var l entities.Ledger
	l.Shared[entities.Gold] = math.Inf(1)
	assert.Equal(t, 0.5, Influence(l))

	l = entities.Ledger{}
	l.PrivateGold[entities.Secondary] = math.NaN()
	assert.Equal(t, 0.5, Influence(l))
}

func TestNextScheduleStep(t *testing.T) {
	cases := map[int]int{1: 2, 2: 3, 9: 10, 10: 11, 11: 12, 20: 22, 100: 110}
	for in, want := range cases {
		assert.Equal(t, want, nextScheduleStep(in), "t=%d", in)
	}
}

func TestPredictOutcomeDecided(t *testing.T) {
	var l entities.Ledger
	l.PrivateGold[entities.Secondary] = 0.5
	assert.Equal(t, 1.0, PredictOutcome(l))

	l = entities.Ledger{}
	l.PrivateGold[entities.Primary] = 0.5
	assert.Equal(t, -1.0, PredictOutcome(l))
}

func TestPredictOutcomeUnresolved(t *testing.T) {
	assert.Equal(t, 0.0, PredictOutcome(entities.Ledger{}))
}

func TestPredictOutcomeSign(t *testing.T) {
	// 0.25 per second crosses the 0.5 margin on the second scheduled step
	var l entities.Ledger
	l.PrivateGoldRates[entities.Primary] = 0.25
	assert.Equal(t, -0.5, PredictOutcome(l))

	var m entities.Ledger
	m.PrivateGoldRates[entities.Secondary] = 0.25
	assert.Equal(t, 0.5, PredictOutcome(m))
}

func TestPredictOutcomeDoesNotMutate(t *testing.T) {
	var l entities.Ledger
	l.SharedRates[entities.Life] = 3
	before := l
	PredictOutcome(l)
	assert.Equal(t, before, l)
}

// winner adds enough secondary private gold on the first simulated second to end the game.
var winner = fixedCard("winner", entities.Gold, 0, entities.RateSet{PrivateGold: 10})

func TestSelectActionPlaysWinningCard(t *testing.T) {
	card := Materialize(winner, 1, 1)
	d := SelectAction(Position{Current: &card})
	assert.Equal(t, ActionPlay, d.Action)
	assert.True(t, d.CanPlay)
	assert.Equal(t, 1.0, d.Play)
	assert.Equal(t, 0.0, d.Wait)
	assert.Equal(t, 0.0, d.Draw)
}

func TestSelectActionNeverPlaysUnaffordable(t *testing.T) {
	dear := fixedCard("dear_winner", entities.Gold, 5, entities.RateSet{PrivateGold: 10})
	card := Materialize(dear, 1, 1)

	var l entities.Ledger
	l.Shared[entities.Gold] = -2 // secondary holds 2
	l.PrivateGold[entities.Secondary] = 2
	d := SelectAction(Position{Ledger: l, Current: &card})
	assert.NotEqual(t, ActionPlay, d.Action)
	assert.False(t, d.CanPlay)
}

func TestSelectActionTieBreaks(t *testing.T) {
	inert := Materialize(fixedCard("inert", entities.Gold, 0, entities.RateSet{}), 1, 1)

	d := SelectAction(Position{Current: &inert})
	assert.Equal(t, ActionPlay, d.Action, "play wins a three-way tie")

	d = SelectAction(Position{})
	assert.Equal(t, ActionDraw, d.Action, "draw beats wait on a tie")
	assert.False(t, d.CanPlay)
}

func TestDrawValueWeighted(t *testing.T) {
	good := Materialize(winner, 1, 1)
	inert := Materialize(fixedCard("inert", entities.Gold, 0, entities.RateSet{}), 1, 1)
	p := Position{Candidates: []Candidate{
		{Card: good, Probability: 1},
		{Card: inert, Probability: 3},
		{Card: good, Probability: 0},
	}}
	assert.InDelta(t, 0.25, DrawValue(p), 1e-12)

	d := SelectAction(p)
	assert.Equal(t, ActionDraw, d.Action)
}

func TestDrawValueFallsBackToWait(t *testing.T) {
	var l entities.Ledger
	l.PrivateGoldRates[entities.Secondary] = 0.001
	p := Position{Ledger: l, Candidates: []Candidate{{Card: Materialize(winner, 1, 1), Probability: 0}}}
	assert.Equal(t, WaitValue(p), DrawValue(p))
}

func TestPlayValueUnaffordableScoresUntouchedLedger(t *testing.T) {
	dear := Materialize(fixedCard("dear", entities.Life, 3, entities.RateSet{PrivateGold: 10}), 1, 1)
	var l entities.Ledger
	l.PrivateGoldRates[entities.Primary] = 0.001
	assert.Equal(t, PredictOutcome(l), PlayValue(l, dear, entities.Secondary, nil))
}

func TestActionText(t *testing.T) {
	b, err := ActionPlay.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "play", string(b))
	assert.Equal(t, "wait", ActionWait.String())
	assert.Equal(t, "draw", ActionDraw.String())
	assert.Equal(t, "action(9)", Action(9).String())
}
