package service

import (
	"go-battle/battle"
	"go-battle/dto"
	"go-battle/entities"
)

func toCardView(card *entities.Card, cost int, affordable bool) *dto.CardView {
	if card == nil {
		return nil
	}
	return &dto.CardView{
		CardID:     card.ID(),
		Name:       card.Template.Name,
		Units:      card.Units().String(),
		Level:      card.Level,
		Experience: card.Experience,
		Multiplier: card.Multiplier,
		Cost:       cost,
		Affordable: affordable,
	}
}

func toSideView(v battle.View, side entities.Side) dto.SideView {
	return dto.SideView{
		PrivateGold:     v.Ledger.PrivateGold[side],
		PrivateGoldRate: v.Ledger.PrivateGoldRates[side],
		TotalGained:     v.Ledger.TotalGained[side],
		Card:            toCardView(v.Cards[side], v.Costs[side], v.Affordable[side]),
	}
}

func toBattleState(id string, speed float64, v battle.View) dto.BattleState {
	resources := make(map[string]dto.ResourceView, entities.ResourceCount)
	for _, r := range entities.Resources() {
		resources[r.String()] = dto.ResourceView{
			Amount: v.Ledger.Shared[r],
			Rate:   v.Ledger.SharedRates[r],
		}
	}
	return dto.BattleState{
		BattleID:    id,
		Running:     v.Running,
		Speed:       speed,
		LastTick:    v.Ledger.LastTickMillis,
		Influence:   v.Influence,
		CanPurchase: v.CanPurchase,
		Resources:   resources,
		Primary:     toSideView(v, entities.Primary),
		Secondary:   toSideView(v, entities.Secondary),
		Opponent: dto.OpponentView{
			Action:  v.Decision.Action.String(),
			Wait:    v.Decision.Wait,
			Draw:    v.Decision.Draw,
			Play:    v.Decision.Play,
			CanPlay: v.Decision.CanPlay,
		},
	}
}
