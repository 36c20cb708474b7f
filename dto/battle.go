package dto

import "go-battle/entities"

type CreateBattleRequest struct {
	// Speed overrides battle.speed from the config when set.
	Speed *float64 `json:"speed" binding:"omitempty,gte=0"`
	// Paused creates the battle without starting its tick loop.
	Paused bool `json:"paused"`
}

type CreateBattleResponse struct {
	BattleID string `json:"battleID"`
}

type GetBattleList struct {
	Battles []entities.BattleInfo `json:"battles"`
}

type PurchaseRequest struct {
	Side string `json:"side"` // "primary" when empty
}

type PurchaseResponse struct {
	Purchased bool         `json:"purchased"`
	State     *BattleState `json:"state,omitempty"`
}

type SpeedRequest struct {
	Speed *float64 `json:"speed" binding:"required,gte=0"`
}

type ResourceView struct {
	Amount float64 `json:"amount"` // positive favours primary
	Rate   float64 `json:"rate"`
}

type CardView struct {
	CardID     string  `json:"cardID"`
	Name       string  `json:"name"`
	Units      string  `json:"units"`
	Level      int     `json:"level"`
	Experience int     `json:"experience"`
	Multiplier float64 `json:"multiplier"`
	Cost       int     `json:"cost"`
	Affordable bool    `json:"affordable"`
}

type SideView struct {
	PrivateGold     float64   `json:"privateGold"`
	PrivateGoldRate float64   `json:"privateGoldRate"`
	TotalGained     float64   `json:"totalGained"`
	Card            *CardView `json:"card"`
}

type OpponentView struct {
	Action  string  `json:"action"`
	Wait    float64 `json:"wait"`
	Draw    float64 `json:"draw"`
	Play    float64 `json:"play"`
	CanPlay bool    `json:"canPlay"`
}

// BattleState is the primary-perspective picture sent to clients.
type BattleState struct {
	BattleID    string                  `json:"battleID"`
	Running     bool                    `json:"running"`
	Speed       float64                 `json:"speed"`
	LastTick    int64                   `json:"lastTick"`
	Influence   float64                 `json:"influence"`
	CanPurchase bool                    `json:"canPurchase"`
	Resources   map[string]ResourceView `json:"resources"`
	Primary     SideView                `json:"primary"`
	Secondary   SideView                `json:"secondary"`
	Opponent    OpponentView            `json:"opponent"`
}
