package entities

type BattleStatus string

const (
	BattleStatusRunning BattleStatus = "running"
	BattleStatusStopped BattleStatus = "stopped"
)

// BattleInfo is the registry record of a battle.
type BattleInfo struct {
	BattleID  string       `json:"battleID"`
	Status    BattleStatus `json:"status"`
	Speed     float64      `json:"speed"`
	CreatedAt int64        `json:"createdAt"`
}
