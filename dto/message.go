package dto

type MessageType string

const (
	MessageSync     MessageType = "sync"
	MessagePurchase MessageType = "purchase"
	MessageResume   MessageType = "resume"
	MessageResult   MessageType = "result"
	MessageClosed   MessageType = "closed"
	MessageError    MessageType = "error"
)

// ClientMessage is anything a websocket client sends.
type ClientMessage struct {
	Type MessageType `json:"type"`
	Side string      `json:"side,omitempty"`
}

type ServerMessage struct {
	Type      MessageType  `json:"type"`
	BattleID  string       `json:"battleID,omitempty"`
	State     *BattleState `json:"state,omitempty"`
	Purchased *bool        `json:"purchased,omitempty"`
	Message   string       `json:"message,omitempty"`
}
