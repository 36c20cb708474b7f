package ws

import (
	"context"

	"go-battle/dto"
	"go-battle/entities"
)

type messageHandler func(ctx context.Context, h *Hub, battleID string, cl *client, msg dto.ClientMessage) error

var messageHandlers = map[dto.MessageType]messageHandler{
	dto.MessagePurchase: handlePurchaseMessage,
	dto.MessageResume:   handleResumeMessage,
	dto.MessageSync:     handleSyncMessage,
}

func handlePurchaseMessage(ctx context.Context, h *Hub, battleID string, cl *client, msg dto.ClientMessage) error {
	side := entities.Primary
	if msg.Side != "" {
		var err error
		if side, err = entities.ParseSide(msg.Side); err != nil {
			return err
		}
	}
	ok, err := h.manager.Purchase(ctx, battleID, side)
	if err != nil {
		return err
	}
	return cl.send(dto.ServerMessage{Type: dto.MessageResult, BattleID: battleID, Purchased: &ok})
}

func handleResumeMessage(ctx context.Context, h *Hub, battleID string, _ *client, _ dto.ClientMessage) error {
	return h.manager.Resume(ctx, battleID)
}

// handleSyncMessage answers only the asking client.
func handleSyncMessage(ctx context.Context, h *Hub, battleID string, cl *client, _ dto.ClientMessage) error {
	msg, err := h.stateMessage(ctx, battleID)
	if err != nil {
		return err
	}
	return cl.send(msg)
}
