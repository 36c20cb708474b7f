package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go-battle/battle"
	"go-battle/dto"
	"go-battle/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // one writer at a time
}

func (c *client) send(msg dto.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Hub keeps the websocket connections of every battle and pushes a fresh state to them
// after each change the manager reports.
type Hub struct {
	manager  *service.Manager
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string][]*client

	dirtyMu sync.Mutex
	dirty   map[string]struct{}
	wake    chan struct{}
}

func NewHub(manager *service.Manager, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: make(map[string][]*client),
		dirty: make(map[string]struct{}),
		wake:  make(chan struct{}, 1),
	}
	manager.OnChange(h.markDirty)
	return h
}

// markDirty runs inside battle operations, so it only records the id and wakes Run.
func (h *Hub) markDirty(battleID string, _ battle.Event) {
	h.dirtyMu.Lock()
	h.dirty[battleID] = struct{}{}
	h.dirtyMu.Unlock()
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Hub) takeDirty() []string {
	h.dirtyMu.Lock()
	defer h.dirtyMu.Unlock()
	ids := make([]string, 0, len(h.dirty))
	for id := range h.dirty {
		ids = append(ids, id)
	}
	h.dirty = make(map[string]struct{})
	return ids
}

// Run broadcasts changed battles until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.wake:
			for _, id := range h.takeDirty() {
				h.Broadcast(ctx, id)
			}
		}
	}
}

func (h *Hub) join(battleID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rooms[battleID] = append(h.rooms[battleID], c)
}

func (h *Hub) leave(battleID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.rooms[battleID]
	kept := list[:0]
	for _, pc := range list {
		if pc != c {
			kept = append(kept, pc)
		}
	}
	if len(kept) == 0 {
		delete(h.rooms, battleID)
	} else {
		h.rooms[battleID] = kept
	}
}

func (h *Hub) clients(battleID string) []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*client(nil), h.rooms[battleID]...)
}

// Connections reports how many sockets watch battleID.
func (h *Hub) Connections(battleID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[battleID])
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string][]*client)
	h.mu.Unlock()
	for _, list := range rooms {
		for _, c := range list {
			c.conn.Close()
		}
	}
}

func (h *Hub) stateMessage(ctx context.Context, battleID string) (dto.ServerMessage, error) {
	st, err := h.manager.State(ctx, battleID)
	if errors.Is(err, service.ErrBattleNotFound) {
		return dto.ServerMessage{Type: dto.MessageClosed, BattleID: battleID, Message: "battle deleted"}, nil
	}
	if err != nil {
		return dto.ServerMessage{}, err
	}
	return dto.ServerMessage{Type: dto.MessageSync, BattleID: battleID, State: &st}, nil
}

// Broadcast sends the current state to every connection of battleID, dropping the ones
// that fail. Watchers of a deleted battle get a closed message and are disconnected.
func (h *Hub) Broadcast(ctx context.Context, battleID string) {
	conns := h.clients(battleID)
	if len(conns) == 0 {
		return
	}
	msg, err := h.stateMessage(ctx, battleID)
	if err != nil {
		h.logger.Error("build battle state failed", zap.String("battle_id", battleID), zap.Error(err))
		return
	}

	for _, c := range conns {
		if err := c.send(msg); err != nil || msg.Type == dto.MessageClosed {
			if err != nil {
				h.logger.Warn("broadcast failed, dropping connection", zap.String("battle_id", battleID), zap.String("client_id", c.id), zap.Error(err))
			}
			h.leave(battleID, c)
			c.conn.Close()
		}
	}
}

// HandleWebSocket attaches a client to ?battleID=... and serves its messages.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	battleID := c.Query("battleID")
	if battleID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "battleID is required"})
		return
	}
	if _, err := h.manager.Battle(battleID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	cl := &client{id: uuid.New().String(), conn: conn}
	h.join(battleID, cl)
	defer func() {
		h.leave(battleID, cl)
		conn.Close()
	}()

	logger := h.logger.With(zap.String("battle_id", battleID), zap.String("client_id", cl.id))
	logger.Info("client joined", zap.Int("connections", h.Connections(battleID)))

	ctx := c.Request.Context()
	if msg, err := h.stateMessage(ctx, battleID); err == nil {
		_ = cl.send(msg)
	}
	h.listen(ctx, battleID, cl, logger)
	logger.Info("client left")
}

func (h *Hub) listen(ctx context.Context, battleID string, cl *client, logger *zap.Logger) {
	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("read failed", zap.Error(err))
			}
			return
		}
		var msg dto.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = cl.send(dto.ServerMessage{Type: dto.MessageError, BattleID: battleID, Message: "malformed message"})
			continue
		}
		handler, found := messageHandlers[msg.Type]
		if !found {
			logger.Debug("unknown message type", zap.String("type", string(msg.Type)))
			_ = cl.send(dto.ServerMessage{Type: dto.MessageError, BattleID: battleID, Message: "unknown message type: " + string(msg.Type)})
			continue
		}
		if err := handler(ctx, h, battleID, cl, msg); err != nil {
			logger.Warn("message failed", zap.String("type", string(msg.Type)), zap.Error(err))
			_ = cl.send(dto.ServerMessage{Type: dto.MessageError, BattleID: battleID, Message: err.Error()})
		}
	}
}
