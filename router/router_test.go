package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-battle/catalog"
	"go-battle/config"
	"go-battle/controller"
	"go-battle/dto"
	"go-battle/repository"
	"go-battle/service"
	"go-battle/ws"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "secret"

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

type testServer struct {
	engine  *gin.Engine
	manager *service.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cat, err := catalog.Default()
	require.NoError(t, err)
	manager := service.NewManager(repository.NewRedisStore(rdb), cat, config.BattleConfig{
		TickInterval:            time.Hour,
		Speed:                   1,
		Seed:                    3,
		StartingPrivateGoldRate: 1,
	}, nil)
	t.Cleanup(manager.Shutdown)

	hub := ws.NewHub(manager, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	r := gin.New()
	InitRouter(r, controller.NewBattleController(manager, nil), hub, token)
	return &testServer{engine: r, manager: manager}
}

func (s *testServer) do(t *testing.T, method, path, body string, authed bool) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) create(t *testing.T) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/battle/create", `{"paused":true}`, true)
	require.Equal(t, http.StatusOK, code, env.Error)
	var resp dto.CreateBattleResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.BattleID)
	return resp.BattleID
}

func TestAuthRequiredOnMutations(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/battle/create", `{"paused":true}`, false)
	assert.Equal(t, http.StatusUnauthorized, code)

	id := s.create(t)
	code, _ = s.do(t, http.MethodDelete, "/battle/"+id, "", false)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/battle/"+id, "", false)
	assert.Equal(t, http.StatusOK, code, "reads are public")
}

func TestBattleLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)

	code, env := s.do(t, http.MethodGet, "/battle/list", "", false)
	require.Equal(t, http.StatusOK, code)
	var list dto.GetBattleList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Battles, 1)
	assert.Equal(t, id, list.Battles[0].BattleID)

	code, env = s.do(t, http.MethodGet, "/battle/"+id, "", false)
	require.Equal(t, http.StatusOK, code)
	var st dto.BattleState
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, id, st.BattleID)
	assert.Len(t, st.Resources, 6)

	code, env = s.do(t, http.MethodPost, "/battle/"+id+"/purchase", "", true)
	require.Equal(t, http.StatusOK, code)
	var pr dto.PurchaseResponse
	require.NoError(t, json.Unmarshal(env.Data, &pr))
	assert.False(t, pr.Purchased)
	require.NotNil(t, pr.State)

	code, _ = s.do(t, http.MethodPost, "/battle/"+id+"/purchase", `{"side":"nobody"}`, true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodDelete, "/battle/"+id, "", true)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/battle/"+id, "", false)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSpeedEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)

	code, _ := s.do(t, http.MethodPut, "/battle/"+id+"/speed", `{"speed":-1}`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPut, "/battle/"+id+"/speed", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPut, "/battle/"+id+"/speed", `{"speed":0}`, true)
	assert.Equal(t, http.StatusOK, code, "zero pauses accrual")
	code, _ = s.do(t, http.MethodPut, "/battle/"+id+"/speed", `{"speed":3}`, true)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPut, "/battle/nope/speed", `{"speed":3}`, true)
	assert.Equal(t, http.StatusNotFound, code)

	assert.Equal(t, 3.0, s.manager.List()[0].Speed)
}

func TestResumeEndpointStartsLoop(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)

	code, _ := s.do(t, http.MethodPost, "/battle/"+id+"/resume", "", true)
	require.Equal(t, http.StatusOK, code)
	svc, err := s.manager.Battle(id)
	require.NoError(t, err)
	assert.True(t, svc.Running())
}

func readUntil(t *testing.T, conn *websocket.Conn, want dto.MessageType) dto.ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg dto.ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func TestWebSocketFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(base+"/ws?battleID=nope", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws?battleID="+id, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readUntil(t, conn, dto.MessageSync)
	require.NotNil(t, first.State)
	assert.Equal(t, id, first.State.BattleID)

	require.NoError(t, conn.WriteJSON(dto.ClientMessage{Type: dto.MessagePurchase}))
	result := readUntil(t, conn, dto.MessageResult)
	require.NotNil(t, result.Purchased)
	assert.False(t, *result.Purchased)

	require.NoError(t, conn.WriteJSON(dto.ClientMessage{Type: "bogus"}))
	bad := readUntil(t, conn, dto.MessageError)
	assert.Contains(t, bad.Message, "bogus")

	five := 5.0
	require.NoError(t, s.manager.Tick(context.Background(), id, &five))
	var synced dto.ServerMessage
	for {
		synced = readUntil(t, conn, dto.MessageSync)
		if synced.State.Primary.PrivateGold == 5 {
			break
		}
	}
	assert.Equal(t, 5.0, synced.State.Primary.PrivateGold)

	require.NoError(t, s.manager.Delete(context.Background(), id))
	closed := readUntil(t, conn, dto.MessageClosed)
	assert.Equal(t, id, closed.BattleID)
}
