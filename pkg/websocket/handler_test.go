package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sosline/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentErr struct{}

func (silentErr) Error() string { return "dropped" }
func (silentErr) Silent() bool  { return true }

// echoEvents joins rooms on the hub and records what it was asked to do.
type echoEvents struct {
	hub          *Hub
	connected    chan *Session
	disconnected chan *Session
	offers       chan *SOSOffer
}

func (e *echoEvents) Connected(s *Session)    { e.connected <- s }
func (e *echoEvents) Disconnected(s *Session) { e.disconnected <- s }
func (e *echoEvents) JoinRoom(_ context.Context, s *Session, room string) error {
	return e.hub.Join(s, room)
}
func (e *echoEvents) LeaveRoom(s *Session, room string) error {
	e.hub.Leave(s, room)
	return nil
}
func (e *echoEvents) Originate(_ context.Context, _ *Session, offer *SOSOffer) error {
	e.offers <- offer
	return silentErr{}
}
func (e *echoEvents) Cancel(context.Context, *Session, string) error {
	return errors.New("nope")
}
func (e *echoEvents) RelayIceCandidate(_ context.Context, s *Session, c *IceCandidate) error {
	frame, err := Encode(TypeIceCandidate, c)
	if err != nil {
		return err
	}
	e.hub.Broadcast(c.TargetRoom, frame, s)
	return nil
}

func setupServer(t *testing.T) (*httptest.Server, *echoEvents) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	events := &echoEvents{
		hub:          hub,
		connected:    make(chan *Session, 4),
		disconnected: make(chan *Session, 4),
		offers:       make(chan *SOSOffer, 4),
	}

	validate := validator.New()
	require.NoError(t, validate.RegisterValidation("room_name", func(fl validator.FieldLevel) bool {
		return fl.Field().String() != ""
	}))

	h := NewHandler(hub, events, Config{SendBufferSize: 16}, validate, logger.Discard())
	h.SetIdentityResolver(func(c *gin.Context) Identity {
		return Identity{UserID: c.Query("user"), Role: c.Query("role")}
	})

	router := gin.New()
	router.GET("/ws", h.HandleWebSocket)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, events
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHandler_RejectsUnauthenticated(t *testing.T) {
	srv, _ := setupServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_WelcomeAndDispatch(t *testing.T) {
	srv, events := setupServer(t)

	a := dial(t, srv, "user=a&role=responder")
	welcome := readEnvelope(t, a)
	assert.Equal(t, TypeWelcome, welcome.Type)

	var w Welcome
	require.NoError(t, json.Unmarshal(welcome.Data, &w))
	assert.Equal(t, "responder", w.Role)
	assert.NotEmpty(t, w.SessionID)
	<-events.connected

	b := dial(t, srv, "user=b")
	readEnvelope(t, b)
	<-events.connected

	// Both join a room, then a relays a candidate into it
	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"type": TypeJoinRoom, "data": map[string]string{"room": "R1"},
		}))
	}
	require.Eventually(t, func() bool {
		return len(events.hub.Members("R1")) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.WriteJSON(map[string]interface{}{
		"type": TypeIceCandidate,
		"data": map[string]interface{}{"candidate": map[string]string{"sdp": "x"}, "target_room": "R1"},
	}))

	relayed := readEnvelope(t, b)
	assert.Equal(t, TypeIceCandidate, relayed.Type)
	assert.JSONEq(t, `{"candidate":{"sdp":"x"},"target_room":"R1"}`, string(relayed.Data))
}

func TestHandler_ErrorReplies(t *testing.T) {
	srv, events := setupServer(t)

	conn := dial(t, srv, "user=a")
	readEnvelope(t, conn)

	// Unknown type
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "bogus"}))
	env := readEnvelope(t, conn)
	assert.Equal(t, TypeError, env.Type)
	var reply ErrorReply
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, "UNKNOWN_TYPE", reply.Code)

	// Validation failure
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": TypeCancelSOS, "data": map[string]string{}}))
	env = readEnvelope(t, conn)
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, "VALIDATION_FAILED", reply.Code)
	assert.Equal(t, TypeCancelSOS, reply.Request)

	// Silent failures produce no reply; the next reply belongs to the next request
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": TypeSOSOffer, "data": map[string]interface{}{"contact": "+1555", "latitude": 1, "longitude": 2},
	}))
	<-events.offers
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": TypeCancelSOS, "data": map[string]string{"id": "x"}}))
	env = readEnvelope(t, conn)
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, "INTERNAL", reply.Code)
	assert.Equal(t, "request failed", reply.Message)
	assert.Equal(t, TypeCancelSOS, reply.Request)
}

func TestHandler_DisconnectDropsSession(t *testing.T) {
	srv, events := setupServer(t)

	conn := dial(t, srv, "user=a")
	readEnvelope(t, conn)
	s := <-events.connected

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": TypeJoinRoom, "data": map[string]string{"room": "R1"},
	}))
	require.Eventually(t, func() bool { return s.InRoom("R1") }, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	select {
	case dropped := <-events.disconnected:
		assert.Equal(t, s.ID, dropped.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not dropped")
	}
	assert.Empty(t, events.hub.Members("R1"))
}
