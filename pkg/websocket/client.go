package websocket

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowConsumer  = errors.New("session outbound queue full")
	ErrShuttingDown  = errors.New("server shutting down")
)

// Identity is who a session acts for. It is fixed at connect time.
type Identity struct {
	UserID  string
	Role    string
	Contact string
}

// Session is one live connection. Its outbound queue is bounded; a session
// that cannot keep up is kicked instead of stalling broadcasters.
type Session struct {
	ID       string
	Identity Identity

	send chan []byte

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool

	kickOnce sync.Once
	onKick   func(reason error)
}

func NewSession(identity Identity, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Session{
		ID:       uuid.NewString(),
		Identity: identity,
		send:     make(chan []byte, queueSize),
		rooms:    make(map[string]struct{}),
	}
}

// Send queues msg without blocking.
func (s *Session) Send(msg []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	select {
	case s.send <- msg:
		s.mu.Unlock()
		return nil
	default:
	}
	s.mu.Unlock()

	s.kick(ErrSlowConsumer)
	return ErrSlowConsumer
}

// OnKick sets the function run (once, asynchronously) when the session is
// forced off: its queue overflowed or the hub is closing. The transport uses
// it to close the connection.
func (s *Session) OnKick(fn func(reason error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onKick = fn
}

// kick reports whether a hook was there to run.
func (s *Session) kick(reason error) bool {
	hooked := false
	s.kickOnce.Do(func() {
		s.mu.Lock()
		fn := s.onKick
		s.mu.Unlock()
		if fn != nil {
			hooked = true
			go fn(reason)
		}
	})
	return hooked
}

// Outbound is drained by the write pump. It is closed by Hub.DropSession.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

func (s *Session) InRoom(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[name]
	return ok
}

func (s *Session) Rooms() []string {
	s.mu.Lock()
	names := lo.Keys(s.rooms)
	s.mu.Unlock()
	sort.Strings(names)
	return names
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type pumpConfig struct {
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
}

// readPump delivers inbound frames to onMessage until the connection fails.
// It always runs on its own goroutine, one per connection, so frames from a
// single client are handled in order.
func (s *Session) readPump(conn *websocket.Conn, cfg pumpConfig, onMessage func([]byte), onError func(error)) {
	conn.SetReadLimit(cfg.maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(cfg.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				onError(err)
			}
			return
		}

		onMessage(message)
	}
}

// writePump writes queued messages one frame each and keeps the connection
// alive with pings. It exits when the queue is closed or a write fails.
func (s *Session) writePump(conn *websocket.Conn, cfg pumpConfig) {
	ticker := time.NewTicker(cfg.pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(cfg.writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(cfg.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
