package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"sosline/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// EventHandler receives decoded client requests. Errors returned to the
// handler are turned into an error reply unless they report Silent() true.
type EventHandler interface {
	Connected(s *Session)
	Disconnected(s *Session)
	JoinRoom(ctx context.Context, s *Session, room string) error
	LeaveRoom(s *Session, room string) error
	Originate(ctx context.Context, s *Session, offer *SOSOffer) error
	Cancel(ctx context.Context, s *Session, id string) error
	RelayIceCandidate(ctx context.Context, s *Session, candidate *IceCandidate) error
}

// IdentityResolver extracts the caller identity from an authenticated
// request. A zero UserID means the request is not authenticated.
type IdentityResolver func(c *gin.Context) Identity

type Config struct {
	ReadBufferSize    int
	WriteBufferSize   int
	SendBufferSize    int
	MaxMessageSize    int64
	HandshakeTimeout  time.Duration
	WriteWait         time.Duration
	PongWait          time.Duration
	PingPeriod        time.Duration
	EnableCompression bool
	AllowedOrigins    []string
	RequestTimeout    time.Duration
}

type Handler struct {
	hub      *Hub
	events   EventHandler
	config   Config
	upgrader websocket.Upgrader
	resolve  IdentityResolver
	validate *validator.Validate
	logger   *logger.Logger
}

func NewHandler(hub *Hub, events EventHandler, config Config, validate *validator.Validate, log *logger.Logger) *Handler {
	if config.PongWait <= 0 {
		config.PongWait = 60 * time.Second
	}
	if config.PingPeriod <= 0 || config.PingPeriod >= config.PongWait {
		config.PingPeriod = (config.PongWait * 9) / 10
	}
	if config.WriteWait <= 0 {
		config.WriteWait = 10 * time.Second
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = 16 * 1024
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}

	h := &Handler{
		hub:      hub,
		events:   events,
		config:   config,
		resolve:  ContextIdentity,
		validate: validate,
		logger:   log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:    config.ReadBufferSize,
		WriteBufferSize:   config.WriteBufferSize,
		HandshakeTimeout:  config.HandshakeTimeout,
		EnableCompression: config.EnableCompression,
		CheckOrigin:       h.checkOrigin,
	}

	return h
}

// ContextIdentity reads the identity placed on the gin context by the auth
// middleware.
func ContextIdentity(c *gin.Context) Identity {
	return Identity{
		UserID:  c.GetString("user_id"),
		Role:    c.GetString("user_type"),
		Contact: c.GetString("phone"),
	}
}

func (h *Handler) SetIdentityResolver(resolve IdentityResolver) {
	h.resolve = resolve
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	identity := h.resolve(c)
	if identity.UserID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	session := NewSession(identity, h.config.SendBufferSize)
	session.OnKick(func(reason error) {
		h.logger.WithSessionID(session.ID).WithError(reason).Warn("Disconnecting session")
		conn.Close()
	})
	h.Serve(conn, session)
}

// Serve runs an upgraded connection until it closes. It returns once the
// pumps are started.
func (h *Handler) Serve(conn *websocket.Conn, session *Session) {
	log := h.logger.WithSessionID(session.ID).WithUserID(session.Identity.UserID)
	pump := pumpConfig{
		writeWait:      h.config.WriteWait,
		pongWait:       h.config.PongWait,
		pingPeriod:     h.config.PingPeriod,
		maxMessageSize: h.config.MaxMessageSize,
	}

	h.hub.Register(session)
	go session.writePump(conn, pump)

	h.reply(session, TypeWelcome, Welcome{SessionID: session.ID, Role: session.Identity.Role})
	h.events.Connected(session)
	log.LogSessionEvent(session.ID, session.Identity.UserID, "connected")

	go func() {
		defer func() {
			if h.hub.DropSession(session) {
				h.events.Disconnected(session)
				log.LogSessionEvent(session.ID, session.Identity.UserID, "disconnected")
			}
			conn.Close()
		}()

		session.readPump(conn, pump,
			func(message []byte) { h.dispatch(session, message) },
			func(err error) { log.WithError(err).Warn("WebSocket read failed") },
		)
	}()
}

func (h *Handler) dispatch(s *Session, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
		h.replyError(s, "", &requestError{code: "BAD_REQUEST", message: "malformed message"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.RequestTimeout)
	ctx = context.WithValue(ctx, logger.SessionIDKey, s.ID)
	defer cancel()

	var err error
	switch env.Type {
	case TypeJoinRoom:
		var req RoomRequest
		if err = h.decode(env.Data, &req); err == nil {
			err = h.events.JoinRoom(ctx, s, req.Room)
		}

	case TypeLeaveRoom:
		var req RoomRequest
		if err = h.decode(env.Data, &req); err == nil {
			err = h.events.LeaveRoom(s, req.Room)
		}

	case TypeSOSOffer:
		var offer SOSOffer
		if err = h.decode(env.Data, &offer); err == nil {
			err = h.events.Originate(ctx, s, &offer)
		}

	case TypeCancelSOS:
		var req CancelSOS
		if err = h.decode(env.Data, &req); err == nil {
			err = h.events.Cancel(ctx, s, req.ID)
		}

	case TypeIceCandidate:
		var candidate IceCandidate
		if err = h.decode(env.Data, &candidate); err == nil {
			err = h.events.RelayIceCandidate(ctx, s, &candidate)
		}

	default:
		err = &requestError{code: "UNKNOWN_TYPE", message: "unknown message type " + env.Type}
	}

	if err != nil {
		h.replyError(s, env.Type, err)
	}
}

func (h *Handler) decode(data json.RawMessage, out interface{}) error {
	if len(data) == 0 {
		return &requestError{code: "BAD_REQUEST", message: "missing data"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &requestError{code: "BAD_REQUEST", message: "malformed data"}
	}
	if h.validate != nil {
		if err := h.validate.Struct(out); err != nil {
			return &requestError{code: "VALIDATION_FAILED", message: err.Error()}
		}
	}
	return nil
}

func (h *Handler) reply(s *Session, msgType string, data interface{}) {
	frame, err := Encode(msgType, data)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode reply")
		return
	}
	_ = s.Send(frame)
}

func (h *Handler) replyError(s *Session, request string, err error) {
	if errors.Is(err, ErrSessionClosed) {
		return
	}

	var silent interface{ Silent() bool }
	if errors.As(err, &silent) && silent.Silent() {
		return
	}

	reply := ErrorReply{Code: "INTERNAL", Message: "request failed", Request: request}
	var coded interface {
		error
		Code() string
	}
	if errors.As(err, &coded) {
		reply.Code = coded.Code()
		reply.Message = coded.Error()
	} else {
		h.logger.WithSessionID(s.ID).WithError(err).Errorf("Request %s failed", request)
	}

	h.reply(s, TypeError, reply)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 || lo.Contains(h.config.AllowedOrigins, "*") {
		return true
	}
	return lo.ContainsBy(h.config.AllowedOrigins, func(allowed string) bool {
		return strings.EqualFold(allowed, origin)
	})
}

type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }
func (e *requestError) Code() string  { return e.code }
