package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types on the wire.
const (
	TypeWelcome      = "welcome"
	TypeError        = "error"
	TypeJoinRoom     = "join-room"
	TypeLeaveRoom    = "leave-room"
	TypeSOSOffer     = "sos-offer"
	TypeSOSSaved     = "sos-saved"
	TypeIncomingSOS  = "incoming-sos"
	TypeCancelSOS    = "cancel-sos"
	TypeSOSCanceled  = "sos-canceled"
	TypeIceCandidate = "ice-candidate"
)

// ResponderRoom is the fixed room every responder session joins.
const ResponderRoom = "responders"

// Envelope is the framing for every message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type RoomRequest struct {
	Room string `json:"room" validate:"required,room_name"`
}

type SOSOffer struct {
	Contact          string  `json:"contact" validate:"omitempty,max=64"`
	Latitude         float64 `json:"latitude" validate:"latitude"`
	Longitude        float64 `json:"longitude" validate:"longitude"`
	CorrelationToken string  `json:"correlation_token,omitempty" validate:"omitempty,max=128"`
}

type SOSSaved struct {
	ID               string `json:"id"`
	CorrelationToken string `json:"correlation_token,omitempty"`
}

type IncomingSOS struct {
	ID        string    `json:"id"`
	Contact   string    `json:"contact"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

type CancelSOS struct {
	ID string `json:"id" validate:"required"`
}

type SOSCanceled struct {
	ID string `json:"id"`
}

// IceCandidate is relayed verbatim; Candidate is never interpreted.
type IceCandidate struct {
	Candidate  json.RawMessage `json:"candidate" validate:"required"`
	TargetRoom string          `json:"target_room" validate:"required,room_name"`
}

type Welcome struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
}

type ErrorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}

// Encode builds a framed message ready to be queued on sessions.
func Encode(msgType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}

	frame, err := json.Marshal(Envelope{Type: msgType, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", msgType, err)
	}

	return frame, nil
}
