package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SOSState is derived from the Active flag; only two states are persisted.
type SOSState string

const (
	SOSStateCreated  SOSState = "created"
	SOSStateCanceled SOSState = "canceled"
)

// SOSEvent is the single authoritative record for one originated emergency.
// Active flips from true to false exactly once and is never set back.
type SOSEvent struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OriginatorID      string             `json:"originator_id,omitempty" bson:"originator_id,omitempty"`
	OriginatorContact string             `json:"originator_contact" bson:"originator_contact"`
	Latitude          float64            `json:"latitude" bson:"latitude"`
	Longitude         float64            `json:"longitude" bson:"longitude"`
	Active            bool               `json:"active" bson:"active"`
	VideoPath         string             `json:"video_path,omitempty" bson:"video_path,omitempty"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	CanceledAt        *time.Time         `json:"canceled_at,omitempty" bson:"canceled_at,omitempty"`
	CanceledBy        string             `json:"canceled_by,omitempty" bson:"canceled_by,omitempty"`
}

func (e *SOSEvent) State() SOSState {
	if e.Active {
		return SOSStateCreated
	}
	return SOSStateCanceled
}

// HasLocation reports whether the originator supplied coordinates.
func (e *SOSEvent) HasLocation() bool {
	return e.Latitude != 0 || e.Longitude != 0
}

// SOSPage is one page of history, newest first.
type SOSPage struct {
	Events []*SOSEvent `json:"events"`
	Total  int64       `json:"total"`
}
