package services

import (
	"context"
	"errors"
	"fmt"

	"sosline/internal/repositories/interfaces"
	"sosline/pkg/websocket"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessPolicy decides what an identity may do. Swapping the policy changes
// who may act without touching the engine.
type AccessPolicy interface {
	IsResponder(identity websocket.Identity) bool
	CanJoin(ctx context.Context, identity websocket.Identity, room string) error
	CanCancel(ctx context.Context, identity websocket.Identity, id string) error
	// CanRelay gates signaling traffic into room. inRoom reports whether
	// the sender's session is currently a member of it.
	CanRelay(ctx context.Context, identity websocket.Identity, room string, inRoom bool) error
}

type roleAccessPolicy struct {
	responderRoles []string
	sosRepo        interfaces.SOSRepository
}

// NewRoleAccessPolicy grants responder rights to the listed roles. Event
// rooms are also open to the user who originated the event.
func NewRoleAccessPolicy(responderRoles []string, sosRepo interfaces.SOSRepository) AccessPolicy {
	return &roleAccessPolicy{
		responderRoles: responderRoles,
		sosRepo:        sosRepo,
	}
}

func (p *roleAccessPolicy) IsResponder(identity websocket.Identity) bool {
	return identity.Role != "" && lo.Contains(p.responderRoles, identity.Role)
}

func (p *roleAccessPolicy) CanJoin(ctx context.Context, identity websocket.Identity, room string) error {
	if room == websocket.ResponderRoom {
		if !p.IsResponder(identity) {
			return ErrUnauthorized
		}
		return nil
	}

	if p.IsResponder(identity) {
		return nil
	}

	// Rooms that are not event ids are free-form signaling rooms.
	id, err := primitive.ObjectIDFromHex(room)
	if err != nil {
		return nil
	}

	event, err := p.sosRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to authorize room join: %w", err)
	}

	if event.OriginatorID == "" || event.OriginatorID != identity.UserID {
		return ErrUnauthorized
	}

	return nil
}

func (p *roleAccessPolicy) CanCancel(_ context.Context, identity websocket.Identity, _ string) error {
	if !p.IsResponder(identity) {
		return ErrUnauthorized
	}
	return nil
}

func (p *roleAccessPolicy) CanRelay(_ context.Context, _ websocket.Identity, _ string, inRoom bool) error {
	if !inRoom {
		return ErrUnauthorized
	}
	return nil
}
