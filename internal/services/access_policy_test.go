package services_test

import (
	"context"
	"errors"
	"testing"

	"sosline/internal/models"
	"sosline/internal/repositories/interfaces"
	"sosline/internal/services"
	"sosline/mocks"
	"sosline/pkg/websocket"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func TestRoleAccessPolicy(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSOSRepository(ctrl)
	policy := services.NewRoleAccessPolicy([]string{"responder", "dispatcher"}, repo)
	ctx := context.Background()

	responder := websocket.Identity{UserID: "r1", Role: "dispatcher"}
	owner := websocket.Identity{UserID: "c1", Role: "citizen"}
	other := websocket.Identity{UserID: "c2", Role: "citizen"}
	anonymous := websocket.Identity{UserID: "x"}

	owned := primitive.NewObjectID()
	missing := primitive.NewObjectID()
	broken := primitive.NewObjectID()
	repo.EXPECT().FindByID(gomock.Any(), owned).Return(&models.SOSEvent{ID: owned, OriginatorID: "c1"}, nil).Times(2)
	repo.EXPECT().FindByID(gomock.Any(), missing).Return(nil, interfaces.ErrNotFound)
	repo.EXPECT().FindByID(gomock.Any(), broken).Return(nil, errors.New("timeout"))

	assert.True(t, policy.IsResponder(responder))
	assert.False(t, policy.IsResponder(owner))
	assert.False(t, policy.IsResponder(anonymous))

	assert.NoError(t, policy.CanJoin(ctx, responder, websocket.ResponderRoom))
	assert.ErrorIs(t, policy.CanJoin(ctx, owner, websocket.ResponderRoom), services.ErrUnauthorized)

	// Responders join any room without a lookup.
	assert.NoError(t, policy.CanJoin(ctx, responder, owned.Hex()))

	assert.NoError(t, policy.CanJoin(ctx, owner, owned.Hex()))
	assert.ErrorIs(t, policy.CanJoin(ctx, other, owned.Hex()), services.ErrUnauthorized)
	assert.ErrorIs(t, policy.CanJoin(ctx, owner, missing.Hex()), services.ErrNotFound)

	err := policy.CanJoin(ctx, owner, broken.Hex())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrUnauthorized)

	assert.NoError(t, policy.CanJoin(ctx, other, "video-42"))

	assert.NoError(t, policy.CanCancel(ctx, responder, owned.Hex()))
	assert.ErrorIs(t, policy.CanCancel(ctx, owner, owned.Hex()), services.ErrUnauthorized)
}

func TestRoleAccessPolicy_CanRelay(t *testing.T) {
	ctrl := gomock.NewController(t)
	policy := services.NewRoleAccessPolicy([]string{"responder"}, mocks.NewMockSOSRepository(ctrl))
	ctx := context.Background()

	responder := websocket.Identity{UserID: "r1", Role: "responder"}
	rider := websocket.Identity{UserID: "u1", Role: "rider"}

	assert.NoError(t, policy.CanRelay(ctx, rider, "call-1", true))
	assert.ErrorIs(t, policy.CanRelay(ctx, rider, "call-1", false), services.ErrUnauthorized)
	// Membership is required of responders too.
	assert.ErrorIs(t, policy.CanRelay(ctx, responder, "call-1", false), services.ErrUnauthorized)
}
