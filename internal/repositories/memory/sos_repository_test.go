package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"sosline/internal/models"
	"sosline/internal/repositories/interfaces"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSOSRepository_CreateAssignsIdentity(t *testing.T) {
	req := require.New(t)
	repo := NewSOSRepository()
	ctx := context.Background()

	ev := &models.SOSEvent{OriginatorContact: "+15551234567", Latitude: 10, Longitude: 20}
	req.NoError(repo.Create(ctx, ev))

	req.False(ev.ID.IsZero())
	req.True(ev.Active)
	req.False(ev.CreatedAt.IsZero())

	stored, err := repo.FindByID(ctx, ev.ID)
	req.NoError(err)
	req.Equal(ev.OriginatorContact, stored.OriginatorContact)
}

func TestSOSRepository_SetCanceled_OnlyOnce(t *testing.T) {
	req := require.New(t)
	repo := NewSOSRepository()
	ctx := context.Background()

	ev := &models.SOSEvent{OriginatorContact: "+15551234567"}
	req.NoError(repo.Create(ctx, ev))

	// Given many responders cancel the same event concurrently
	var wg sync.WaitGroup
	var wins, notFound atomic.Int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.SetCanceled(ctx, ev.ID, "responder")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, interfaces.ErrNotFound):
				notFound.Add(1)
			}
		}()
	}
	wg.Wait()

	// Then exactly one of them observed the active record
	req.Equal(int32(1), wins.Load())
	req.Equal(int32(31), notFound.Load())

	stored, err := repo.FindByID(ctx, ev.ID)
	req.NoError(err)
	req.False(stored.Active)
	req.NotNil(stored.CanceledAt)

	active, err := repo.FindActive(ctx)
	req.NoError(err)
	req.Empty(active)
}

func TestSOSRepository_SetCanceled_Unknown(t *testing.T) {
	repo := NewSOSRepository()

	_, err := repo.SetCanceled(context.Background(), primitive.NewObjectID(), "responder")
	require.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestSOSRepository_FindPage_NewestFirst(t *testing.T) {
	req := require.New(t)
	repo := NewSOSRepository()
	ctx := context.Background()

	var ids []primitive.ObjectID
	for i := 0; i < 5; i++ {
		ev := &models.SOSEvent{OriginatorContact: "+1555000000"}
		req.NoError(repo.Create(ctx, ev))
		ids = append(ids, ev.ID)
	}

	page, total, err := repo.FindPage(ctx, 1, 2)
	req.NoError(err)
	req.Equal(int64(5), total)
	req.Len(page, 2)
	req.Equal(ids[4], page[0].ID)
	req.Equal(ids[3], page[1].ID)

	page, _, err = repo.FindPage(ctx, 3, 2)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal(ids[0], page[0].ID)

	page, _, err = repo.FindPage(ctx, 9, 2)
	req.NoError(err)
	req.Empty(page)
}

func TestSOSRepository_FindPage_HugePage(t *testing.T) {
	req := require.New(t)
	repo := NewSOSRepository()
	ctx := context.Background()

	req.NoError(repo.Create(ctx, &models.SOSEvent{OriginatorContact: "+1555000000"}))

	req.NotPanics(func() {
		page, total, err := repo.FindPage(ctx, 461168601842738792, 20)
		req.NoError(err)
		req.Equal(int64(1), total)
		req.Empty(page)
	})
}

func TestSOSRepository_ReturnsCopies(t *testing.T) {
	req := require.New(t)
	repo := NewSOSRepository()
	ctx := context.Background()

	ev := &models.SOSEvent{OriginatorContact: "+15551234567"}
	req.NoError(repo.Create(ctx, ev))

	found, err := repo.FindByID(ctx, ev.ID)
	req.NoError(err)
	found.Active = false

	again, err := repo.FindByID(ctx, ev.ID)
	req.NoError(err)
	req.True(again.Active)
}
