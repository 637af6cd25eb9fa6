// Package memory is a process-local event store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sosline/internal/models"
	"sosline/internal/repositories/interfaces"
	"sosline/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sosRepository struct {
	mu     sync.RWMutex
	events map[primitive.ObjectID]*models.SOSEvent
	now    func() time.Time
}

func NewSOSRepository() interfaces.SOSRepository {
	return &sosRepository{
		events: make(map[primitive.ObjectID]*models.SOSEvent),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *sosRepository) Create(ctx context.Context, event *models.SOSEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = primitive.NewObjectID()
	event.CreatedAt = r.now()
	event.Active = true
	r.events[event.ID] = clone(event)

	return nil
}

func (r *sosRepository) FindActive(ctx context.Context) ([]*models.SOSEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*models.SOSEvent, 0)
	for _, ev := range r.events {
		if ev.Active {
			active = append(active, clone(ev))
		}
	}
	sortNewestFirst(active)

	return active, nil
}

func (r *sosRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.SOSEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}

	return clone(ev), nil
}

func (r *sosRepository) SetCanceled(ctx context.Context, id primitive.ObjectID, canceledBy string) (*models.SOSEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok || !ev.Active {
		return nil, interfaces.ErrNotFound
	}

	now := r.now()
	ev.Active = false
	ev.CanceledAt = &now
	ev.CanceledBy = canceledBy

	return clone(ev), nil
}

func (r *sosRepository) FindPage(ctx context.Context, page, size int) ([]*models.SOSEvent, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	params := &utils.PaginationParams{Page: page, PageSize: size}
	params.Normalize()

	r.mu.RLock()
	all := make([]*models.SOSEvent, 0, len(r.events))
	for _, ev := range r.events {
		all = append(all, clone(ev))
	}
	r.mu.RUnlock()

	sortNewestFirst(all)

	total := int64(len(all))
	start := params.GetSkip()
	if start < 0 || start >= len(all) {
		return []*models.SOSEvent{}, total, nil
	}
	end := start + params.GetLimit()
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], total, nil
}

// ObjectIDs embed a creation second plus a counter, so they break ties
// between events created within the same clock tick.
func sortNewestFirst(events []*models.SOSEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.After(events[j].CreatedAt)
		}
		return events[i].ID.Hex() > events[j].ID.Hex()
	})
}

func clone(ev *models.SOSEvent) *models.SOSEvent {
	cp := *ev
	if ev.CanceledAt != nil {
		t := *ev.CanceledAt
		cp.CanceledAt = &t
	}
	return &cp
}
