package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Hub is the room registry. The hub lock only guards the room and session
// maps; membership of each room has its own lock so joins and broadcasts on
// unrelated rooms never contend.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	sessions map[string]*Session
}

type room struct {
	name    string
	mu      sync.RWMutex
	members map[string]*Session
	// retired is set when the room is unlinked from the hub; a joiner that
	// raced with the unlink must look the room up again.
	retired bool
}

func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]*room),
		sessions: make(map[string]*Session),
	}
}

// Register makes a session known to the hub. It does not join any room.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.ID] = s
}

// Join adds s to the named room. Joining a room twice is a no-op.
func (h *Hub) Join(s *Session, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.rooms[name]; ok {
		return nil
	}

	for {
		rm := h.roomFor(name)
		rm.mu.Lock()
		if rm.retired {
			rm.mu.Unlock()
			continue
		}
		rm.members[s.ID] = s
		rm.mu.Unlock()
		break
	}
	s.rooms[name] = struct{}{}

	return nil
}

// Leave removes s from the named room. Leaving a room s is not in is a no-op.
func (h *Hub) Leave(s *Session, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[name]; !ok {
		return
	}
	delete(s.rooms, name)
	h.removeMember(name, s.ID)
}

// Broadcast queues msg on every member of the room except exclude, which
// may be nil. Membership is snapshotted first; sessions joining or leaving
// while delivery is in progress are not affected by this call. It returns
// the number of sessions the message was queued on.
func (h *Hub) Broadcast(name string, msg []byte, exclude *Session) int {
	return h.BroadcastRooms([]string{name}, msg, exclude)
}

// BroadcastRooms is Broadcast over the union of several rooms; a session in
// more than one of them receives msg once.
func (h *Hub) BroadcastRooms(names []string, msg []byte, exclude *Session) int {
	targets := make(map[string]*Session)
	for _, name := range names {
		h.mu.RLock()
		rm, ok := h.rooms[name]
		h.mu.RUnlock()
		if !ok {
			continue
		}

		rm.mu.RLock()
		for id, s := range rm.members {
			targets[id] = s
		}
		rm.mu.RUnlock()
	}

	if exclude != nil {
		delete(targets, exclude.ID)
	}

	delivered := 0
	for _, s := range targets {
		if err := s.Send(msg); err == nil {
			delivered++
		}
	}

	return delivered
}

// DropSession removes s from every room and closes its outbound queue. Only
// the first call has any effect; it reports whether this call did the work.
func (h *Hub) DropSession(s *Session) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	for name := range s.rooms {
		h.removeMember(name, s.ID)
	}
	s.rooms = make(map[string]struct{})
	close(s.send)
	s.mu.Unlock()

	h.mu.Lock()
	delete(h.sessions, s.ID)
	h.mu.Unlock()

	return true
}

// CloseAll forces every session off and waits until all of them have been
// dropped. Sessions without a kick hook are dropped here directly.
func (h *Hub) CloseAll(ctx context.Context) error {
	h.mu.RLock()
	sessions := lo.Values(h.sessions)
	h.mu.RUnlock()

	for _, s := range sessions {
		if !s.kick(ErrShuttingDown) {
			h.DropSession(s)
		}
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for h.SessionCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Members returns the ids of the sessions currently in the room, sorted.
func (h *Hub) Members(name string) []string {
	h.mu.RLock()
	rm, ok := h.rooms[name]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.RLock()
	ids := lo.Keys(rm.members)
	rm.mu.RUnlock()
	sort.Strings(ids)

	return ids
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) Session(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Hub) roomFor(name string) *room {
	h.mu.RLock()
	rm, ok := h.rooms[name]
	h.mu.RUnlock()
	if ok {
		return rm
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if rm, ok = h.rooms[name]; ok {
		return rm
	}
	rm = &room{name: name, members: make(map[string]*Session)}
	h.rooms[name] = rm

	return rm
}

// removeMember takes the room lock and then, for an emptied room, the hub
// lock. Nothing acquires them in the opposite order.
func (h *Hub) removeMember(name, sessionID string) {
	h.mu.RLock()
	rm, ok := h.rooms[name]
	h.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	delete(rm.members, sessionID)
	if len(rm.members) == 0 && !rm.retired {
		rm.retired = true
		h.mu.Lock()
		if h.rooms[name] == rm {
			delete(h.rooms, name)
		}
		h.mu.Unlock()
	}
}
