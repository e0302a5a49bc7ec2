// Package world maintains the concurrently-shared room topology: which
// players occupy which room, the per-room collectible spawn state, and the
// per-room broadcast fan-out. Rooms are created lazily on first occupancy and
// never deleted, only emptied. All per-room mutation happens under that
// room's own mutex, so unrelated rooms never contend.
package world

import (
	"sync"
	"time"
)

// Room is one world partition. Its mutex covers occupant membership,
// collectible spawn state, and broadcast enqueueing; holding it for the whole
// of each mutation gives every occupant the same view of event order.
type Room struct {
	ID int32

	mu        sync.Mutex
	occupants map[uint16]uint32 // player id -> session id
	spawns    map[uint16]*spawnState
	now       func() time.Time
}

// newRoom creates an empty room.
func newRoom(id int32) *Room {
	return &Room{
		ID:        id,
		occupants: make(map[uint16]uint32),
		spawns:    make(map[uint16]*spawnState),
		now:       time.Now,
	}
}

// add registers an occupant. Caller is the Registry, which maintains the
// at-most-one-room invariant.
func (r *Room) add(playerID uint16, sessionID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.occupants[playerID] = sessionID
}

// remove drops an occupant. Removing an absent player is a no-op.
func (r *Room) remove(playerID uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.occupants, playerID)
}

// Players returns a snapshot of the room's occupant player ids in
// unspecified order.
//
// Returns:
//   - A new slice of the player ids currently in the room
func (r *Room) Players() []uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]uint16, 0, len(r.occupants))
	for id := range r.occupants {
		players = append(players, id)
	}

	return players
}

// Occupancy returns the number of players in the room.
//
// Returns:
//   - The occupant count
func (r *Room) Occupancy() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.occupants)
}

// broadcast enqueues payload to every occupant's session except exclude,
// inside the room's critical section so concurrent broadcasts reach all
// occupants in the same order.
func (r *Room) broadcast(resolver SessionResolver, payload []byte, exclude uint16) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for playerID, sessionID := range r.occupants {
		if playerID == exclude {
			continue
		}

		if q, ok := resolver.Session(sessionID); ok {
			q.EnqueueMessage(payload)
			delivered++
		}
	}

	return delivered
}
