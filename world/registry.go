package world

import (
	"github.com/cyberinferno/gameserver/logger"
	"github.com/cyberinferno/gameserver/safemap"
)

// Enqueuer is the outbound surface of a session: broadcasts append plaintext
// message payloads to it. Implementations must be safe for concurrent use.
type Enqueuer interface {
	// EnqueueMessage appends one plaintext message to the session's outbound
	// queue and wakes its connection task.
	//
	// Parameters:
	//   - payload: The encoded plaintext message (type tag + body)
	EnqueueMessage(payload []byte)
}

// SessionResolver maps session ids to live sessions' outbound queues. The
// connection engine implements it; tests substitute fakes.
type SessionResolver interface {
	// Session returns the outbound queue for the given session id.
	//
	// Parameters:
	//   - sessionID: The session to look up
	//
	// Returns:
	//   - The session's Enqueuer and true, or nil and false if not live
	Session(sessionID uint32) (Enqueuer, bool)
}

// Registry is the concurrent room/world registry every handler consults to
// learn who is near a player and to fan out broadcasts. The room map and the
// player index are lock-free concurrent maps; per-room state is guarded by
// each room's own mutex.
type Registry struct {
	rooms       *safemap.SafeMap[int32, *Room]
	sessions    *safemap.SafeMap[uint16, uint32] // player id -> session id
	playerRooms *safemap.SafeMap[uint16, int32]  // player id -> room id
	resolver    SessionResolver
	log         logger.Logger
}

// NewRegistry creates an empty Registry.
//
// Parameters:
//   - resolver: Maps session ids to outbound queues for broadcasts
//   - log: Structured logger
//
// Returns:
//   - A new Registry ready for concurrent use
func NewRegistry(resolver SessionResolver, log logger.Logger) *Registry {
	return &Registry{
		rooms:       safemap.NewSafeMap[int32, *Room](),
		sessions:    safemap.NewSafeMap[uint16, uint32](),
		playerRooms: safemap.NewSafeMap[uint16, int32](),
		resolver:    resolver,
		log:         log,
	}
}

// GetOrCreateRoom returns the room with the given id, creating it on first
// occupancy. Rooms live for the server's lifetime.
//
// Parameters:
//   - roomID: The room identifier
//
// Returns:
//   - The room, never nil
func (g *Registry) GetOrCreateRoom(roomID int32) *Room {
	if room, ok := g.rooms.Load(roomID); ok {
		return room
	}

	room, loaded := g.rooms.LoadOrStore(roomID, newRoom(roomID))
	if !loaded {
		g.log.Debug("room created", logger.Field{Key: "room", Value: roomID})
	}

	return room
}

// AddPlayer places the player in the room and records the player id to
// session id index. If the player is already in another room they are moved;
// a player id is a member of at most one room's occupant set at any time.
//
// Parameters:
//   - playerID: The player's id
//   - roomID: The destination room
//   - sessionID: The session owning the player
func (g *Registry) AddPlayer(playerID uint16, roomID int32, sessionID uint32) {
	if prev, ok := g.playerRooms.Load(playerID); ok && prev != roomID {
		g.GetOrCreateRoom(prev).remove(playerID)
	}

	g.GetOrCreateRoom(roomID).add(playerID, sessionID)
	g.sessions.Store(playerID, sessionID)
	g.playerRooms.Store(playerID, roomID)
}

// RemovePlayer removes the player from the room and drops the player from
// the secondary indexes. Removing an absent player is a no-op.
//
// Parameters:
//   - playerID: The player's id
//   - roomID: The room the player is leaving
func (g *Registry) RemovePlayer(playerID uint16, roomID int32) {
	g.GetOrCreateRoom(roomID).remove(playerID)
	g.sessions.Delete(playerID)
	g.playerRooms.Delete(playerID)
}

// RoomPlayers returns the player ids currently in the room.
//
// Parameters:
//   - roomID: The room to inspect
//
// Returns:
//   - A snapshot slice of occupant player ids
func (g *Registry) RoomPlayers(roomID int32) []uint16 {
	return g.GetOrCreateRoom(roomID).Players()
}

// SessionOf returns the session id serving the player, if the player is
// registered in the world.
//
// Parameters:
//   - playerID: The player's id
//
// Returns:
//   - The session id and true, or 0 and false
func (g *Registry) SessionOf(playerID uint16) (uint32, bool) {
	return g.sessions.Load(playerID)
}

// RoomOf returns the room the player currently occupies.
//
// Parameters:
//   - playerID: The player's id
//
// Returns:
//   - The room id and true, or 0 and false
func (g *Registry) RoomOf(playerID uint16) (int32, bool) {
	return g.playerRooms.Load(playerID)
}

// Broadcast enqueues the payload to every occupant of the room except
// exclude. Enqueueing happens inside the room's critical section, so two
// broadcasts whose critical sections do not overlap are observed by all
// occupants in the same order.
//
// Parameters:
//   - roomID: The room to broadcast to
//   - payload: The encoded plaintext message
//   - exclude: Player id to skip (the originator), or 0 to deliver to all
//
// Returns:
//   - The number of sessions the payload was enqueued to
func (g *Registry) Broadcast(roomID int32, payload []byte, exclude uint16) int {
	return g.GetOrCreateRoom(roomID).broadcast(g.resolver, payload, exclude)
}
