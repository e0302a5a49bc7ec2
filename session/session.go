// Package session implements the connection/session engine: the per-connection
// read loop, frame decode and dispatch, outbound delivery, keep-alive and idle
// timeouts, and teardown. One goroutine owns each connection; other goroutines
// interact with a session only through its locked state and outbound queue.
package session

import (
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/gameserver/logger"
)

// State is a connection's position in its lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateUnauthenticated
	StateAuthenticated
	StateDisconnecting
	StateClosed
)

// String returns a short name for the state, used in log fields.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnecting:
		return "disconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent read of a session's mutable state, taken under the
// read lock. Broadcast composition and the save sweep work from snapshots so
// they never hold the session lock across I/O.
type Snapshot struct {
	ID            uint32
	State         State
	PlayerID      uint16
	AccountID     uint32
	CharacterID   uint32
	RoomID        int32
	X, Y          float64
	HairID        uint16
	FaceID        uint16
	Gold          uint32
	Authenticated bool
	Moderator     bool
	ClanID        uint32
	ClanName      string
	RaceProgress  uint8
	ConnectedAt   time.Time
	LastActivity  time.Time
}

// Session is the server-side state for one live connection. Mutable fields
// are guarded by mu: readable concurrently by any goroutine needing a
// snapshot, writable by the owning connection goroutine and by privileged
// moderation paths (Kick). The outbound queue has its own lock so broadcasts
// never contend with state reads.
type Session struct {
	id   uint32
	conn net.Conn
	srv  *Server
	log  logger.Logger

	mu            sync.RWMutex
	state         State
	playerID      uint16
	accountID     uint32
	characterID   uint32
	roomID        int32
	x, y          float64
	hairID        uint16
	faceID        uint16
	gold          uint32
	authenticated bool
	moderator     bool
	clanID        uint32
	clanName      string
	raceProgress  uint8
	connectedAt   time.Time
	lastActivity  time.Time
	kickPending   bool
	kickReason    string

	outMu  sync.Mutex
	outbox [][]byte
	notify chan struct{}

	frames  chan []byte
	readErr chan error
	stop    chan struct{}
	once    sync.Once
}

// newSession creates a session for an accepted connection. The session starts
// in StateConnecting; Handle moves it to StateUnauthenticated.
func newSession(id uint32, conn net.Conn, srv *Server) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		conn:         conn,
		srv:          srv,
		log:          srv.log.With(logger.Field{Key: "session", Value: id}),
		state:        StateConnecting,
		connectedAt:  now,
		lastActivity: now,
		notify:       make(chan struct{}, 1),
		frames:       make(chan []byte, 32),
		readErr:      make(chan error, 1),
		stop:         make(chan struct{}),
	}
}

// ID returns the session's unique identifier assigned by the server.
//
// Returns:
//   - The session ID (uint32)
func (s *Session) ID() uint32 {
	return s.id
}

// State returns the session's current lifecycle state.
//
// Returns:
//   - The current State
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a consistent copy of the session's mutable state.
//
// Returns:
//   - The Snapshot taken under the read lock
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		ID:            s.id,
		State:         s.state,
		PlayerID:      s.playerID,
		AccountID:     s.accountID,
		CharacterID:   s.characterID,
		RoomID:        s.roomID,
		X:             s.x,
		Y:             s.y,
		HairID:        s.hairID,
		FaceID:        s.faceID,
		Gold:          s.gold,
		Authenticated: s.authenticated,
		Moderator:     s.moderator,
		ClanID:        s.clanID,
		ClanName:      s.clanName,
		RaceProgress:  s.raceProgress,
		ConnectedAt:   s.connectedAt,
		LastActivity:  s.lastActivity,
	}
}

// Authenticate transitions the session to StateAuthenticated and records its
// identity. Called by the login handler on the owning goroutine.
//
// Parameters:
//   - playerID: The assigned in-world player id
//   - accountID: The account's durable id
//   - characterID: The character's durable id
//   - roomID: The room the character spawns into
//   - x: The spawn x position
//   - y: The spawn y position
func (s *Session) Authenticate(playerID uint16, accountID, characterID uint32, roomID int32, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateAuthenticated
	s.authenticated = true
	s.playerID = playerID
	s.accountID = accountID
	s.characterID = characterID
	s.roomID = roomID
	s.x = x
	s.y = y
}

// SetPosition updates the session's position.
//
// Parameters:
//   - x: The new x position
//   - y: The new y position
func (s *Session) SetPosition(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x = x
	s.y = y
}

// SetRoom moves the session to another room id. World registry membership is
// updated separately by the caller.
//
// Parameters:
//   - roomID: The new room id
func (s *Session) SetRoom(roomID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
}

// SetGold sets the session's currency counter.
//
// Parameters:
//   - amount: The new currency amount
func (s *Session) SetGold(amount uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gold = amount
}

// SetAppearance sets the session's appearance ids.
//
// Parameters:
//   - hairID: The hair appearance id
//   - faceID: The face appearance id
func (s *Session) SetAppearance(hairID, faceID uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hairID = hairID
	s.faceID = faceID
}

// SetModerator grants or revokes the session's moderator flag.
//
// Parameters:
//   - moderator: Whether the session holds moderator privileges
func (s *Session) SetModerator(moderator bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moderator = moderator
}

// SetClan updates the session's cached clan identity.
//
// Parameters:
//   - clanID: The clan's id, 0 for none
//   - clanName: The clan's display name
func (s *Session) SetClan(clanID uint32, clanName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clanID = clanID
	s.clanName = clanName
}

// SetRaceProgress updates the transient race minigame checkpoint counter.
// It is reset to zero on disconnect along with the rest of the session.
//
// Parameters:
//   - progress: The checkpoint the player has reached
func (s *Session) SetRaceProgress(progress uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raceProgress = progress
}

// Kick requests a cooperative disconnect. Any goroutine may call it; the
// owning connection loop observes the flag at its next iteration, delivers a
// kick notice, and performs teardown. Nothing forcibly aborts the loop.
//
// Parameters:
//   - reason: Human-readable reason included in the kick notice and logs
func (s *Session) Kick(reason string) {
	s.mu.Lock()
	if !s.kickPending {
		s.kickPending = true
		s.kickReason = reason
	}
	s.mu.Unlock()

	s.wake()
}

// pendingKick returns the kick reason if a kick was requested.
func (s *Session) pendingKick() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kickReason, s.kickPending
}

// EnqueueMessage appends one plaintext message to the outbound queue and
// wakes the connection loop. Implements world.Enqueuer; safe for any
// goroutine.
//
// Parameters:
//   - payload: The encoded plaintext message (type tag + body)
func (s *Session) EnqueueMessage(payload []byte) {
	s.outMu.Lock()
	s.outbox = append(s.outbox, payload)
	s.outMu.Unlock()

	s.wake()
}

// drainOutbox removes and returns all queued outbound payloads in order.
func (s *Session) drainOutbox() [][]byte {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	drained := s.outbox
	s.outbox = nil
	return drained
}

// wake nudges the connection loop without blocking.
func (s *Session) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// touch records inbound activity for the idle timers and the backstop sweep.
func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// setState moves the session to the given lifecycle state.
func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Close tears the session down from outside the loop: it marks the stop
// signal and lets the owning goroutine (or the caller, if the loop already
// exited) finish cleanup. Safe to call multiple times.
//
// Returns:
//   - Always nil
func (s *Session) Close() error {
	s.once.Do(func() {
		close(s.stop)
		_ = s.conn.Close()
	})

	return nil
}
