package world

import "time"

// SpawnPoint is the immutable definition of a fixed-location, respawning
// world collectible: where it sits, what it grants, and how long it stays
// gone after being taken.
type SpawnPoint struct {
	ID              uint16
	X, Y            float64
	ItemID          uint32
	RespawnInterval time.Duration
}

// spawnState pairs a spawn definition with its mutable taken-at timestamp.
// A zero takenAt means the spawn has never been taken. Availability is
// recomputed lazily from elapsed time; no timers are scheduled.
type spawnState struct {
	def     SpawnPoint
	takenAt time.Time
}

// available reports whether the spawn can be taken at the given time.
func (s *spawnState) available(now time.Time) bool {
	if s.takenAt.IsZero() {
		return true
	}

	return now.Sub(s.takenAt) >= s.def.RespawnInterval
}

// InitSpawns installs the room's collectible spawn definitions, all marked
// available. Any previous spawn state is replaced.
//
// Parameters:
//   - defs: The spawn definitions for this room
func (r *Room) InitSpawns(defs []SpawnPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.spawns = make(map[uint16]*spawnState, len(defs))
	for _, def := range defs {
		r.spawns[def.ID] = &spawnState{def: def}
	}
}

// AvailableSpawns returns the definitions of every spawn currently
// available, recomputing availability from elapsed time.
//
// Returns:
//   - A new slice of available spawn definitions in unspecified order
func (r *Room) AvailableSpawns() []SpawnPoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	available := make([]SpawnPoint, 0, len(r.spawns))
	for _, st := range r.spawns {
		if st.available(now) {
			available = append(available, st.def)
		}
	}

	return available
}

// TakeSpawn attempts to take the spawn. The availability check and the
// taken-at flip happen in the same critical section, so for each respawn
// cycle exactly one caller observes success no matter how many race.
//
// Parameters:
//   - spawnID: The spawn to take
//
// Returns:
//   - The spawn definition (the grant) when the take succeeded
//   - true on success; false if the spawn is unknown or not yet respawned
func (r *Room) TakeSpawn(spawnID uint16) (SpawnPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.spawns[spawnID]
	if !ok {
		return SpawnPoint{}, false
	}

	now := r.now()
	if !st.available(now) {
		return SpawnPoint{}, false
	}

	st.takenAt = now
	return st.def, true
}
