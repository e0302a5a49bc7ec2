// Package anticheat validates position updates against each session's recent
// movement history to catch teleport and speed cheating. The movement handler
// calls Check on every update; rejected updates are dropped (not applied, not
// broadcast) and repeated offences escalate to kick and ban flags that the
// session engine acts on.
package anticheat

import (
	"math"
	"sync"
	"time"

	"github.com/cyberinferno/gameserver/safemap"
	"github.com/cyberinferno/gameserver/safeset"
)

const (
	// historySize bounds the per-session ring of recent position samples.
	historySize = 10

	// maxSingleMoveDistance is the farthest a single update may move a player
	// before the teleport rule applies. Door transitions and server warps are
	// exempted through AllowWarp, not through this cap.
	maxSingleMoveDistance = 300.0

	// teleportSpeedFactor scales the configured max speed for the teleport
	// rule: distance over the cap only counts when the implied speed is also
	// absurd, which keeps lag spikes from flagging honest clients.
	teleportSpeedFactor = 10.0

	// sustainedSpeedFactor scales max speed for the sustained-speed rule.
	sustainedSpeedFactor = 2.0

	// minSustainedElapsed is the shortest interval over which sustained speed
	// is meaningful; below it the teleport rule alone applies.
	minSustainedElapsed = 100 * time.Millisecond

	// ViolationWindow is the trailing window in which violations accumulate
	// toward a Cheating classification. Older violations age out.
	ViolationWindow = time.Minute

	// CheatViolationThreshold is how many violations inside ViolationWindow
	// turn Suspicious into Cheating and raise the kick flag.
	CheatViolationThreshold = 5

	// BanFlagThreshold is how many Cheating classifications a session can
	// accumulate over its lifetime before ShouldBan reports true.
	BanFlagThreshold = 10
)

const (
	// SeverityTeleport marks a violation of the teleport rule.
	SeverityTeleport = 3
	// SeveritySpeed marks a violation of the sustained-speed rule.
	SeveritySpeed = 2
)

// Classification is the outcome category of a movement check.
type Classification int

const (
	// Clean means the update is plausible and was recorded in the history.
	Clean Classification = iota
	// Suspicious means the update violated a rule but the session is still
	// under the cheating threshold. The update must be dropped.
	Suspicious
	// Cheating means violations inside the trailing window reached the
	// threshold. The update must be dropped and escalation consulted.
	Cheating
)

// String returns a short name for the classification, used in log fields.
func (c Classification) String() string {
	switch c {
	case Suspicious:
		return "suspicious"
	case Cheating:
		return "cheating"
	default:
		return "clean"
	}
}

// Verdict is the result of one movement check. Reason and Severity are only
// meaningful for Suspicious and Cheating verdicts.
type Verdict struct {
	Class    Classification
	Reason   string
	Severity int
}

// sample is one recorded position with its arrival time.
type sample struct {
	x, y float64
	at   time.Time
}

// violation is one recorded rule breach.
type violation struct {
	at     time.Time
	reason string
}

// movementState is the per-session history guarded by its own mutex.
type movementState struct {
	mu          sync.Mutex
	roomID      int32
	samples     []sample
	violations  []violation
	warpAllowed bool
	cheatFlags  int
}

// Validator checks movement updates against per-session history. It is safe
// for concurrent use; distinct sessions never contend with each other.
type Validator struct {
	maxSpeed float64
	states   *safemap.SafeMap[uint32, *movementState]
	flagged  *safeset.SafeSet[uint32]
	now      func() time.Time
}

// NewValidator creates a Validator for the given maximum legitimate player
// speed in world units per second.
//
// Parameters:
//   - maxSpeed: The configured maximum player speed
//
// Returns:
//   - A new Validator ready for concurrent use
func NewValidator(maxSpeed float64) *Validator {
	return &Validator{
		maxSpeed: maxSpeed,
		states:   safemap.NewSafeMap[uint32, *movementState](),
		flagged:  safeset.NewSafeSet[uint32](),
		now:      time.Now,
	}
}

// Check validates one position update for the session. A room change or a
// pending AllowWarp resets the history and is always Clean. Otherwise the
// teleport rule (distance over the per-update cap at over 10x max speed) and
// the sustained-speed rule (over 2x max speed across at least 100ms) each
// record a violation; the verdict is Cheating once violations inside the
// trailing window reach the threshold, Suspicious before that. Clean updates
// are appended to the history ring.
//
// Parameters:
//   - sessionKey: The session's id
//   - x: The new x position
//   - y: The new y position
//   - roomID: The room the client reports moving in
//
// Returns:
//   - The Verdict; callers must drop the update unless it is Clean
func (v *Validator) Check(sessionKey uint32, x, y float64, roomID int32) Verdict {
	st := v.stateFor(sessionKey)

	st.mu.Lock()
	defer st.mu.Unlock()

	now := v.now()

	if len(st.samples) == 0 || roomID != st.roomID || st.warpAllowed {
		st.warpAllowed = false
		st.roomID = roomID
		st.samples = append(st.samples[:0], sample{x: x, y: y, at: now})
		return Verdict{Class: Clean}
	}

	last := st.samples[len(st.samples)-1]
	dist := math.Hypot(x-last.x, y-last.y)
	elapsed := now.Sub(last.at)

	secs := elapsed.Seconds()
	if secs <= 0 {
		secs = 0.001
	}
	speed := dist / secs

	if dist > maxSingleMoveDistance && speed > teleportSpeedFactor*v.maxSpeed {
		return v.recordViolation(st, sessionKey, now, "teleport", SeverityTeleport)
	}

	if elapsed >= minSustainedElapsed && speed > sustainedSpeedFactor*v.maxSpeed {
		return v.recordViolation(st, sessionKey, now, "speed", SeveritySpeed)
	}

	st.samples = append(st.samples, sample{x: x, y: y, at: now})
	if len(st.samples) > historySize {
		st.samples = st.samples[len(st.samples)-historySize:]
	}

	return Verdict{Class: Clean}
}

// recordViolation appends a violation, prunes the trailing window, and
// classifies. Caller must hold st.mu.
func (v *Validator) recordViolation(st *movementState, sessionKey uint32, now time.Time, reason string, severity int) Verdict {
	st.violations = append(st.violations, violation{at: now, reason: reason})
	st.violations = pruneViolations(st.violations, now)

	if len(st.violations) >= CheatViolationThreshold {
		st.cheatFlags++
		v.flagged.Add(sessionKey)
		return Verdict{Class: Cheating, Reason: reason, Severity: severity}
	}

	return Verdict{Class: Suspicious, Reason: reason, Severity: severity}
}

// pruneViolations drops violations that fell out of the trailing window.
func pruneViolations(violations []violation, now time.Time) []violation {
	cutoff := now.Add(-ViolationWindow)
	kept := violations[:0]
	for _, rec := range violations {
		if rec.at.After(cutoff) {
			kept = append(kept, rec)
		}
	}

	return kept
}

// AllowWarp arms the session's one-shot warp exemption. Any handler that
// legitimately teleports a player must call it immediately before applying
// the new position; the next Check consumes the flag and resets history.
//
// Parameters:
//   - sessionKey: The session's id
func (v *Validator) AllowWarp(sessionKey uint32) {
	st := v.stateFor(sessionKey)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.warpAllowed = true
}

// ShouldKick reports whether the session's violations inside the trailing
// window have reached the cheating threshold.
//
// Parameters:
//   - sessionKey: The session's id
//
// Returns:
//   - true once the session should be disconnected
func (v *Validator) ShouldKick(sessionKey uint32) bool {
	st, ok := v.states.Load(sessionKey)
	if !ok {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.violations = pruneViolations(st.violations, v.now())
	return len(st.violations) >= CheatViolationThreshold
}

// ShouldBan reports whether the session accumulated enough Cheating
// classifications over its lifetime to warrant a ban escalation.
//
// Parameters:
//   - sessionKey: The session's id
//
// Returns:
//   - true once the ban threshold is crossed
func (v *Validator) ShouldBan(sessionKey uint32) bool {
	st, ok := v.states.Load(sessionKey)
	if !ok {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cheatFlags >= BanFlagThreshold
}

// Flagged returns the session keys that have produced at least one Cheating
// verdict, for moderation review.
//
// Returns:
//   - A snapshot slice of flagged session keys
func (v *Validator) Flagged() []uint32 {
	return v.flagged.Values()
}

// Forget drops all history for the session. Called on disconnect.
//
// Parameters:
//   - sessionKey: The session's id
func (v *Validator) Forget(sessionKey uint32) {
	v.states.Delete(sessionKey)
	v.flagged.Remove(sessionKey)
}

// stateFor returns the session's state, creating it on first movement.
func (v *Validator) stateFor(sessionKey uint32) *movementState {
	if st, ok := v.states.Load(sessionKey); ok {
		return st
	}

	st, _ := v.states.LoadOrStore(sessionKey, &movementState{})
	return st
}
