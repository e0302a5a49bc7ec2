package anticheat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxSpeed = 100.0

// newTestValidator returns a validator with a controllable clock.
func newTestValidator(t *testing.T) (*Validator, *time.Time) {
	t.Helper()
	v := NewValidator(testMaxSpeed)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }
	return v, &now
}

func TestValidator_Check(t *testing.T) {
	t.Run("first update initializes history and is clean", func(t *testing.T) {
		v, _ := newTestValidator(t)
		verdict := v.Check(1, 100, 100, 1)
		assert.Equal(t, Clean, verdict.Class)
	})

	t.Run("small move is clean", func(t *testing.T) {
		v, now := newTestValidator(t)
		v.Check(1, 100, 100, 1)

		*now = now.Add(200 * time.Millisecond)
		verdict := v.Check(1, 110, 100, 1)
		assert.Equal(t, Clean, verdict.Class)
	})

	t.Run("instantaneous jump is not clean", func(t *testing.T) {
		v, _ := newTestValidator(t)
		v.Check(1, 100, 100, 1)

		verdict := v.Check(1, 5000, 100, 1)
		require.NotEqual(t, Clean, verdict.Class)
		assert.Equal(t, "teleport", verdict.Reason)
		assert.Equal(t, SeverityTeleport, verdict.Severity)
	})

	t.Run("allow warp makes the same jump clean once", func(t *testing.T) {
		v, _ := newTestValidator(t)
		v.Check(1, 100, 100, 1)

		v.AllowWarp(1)
		verdict := v.Check(1, 5000, 100, 1)
		assert.Equal(t, Clean, verdict.Class)

		// The exemption is one-shot: a second jump is flagged again
		verdict = v.Check(1, 100, 100, 1)
		assert.NotEqual(t, Clean, verdict.Class)
	})

	t.Run("room change is always clean and resets history", func(t *testing.T) {
		v, _ := newTestValidator(t)
		v.Check(1, 100, 100, 1)

		verdict := v.Check(1, 5000, 100, 2)
		assert.Equal(t, Clean, verdict.Class)

		// History restarted in room 2: a small follow-up move stays clean
		verdict = v.Check(1, 5010, 100, 2)
		assert.Equal(t, Clean, verdict.Class)
	})

	t.Run("sustained speed over the factor is flagged at severity 2", func(t *testing.T) {
		v, now := newTestValidator(t)
		v.Check(1, 0, 0, 1)

		// 250 units in 500ms: 500 units/s, over 2x max but under the
		// per-update distance cap
		*now = now.Add(500 * time.Millisecond)
		verdict := v.Check(1, 250, 0, 1)
		require.Equal(t, Suspicious, verdict.Class)
		assert.Equal(t, "speed", verdict.Reason)
		assert.Equal(t, SeveritySpeed, verdict.Severity)
	})

	t.Run("sessions are independent", func(t *testing.T) {
		v, _ := newTestValidator(t)
		v.Check(1, 100, 100, 1)
		v.Check(1, 5000, 100, 1)

		verdict := v.Check(2, 100, 100, 1)
		assert.Equal(t, Clean, verdict.Class)
	})
}

func TestValidator_escalation(t *testing.T) {
	t.Run("violations inside the window reach cheating and flip kick", func(t *testing.T) {
		v, now := newTestValidator(t)
		v.Check(1, 100, 100, 1)

		var verdict Verdict
		for i := 0; i < CheatViolationThreshold; i++ {
			assert.False(t, v.ShouldKick(1))
			*now = now.Add(time.Second)
			verdict = v.Check(1, 5000, 100, 1)
		}

		assert.Equal(t, Cheating, verdict.Class)
		assert.True(t, v.ShouldKick(1))
	})

	t.Run("violations outside the trailing window do not count", func(t *testing.T) {
		v, now := newTestValidator(t)
		v.Check(1, 100, 100, 1)

		for i := 0; i < CheatViolationThreshold; i++ {
			*now = now.Add(ViolationWindow + time.Second)
			verdict := v.Check(1, 5000, 100, 1)
			assert.Equal(t, Suspicious, verdict.Class)
		}

		assert.False(t, v.ShouldKick(1))
	})

	t.Run("repeated cheating accumulates toward ban", func(t *testing.T) {
		v, now := newTestValidator(t)
		v.Check(1, 100, 100, 1)

		// First threshold-1 violations are suspicious, everything after is
		// a cheating classification
		total := CheatViolationThreshold - 1 + BanFlagThreshold
		for i := 0; i < total; i++ {
			*now = now.Add(time.Second)
			v.Check(1, 5000, 100, 1)
		}

		assert.True(t, v.ShouldBan(1))
		assert.Contains(t, v.Flagged(), uint32(1))
	})

	t.Run("unknown session is neither kicked nor banned", func(t *testing.T) {
		v, _ := newTestValidator(t)
		assert.False(t, v.ShouldKick(9))
		assert.False(t, v.ShouldBan(9))
	})
}

func TestValidator_Forget(t *testing.T) {
	v, now := newTestValidator(t)
	v.Check(1, 100, 100, 1)
	for i := 0; i < CheatViolationThreshold; i++ {
		*now = now.Add(time.Second)
		v.Check(1, 5000, 100, 1)
	}
	require.True(t, v.ShouldKick(1))

	v.Forget(1)
	assert.False(t, v.ShouldKick(1))
	assert.NotContains(t, v.Flagged(), uint32(1))

	// A fresh history starts clean even at the old cheat position
	verdict := v.Check(1, 5000, 100, 1)
	assert.Equal(t, Clean, verdict.Class)
}

func TestValidator_concurrent(t *testing.T) {
	v := NewValidator(testMaxSpeed)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(key uint32) {
			defer wg.Done()
			v.Check(key, 100, 100, 1)
			v.Check(key, 101, 100, 1)
			v.AllowWarp(key)
			v.Check(key, 5000, 100, 1)
		}(uint32(i))
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.False(t, v.ShouldKick(uint32(i)))
	}
}
