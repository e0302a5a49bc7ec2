package world

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpawns() []SpawnPoint {
	return []SpawnPoint{
		{ID: 1, X: 10, Y: 20, ItemID: 500, RespawnInterval: time.Minute},
		{ID: 2, X: 30, Y: 40, ItemID: 501, RespawnInterval: 5 * time.Minute},
	}
}

// newTestRoom returns a room with a controllable clock.
func newTestRoom(t *testing.T) (*Room, *time.Time) {
	t.Helper()
	r := newRoom(1)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestRoom_InitSpawns(t *testing.T) {
	r, _ := newTestRoom(t)
	r.InitSpawns(testSpawns())

	available := r.AvailableSpawns()
	assert.Len(t, available, 2, "all spawns start available")
}

func TestRoom_TakeSpawn(t *testing.T) {
	t.Run("first take succeeds and grants the item", func(t *testing.T) {
		r, _ := newTestRoom(t)
		r.InitSpawns(testSpawns())

		grant, ok := r.TakeSpawn(1)
		require.True(t, ok)
		assert.Equal(t, uint32(500), grant.ItemID)
	})

	t.Run("second take before respawn fails", func(t *testing.T) {
		r, _ := newTestRoom(t)
		r.InitSpawns(testSpawns())

		_, ok := r.TakeSpawn(1)
		require.True(t, ok)
		_, ok = r.TakeSpawn(1)
		assert.False(t, ok)

		assert.Len(t, r.AvailableSpawns(), 1, "taken spawn is no longer listed")
	})

	t.Run("unknown spawn id fails", func(t *testing.T) {
		r, _ := newTestRoom(t)
		r.InitSpawns(testSpawns())

		_, ok := r.TakeSpawn(99)
		assert.False(t, ok)
	})

	t.Run("spawn becomes available again after the respawn interval", func(t *testing.T) {
		r, now := newTestRoom(t)
		r.InitSpawns(testSpawns())

		_, ok := r.TakeSpawn(1)
		require.True(t, ok)

		*now = now.Add(time.Minute - time.Second)
		_, ok = r.TakeSpawn(1)
		assert.False(t, ok, "still inside the respawn interval")

		*now = now.Add(time.Second)
		grant, ok := r.TakeSpawn(1)
		require.True(t, ok, "respawn interval elapsed")
		assert.Equal(t, uint32(500), grant.ItemID)

		_, ok = r.TakeSpawn(1)
		assert.False(t, ok, "each respawn cycle grants exactly once")
	})
}

func TestRoom_TakeSpawn_concurrent(t *testing.T) {
	t.Run("exactly one of N concurrent takers succeeds", func(t *testing.T) {
		r := newRoom(1)
		r.InitSpawns(testSpawns())

		const callers = 50
		var successes atomic.Int32
		var wg sync.WaitGroup

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := r.TakeSpawn(1); ok {
					successes.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successes.Load())
	})

	t.Run("one success per respawn cycle under concurrency", func(t *testing.T) {
		r, now := newTestRoom(t)
		r.InitSpawns(testSpawns())

		_, ok := r.TakeSpawn(1)
		require.True(t, ok)

		*now = now.Add(time.Minute)

		var successes atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := r.TakeSpawn(1); ok {
					successes.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successes.Load())
	})
}
