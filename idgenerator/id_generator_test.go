package idgenerator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdGenerator(t *testing.T) {
	t.Run("returns non-nil generator", func(t *testing.T) {
		gen := NewIdGenerator(0)
		require.NotNil(t, gen)
	})

	t.Run("first Id returns startValue+1 when startValue is 0", func(t *testing.T) {
		gen := NewIdGenerator(0)
		got := gen.Id()
		assert.Equal(t, uint32(1), got)
	})

	t.Run("first Id returns startValue+1 when startValue is non-zero", func(t *testing.T) {
		gen := NewIdGenerator(100)
		got := gen.Id()
		assert.Equal(t, uint32(101), got)
	})
}

func TestIdGenerator_Id_sequential(t *testing.T) {
	t.Run("ids are monotonic starting from 1", func(t *testing.T) {
		gen := NewIdGenerator(0)
		for want := uint32(1); want <= 10; want++ {
			got := gen.Id()
			assert.Equal(t, want, got)
		}
	})

	t.Run("no duplicate ids in sequence", func(t *testing.T) {
		gen := NewIdGenerator(0)
		seen := make(map[uint32]bool)
		for i := 0; i < 100; i++ {
			id := gen.Id()
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
	})
}

func TestIdGenerator_Id16(t *testing.T) {
	t.Run("never returns zero across the 16-bit wrap", func(t *testing.T) {
		gen := NewIdGenerator(0xFFFE)
		first := gen.Id16()
		assert.Equal(t, uint16(0xFFFF), first)
		second := gen.Id16()
		assert.Equal(t, uint16(1), second, "zero must be skipped on wrap")
	})

	t.Run("sequential ids below the wrap", func(t *testing.T) {
		gen := NewIdGenerator(0)
		for want := uint16(1); want <= 10; want++ {
			assert.Equal(t, want, gen.Id16())
		}
	})
}

func TestIdGenerator_concurrent(t *testing.T) {
	gen := NewIdGenerator(0)
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[uint32]bool)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Id()
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 200)
}
