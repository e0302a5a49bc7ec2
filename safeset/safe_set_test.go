package safeset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSafeSet(t *testing.T) {
	s := NewSafeSet[int]()
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Size())
}

func TestSafeSet_Add_Contains(t *testing.T) {
	s := NewSafeSet[string]()

	t.Run("added element is contained", func(t *testing.T) {
		s.Add("a")
		assert.True(t, s.Contains("a"))
		assert.Equal(t, 1, s.Size())
	})

	t.Run("duplicate add does not grow the set", func(t *testing.T) {
		s.Add("a")
		assert.Equal(t, 1, s.Size())
	})

	t.Run("missing element is not contained", func(t *testing.T) {
		assert.False(t, s.Contains("b"))
	})
}

func TestSafeSet_Remove(t *testing.T) {
	s := NewSafeSet[int]()
	s.Add(1)
	s.Add(2)

	t.Run("removed element is gone", func(t *testing.T) {
		s.Remove(1)
		assert.False(t, s.Contains(1))
		assert.True(t, s.Contains(2))
	})

	t.Run("removing missing element is no-op", func(t *testing.T) {
		s.Remove(99)
		assert.Equal(t, 1, s.Size())
	})
}

func TestSafeSet_Values(t *testing.T) {
	s := NewSafeSet[int]()
	s.Add(1)
	s.Add(2)
	s.Add(3)

	values := s.Values()
	assert.ElementsMatch(t, []int{1, 2, 3}, values)

	t.Run("snapshot is independent of later mutation", func(t *testing.T) {
		s.Add(4)
		assert.Len(t, values, 3)
	})
}

func TestSafeSet_Reset(t *testing.T) {
	s := NewSafeSet[int]()
	s.Add(1)
	s.Add(2)

	s.Reset()
	assert.Equal(t, 0, s.Size())
	assert.False(t, s.Contains(1))
}

func TestSafeSet_Range(t *testing.T) {
	s := NewSafeSet[int]()
	for i := 0; i < 5; i++ {
		s.Add(i)
	}

	t.Run("visits all elements", func(t *testing.T) {
		count := 0
		s.Range(func(v int) bool {
			count++
			return true
		})
		assert.Equal(t, 5, count)
	})

	t.Run("stops when f returns false", func(t *testing.T) {
		count := 0
		s.Range(func(v int) bool {
			count++
			return false
		})
		assert.Equal(t, 1, count)
	})
}

func TestSafeSet_concurrent(t *testing.T) {
	s := NewSafeSet[int]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Add(n)
			_ = s.Contains(n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, s.Size())
}
