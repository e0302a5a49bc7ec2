// Package idgenerator provides concurrency-safe monotonic id sources for
// session and player identifiers.
package idgenerator

import "sync/atomic"

// IdGenerator generates monotonically increasing uint32 IDs in a concurrency-safe
// manner. Each call to Id returns the next ID. The starting value is set at
// construction and the first Id() returns startValue+1.
type IdGenerator struct {
	start uint32
	id    atomic.Uint32
}

// NewIdGenerator creates an IdGenerator that will generate IDs starting from
// startValue+1. The generator is safe for concurrent use.
//
// Parameters:
//   - startValue: The value to initialize the counter to; the first Id() will
//     return startValue+1
//
// Returns:
//   - A new IdGenerator instance
func NewIdGenerator(startValue uint32) *IdGenerator {
	gen := &IdGenerator{
		start: startValue,
	}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next unique ID by atomically incrementing the internal counter.
// It is safe for concurrent use by multiple goroutines.
//
// Returns:
//   - The next uint32 ID
func (l *IdGenerator) Id() uint32 {
	return l.id.Add(1)
}

// Id16 returns the next ID truncated to the 16-bit range used on the wire,
// skipping zero. After 65535 assignments the counter wraps and previously
// issued values repeat; callers that keep long-lived ids must tolerate reuse.
//
// Returns:
//   - The next non-zero uint16 ID
func (l *IdGenerator) Id16() uint16 {
	for {
		id := uint16(l.id.Add(1))
		if id != 0 {
			return id
		}
	}
}
