// Package persist implements the durable-storage collaborator the connection
// engine flushes to: last known position and currency, written best-effort on
// disconnect and by the periodic save sweep.
package persist

import "errors"

// ErrNoState is returned by state reads for a character that has never been
// saved. Login falls back to the configured spawn when it sees this.
var ErrNoState = errors.New("persist: no saved state")

// Store is the surface the core writes through. Calls are fire-and-forget
// best-effort; the engine logs failures and carries on.
type Store interface {
	// SavePosition records the character's last known position.
	//
	// Parameters:
	//   - characterID: The character's durable id
	//   - x: The x position
	//   - y: The y position
	//   - roomID: The room the character was in
	//
	// Returns:
	//   - An error if the write failed
	SavePosition(characterID uint32, x, y float64, roomID int32) error

	// SaveCurrency records the character's currency counter.
	//
	// Parameters:
	//   - characterID: The character's durable id
	//   - amount: The currency amount
	//
	// Returns:
	//   - An error if the write failed
	SaveCurrency(characterID uint32, amount uint32) error

	// Close releases the store's resources. Safe to call multiple times.
	//
	// Returns:
	//   - An error if closing failed
	Close() error
}

// NopStore discards all writes. Used in tests and when the server runs
// without durable storage.
type NopStore struct{}

// SavePosition implements Store.
func (NopStore) SavePosition(uint32, float64, float64, int32) error { return nil }

// SaveCurrency implements Store.
func (NopStore) SaveCurrency(uint32, uint32) error { return nil }

// Close implements Store.
func (NopStore) Close() error { return nil }
