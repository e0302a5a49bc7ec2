package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists character state to a SQLite database. Writes are
// serialized behind a mutex; SQLite does not support concurrent writers.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS character_state (
	character_id INTEGER PRIMARY KEY,
	x            REAL NOT NULL DEFAULT 0,
	y            REAL NOT NULL DEFAULT 0,
	room_id      INTEGER NOT NULL DEFAULT 0,
	currency     INTEGER NOT NULL DEFAULT 0,
	updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS clans (
	clan_id INTEGER PRIMARY KEY,
	name    TEXT NOT NULL
);`

// NewSQLiteStore opens or creates a SQLite database at the given path and
// ensures the schema exists. The parent directory is created if missing.
//
// Parameters:
//   - dbPath: Path to the database file (":memory:" works for tests)
//
// Returns:
//   - The store, or an error if the database could not be opened
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	// SQLite does not support concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SavePosition implements Store.
func (s *SQLiteStore) SavePosition(characterID uint32, x, y float64, roomID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO character_state (character_id, x, y, room_id, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(character_id) DO UPDATE SET
			x = excluded.x,
			y = excluded.y,
			room_id = excluded.room_id,
			updated_at = excluded.updated_at`,
		characterID, x, y, roomID)
	if err != nil {
		return fmt.Errorf("failed to save position for character %d: %w", characterID, err)
	}

	return nil
}

// SaveCurrency implements Store.
func (s *SQLiteStore) SaveCurrency(characterID uint32, amount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO character_state (character_id, currency, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(character_id) DO UPDATE SET
			currency = excluded.currency,
			updated_at = excluded.updated_at`,
		characterID, amount)
	if err != nil {
		return fmt.Errorf("failed to save currency for character %d: %w", characterID, err)
	}

	return nil
}

// LoadState returns the character's saved position, room, and currency.
// Used at login to restore where the character left off.
//
// Parameters:
//   - characterID: The character's durable id
//
// Returns:
//   - The position, room id, and currency
//   - ErrNoState if the character was never saved, other errors on failure
func (s *SQLiteStore) LoadState(characterID uint32) (x, y float64, roomID int32, currency uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT x, y, room_id, currency FROM character_state WHERE character_id = ?`,
		characterID)

	err = row.Scan(&x, &y, &roomID, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, 0, 0, ErrNoState
	}
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to load state for character %d: %w", characterID, err)
	}

	return x, y, roomID, currency, nil
}

// SaveClan adds or renames a clan.
//
// Parameters:
//   - clanID: The clan's id
//   - name: The clan's display name
//
// Returns:
//   - An error if the write failed
func (s *SQLiteStore) SaveClan(clanID uint32, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO clans (clan_id, name) VALUES (?, ?)
		ON CONFLICT(clan_id) DO UPDATE SET name = excluded.name`,
		clanID, name)
	if err != nil {
		return fmt.Errorf("failed to save clan %d: %w", clanID, err)
	}

	return nil
}

// ClanName returns a clan's display name. Backs the engine's clan-name cache.
//
// Parameters:
//   - clanID: The clan's id
//
// Returns:
//   - The name, or "" with a nil error for an unknown clan
func (s *SQLiteStore) ClanName(clanID uint32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var name string
	err := s.db.QueryRow(`SELECT name FROM clans WHERE clan_id = ?`, clanID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load clan %d: %w", clanID, err)
	}

	return name, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
