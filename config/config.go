// Package config handles configuration loading and defaults for the game
// server. Configuration is a single JSON file; absent fields fall back to
// the defaults below.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	DefaultListenAddr        = ":11011"
	DefaultUnauthIdleTimeout = 30 * time.Second
	DefaultAuthIdleTimeout   = 5 * time.Minute
	DefaultKeepAliveInterval = 45 * time.Second
	DefaultSaveInterval      = 2 * time.Minute
	DefaultStaleSweepPeriod  = time.Minute
	DefaultBucketStale       = 10 * time.Minute
	DefaultMaxPlayerSpeed    = 100.0
	DefaultSpawnRoomID       = 1
	DefaultSpawnX            = 100.0
	DefaultSpawnY            = 100.0
	DefaultDatabasePath      = "data/gameserver.db"
	DefaultLogDir            = "logs"
	DefaultLogLevel          = "info"
)

// Config is the root configuration for the game server.
type Config struct {
	// ListenAddr is the TCP address the server binds to.
	ListenAddr string `json:"listen_addr"`

	// UnauthIdleTimeout disconnects sessions that have not authenticated
	// within this period of inactivity.
	UnauthIdleTimeout Duration `json:"unauth_idle_timeout"`

	// AuthIdleTimeout disconnects authenticated sessions after this period
	// without a received byte.
	AuthIdleTimeout Duration `json:"auth_idle_timeout"`

	// KeepAliveInterval is how often the server pings authenticated clients
	// so they do not time the connection out on their side.
	KeepAliveInterval Duration `json:"keep_alive_interval"`

	// SaveInterval is the period of the background save sweep for online
	// players.
	SaveInterval Duration `json:"save_interval"`

	// StaleSweepPeriod is how often the backstop reaper looks for sessions
	// whose own loop stopped making progress.
	StaleSweepPeriod Duration `json:"stale_sweep_period"`

	// RateLimitStale is how long a rate-limit bucket may sit idle before it
	// is reclaimed.
	RateLimitStale Duration `json:"rate_limit_stale"`

	// MaxPlayerSpeed is the maximum legitimate player speed in world units
	// per second, consumed by the movement validator.
	MaxPlayerSpeed float64 `json:"max_player_speed"`

	// SpawnRoomID, SpawnX, SpawnY describe where fresh characters appear.
	SpawnRoomID int32   `json:"spawn_room_id"`
	SpawnX      float64 `json:"spawn_x"`
	SpawnY      float64 `json:"spawn_y"`

	// DatabasePath is the SQLite file for character state.
	DatabasePath string `json:"database_path"`

	// RedisAddr enables the Redis-backed profile cache when non-empty;
	// otherwise the in-process memory cache is used.
	RedisAddr string `json:"redis_addr"`

	// LogDir and LogLevel configure the rotating file logger.
	LogDir   string `json:"log_dir"`
	LogLevel string `json:"log_level"`
}

// Duration wraps time.Duration so JSON configs can use strings like "30s".
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler for strings ("45s") and raw
// nanosecond numbers.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration value %v", v)
	}
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a Config populated with every default value.
//
// Returns:
//   - A Config ready for use without a config file
func Default() *Config {
	return &Config{
		ListenAddr:        DefaultListenAddr,
		UnauthIdleTimeout: Duration(DefaultUnauthIdleTimeout),
		AuthIdleTimeout:   Duration(DefaultAuthIdleTimeout),
		KeepAliveInterval: Duration(DefaultKeepAliveInterval),
		SaveInterval:      Duration(DefaultSaveInterval),
		StaleSweepPeriod:  Duration(DefaultStaleSweepPeriod),
		RateLimitStale:    Duration(DefaultBucketStale),
		MaxPlayerSpeed:    DefaultMaxPlayerSpeed,
		SpawnRoomID:       DefaultSpawnRoomID,
		SpawnX:            DefaultSpawnX,
		SpawnY:            DefaultSpawnY,
		DatabasePath:      DefaultDatabasePath,
		LogDir:            DefaultLogDir,
		LogLevel:          DefaultLogLevel,
	}
}

// Load reads a JSON config file, applying defaults for absent fields.
//
// Parameters:
//   - path: Path to the JSON config file
//
// Returns:
//   - The loaded Config, or an error if the file is unreadable or invalid
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the config for values the server cannot run with.
//
// Returns:
//   - An error naming the first invalid field, or nil
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.MaxPlayerSpeed <= 0 {
		return fmt.Errorf("max_player_speed must be positive")
	}
	if c.UnauthIdleTimeout.Std() <= 0 || c.AuthIdleTimeout.Std() <= 0 {
		return fmt.Errorf("idle timeouts must be positive")
	}
	if c.KeepAliveInterval.Std() <= 0 {
		return fmt.Errorf("keep_alive_interval must be positive")
	}

	return nil
}
