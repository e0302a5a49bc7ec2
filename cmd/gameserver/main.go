// Command gameserver runs the game network server: it loads configuration,
// opens the SQLite state store, wires the clan-name cache (Redis-backed when
// configured) and serves the game protocol until interrupted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cyberinferno/gameserver/cacher"
	"github.com/cyberinferno/gameserver/config"
	"github.com/cyberinferno/gameserver/logger"
	"github.com/cyberinferno/gameserver/persist"
	"github.com/cyberinferno/gameserver/session"
)

const serviceName = "gameserver"

// accountEntry is one record of the accounts file consumed at startup.
type accountEntry struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	AccountID   uint32 `json:"account_id"`
	CharacterID uint32 `json:"character_id"`
	Gold        uint32 `json:"gold"`
	HairID      uint16 `json:"hair_id"`
	FaceID      uint16 `json:"face_id"`
	ClanID      uint32 `json:"clan_id"`
	Moderator   bool   `json:"moderator"`
}

func main() {
	configPath := flag.String("config", "", "path to the JSON config file (defaults apply when empty)")
	accountsPath := flag.String("accounts", "", "path to a JSON accounts file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", cfg.LogLevel, err)
		os.Exit(1)
	}

	log := logger.NewZerologFileLogger(serviceName, cfg.LogDir, level)
	defer func() { _ = log.Close() }()

	store, err := persist.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open state store", logger.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	auth := session.NewMemoryAuthenticator()
	if *accountsPath != "" {
		count, err := loadAccounts(*accountsPath, auth)
		if err != nil {
			log.Error("failed to load accounts", logger.Field{Key: "error", Value: err.Error()})
			os.Exit(1)
		}
		log.Info("accounts loaded", logger.Field{Key: "count", Value: count})
	}

	var clanNames cacher.Cacher[string]
	if cfg.RedisAddr != "" {
		clanNames = cacher.NewRedisCacher[string](redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		log.Info("using redis clan cache", logger.Field{Key: "addr", Value: cfg.RedisAddr})
	} else {
		clanNames = cacher.NewMemoryCacher[string](10*time.Minute, time.Minute)
	}

	srv := session.NewServer(session.Options{
		Config:    cfg,
		Logger:    log,
		Store:     store,
		Auth:      auth,
		ClanNames: clanNames,
		ClanFetch: func(_ context.Context, clanID uint32) (string, error) {
			return store.ClanName(clanID)
		},
	})

	if err := srv.Start(); err != nil {
		log.Error("failed to start server", logger.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("shutting down", logger.Field{Key: "signal", Value: sig.String()})
	srv.Stop()
}

// loadAccounts reads the accounts file into the authenticator.
func loadAccounts(path string, auth *session.MemoryAuthenticator) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read accounts file %s: %w", path, err)
	}

	var entries []accountEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("failed to parse accounts file %s: %w", path, err)
	}

	for _, e := range entries {
		auth.Register(e.Username, e.Password, session.Account{
			AccountID:   e.AccountID,
			CharacterID: e.CharacterID,
			Gold:        e.Gold,
			HairID:      e.HairID,
			FaceID:      e.FaceID,
			ClanID:      e.ClanID,
			Moderator:   e.Moderator,
		})
	}

	return len(entries), nil
}
