package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/gameserver/anticheat"
	"github.com/cyberinferno/gameserver/cacher"
	"github.com/cyberinferno/gameserver/config"
	"github.com/cyberinferno/gameserver/idgenerator"
	"github.com/cyberinferno/gameserver/logger"
	"github.com/cyberinferno/gameserver/persist"
	"github.com/cyberinferno/gameserver/ratelimit"
	"github.com/cyberinferno/gameserver/safemap"
	"github.com/cyberinferno/gameserver/world"
)

// clanNameTTL bounds how long a cached clan name is served before the lookup
// runs again.
const clanNameTTL = 10 * time.Minute

// ClanLookup fetches a clan's display name from its backing store on a cache
// miss.
type ClanLookup func(ctx context.Context, clanID uint32) (string, error)

// Options carries the server's collaborators. Zero-value fields fall back to
// safe defaults: default config, no-op logger, no-op store, an empty memory
// authenticator, no clan lookups.
type Options struct {
	Config    *config.Config
	Logger    logger.Logger
	Store     persist.Store
	Auth      Authenticator
	ClanNames cacher.Cacher[string]
	ClanFetch ClanLookup
}

// Server owns the listener, the accept loop, the live-session registry and
// the background sweeps. It implements world.SessionResolver so room
// broadcasts can reach each occupant's outbound queue.
type Server struct {
	cfg *config.Config
	log logger.Logger

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
	done     chan struct{}

	sessions   *safemap.SafeMap[uint32, *Session]
	sessionIDs *idgenerator.IdGenerator
	playerIDs  *idgenerator.IdGenerator

	World      *world.Registry
	Limiter    *ratelimit.Limiter
	Validator  *anticheat.Validator
	dispatcher *Dispatcher

	store     persist.Store
	auth      Authenticator
	clanNames cacher.Cacher[string]
	clanFetch ClanLookup
}

// NewServer wires a Server from its collaborators and registers the built-in
// handlers. Start must be called before the server accepts connections.
//
// Parameters:
//   - opts: The server's collaborators; zero-value fields get safe defaults
//
// Returns:
//   - A Server ready to Start
func NewServer(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	store := opts.Store
	if store == nil {
		store = persist.NopStore{}
	}

	auth := opts.Auth
	if auth == nil {
		auth = NewMemoryAuthenticator()
	}

	srv := &Server{
		cfg:        cfg,
		log:        log,
		done:       make(chan struct{}),
		sessions:   safemap.NewSafeMap[uint32, *Session](),
		sessionIDs: idgenerator.NewIdGenerator(0),
		playerIDs:  idgenerator.NewIdGenerator(0),
		Limiter:    ratelimit.NewLimiter(ratelimit.DefaultPolicies(), cfg.RateLimitStale.Std()),
		Validator:  anticheat.NewValidator(cfg.MaxPlayerSpeed),
		dispatcher: NewDispatcher(),
		store:      store,
		auth:       auth,
		clanNames:  opts.ClanNames,
		clanFetch:  opts.ClanFetch,
	}

	srv.World = world.NewRegistry(srv, log)
	srv.registerCoreHandlers()

	return srv
}

// Register installs a gameplay handler for a message type. Handlers for the
// richer gameplay surface (shop, mail, clans) plug in here before Start.
//
// Parameters:
//   - msgType: The u16 message type tag
//   - h: The handler
func (s *Server) Register(msgType uint16, h Handler) {
	s.dispatcher.Register(msgType, h)
}

// Start binds the listener and launches the accept loop and background
// sweeps.
//
// Returns:
//   - An error if the listen address cannot be bound
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}

	s.listener = ln
	s.running.Store(true)

	s.wg.Add(3)
	go s.acceptLoop()
	go s.saveSweep()
	go s.staleSweep()

	s.log.Info("server started", logger.Field{Key: "addr", Value: ln.Addr().String()})
	return nil
}

// Stop closes the listener, disconnects every live session and waits for all
// connection goroutines to finish. Safe to call once.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	close(s.done)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.sessions.Range(func(_ uint32, sess *Session) bool {
		_ = sess.Close()
		return true
	})

	s.wg.Wait()
	s.log.Info("server stopped")
}

// Addr returns the bound listen address, useful when the config requested an
// ephemeral port.
//
// Returns:
//   - The listener's address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Session implements world.SessionResolver.
//
// Parameters:
//   - sessionID: The session to look up
//
// Returns:
//   - The session's outbound queue and true, or nil and false if not live
func (s *Server) Session(sessionID uint32) (world.Enqueuer, bool) {
	sess, ok := s.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}

	return sess, true
}

// OnlineCount returns the number of live sessions.
//
// Returns:
//   - The session count
func (s *Server) OnlineCount() int {
	return s.sessions.Len()
}

// acceptLoop accepts connections until the listener closes, spawning one
// goroutine per connection.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}

			s.log.Warn("accept failed", logger.Field{Key: "error", Value: err.Error()})
			continue
		}

		sess := newSession(s.sessionIDs.Id(), conn, s)
		s.sessions.Store(sess.id, sess)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.handle()
		}()
	}
}

// removeSession drops the session from the registry. Called from the owning
// connection goroutine during teardown.
func (s *Server) removeSession(sessionID uint32) {
	s.sessions.Delete(sessionID)
}

// saveSweep periodically persists position and currency for every
// authenticated session, so a crash loses at most one interval of progress.
func (s *Server) saveSweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SaveInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sessions.Range(func(_ uint32, sess *Session) bool {
				snap := sess.Snapshot()
				if !snap.Authenticated {
					return true
				}

				if err := s.store.SavePosition(snap.CharacterID, snap.X, snap.Y, snap.RoomID); err != nil {
					s.log.Warn("position save failed",
						logger.Field{Key: "character", Value: snap.CharacterID},
						logger.Field{Key: "error", Value: err.Error()})
				}
				if err := s.store.SaveCurrency(snap.CharacterID, snap.Gold); err != nil {
					s.log.Warn("currency save failed",
						logger.Field{Key: "character", Value: snap.CharacterID},
						logger.Field{Key: "error", Value: err.Error()})
				}

				return true
			})
		case <-s.done:
			return
		}
	}
}

// staleSweep is the backstop reaper: sessions enforce their own idle timeouts,
// but a session whose loop stopped making progress is force-closed here once
// it has been silent for well past the authenticated timeout.
func (s *Server) staleSweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.StaleSweepPeriod.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * s.cfg.AuthIdleTimeout.Std())
			s.sessions.Range(func(_ uint32, sess *Session) bool {
				snap := sess.Snapshot()
				if snap.LastActivity.Before(cutoff) {
					s.log.Warn("reaping stale session", logger.Field{Key: "session", Value: snap.ID})
					_ = sess.Close()
				}

				return true
			})
		case <-s.done:
			return
		}
	}
}

// clanName resolves a clan id to its display name through the read-through
// cache. Returns "" when lookups are not configured or the fetch fails.
func (s *Server) clanName(ctx context.Context, clanID uint32) string {
	if clanID == 0 || s.clanFetch == nil {
		return ""
	}

	if s.clanNames == nil {
		name, err := s.clanFetch(ctx, clanID)
		if err != nil {
			s.log.Warn("clan lookup failed",
				logger.Field{Key: "clan", Value: clanID},
				logger.Field{Key: "error", Value: err.Error()})
			return ""
		}

		return name
	}

	name, err := s.clanNames.GetOrFetch(ctx, fmt.Sprintf("clan:%d", clanID), clanNameTTL, func(ctx context.Context) (string, error) {
		return s.clanFetch(ctx, clanID)
	})
	if err != nil {
		s.log.Warn("clan lookup failed",
			logger.Field{Key: "clan", Value: clanID},
			logger.Field{Key: "error", Value: err.Error()})
		return ""
	}

	return name
}
