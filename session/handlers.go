package session

import (
	"context"
	"errors"

	"github.com/cyberinferno/gameserver/anticheat"
	"github.com/cyberinferno/gameserver/logger"
	"github.com/cyberinferno/gameserver/ratelimit"
	"github.com/cyberinferno/gameserver/wire"
)

// stateLoader is the optional restore surface of a persist.Store. When the
// configured store implements it, login restores the character's last saved
// position and currency instead of using the configured spawn.
type stateLoader interface {
	LoadState(characterID uint32) (x, y float64, roomID int32, currency uint32, err error)
}

// registerCoreHandlers installs the built-in handlers that exercise the
// engine: auth, liveness, movement, warp, collectible pickup and chat relay.
// Richer gameplay handlers are registered by the embedding application.
func (s *Server) registerCoreHandlers() {
	s.dispatcher.Register(MsgCLogin, s.handleLogin)
	s.dispatcher.Register(MsgCLogout, s.handleLogout)
	s.dispatcher.Register(MsgCKeepAlive, s.handleKeepAlive)
	s.dispatcher.Register(MsgCMove, s.handleMove)
	s.dispatcher.Register(MsgCWarp, s.handleWarp)
	s.dispatcher.Register(MsgCTakeSpawn, s.handleTakeSpawn)
	s.dispatcher.Register(MsgCChat, s.handleChat)
}

// handleLogin authenticates the connection, assigns a player id, restores
// persisted state, joins the world and announces the arrival to the room.
// Unauthenticated logins are rate limited by source address.
func (s *Server) handleLogin(sess *Session, msg wire.Message) ([]wire.Message, error) {
	if sess.State() == StateAuthenticated {
		return []wire.Message{wire.NewWriter(MsgSLoginResult).Uint8(LoginAlreadyAuthed).Message()}, nil
	}

	if !s.Limiter.Check(ratelimit.AddrKey(sess.conn.RemoteAddr().String()), ratelimit.ActionLogin).Ok() {
		return nil, nil
	}

	r := wire.NewReader(msg.Body)
	username := r.String()
	password := r.String()
	if err := r.Err(); err != nil {
		return nil, err
	}

	account, err := s.auth.Authenticate(context.Background(), username, password)
	if errors.Is(err, ErrBadCredential) {
		return []wire.Message{wire.NewWriter(MsgSLoginResult).Uint8(LoginBadCredential).Message()}, nil
	}
	if err != nil {
		return nil, err
	}

	roomID := s.cfg.SpawnRoomID
	x, y := s.cfg.SpawnX, s.cfg.SpawnY
	gold := account.Gold
	if loader, ok := s.store.(stateLoader); ok {
		if lx, ly, lroom, lgold, lerr := loader.LoadState(account.CharacterID); lerr == nil {
			x, y, roomID, gold = lx, ly, lroom, lgold
		}
	}

	playerID := s.playerIDs.Id16()
	sess.Authenticate(playerID, account.AccountID, account.CharacterID, roomID, x, y)
	sess.SetGold(gold)
	sess.SetAppearance(account.HairID, account.FaceID)
	sess.SetModerator(account.Moderator)
	sess.SetClan(account.ClanID, s.clanName(context.Background(), account.ClanID))

	s.World.AddPlayer(playerID, roomID, sess.id)

	joined := wire.NewWriter(MsgSPlayerJoined).
		Uint16(playerID).
		Int32(int32(x)).
		Int32(int32(y)).
		String(username).
		Message()
	s.World.Broadcast(roomID, joined.Encode(), playerID)

	s.log.Info("player logged in",
		logger.Field{Key: "player", Value: playerID},
		logger.Field{Key: "account", Value: account.AccountID},
		logger.Field{Key: "room", Value: roomID})

	resp := wire.NewWriter(MsgSLoginResult).
		Uint8(LoginOK).
		Uint16(playerID).
		Int32(roomID).
		Int32(int32(x)).
		Int32(int32(y)).
		Uint32(gold).
		Message()

	return []wire.Message{resp}, nil
}

// handleLogout requests a cooperative disconnect; teardown performs the
// persist, broadcast and unregister steps.
func (s *Server) handleLogout(sess *Session, _ wire.Message) ([]wire.Message, error) {
	sess.Kick("logout")
	return nil, nil
}

// handleKeepAlive echoes the client's liveness probe.
func (s *Server) handleKeepAlive(_ *Session, _ wire.Message) ([]wire.Message, error) {
	return []wire.Message{wire.NewWriter(MsgSKeepAlive).Message()}, nil
}

// handleMove validates one position update, applies it and relays it to the
// room. Rate-limited and anticheat-rejected updates are dropped without a
// response; repeated violations escalate to a kick.
func (s *Server) handleMove(sess *Session, msg wire.Message) ([]wire.Message, error) {
	snap := sess.Snapshot()
	if !snap.Authenticated {
		return nil, nil
	}

	if !s.Limiter.Check(ratelimit.PlayerKey(snap.PlayerID), ratelimit.ActionMovement).Ok() {
		return nil, nil
	}

	r := wire.NewReader(msg.Body)
	x := float64(r.Int32())
	y := float64(r.Int32())
	if err := r.Err(); err != nil {
		return nil, err
	}

	verdict := s.Validator.Check(sess.id, x, y, snap.RoomID)
	if verdict.Class != anticheat.Clean {
		s.log.Warn("movement rejected",
			logger.Field{Key: "player", Value: snap.PlayerID},
			logger.Field{Key: "class", Value: verdict.Class.String()},
			logger.Field{Key: "reason", Value: verdict.Reason},
			logger.Field{Key: "severity", Value: verdict.Severity})

		if s.Validator.ShouldKick(sess.id) {
			if s.Validator.ShouldBan(sess.id) {
				s.log.Error("ban threshold reached",
					logger.Field{Key: "player", Value: snap.PlayerID},
					logger.Field{Key: "character", Value: snap.CharacterID})
			}

			sess.Kick("movement violations")
		}

		return nil, nil
	}

	sess.SetPosition(x, y)

	moved := wire.NewWriter(MsgSPlayerMoved).
		Uint16(snap.PlayerID).
		Int32(int32(x)).
		Int32(int32(y)).
		Message()
	s.World.Broadcast(snap.RoomID, moved.Encode(), snap.PlayerID)

	return nil, nil
}

// handleWarp moves the player to another room at a server-sanctioned
// position, arming the one-shot warp exemption so the jump does not count as
// a movement violation.
func (s *Server) handleWarp(sess *Session, msg wire.Message) ([]wire.Message, error) {
	snap := sess.Snapshot()
	if !snap.Authenticated {
		return nil, nil
	}

	if !s.Limiter.Check(ratelimit.PlayerKey(snap.PlayerID), ratelimit.ActionWarp).Ok() {
		return nil, nil
	}

	r := wire.NewReader(msg.Body)
	roomID := r.Int32()
	x := float64(r.Int32())
	y := float64(r.Int32())
	if err := r.Err(); err != nil {
		return nil, err
	}

	s.Validator.AllowWarp(sess.id)

	left := wire.NewWriter(MsgSPlayerLeft).Uint16(snap.PlayerID).Message()
	s.World.Broadcast(snap.RoomID, left.Encode(), snap.PlayerID)

	s.World.AddPlayer(snap.PlayerID, roomID, sess.id)
	sess.SetRoom(roomID)
	sess.SetPosition(x, y)

	joined := wire.NewWriter(MsgSPlayerJoined).
		Uint16(snap.PlayerID).
		Int32(int32(x)).
		Int32(int32(y)).
		String("").
		Message()
	s.World.Broadcast(roomID, joined.Encode(), snap.PlayerID)

	resp := wire.NewWriter(MsgSWarped).
		Int32(roomID).
		Int32(int32(x)).
		Int32(int32(y)).
		Message()

	return []wire.Message{resp}, nil
}

// handleTakeSpawn attempts to take a collectible spawn in the player's room.
// At most one taker succeeds per respawn cycle; the grant is announced to the
// rest of the room so clients despawn the collectible.
func (s *Server) handleTakeSpawn(sess *Session, msg wire.Message) ([]wire.Message, error) {
	snap := sess.Snapshot()
	if !snap.Authenticated {
		return nil, nil
	}

	if !s.Limiter.Check(ratelimit.PlayerKey(snap.PlayerID), ratelimit.ActionItemUse).Ok() {
		return nil, nil
	}

	r := wire.NewReader(msg.Body)
	spawnID := r.Uint16()
	if err := r.Err(); err != nil {
		return nil, err
	}

	def, ok := s.World.GetOrCreateRoom(snap.RoomID).TakeSpawn(spawnID)
	if !ok {
		return []wire.Message{wire.NewWriter(MsgSSpawnResult).Uint8(SpawnUnavailable).Uint16(spawnID).Message()}, nil
	}

	taken := wire.NewWriter(MsgSSpawnResult).
		Uint8(SpawnTaken).
		Uint16(spawnID).
		Uint16(snap.PlayerID).
		Uint32(def.ItemID).
		Message()
	s.World.Broadcast(snap.RoomID, taken.Encode(), snap.PlayerID)

	return []wire.Message{taken}, nil
}

// handleChat relays a chat line to everyone in the room, the sender included
// so their client renders the line only once confirmed.
func (s *Server) handleChat(sess *Session, msg wire.Message) ([]wire.Message, error) {
	snap := sess.Snapshot()
	if !snap.Authenticated {
		return nil, nil
	}

	if !s.Limiter.Check(ratelimit.PlayerKey(snap.PlayerID), ratelimit.ActionChat).Ok() {
		return nil, nil
	}

	r := wire.NewReader(msg.Body)
	text := r.String()
	if err := r.Err(); err != nil {
		return nil, err
	}

	line := wire.NewWriter(MsgSChat).
		Uint16(snap.PlayerID).
		String(text).
		Message()
	s.World.Broadcast(snap.RoomID, line.Encode(), 0)

	return nil, nil
}
