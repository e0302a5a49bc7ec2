package session

import (
	"time"

	"github.com/cyberinferno/gameserver/logger"
	"github.com/cyberinferno/gameserver/wire"
)

// readBufferSize is the per-read chunk size for the socket read loop.
const readBufferSize = 4096

// handle runs the connection's lifecycle on its owning goroutine: a single
// select over inbound frames, the outbound-queue notification, the keep-alive
// ticker and the idle timer, with teardown on exit. Nothing outside this
// goroutine writes to the socket.
func (s *Session) handle() {
	defer s.teardown()

	s.setState(StateUnauthenticated)
	s.log.Info("connection accepted", logger.Field{Key: "remote", Value: s.conn.RemoteAddr().String()})

	go s.readLoop()

	keepAlive := time.NewTicker(s.srv.cfg.KeepAliveInterval.Std())
	defer keepAlive.Stop()

	idle := time.NewTimer(s.idleTimeout())
	defer idle.Stop()

	for {
		if reason, pending := s.pendingKick(); pending {
			s.log.Info("session kicked", logger.Field{Key: "reason", Value: reason})
			_ = s.flushOutbox()
			_ = s.writeMessages(wire.NewWriter(MsgSKicked).String(reason).Message())
			return
		}

		select {
		case payload, ok := <-s.frames:
			if !ok {
				return
			}

			s.touch()
			if err := s.handleFrame(payload); err != nil {
				s.log.Warn("write failed", logger.Field{Key: "error", Value: err.Error()})
				return
			}
			s.resetIdle(idle)

		case <-s.notify:
			if err := s.flushOutbox(); err != nil {
				s.log.Warn("write failed", logger.Field{Key: "error", Value: err.Error()})
				return
			}

		case <-keepAlive.C:
			if s.State() != StateAuthenticated {
				continue
			}
			if err := s.writeMessages(wire.NewWriter(MsgSKeepAlive).Message()); err != nil {
				return
			}

		case <-idle.C:
			s.log.Info("idle timeout", logger.Field{Key: "state", Value: s.State().String()})
			return

		case err := <-s.readErr:
			if err != nil {
				s.log.Debug("read loop ended", logger.Field{Key: "error", Value: err.Error()})
			}
			return

		case <-s.stop:
			return
		}
	}
}

// readLoop reads the socket, reassembles frames and hands complete frame
// payloads to the owning loop. It exits on socket error, framing violation or
// stop; closing frames tells the owner the stream is done.
func (s *Session) readLoop() {
	defer close(s.frames)

	var splitter wire.FrameSplitter
	buf := make([]byte, readBufferSize)

	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			splitter.Feed(buf[:n])

			for {
				payload, ferr := splitter.Next()
				if ferr != nil {
					// Framing violation, fatal for the connection
					s.reportReadErr(ferr)
					return
				}
				if payload == nil {
					break
				}

				select {
				case s.frames <- payload:
				case <-s.stop:
					return
				}
			}
		}

		if err != nil {
			s.reportReadErr(err)
			return
		}
	}
}

// reportReadErr delivers the read loop's terminal error without blocking.
func (s *Session) reportReadErr(err error) {
	select {
	case s.readErr <- err:
	default:
	}
}

// handleFrame decrypts one frame payload, parses the type tag and dispatches.
// Structural parse errors and handler errors abort the message only; the
// returned error is a socket write failure, which is fatal.
func (s *Session) handleFrame(payload []byte) error {
	wire.DecryptInbound(payload)

	msg, err := wire.ParseMessage(payload)
	if err != nil {
		s.log.Debug("undersized frame dropped", logger.Field{Key: "bytes", Value: len(payload)})
		return nil
	}

	responses, known, err := s.srv.dispatcher.Dispatch(s, msg)
	if !known {
		s.log.Debug("unknown message type ignored", logger.Field{Key: "type", Value: msg.Type})
		return nil
	}
	if err != nil {
		s.log.Warn("handler aborted",
			logger.Field{Key: "type", Value: msg.Type},
			logger.Field{Key: "error", Value: err.Error()})
		return nil
	}

	return s.writeMessages(responses...)
}

// writeMessages encrypts and frames the messages and writes them to the
// socket in order, as a single write.
func (s *Session) writeMessages(msgs ...wire.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	var out []byte
	for _, m := range msgs {
		payload := m.Encode()
		wire.EncryptOutbound(payload)
		out = wire.AppendFrame(out, payload)
	}

	_, err := s.conn.Write(out)
	return err
}

// flushOutbox drains the outbound queue and writes every queued plaintext to
// the socket in enqueue order. Queued payloads are shared between sessions by
// room broadcasts, so each is copied before the in-place encryption.
func (s *Session) flushOutbox() error {
	queued := s.drainOutbox()
	if len(queued) == 0 {
		return nil
	}

	var out []byte
	for _, payload := range queued {
		ciphered := make([]byte, len(payload))
		copy(ciphered, payload)
		wire.EncryptOutbound(ciphered)
		out = wire.AppendFrame(out, ciphered)
	}

	_, err := s.conn.Write(out)
	return err
}

// idleTimeout returns the idle limit for the session's current auth state.
func (s *Session) idleTimeout() time.Duration {
	if s.State() == StateAuthenticated {
		return s.srv.cfg.AuthIdleTimeout.Std()
	}

	return s.srv.cfg.UnauthIdleTimeout.Std()
}

// resetIdle restarts the idle timer after inbound activity.
func (s *Session) resetIdle(idle *time.Timer) {
	if !idle.Stop() {
		select {
		case <-idle.C:
		default:
		}
	}

	idle.Reset(s.idleTimeout())
}

// teardown is the single exit path for the connection goroutine: persist
// position and currency best-effort, notify the room, unregister from the
// world and drop the session.
func (s *Session) teardown() {
	s.setState(StateDisconnecting)

	snap := s.Snapshot()
	if snap.Authenticated {
		if err := s.srv.store.SavePosition(snap.CharacterID, snap.X, snap.Y, snap.RoomID); err != nil {
			s.log.Warn("position save failed", logger.Field{Key: "error", Value: err.Error()})
		}
		if err := s.srv.store.SaveCurrency(snap.CharacterID, snap.Gold); err != nil {
			s.log.Warn("currency save failed", logger.Field{Key: "error", Value: err.Error()})
		}

		left := wire.NewWriter(MsgSPlayerLeft).Uint16(snap.PlayerID).Message()
		s.srv.World.Broadcast(snap.RoomID, left.Encode(), snap.PlayerID)
		s.srv.World.RemovePlayer(snap.PlayerID, snap.RoomID)
	}

	s.srv.Validator.Forget(s.id)
	s.srv.removeSession(s.id)
	_ = s.Close()

	s.setState(StateClosed)
	s.log.Info("connection closed",
		logger.Field{Key: "player", Value: snap.PlayerID},
		logger.Field{Key: "uptime", Value: time.Since(snap.ConnectedAt).String()})
}
