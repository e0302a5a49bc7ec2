package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeSession builds a session over one end of a net.Pipe, attached to an
// unstarted server.
func pipeSession(t *testing.T) *Session {
	t.Helper()

	srv := NewServer(Options{})
	clientEnd, serverEnd := newTestPipe(t)
	_ = clientEnd

	sess := newSession(srv.sessionIDs.Id(), serverEnd, srv)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestSessionState(t *testing.T) {
	t.Run("starts connecting and authenticates", func(t *testing.T) {
		sess := pipeSession(t)
		assert.Equal(t, StateConnecting, sess.State())

		sess.Authenticate(7, 100, 200, 1, 100, 100)
		assert.Equal(t, StateAuthenticated, sess.State())

		snap := sess.Snapshot()
		assert.Equal(t, uint16(7), snap.PlayerID)
		assert.Equal(t, uint32(100), snap.AccountID)
		assert.Equal(t, uint32(200), snap.CharacterID)
		assert.Equal(t, int32(1), snap.RoomID)
		assert.True(t, snap.Authenticated)
	})

	t.Run("mutators are visible in the next snapshot", func(t *testing.T) {
		sess := pipeSession(t)
		sess.Authenticate(7, 100, 200, 1, 100, 100)

		sess.SetPosition(250, 300)
		sess.SetRoom(5)
		sess.SetGold(999)
		sess.SetAppearance(3, 4)
		sess.SetModerator(true)
		sess.SetClan(12, "Night Watch")
		sess.SetRaceProgress(2)

		snap := sess.Snapshot()
		assert.Equal(t, 250.0, snap.X)
		assert.Equal(t, 300.0, snap.Y)
		assert.Equal(t, int32(5), snap.RoomID)
		assert.Equal(t, uint32(999), snap.Gold)
		assert.Equal(t, uint16(3), snap.HairID)
		assert.Equal(t, uint16(4), snap.FaceID)
		assert.True(t, snap.Moderator)
		assert.Equal(t, uint32(12), snap.ClanID)
		assert.Equal(t, "Night Watch", snap.ClanName)
		assert.Equal(t, uint8(2), snap.RaceProgress)
	})
}

func TestSessionOutbox(t *testing.T) {
	t.Run("drains in enqueue order", func(t *testing.T) {
		sess := pipeSession(t)

		sess.EnqueueMessage([]byte{1})
		sess.EnqueueMessage([]byte{2})
		sess.EnqueueMessage([]byte{3})

		drained := sess.drainOutbox()
		require.Len(t, drained, 3)
		assert.Equal(t, []byte{1}, drained[0])
		assert.Equal(t, []byte{2}, drained[1])
		assert.Equal(t, []byte{3}, drained[2])
		assert.Empty(t, sess.drainOutbox())
	})

	t.Run("enqueue signals the notify channel", func(t *testing.T) {
		sess := pipeSession(t)

		sess.EnqueueMessage([]byte{1})
		select {
		case <-sess.notify:
		default:
			t.Fatal("expected a pending notification")
		}
	})
}

func TestSessionKick(t *testing.T) {
	t.Run("first reason wins", func(t *testing.T) {
		sess := pipeSession(t)

		sess.Kick("cheating")
		sess.Kick("logout")

		reason, pending := sess.pendingKick()
		assert.True(t, pending)
		assert.Equal(t, "cheating", reason)
	})

	t.Run("no kick pending by default", func(t *testing.T) {
		sess := pipeSession(t)

		_, pending := sess.pendingKick()
		assert.False(t, pending)
	})
}

func TestMemoryAuthenticator(t *testing.T) {
	auth := NewMemoryAuthenticator()
	auth.Register("karin", "hunter2", Account{AccountID: 1, CharacterID: 10, Gold: 500})

	t.Run("valid credentials resolve the account", func(t *testing.T) {
		account, err := auth.Authenticate(context.Background(), "karin", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, uint32(1), account.AccountID)
		assert.Equal(t, uint32(10), account.CharacterID)
		assert.Equal(t, uint32(500), account.Gold)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := auth.Authenticate(context.Background(), "karin", "wrong")
		assert.ErrorIs(t, err, ErrBadCredential)
	})

	t.Run("unknown account is rejected", func(t *testing.T) {
		_, err := auth.Authenticate(context.Background(), "nobody", "hunter2")
		assert.ErrorIs(t, err, ErrBadCredential)
	})
}
