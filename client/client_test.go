package client

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/gameserver/wire"
)

// startEchoServer accepts one connection and echoes every decoded message
// back, re-encrypted server-side the way the game server would.
func startEchoServer(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var splitter wire.FrameSplitter
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				splitter.Feed(buf[:n])
				for {
					payload, ferr := splitter.Next()
					if ferr != nil || payload == nil {
						break
					}

					wire.DecryptInbound(payload)
					wire.EncryptOutbound(payload)
					if _, werr := conn.Write(wire.AppendFrame(nil, payload)); werr != nil {
						return
					}
				}
			}
			if err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestClientRoundTrip(t *testing.T) {
	addr := startEchoServer(t)

	c := New(DefaultConfig(addr))
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Close() })

	t.Run("sent message comes back intact", func(t *testing.T) {
		sent := wire.NewWriter(0x0042).Uint16(7).String("hello").Message()
		require.NoError(t, c.Send(sent))

		got, err := c.Receive(2 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, sent.Type, got.Type)
		assert.Equal(t, sent.Body, got.Body)
	})

	t.Run("messages arrive in send order", func(t *testing.T) {
		first := wire.NewWriter(0x0001).Uint32(1).Message()
		second := wire.NewWriter(0x0002).Uint32(2).Message()
		require.NoError(t, c.Send(first))
		require.NoError(t, c.Send(second))

		got1, err := c.Receive(2 * time.Second)
		require.NoError(t, err)
		got2, err := c.Receive(2 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, uint16(0x0001), got1.Type)
		assert.Equal(t, uint16(0x0002), got2.Type)
	})
}

func TestClientLifecycle(t *testing.T) {
	t.Run("connect fails after close", func(t *testing.T) {
		c := New(DefaultConfig("127.0.0.1:1"))
		require.NoError(t, c.Close())
		assert.ErrorIs(t, c.Connect(), ErrClosed)
	})

	t.Run("send fails when not connected", func(t *testing.T) {
		c := New(DefaultConfig("127.0.0.1:1"))
		t.Cleanup(func() { _ = c.Close() })
		assert.Error(t, c.Send(wire.NewWriter(0x0001).Message()))
	})

	t.Run("receive reports closed connection", func(t *testing.T) {
		addr := startEchoServer(t)
		c := New(DefaultConfig(addr))
		require.NoError(t, c.Connect())
		require.NoError(t, c.Close())

		_, err := c.Receive(2 * time.Second)
		assert.ErrorIs(t, err, ErrClosed)
	})
}
