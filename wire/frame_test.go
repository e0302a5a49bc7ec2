package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendFrame(t *testing.T) {
	t.Run("prefixes payload with little-endian length", func(t *testing.T) {
		out := AppendFrame(nil, []byte{0xaa, 0xbb, 0xcc})
		assert.Equal(t, []byte{0x03, 0x00, 0xaa, 0xbb, 0xcc}, out)
	})

	t.Run("empty payload produces a zero-length frame", func(t *testing.T) {
		out := AppendFrame(nil, nil)
		assert.Equal(t, []byte{0x00, 0x00}, out)
	})

	t.Run("appends to existing buffer", func(t *testing.T) {
		out := AppendFrame([]byte{0xff}, []byte{0x01})
		assert.Equal(t, []byte{0xff, 0x01, 0x00, 0x01}, out)
	})
}

func TestFrameSplitter_Next(t *testing.T) {
	t.Run("no complete frame yields nil", func(t *testing.T) {
		var s FrameSplitter
		s.Feed([]byte{0x05, 0x00, 0x01})

		frame, err := s.Next()
		require.NoError(t, err)
		assert.Nil(t, frame)
	})

	t.Run("complete frame is returned without prefix", func(t *testing.T) {
		var s FrameSplitter
		s.Feed(AppendFrame(nil, []byte{0x01, 0x02}))

		frame, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x02}, frame)
		assert.Equal(t, 0, s.Buffered())
	})

	t.Run("two concatenated frames arrive in order", func(t *testing.T) {
		var s FrameSplitter
		buf := AppendFrame(nil, []byte("first"))
		buf = AppendFrame(buf, []byte("second"))
		s.Feed(buf)

		f1, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), f1)

		f2, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), f2)

		f3, err := s.Next()
		require.NoError(t, err)
		assert.Nil(t, f3)
	})

	t.Run("frames split at arbitrary byte boundaries", func(t *testing.T) {
		payloads := [][]byte{[]byte("alpha"), []byte("b"), []byte("gamma ray")}
		var stream []byte
		for _, p := range payloads {
			stream = AppendFrame(stream, p)
		}

		// Feed the stream one byte at a time, the worst possible split
		var s FrameSplitter
		var got [][]byte
		for _, b := range stream {
			s.Feed([]byte{b})
			for {
				frame, err := s.Next()
				require.NoError(t, err)
				if frame == nil {
					break
				}
				got = append(got, frame)
			}
		}

		assert.Equal(t, payloads, got)
	})

	t.Run("declared length above the ceiling is an error", func(t *testing.T) {
		var s FrameSplitter
		header := binary.LittleEndian.AppendUint16(nil, MaxFrameLength+1)
		s.Feed(header)

		_, err := s.Next()
		assert.ErrorIs(t, err, ErrFrameTooLarge)
	})

	t.Run("length exactly at the ceiling is accepted", func(t *testing.T) {
		var s FrameSplitter
		payload := make([]byte, MaxFrameLength)
		s.Feed(AppendFrame(nil, payload))

		frame, err := s.Next()
		require.NoError(t, err)
		assert.Len(t, frame, MaxFrameLength)
	})
}
