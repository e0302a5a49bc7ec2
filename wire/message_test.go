package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	t.Run("reads type tag and body", func(t *testing.T) {
		msg, err := ParseMessage([]byte{0x34, 0x12, 0xaa, 0xbb})
		require.NoError(t, err)
		assert.Equal(t, uint16(0x1234), msg.Type)
		assert.Equal(t, []byte{0xaa, 0xbb}, msg.Body)
	})

	t.Run("tag-only message has empty body", func(t *testing.T) {
		msg, err := ParseMessage([]byte{0x01, 0x00})
		require.NoError(t, err)
		assert.Equal(t, uint16(1), msg.Type)
		assert.Empty(t, msg.Body)
	})

	t.Run("payload shorter than a tag is an error", func(t *testing.T) {
		_, err := ParseMessage([]byte{0x01})
		assert.ErrorIs(t, err, ErrShortMessage)

		_, err = ParseMessage(nil)
		assert.ErrorIs(t, err, ErrShortMessage)
	})
}

func TestMessage_Encode(t *testing.T) {
	msg := Message{Type: 0x0102, Body: []byte{0x09}}
	assert.Equal(t, []byte{0x02, 0x01, 0x09}, msg.Encode())

	parsed, err := ParseMessage(msg.Encode())
	require.NoError(t, err)
	assert.Equal(t, msg.Type, parsed.Type)
	assert.Equal(t, msg.Body, parsed.Body)
}

func TestReader(t *testing.T) {
	t.Run("reads mixed little-endian fields", func(t *testing.T) {
		msg := NewWriter(7).
			Uint8(0x11).
			Uint16(0x2233).
			Uint32(0x44556677).
			Int32(-5).
			Message()

		r := NewReader(msg.Body)
		assert.Equal(t, uint8(0x11), r.Uint8())
		assert.Equal(t, uint16(0x2233), r.Uint16())
		assert.Equal(t, uint32(0x44556677), r.Uint32())
		assert.Equal(t, int32(-5), r.Int32())
		require.NoError(t, r.Err())
		assert.Equal(t, 0, r.Remaining())
	})

	t.Run("reads null-terminated strings", func(t *testing.T) {
		msg := NewWriter(7).String("hero").Uint16(42).String("").Message()

		r := NewReader(msg.Body)
		assert.Equal(t, "hero", r.String())
		assert.Equal(t, uint16(42), r.Uint16())
		assert.Equal(t, "", r.String())
		require.NoError(t, r.Err())
	})

	t.Run("short buffer sets sticky error", func(t *testing.T) {
		r := NewReader([]byte{0x01})
		_ = r.Uint32()
		assert.ErrorIs(t, r.Err(), ErrShortMessage)

		// Later reads keep returning zero values with the same error
		assert.Equal(t, uint8(0), r.Uint8())
		assert.Equal(t, "", r.String())
		assert.ErrorIs(t, r.Err(), ErrShortMessage)
	})

	t.Run("missing terminator sets error", func(t *testing.T) {
		r := NewReader([]byte("no terminator"))
		_ = r.String()
		assert.ErrorIs(t, r.Err(), ErrUnterminatedString)
	})
}

func TestWriter_Message(t *testing.T) {
	msg := NewWriter(0x00a1).Uint16(3).String("ok").Message()
	assert.Equal(t, uint16(0x00a1), msg.Type)
	assert.Equal(t, []byte{0x03, 0x00, 'o', 'k', 0x00}, msg.Body)
}
