package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/gameserver/wire"
)

func TestDispatcher(t *testing.T) {
	t.Run("routes to the registered handler", func(t *testing.T) {
		d := NewDispatcher()
		d.Register(0x0042, func(_ *Session, msg wire.Message) ([]wire.Message, error) {
			return []wire.Message{wire.NewWriter(0x8042).Uint16(msg.Type).Message()}, nil
		})

		responses, known, err := d.Dispatch(nil, wire.Message{Type: 0x0042})
		require.NoError(t, err)
		assert.True(t, known)
		require.Len(t, responses, 1)
		assert.Equal(t, uint16(0x8042), responses[0].Type)
	})

	t.Run("reports unknown types without error", func(t *testing.T) {
		d := NewDispatcher()

		responses, known, err := d.Dispatch(nil, wire.Message{Type: 0x7777})
		require.NoError(t, err)
		assert.False(t, known)
		assert.Empty(t, responses)
	})

	t.Run("propagates handler errors", func(t *testing.T) {
		d := NewDispatcher()
		handlerErr := errors.New("boom")
		d.Register(0x0001, func(*Session, wire.Message) ([]wire.Message, error) {
			return nil, handlerErr
		})

		_, known, err := d.Dispatch(nil, wire.Message{Type: 0x0001})
		assert.True(t, known)
		assert.ErrorIs(t, err, handlerErr)
	})

	t.Run("re-registering replaces the handler", func(t *testing.T) {
		d := NewDispatcher()
		d.Register(0x0001, func(*Session, wire.Message) ([]wire.Message, error) {
			return nil, errors.New("old")
		})
		d.Register(0x0001, func(*Session, wire.Message) ([]wire.Message, error) {
			return nil, nil
		})

		_, known, err := d.Dispatch(nil, wire.Message{Type: 0x0001})
		assert.True(t, known)
		assert.NoError(t, err)
	})
}
