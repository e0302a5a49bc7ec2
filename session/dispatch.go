package session

import (
	"github.com/cyberinferno/gameserver/wire"
)

// Handler processes one decoded message for a session and returns the ordered
// responses to send back to that connection. Broadcasts to other connections
// go through the world registry inside the handler, not through the return
// value. A returned error aborts this handler only; the connection stays up.
type Handler func(s *Session, msg wire.Message) ([]wire.Message, error)

// Dispatcher routes decoded messages to handlers by their type tag. Handlers
// are registered at server construction, before any connection is accepted,
// so lookups need no locking.
type Dispatcher struct {
	handlers map[uint16]Handler
}

// NewDispatcher creates an empty Dispatcher.
//
// Returns:
//   - A Dispatcher with no handlers registered
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[uint16]Handler),
	}
}

// Register installs the handler for a message type, replacing any previous
// one. Must not be called after the server starts accepting connections.
//
// Parameters:
//   - msgType: The u16 message type tag
//   - h: The handler invoked for messages of that type
func (d *Dispatcher) Register(msgType uint16, h Handler) {
	d.handlers[msgType] = h
}

// Dispatch invokes the handler registered for the message's type.
//
// Parameters:
//   - s: The session the message arrived on
//   - msg: The decoded message
//
// Returns:
//   - The handler's ordered responses
//   - Whether a handler was registered for the type
//   - The handler's error, if any
func (d *Dispatcher) Dispatch(s *Session, msg wire.Message) ([]wire.Message, bool, error) {
	h, ok := d.handlers[msg.Type]
	if !ok {
		return nil, false, nil
	}

	responses, err := h(s, msg)
	return responses, true, err
}
