package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrShortMessage is returned when a plaintext is too small for the fields a
// handler tries to read from it. The handler aborts; the connection stays up.
var ErrShortMessage = errors.New("wire: message too short for declared fields")

// ErrUnterminatedString is returned when a string field has no NUL terminator
// before the end of the message.
var ErrUnterminatedString = errors.New("wire: unterminated string field")

// Message is one decrypted protocol message: a u16 little-endian type tag
// followed by type-specific fields.
type Message struct {
	Type uint16
	Body []byte
}

// ParseMessage interprets a decrypted frame payload as a type-tagged message.
//
// Parameters:
//   - plaintext: The decrypted payload of one frame
//
// Returns:
//   - The parsed message; Body aliases the tail of plaintext
//   - ErrShortMessage if the payload cannot hold a type tag
func ParseMessage(plaintext []byte) (Message, error) {
	if len(plaintext) < 2 {
		return Message{}, ErrShortMessage
	}

	return Message{
		Type: binary.LittleEndian.Uint16(plaintext),
		Body: plaintext[2:],
	}, nil
}

// Encode returns the message's plaintext wire form: the type tag followed by
// the body.
//
// Returns:
//   - A new byte slice holding the encoded message
func (m Message) Encode() []byte {
	out := make([]byte, 0, 2+len(m.Body))
	out = binary.LittleEndian.AppendUint16(out, m.Type)
	return append(out, m.Body...)
}

// Reader extracts little-endian fields and NUL-terminated strings from a
// message body. After any read fails, subsequent reads keep failing with the
// same error, so a handler can read all its fields and check once.
type Reader struct {
	buf []byte
	err error
}

// NewReader returns a Reader over the given message body.
//
// Parameters:
//   - body: The message body, excluding the type tag
//
// Returns:
//   - A Reader positioned at the start of body
func NewReader(body []byte) *Reader {
	return &Reader{buf: body}
}

// Err returns the first error encountered by any read, or nil.
//
// Returns:
//   - The sticky error, or nil if all reads so far succeeded
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
//
// Returns:
//   - The count of bytes not yet consumed
func (r *Reader) Remaining() int {
	return len(r.buf)
}

// Uint8 reads one byte.
//
// Returns:
//   - The byte, or 0 if the buffer is exhausted (Err is then ErrShortMessage)
func (r *Reader) Uint8() uint8 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 1 {
		r.err = ErrShortMessage
		return 0
	}

	v := r.buf[0]
	r.buf = r.buf[1:]
	return v
}

// Uint16 reads a little-endian uint16.
//
// Returns:
//   - The value, or 0 on short buffer (Err is then ErrShortMessage)
func (r *Reader) Uint16() uint16 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 2 {
		r.err = ErrShortMessage
		return 0
	}

	v := binary.LittleEndian.Uint16(r.buf)
	r.buf = r.buf[2:]
	return v
}

// Uint32 reads a little-endian uint32.
//
// Returns:
//   - The value, or 0 on short buffer (Err is then ErrShortMessage)
func (r *Reader) Uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 4 {
		r.err = ErrShortMessage
		return 0
	}

	v := binary.LittleEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v
}

// Int32 reads a little-endian int32.
//
// Returns:
//   - The value, or 0 on short buffer (Err is then ErrShortMessage)
func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// String reads a NUL-terminated UTF-8 string, consuming the terminator.
//
// Returns:
//   - The string content before the NUL, or "" on error (Err is then
//     ErrUnterminatedString)
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}

	idx := bytes.IndexByte(r.buf, 0)
	if idx == -1 {
		r.err = ErrUnterminatedString
		return ""
	}

	v := string(r.buf[:idx])
	r.buf = r.buf[idx+1:]
	return v
}

// Writer builds a message body from little-endian fields and NUL-terminated
// strings. Methods chain; call Message to produce the finished message.
type Writer struct {
	typ uint16
	buf []byte
}

// NewWriter starts a message of the given type.
//
// Parameters:
//   - msgType: The u16 message type tag
//
// Returns:
//   - A Writer with an empty body
func NewWriter(msgType uint16) *Writer {
	return &Writer{typ: msgType}
}

// Uint8 appends one byte.
func (w *Writer) Uint8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// Uint16 appends a little-endian uint16.
func (w *Writer) Uint16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

// Uint32 appends a little-endian uint32.
func (w *Writer) Uint32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

// Int32 appends a little-endian int32.
func (w *Writer) Int32(v int32) *Writer {
	return w.Uint32(uint32(v))
}

// String appends the string's bytes followed by a NUL terminator. Embedded
// NUL bytes are not representable; the first one would truncate the field on
// read, so callers must not pass them.
func (w *Writer) String(s string) *Writer {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return w
}

// Message returns the finished message.
//
// Returns:
//   - A Message with the writer's type tag and accumulated body
func (w *Writer) Message() Message {
	return Message{Type: w.typ, Body: w.buf}
}
