package wire

import (
	"encoding/binary"
	"fmt"
)

// MaxFrameLength is the hard ceiling on a frame's declared payload length.
// A frame claiming more than this is a framing violation and fatal for the
// connection; no legitimate client message comes close to it.
const MaxFrameLength = 8192

// frameHeaderLen is the size of the unencrypted u16 little-endian length prefix.
const frameHeaderLen = 2

// ErrFrameTooLarge is returned when a frame's declared length exceeds
// MaxFrameLength. Connections that produce it must be closed.
var ErrFrameTooLarge = fmt.Errorf("wire: declared frame length exceeds %d bytes", MaxFrameLength)

// AppendFrame appends one length-prefixed frame containing payload to dst
// and returns the extended slice. The payload is written as-is; callers
// encrypt it first.
//
// Parameters:
//   - dst: Destination buffer, may be nil
//   - payload: The (already ciphered) frame payload
//
// Returns:
//   - dst with the 2-byte length prefix and payload appended
func AppendFrame(dst, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	return append(dst, payload...)
}

// FrameSplitter reassembles length-prefixed frames from a TCP byte stream.
// Bytes are fed in whatever chunks the socket produces; complete frames are
// taken out one at a time. A zero FrameSplitter is ready for use. It is not
// safe for concurrent use; each connection owns one splitter.
type FrameSplitter struct {
	buf []byte
}

// Feed appends raw bytes received from the socket to the internal buffer.
//
// Parameters:
//   - data: The bytes read from the connection; copied, caller may reuse
func (s *FrameSplitter) Feed(data []byte) {
	s.buf = append(s.buf, data...)
}

// Next removes and returns the payload of the next complete frame, without
// its length prefix. It returns nil when no complete frame is buffered yet.
// The returned slice is owned by the caller.
//
// Returns:
//   - The next frame payload, or nil if the buffer holds no complete frame
//   - ErrFrameTooLarge if the next declared length exceeds MaxFrameLength
func (s *FrameSplitter) Next() ([]byte, error) {
	if len(s.buf) < frameHeaderLen {
		return nil, nil
	}

	length := int(binary.LittleEndian.Uint16(s.buf))
	if length > MaxFrameLength {
		return nil, ErrFrameTooLarge
	}

	if len(s.buf) < frameHeaderLen+length {
		return nil, nil
	}

	payload := make([]byte, length)
	copy(payload, s.buf[frameHeaderLen:frameHeaderLen+length])
	s.buf = s.buf[frameHeaderLen+length:]

	return payload, nil
}

// Buffered returns the number of bytes currently held that do not yet form
// a complete frame boundary consumed by Next.
//
// Returns:
//   - The count of buffered bytes
func (s *FrameSplitter) Buffered() int {
	return len(s.buf)
}
