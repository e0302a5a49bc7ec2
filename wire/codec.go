// Package wire implements the client protocol's framing and payload cipher.
//
// Every message on the wire is a u16 little-endian length followed by that
// many bytes of cipher-transformed payload; the length prefix is never
// encrypted. The payload cipher is RC4 re-keyed from a fixed key for every
// single message, so frames can be decrypted independently of how the byte
// stream was split across reads. Two fixed keys are shared out-of-band with
// the client binary: one for traffic the client encrypts and one for traffic
// the server encrypts.
package wire

import "crypto/rc4"

// clientKey transforms traffic encrypted by the client (server side: inbound).
var clientKey = []byte{
	0x3a, 0xc1, 0x59, 0x8e, 0x27, 0xf4, 0x6b, 0xd0,
	0x15, 0xaa, 0x73, 0x0c, 0xe8, 0x41, 0x9f, 0x56,
}

// serverKey transforms traffic encrypted by the server (server side: outbound).
var serverKey = []byte{
	0x7d, 0x12, 0xcb, 0x64, 0xf9, 0x30, 0xa5, 0x4e,
	0x88, 0x1f, 0xd6, 0x2b, 0x93, 0x60, 0x0a, 0xe7,
}

// transform applies the RC4 keystream for key to buf in place. A fresh cipher
// is built per call; nothing is streamed across messages. RC4 is an XOR
// stream cipher, so the same call both encrypts and decrypts.
func transform(key, buf []byte) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// Both keys are fixed compile-time constants of valid length
		panic(err)
	}

	c.XORKeyStream(buf, buf)
}

// DecryptInbound decrypts a client-encrypted payload in place. It never
// fails; any byte string is a valid cipher input. Structural validation of
// the resulting plaintext is the dispatch layer's job.
//
// Parameters:
//   - buf: The ciphertext payload of one frame; overwritten with plaintext
func DecryptInbound(buf []byte) {
	transform(clientKey, buf)
}

// EncryptOutbound encrypts a plaintext payload in place for the client to
// decrypt. It never fails.
//
// Parameters:
//   - buf: The plaintext payload of one frame; overwritten with ciphertext
func EncryptOutbound(buf []byte) {
	transform(serverKey, buf)
}

// EncryptInbound encrypts a payload the way the client does. Used by the
// test client and load tools; the server itself only decrypts inbound.
//
// Parameters:
//   - buf: The plaintext payload; overwritten with ciphertext
func EncryptInbound(buf []byte) {
	transform(clientKey, buf)
}

// DecryptOutbound decrypts a server-encrypted payload the way the client
// does. Used by the test client and load tools.
//
// Parameters:
//   - buf: The ciphertext payload; overwritten with plaintext
func DecryptOutbound(buf []byte) {
	transform(serverKey, buf)
}
