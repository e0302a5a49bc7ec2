// Package client implements a codec-aware TCP game client: it encrypts and
// frames outbound messages the way the shipped client binary does and decodes
// inbound server traffic. It backs smoke tests and load tools; the server
// never imports it.
package client

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/gameserver/wire"
)

// ErrClosed is returned by operations on a client that was closed.
var ErrClosed = errors.New("client: closed")

// ErrReceiveTimeout is returned by Receive when no message arrives in time.
var ErrReceiveTimeout = errors.New("client: receive timed out")

// Config holds connection settings for the game client.
type Config struct {
	// Address is the "host:port" of the game server.
	Address string
	// ConnectTimeout is the max duration for establishing the connection.
	ConnectTimeout time.Duration
	// WriteTimeout is the max duration for a single write; 0 means no timeout.
	WriteTimeout time.Duration
	// ReadBufferSize is the per-read chunk size.
	ReadBufferSize int
	// MessageBuffer is the capacity of the received-message channel.
	MessageBuffer int
}

// DefaultConfig returns a Config with defaults for the given address.
//
// Parameters:
//   - address: The "host:port" of the game server
//
// Returns:
//   - A Config with ConnectTimeout 10s, WriteTimeout 10s, ReadBufferSize
//     4096 and MessageBuffer 64
func DefaultConfig(address string) Config {
	return Config{
		Address:        address,
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadBufferSize: 4096,
		MessageBuffer:  64,
	}
}

// Client is a connected game client. Received messages are decoded on a
// background goroutine and delivered through Messages. Safe for concurrent
// use.
type Client struct {
	config Config

	mu     sync.Mutex
	conn   net.Conn
	closed bool

	messages chan wire.Message
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates an unconnected client with the given config.
//
// Parameters:
//   - config: Connection settings (e.g. from DefaultConfig)
//
// Returns:
//   - A new Client; call Connect to establish the connection
func New(config Config) *Client {
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 4096
	}
	if config.MessageBuffer <= 0 {
		config.MessageBuffer = 64
	}

	return &Client{
		config:   config,
		messages: make(chan wire.Message, config.MessageBuffer),
		stop:     make(chan struct{}),
	}
}

// Connect dials the server and starts the read goroutine.
//
// Returns:
//   - An error if the client is closed or the dial fails
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return fmt.Errorf("client: already connected to %s", c.config.Address)
	}

	conn, err := net.DialTimeout("tcp", c.config.Address, c.config.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.config.Address, err)
	}

	c.conn = conn
	c.wg.Add(1)
	go c.readLoop(conn)

	return nil
}

// Send encrypts, frames and writes one message.
//
// Parameters:
//   - msg: The plaintext message to send
//
// Returns:
//   - An error if the client is not connected or the write fails
func (c *Client) Send(msg wire.Message) error {
	payload := msg.Encode()
	wire.EncryptInbound(payload)
	return c.SendRaw(wire.AppendFrame(nil, payload))
}

// SendRaw writes already-framed bytes as-is. Load tools use it to exercise
// the server's framing error paths with malformed input.
//
// Parameters:
//   - framed: The bytes to write, including any length prefixes
//
// Returns:
//   - An error if the client is not connected or the write fails
func (c *Client) SendRaw(framed []byte) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if conn == nil {
		return fmt.Errorf("client: not connected")
	}

	if c.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}

	_, err := conn.Write(framed)
	return err
}

// Messages returns the channel of decoded server messages. The channel is
// closed when the connection ends.
//
// Returns:
//   - A receive-only channel of decoded messages
func (c *Client) Messages() <-chan wire.Message {
	return c.messages
}

// Receive waits for the next server message.
//
// Parameters:
//   - timeout: How long to wait
//
// Returns:
//   - The next decoded message
//   - ErrReceiveTimeout if nothing arrives in time, ErrClosed if the
//     connection ended
func (c *Client) Receive(timeout time.Duration) (wire.Message, error) {
	select {
	case msg, ok := <-c.messages:
		if !ok {
			return wire.Message{}, ErrClosed
		}
		return msg, nil
	case <-time.After(timeout):
		return wire.Message{}, ErrReceiveTimeout
	}
}

// Close shuts the connection down and stops the read goroutine. Safe to call
// multiple times.
//
// Returns:
//   - Always nil
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	close(c.stop)
	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()

	return nil
}

// readLoop reassembles frames from the socket, decodes each into a message
// and delivers it. Exits on socket error or Close; the messages channel is
// closed on exit.
func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()
	defer close(c.messages)

	var splitter wire.FrameSplitter
	buf := make([]byte, c.config.ReadBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			splitter.Feed(buf[:n])

			for {
				payload, ferr := splitter.Next()
				if ferr != nil {
					return
				}
				if payload == nil {
					break
				}

				wire.DecryptOutbound(payload)
				msg, perr := wire.ParseMessage(payload)
				if perr != nil {
					continue
				}

				select {
				case c.messages <- msg:
				case <-c.stop:
					return
				}
			}
		}

		if err != nil {
			return
		}
	}
}
