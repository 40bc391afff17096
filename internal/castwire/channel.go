package castwire

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// readBufferSize is the chunk size used for each conn.Read call; frames are
// reassembled from an arbitrary sequence of these by Decoder.
const readBufferSize = 32 * 1024

// Channel is a reliable, ordered, bi-directional stream of CastMessage
// frames over a TLS connection whose peer presents a self-signed
// certificate. Certificate verification is intentionally disabled -
// receivers use factory self-signed certs - but TLS negotiation still
// completes; the channel never falls back to plaintext.
type Channel struct {
	mu   sync.Mutex
	conn *tls.Conn

	connected atomic.Bool
	closing   atomic.Bool

	onConnected    func()
	onDisconnected func()
	onFrame        func(*Message)
	onError        func(error)
}

// NewChannel constructs a channel with its observer callbacks. Any of them
// may be nil. Callbacks are invoked from the channel's own read/dial
// goroutines; callers that touch shared state from them must synchronize.
func NewChannel(onConnected, onDisconnected func(), onFrame func(*Message), onError func(error)) *Channel {
	return &Channel{
		onConnected:    onConnected,
		onDisconnected: onDisconnected,
		onFrame:        onFrame,
		onError:        onError,
	}
}

// Connect dials host:port over TLS and begins the read loop. It is
// non-blocking: it returns immediately and invokes onConnected only after
// the TLS handshake completes, or onError on failure.
func (c *Channel) Connect(ctx context.Context, host string, port int) {
	go c.dial(ctx, host, port)
}

func (c *Channel) dial(ctx context.Context, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)

	dialer := &tls.Dialer{
		Config: &tls.Config{
			InsecureSkipVerify: true, // factory self-signed cert on the receiver
		},
	}
	rawConn, err := dialer.DialContext(ctx, "tcp4", addr)
	if err != nil {
		slog.Warn("castwire: failed to connect", "addr", addr, "error", err)
		c.reportError(fmt.Errorf("FailedToConnect: %w", err))
		return
	}
	conn := rawConn.(*tls.Conn)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)

	slog.Info("castwire: connected", "addr", addr)
	if c.onConnected != nil {
		c.onConnected()
	}

	c.readLoop(conn)
}

// Send serializes m, prepends its length, and writes the whole packet in
// one atomic call. A partial frame is never written. If the channel is not
// yet connected, the send fails silently with a logged warning.
func (c *Channel) Send(m *Message) {
	if !c.connected.Load() {
		slog.Warn("castwire: send while not connected, dropping", "namespace", m.Namespace)
		return
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		slog.Warn("castwire: send with no connection, dropping", "namespace", m.Namespace)
		return
	}

	frame := EncodeFrame(m)
	c.mu.Lock()
	_, err := conn.Write(frame)
	c.mu.Unlock()
	if err != nil {
		slog.Warn("castwire: write failed", "error", err)
		c.reportError(fmt.Errorf("SocketError: %w", err))
	}
}

func (c *Channel) readLoop(conn *tls.Conn) {
	var decoder Decoder
	buf := make([]byte, readBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			msgs, errs := decoder.Feed(buf[:n])
			for _, parseErr := range errs {
				slog.Warn("castwire: dropping malformed frame", "error", parseErr)
			}
			for _, msg := range msgs {
				if c.onFrame != nil {
					c.onFrame(msg)
				}
			}
		}
		if err != nil {
			if !c.closing.Load() {
				slog.Warn("castwire: connection read error", "error", err)
				c.reportError(fmt.Errorf("SocketError: %w", err))
			}
			c.teardown()
			return
		}
	}
}

// Close severs the connection. onDisconnected fires regardless of whether
// the channel was connected or mid-handshake.
func (c *Channel) Close() {
	c.closing.Store(true)
	c.teardown()
}

func (c *Channel) teardown() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	wasConnected := c.connected.Swap(false)
	if conn != nil {
		_ = conn.Close()
	}
	if wasConnected || c.closing.Load() {
		if c.onDisconnected != nil {
			c.onDisconnected()
		}
	}
}

func (c *Channel) reportError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

// Connected reports whether the TLS handshake has completed and the
// channel has not since been closed.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}
