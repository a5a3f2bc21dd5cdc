// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package tcp implements transport.Transport over a single persistent TCP
// connection.
//
// Frames are prefixed with their length as a 4-byte big-endian integer.
// Writes are serialized so that concurrent senders never interleave frames,
// and a single goroutine reads inbound frames and hands them to the handler.
//
//	transport := tcp.NewTransport("127.0.0.1:9000",
//		tcp.WithDialTimeout(time.Second),
//		tcp.WithConnWrapper(zstd),
//	)
//	err := transport.Connect(ctx, handler)
package tcp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/hashicorp/go-sockaddr"

	"github.com/blueteethyl1986/Redola/errors"
	"github.com/blueteethyl1986/Redola/internal/bufferpool"
	"github.com/blueteethyl1986/Redola/internal/validation"
	"github.com/blueteethyl1986/Redola/log"
	"github.com/blueteethyl1986/Redola/transport"
)

// DefaultWriteTimeout bounds the write of a single frame by default.
const DefaultWriteTimeout = 10 * time.Second

// Transport is a persistent TCP connection carrying length-prefixed frames.
type Transport struct {
	address           string
	dialer            net.Dialer
	tlsConfig         *tls.Config
	wrappers          []ConnWrapper
	maxFrameSize      int
	writeTimeout      time.Duration
	connectAttempts   int
	retryInitialDelay time.Duration
	retryMaxDelay     time.Duration
	logger            log.Logger
	pool              *bufferpool.Pool

	// mu guards conn. conn is nil when not connected.
	mu   sync.Mutex
	conn net.Conn

	// writeMu serializes frame writes
	writeMu sync.Mutex

	wg sync.WaitGroup
}

var _ transport.Transport = (*Transport)(nil)

// NewTransport creates a Transport dialing address (host:port).
//
// Defaults: 5s dial timeout, 15s keep-alive, 10s write timeout, 16 MiB max
// frame size and 3 connect attempts with a 100ms to 1s backoff.
func NewTransport(address string, opts ...Option) *Transport {
	t := &Transport{
		address: address,
		dialer: net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 15 * time.Second,
		},
		maxFrameSize:      DefaultMaxFrameSize,
		writeTimeout:      DefaultWriteTimeout,
		connectAttempts:   3,
		retryInitialDelay: 100 * time.Millisecond,
		retryMaxDelay:     time.Second,
		logger:            log.DiscardLogger,
		pool:              bufferpool.New(),
	}

	for _, opt := range opts {
		opt.Apply(t)
	}
	return t
}

// Address returns the dialed address
func (t *Transport) Address() string {
	return t.address
}

// Validate checks the transport settings
func (t *Transport) Validate() error {
	return validation.New(validation.AllErrors()).
		AddValidator(validation.NewTCPAddressValidator(t.address)).
		AddValidator(validation.NewPositiveDurationValidator("dial timeout", t.dialer.Timeout)).
		AddAssertion(t.maxFrameSize > 0, "the [max frame size] must be greater than zero").
		AddAssertion(t.writeTimeout >= 0, "the [write timeout] must not be negative").
		AddAssertion(t.connectAttempts > 0, "the [connect attempts] must be greater than zero").
		Validate()
}

// Connected reports whether a connection is established
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Connect dials the remote address, retrying with backoff, and starts the read loop.
// Failures are reported as ErrConnection.
func (t *Transport) Connect(ctx context.Context, handler transport.Handler) error {
	if handler == nil {
		return errors.NewErrInvalidArgument("transport handler is nil")
	}

	if err := t.Validate(); err != nil {
		return errors.NewErrInvalidConfig(err)
	}

	if t.Connected() {
		return ErrAlreadyConnected
	}

	address, err := dialAddress(t.address)
	if err != nil {
		return errors.NewErrConnection(err)
	}

	var conn net.Conn
	retrier := retry.NewRetrier(t.connectAttempts, t.retryInitialDelay, t.retryMaxDelay)
	if err := retrier.RunContext(ctx, func(ctx context.Context) error {
		var dialErr error
		conn, dialErr = t.dial(ctx, address)
		if dialErr != nil {
			t.logger.Debugf("dial %s failed: %v", address, dialErr)
		}
		return dialErr
	}); err != nil {
		return errors.NewErrConnection(err)
	}

	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		// Close error intentionally ignored, another Connect won the race.
		_ = conn.Close()
		return ErrAlreadyConnected
	}
	t.conn = conn
	t.wg.Add(1)
	t.mu.Unlock()

	go t.readLoop(conn, handler)
	t.logger.Infof("connected to %s", address)
	return nil
}

// Send writes a single frame. ctx is only checked before the write starts:
// a frame is written completely or the connection is dropped, since a
// partially written frame cannot be recovered. Each write is bounded by the
// transport write timeout.
func (t *Transport) Send(ctx context.Context, payload []byte) error {
	buf, err := EncodeFrame(payload, t.maxFrameSize, t.pool)
	if err != nil {
		return errors.NewErrTransport(err)
	}
	defer t.pool.Put(buf)

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return errors.NewErrConnection(ErrNotConnected)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var deadline time.Time
	if t.writeTimeout > 0 {
		deadline = time.Now().Add(t.writeTimeout)
	}

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return errors.NewErrTransport(err)
	}

	if _, err := conn.Write(buf); err != nil {
		t.logger.Warnf("write to %s failed: %v", t.address, err)
		// Close error intentionally ignored, the read loop reports the disconnect.
		_ = conn.Close()
		return errors.NewErrTransport(err)
	}
	return nil
}

// Close closes the connection and waits for the read loop to exit.
// It is safe to call Close on a transport that is not connected.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
		t.logger.Infof("connection to %s closed", t.address)
	}

	t.wg.Wait()
	return err
}

func (t *Transport) readLoop(conn net.Conn, handler transport.Handler) {
	defer t.wg.Done()
	for {
		frame, err := ReadFrame(conn, t.maxFrameSize, t.pool)
		if err != nil {
			t.disconnected(conn, handler, err)
			return
		}

		handler.OnReceive(frame)
		t.pool.Put(frame)
	}
}

// disconnected reports the loss of conn unless it was closed on purpose.
func (t *Transport) disconnected(conn net.Conn, handler transport.Handler, cause error) {
	t.mu.Lock()
	current := t.conn == conn
	if current {
		t.conn = nil
	}
	t.mu.Unlock()

	if !current {
		return
	}

	// Close error intentionally ignored, the connection is already broken.
	_ = conn.Close()
	t.logger.Warnf("connection to %s lost: %v", t.address, cause)
	handler.OnDisconnect(errors.NewErrConnection(cause))
}

func (t *Transport) dial(ctx context.Context, address string) (net.Conn, error) {
	raw, err := t.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	conn := raw
	if t.tlsConfig != nil {
		config := t.tlsConfig.Clone()
		if config.ServerName == "" {
			host, _, _ := net.SplitHostPort(address)
			config.ServerName = host
		}

		tlsConn := tls.Client(raw, config)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			// Close error intentionally ignored, handshake already failed.
			_ = raw.Close()
			return nil, err
		}
		conn = tlsConn
	}

	for _, wrapper := range t.wrappers {
		wrapped, err := wrapper.Wrap(conn)
		if err != nil {
			// Close error intentionally ignored, wrapper setup already failed.
			_ = conn.Close()
			return nil, err
		}
		conn = wrapped
	}
	return conn, nil
}

// dialAddress replaces an unspecified host such as 0.0.0.0 with a private
// interface address, falling back to the loopback address.
func dialAddress(address string) (string, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", err
	}

	ip := net.ParseIP(host)
	if ip == nil || !ip.IsUnspecified() {
		return address, nil
	}

	private, err := sockaddr.GetPrivateIP()
	if err != nil {
		return "", fmt.Errorf("failed to get private interface addresses: %w", err)
	}

	if private == "" {
		private = "127.0.0.1"
	}
	return net.JoinHostPort(private, port), nil
}
