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

// Package testkit provides an in-process RPC peer for tests.
//
// The Server speaks the wire protocol of the actor package over TCP,
// dispatches requests to handlers registered per service and method, and can
// misbehave on purpose: delay, drop, duplicate or reorder its responses.
//
//	server := testkit.NewServer(t)
//	testkit.RegisterSampleServices(server)
//	client, err := actor.New("client", server.Address())
package testkit

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	goset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
	"go.uber.org/atomic"

	"github.com/blueteethyl1986/Redola/codec"
	gerrors "github.com/blueteethyl1986/Redola/errors"
	"github.com/blueteethyl1986/Redola/internal/bufferpool"
	"github.com/blueteethyl1986/Redola/log"
	"github.com/blueteethyl1986/Redola/message"
	"github.com/blueteethyl1986/Redola/transport/tcp"
)

const (
	// FaultNotFound is the fault code of a request for an unknown service or method
	FaultNotFound = "not_found"
	// FaultInternal is the fault code of a handler failure
	FaultInternal = "internal"
)

// Handler serves one request and returns its response payload.
// Returning a *errors.RemoteInvocationError sends its code and message as a fault.
type Handler func(ctx context.Context, req *message.RequestEnvelope) ([]byte, error)

// Behavior changes how the server sends responses.
type Behavior struct {
	// Delay holds every response back for the given duration
	Delay time.Duration
	// Drop never answers
	Drop bool
	// Duplicate sends every response twice
	Duplicate bool
	// ReverseBatch buffers responses until that many are ready and sends them in reverse order
	ReverseBatch int
}

// Server is an in-process RPC peer.
type Server struct {
	listener  net.Listener
	wrapper   tcp.ConnWrapper
	tlsConfig *tls.Config
	logger    log.Logger
	pool      *bufferpool.Pool

	mu       sync.RWMutex
	handlers map[string]Handler
	behavior Behavior
	pending  []pendingResponse
	last     *message.RequestEnvelope

	conns    goset.Set[*serverConn]
	received *atomic.Int64
	stopped  *atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup
}

type serverConn struct {
	net.Conn
	writeMu sync.Mutex
}

type pendingResponse struct {
	conn  *serverConn
	frame []byte
}

// NewServer starts a server on a free loopback port. It is stopped when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	port := dynaport.Get(1)[0]
	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)

	server := &Server{
		listener: listener,
		logger:   log.DiscardLogger,
		pool:     bufferpool.New(),
		handlers: make(map[string]Handler),
		conns:    goset.NewSet[*serverConn](),
		received: atomic.NewInt64(0),
		stopped:  atomic.NewBool(false),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt.Apply(server)
	}

	if server.tlsConfig != nil {
		server.listener = tls.NewListener(listener, server.tlsConfig)
	}

	server.wg.Add(1)
	go server.serve()
	t.Cleanup(server.Stop)
	return server
}

// Address returns the host:port the server listens on
func (s *Server) Address() string {
	return s.listener.Addr().String()
}

// Handle registers the handler of service/method, replacing any previous one
func (s *Server) Handle(service, method string, handler Handler) {
	s.mu.Lock()
	s.handlers[service+"/"+method] = handler
	s.mu.Unlock()
}

// Register registers a typed handler of service/method. Payloads are decoded
// and encoded with the codec named in each request.
func Register[Req, Resp any](s *Server, service, method string, fn func(ctx context.Context, req *Req) (*Resp, error)) {
	s.Handle(service, method, func(ctx context.Context, env *message.RequestEnvelope) ([]byte, error) {
		c, err := codec.Lookup(env.Codec)
		if err != nil {
			return nil, err
		}

		req := new(Req)
		if err := c.Deserialize(env.Payload, req); err != nil {
			return nil, err
		}

		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return c.Serialize(resp)
	})
}

// SetBehavior changes the response behavior. Responses held by a previous
// ReverseBatch are flushed in reverse order.
func (s *Server) SetBehavior(behavior Behavior) {
	s.mu.Lock()
	s.behavior = behavior
	flushed := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.flush(flushed)
}

// Connections returns the number of open client connections
func (s *Server) Connections() int {
	return s.conns.Cardinality()
}

// Received returns the number of requests received
func (s *Server) Received() int64 {
	return s.received.Load()
}

// LastRequest returns the last request received
func (s *Server) LastRequest() *message.RequestEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// DropConnections closes every client connection while the server keeps listening
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := s.conns.ToSlice()
	s.conns.Clear()
	s.pending = nil
	s.mu.Unlock()

	for _, conn := range conns {
		// Close error intentionally ignored, the peer sees the connection loss.
		_ = conn.Close()
	}
}

// Stop closes the listener and every connection and waits for the server goroutines
func (s *Server) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}

	close(s.done)
	// Close error intentionally ignored, the listener is discarded.
	_ = s.listener.Close()
	s.DropConnections()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		raw, err := s.listener.Accept()
		if err != nil {
			return
		}

		conn := raw
		if s.wrapper != nil {
			if conn, err = s.wrapper.Wrap(raw); err != nil {
				s.logger.Warnf("failed to wrap connection: %v", err)
				_ = raw.Close()
				continue
			}
		}

		sc := &serverConn{Conn: conn}
		s.mu.Lock()
		if s.stopped.Load() {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns.Add(sc)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.read(sc)
	}
}

func (s *Server) read(conn *serverConn) {
	defer s.wg.Done()
	for {
		frame, err := tcp.ReadFrame(conn, tcp.DefaultMaxFrameSize, s.pool)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Debugf("connection closed: %v", err)
			}
			s.forget(conn)
			return
		}

		req, err := message.UnmarshalRequest(frame)
		s.pool.Put(frame)
		if err != nil {
			s.logger.Warnf("discarding malformed request: %v", err)
			continue
		}

		s.received.Inc()
		s.mu.Lock()
		s.last = req
		behavior := s.behavior
		s.mu.Unlock()

		if behavior.Drop {
			continue
		}

		s.wg.Add(1)
		go s.answer(conn, req, behavior)
	}
}

func (s *Server) answer(conn *serverConn, req *message.RequestEnvelope, behavior Behavior) {
	defer s.wg.Done()
	if behavior.Delay > 0 {
		select {
		case <-time.After(behavior.Delay):
		case <-s.done:
			return
		}
	}

	frame, err := message.MarshalResponse(s.dispatch(req))
	if err != nil {
		s.logger.Errorf("failed to encode response (%s): %v", req.CorrelationID, err)
		return
	}

	if behavior.ReverseBatch > 1 {
		s.mu.Lock()
		s.pending = append(s.pending, pendingResponse{conn: conn, frame: frame})
		if len(s.pending) < behavior.ReverseBatch {
			s.mu.Unlock()
			return
		}
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()
		s.flush(batch)
		return
	}

	s.write(conn, frame)
	if behavior.Duplicate {
		s.write(conn, frame)
	}
}

func (s *Server) dispatch(req *message.RequestEnvelope) *message.ResponseEnvelope {
	resp := &message.ResponseEnvelope{CorrelationID: req.CorrelationID}

	s.mu.RLock()
	handler, ok := s.handlers[req.FullMethod()]
	s.mu.RUnlock()
	if !ok {
		resp.Fault = &message.Fault{
			Code:    FaultNotFound,
			Message: fmt.Sprintf("no handler for %s", req.FullMethod()),
		}
		return resp
	}

	ctx := context.Background()
	if deadline, ok := req.DeadlineTime(); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	payload, err := handler(ctx, req)
	if err != nil {
		var remote *gerrors.RemoteInvocationError
		if errors.As(err, &remote) {
			resp.Fault = &message.Fault{Code: remote.Code, Message: remote.Message, Detail: remote.Detail}
			return resp
		}
		resp.Fault = &message.Fault{Code: FaultInternal, Message: err.Error()}
		return resp
	}

	resp.Payload = payload
	return resp
}

// flush sends a batch of held responses, latest first
func (s *Server) flush(batch []pendingResponse) {
	for _, held := range slices.Backward(batch) {
		s.write(held.conn, held.frame)
	}
}

func (s *Server) write(conn *serverConn, frame []byte) {
	buf, err := tcp.EncodeFrame(frame, tcp.DefaultMaxFrameSize, s.pool)
	if err != nil {
		s.logger.Errorf("failed to frame response: %v", err)
		return
	}
	defer s.pool.Put(buf)

	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	if _, err := conn.Write(buf); err != nil {
		s.logger.Debugf("failed to write response: %v", err)
	}
}

func (s *Server) forget(conn *serverConn) {
	s.conns.Remove(conn)
	// Close error intentionally ignored, the connection is already broken.
	_ = conn.Close()
}
