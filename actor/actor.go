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

// Package actor implements the client side of the RPC layer.
//
// An Actor owns one persistent connection to a remote peer and multiplexes
// the calls of any number of goroutines over it. Each outbound request is
// tracked by its correlation id until the matching response arrives, the
// call times out, or the actor stops.
//
//	client, err := actor.New("client", "127.0.0.1:9000")
//	calc, err := proxy.CreateServiceProxy[CalcService](client, "server")
//	err = client.RegisterRpcService(calc)
//	err = client.Bootup(ctx)
//	resp, err := calc.Add(ctx, &AddRequest{X: 3, Y: 4})
package actor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/blueteethyl1986/Redola/codec"
	gerrors "github.com/blueteethyl1986/Redola/errors"
	"github.com/blueteethyl1986/Redola/internal/correlation"
	imetric "github.com/blueteethyl1986/Redola/internal/metric"
	"github.com/blueteethyl1986/Redola/internal/validation"
	"github.com/blueteethyl1986/Redola/log"
	"github.com/blueteethyl1986/Redola/message"
	"github.com/blueteethyl1986/Redola/proxy"
	"github.com/blueteethyl1986/Redola/transport"
	"github.com/blueteethyl1986/Redola/transport/tcp"
)

// DefaultCallTimeout bounds a call when neither WithCallTimeout nor the
// caller context sets a deadline.
const DefaultCallTimeout = 5 * time.Second

const namePattern = `^[a-zA-Z0-9][a-zA-Z0-9\-_\.]*$`

var errInvalidName = errors.New("must contain only word characters (i.e. [a-zA-Z0-9] plus non-leading '-', '_' and '.')")

// Actor issues RPC calls over a single connection.
// It implements proxy.Invoker and is safe for concurrent use.
type Actor struct {
	name               string
	address            string
	transport          transport.Transport
	tcpOptions         []tcp.Option
	compression        tcp.Compression
	codec              codec.Codec
	callTimeout        time.Duration
	logger             log.Logger
	meterProvider      metric.MeterProvider
	strictRegistration bool

	state *atomic.Int32

	// mu orders lifecycle transitions against the insertion of pending calls.
	// Invoke holds it for reading.
	mu         sync.RWMutex
	cancelBoot context.CancelFunc
	generation uint64
	bootLost   error

	// bootMu serializes Bootup
	bootMu sync.Mutex

	calls  *correlation.Table[*message.ResponseEnvelope]
	metric *imetric.ClientMetric

	servicesMu   sync.RWMutex
	services     map[reflect.Type]RpcService
	serviceNames map[string]int

	// handlers tracks the goroutines reacting to a connection loss
	handlers sync.WaitGroup
}

// enforce compilation error
var _ proxy.Invoker = (*Actor)(nil)

// New creates an actor connecting to address (host:port) on Bootup.
func New(name, address string, opts ...Option) (*Actor, error) {
	a := &Actor{
		name:         name,
		address:      address,
		codec:        codec.Default(),
		callTimeout:  DefaultCallTimeout,
		logger:       log.DefaultLogger,
		state:        atomic.NewInt32(int32(Created)),
		calls:        correlation.NewTable[*message.ResponseEnvelope](),
		services:     make(map[reflect.Type]RpcService),
		serviceNames: make(map[string]int),
	}

	for _, opt := range opts {
		opt.Apply(a)
	}

	if err := a.validate(); err != nil {
		return nil, gerrors.NewErrInvalidConfig(err)
	}

	if a.transport == nil {
		tr, err := a.newTCPTransport()
		if err != nil {
			return nil, gerrors.NewErrInvalidConfig(err)
		}
		a.transport = tr
	}

	instruments, err := imetric.NewClientMetric(imetric.Meter(a.meterProvider), a.name)
	if err != nil {
		return nil, fmt.Errorf("failed to create the metric instruments: %w", err)
	}
	a.metric = instruments
	return a, nil
}

// Name returns the actor name
func (a *Actor) Name() string {
	return a.name
}

// Address returns the remote peer address
func (a *Actor) Address() string {
	return a.address
}

// State returns the current lifecycle state
func (a *Actor) State() State {
	return State(a.state.Load())
}

// PendingCalls returns the number of calls waiting for a response
func (a *Actor) PendingCalls() int {
	return a.calls.Len()
}

// Codec returns the default payload codec
func (a *Actor) Codec() codec.Codec {
	return a.codec
}

// Logger returns the actor logger
func (a *Actor) Logger() log.Logger {
	return a.logger
}

// Bootup connects the transport and makes the actor ready to issue calls.
// It is a no-op on a running actor. A stopped actor can be booted again,
// its registered services are kept.
func (a *Actor) Bootup(ctx context.Context) error {
	a.bootMu.Lock()
	defer a.bootMu.Unlock()

	a.mu.Lock()
	switch a.State() {
	case Running:
		a.mu.Unlock()
		return nil
	case ShuttingDown:
		a.mu.Unlock()
		return gerrors.ErrActorShuttingDown
	default:
	}

	// entering Bootstrapping requires an empty correlation table
	if drained := a.calls.DrainAll(gerrors.NewShutdownError(nil)); drained > 0 {
		a.logger.Warnf("Actor (%s) failed %d stale pending calls", a.name, drained)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancelBoot = cancel
	a.generation++
	a.bootLost = nil
	a.setState(Bootstrapping)
	generation := a.generation
	a.mu.Unlock()

	a.logger.Infof("Actor (%s) connecting to %s..", a.name, a.address)
	err := a.transport.Connect(ctx, &handler{actor: a, generation: generation})

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelBoot = nil

	if a.State() != Bootstrapping {
		if err == nil {
			// Close error intentionally ignored, the actor is already stopped.
			_ = a.transport.Close()
		}
		return gerrors.ErrActorShutdown
	}

	if err == nil && a.bootLost != nil {
		// Close error intentionally ignored, the connection is already broken.
		_ = a.transport.Close()
		err = a.bootLost
	}

	if err != nil {
		a.setState(Stopped)
		if !errors.Is(err, gerrors.ErrConnection) {
			err = gerrors.NewErrConnection(err)
		}
		a.logger.Errorf("Actor (%s) failed to connect to %s: %v", a.name, a.address, err)
		return err
	}

	if err := a.metric.ObservePending(a.pendingCalls); err != nil {
		a.logger.Warnf("Actor (%s) failed to observe pending calls: %v", a.name, err)
	}

	a.setState(Running)
	a.logger.Infof("Actor (%s) successfully connected to %s", a.name, a.address)
	return nil
}

// Shutdown fails every pending call with ErrActorShutdown, closes the
// transport and clears the registry. When the actor was never booted or is
// already stopped only the registry is cleared. A Bootup in progress is canceled.
func (a *Actor) Shutdown(ctx context.Context) error {
	return a.stop(ctx, true)
}

// Reconnect stops the actor, keeping its registered services, and boots it again.
func (a *Actor) Reconnect(ctx context.Context) error {
	if err := a.stop(ctx, false); err != nil {
		return err
	}
	return a.Bootup(ctx)
}

// Invoke sends req to endpoint and blocks until the correlated response
// arrives, the call times out, ctx is done or the actor stops.
// A fault returned by the peer is reported as a *errors.RemoteInvocationError
// alongside the response.
func (a *Actor) Invoke(ctx context.Context, endpoint string, req *message.RequestEnvelope) (*message.ResponseEnvelope, error) {
	if req == nil {
		return nil, gerrors.NewErrInvalidArgument("request envelope is nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if endpoint != "" {
		req.Endpoint = endpoint
	}

	if req.Endpoint == "" {
		return nil, gerrors.NewErrInvalidArgument("endpoint is required")
	}

	if req.CorrelationID == "" {
		req.CorrelationID = message.NewCorrelationID()
	}

	if req.Codec == "" {
		req.Codec = a.codec.Name()
	}

	if a.strictRegistration && !a.registered(req.Service) {
		return nil, gerrors.NewErrServiceNotRegistered(req.Service)
	}

	timeout := a.callTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	deadline := time.Now().Add(timeout)
	req.SetDeadline(deadline)

	frame, err := message.MarshalRequest(req)
	if err != nil {
		return nil, err
	}

	call := correlation.NewPendingCall[*message.ResponseEnvelope](req.CorrelationID)
	a.mu.RLock()
	if err := a.invocable(); err != nil {
		a.mu.RUnlock()
		return nil, err
	}

	if err := a.calls.Insert(call); err != nil {
		a.mu.RUnlock()
		return nil, err
	}
	a.mu.RUnlock()

	if err := a.transport.Send(ctx, frame); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(gerrors.NewErrCallTimeout(req.FullMethod(), timeout), err)
		}
		a.calls.FailAndRemove(call.ID(), err)
	}

	resp, err := a.await(ctx, call, req.FullMethod(), deadline, timeout)
	a.metric.RecordCall(ctx, req.Service, req.Method, outcome(resp, err), call.Age())
	if err != nil {
		return nil, err
	}

	if fault := resp.Fault; fault != nil {
		return resp, gerrors.NewRemoteInvocationError(fault.Code, fault.Message, fault.Detail)
	}
	return resp, nil
}

// await parks the caller until the call is completed. Whoever removes the
// call from the table completes it, so the result is read only once done is closed.
func (a *Actor) await(ctx context.Context, call *correlation.PendingCall[*message.ResponseEnvelope], method string, deadline time.Time, timeout time.Duration) (*message.ResponseEnvelope, error) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-call.Done():
	case <-timer.C:
		a.calls.FailAndRemove(call.ID(), errors.Join(gerrors.NewErrCallTimeout(method, timeout), context.DeadlineExceeded))
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(gerrors.NewErrCallTimeout(method, timeout), err)
		}
		a.calls.FailAndRemove(call.ID(), err)
	}

	<-call.Done()
	return call.Result()
}

// receive resolves the pending call matching an inbound response frame.
func (a *Actor) receive(frame []byte) {
	resp, err := message.UnmarshalResponse(frame)
	if err != nil {
		a.logger.Warnf("Actor (%s) discarded a malformed response: %v", a.name, err)
		a.metric.RecordDiscarded(context.Background())
		return
	}

	if !a.calls.ResolveAndRemove(resp.CorrelationID, resp) {
		// the call already timed out, was canceled or this is a duplicate
		a.logger.Debugf("Actor (%s) discarded response (%s): no pending call", a.name, resp.CorrelationID)
		a.metric.RecordDiscarded(context.Background())
	}
}

// disconnected stops the actor after the loss of the connection opened by
// the given boot generation. The registry is kept so that Bootup reconnects.
func (a *Actor) disconnected(generation uint64, cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.generation != generation {
		return
	}

	switch a.State() {
	case Bootstrapping:
		a.bootLost = cause
		return
	case Running:
	default:
		return
	}

	a.setState(ShuttingDown)
	drained := a.calls.DrainAll(gerrors.NewShutdownError(cause))
	if err := a.transport.Close(); err != nil {
		a.logger.Debugf("Actor (%s) transport close failed: %v", a.name, err)
	}

	if err := a.metric.Close(); err != nil {
		a.logger.Debugf("Actor (%s) failed to stop observing pending calls: %v", a.name, err)
	}

	a.setState(Stopped)
	a.logger.Warnf("Actor (%s) stopped after losing its connection, %d pending calls failed: %v", a.name, drained, cause)
}

func (a *Actor) stop(ctx context.Context, clearRegistry bool) error {
	a.mu.Lock()
	switch a.State() {
	case Created, Stopped:
		if clearRegistry {
			a.clearServices()
		}
		a.mu.Unlock()
		return nil
	default:
	}

	if a.cancelBoot != nil {
		a.cancelBoot()
	}

	a.logger.Infof("Actor (%s) shutting down..", a.name)
	a.setState(ShuttingDown)
	drained := a.calls.DrainAll(gerrors.NewShutdownError(nil))

	var err error
	if cerr := a.transport.Close(); cerr != nil {
		err = multierr.Append(err, gerrors.NewErrTransport(cerr))
	}

	err = multierr.Append(err, a.metric.Close())
	if clearRegistry {
		a.clearServices()
	}

	a.setState(Stopped)
	a.mu.Unlock()

	// wait for a canceled Bootup and for the connection loss handlers
	done := make(chan struct{})
	go func() {
		a.bootMu.Lock()
		a.handlers.Wait()
		a.bootMu.Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}

	a.logger.Infof("Actor (%s) successfully shut down, %d pending calls failed", a.name, drained)
	return err
}

func (a *Actor) invocable() error {
	switch a.State() {
	case Running:
		return nil
	case Created, Bootstrapping:
		return gerrors.ErrActorNotRunning
	default:
		return gerrors.ErrActorShutdown
	}
}

func (a *Actor) setState(state State) {
	a.state.Store(int32(state))
}

func (a *Actor) pendingCalls() int64 {
	return int64(a.calls.Len())
}

func (a *Actor) validate() error {
	chain := validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("name", a.name)).
		AddValidator(validation.NewPatternValidator(namePattern, a.name, errInvalidName)).
		AddValidator(validation.NewPositiveDurationValidator("call timeout", a.callTimeout)).
		AddAssertion(a.codec != nil, "the [codec] is required").
		AddAssertion(a.logger != nil, "the [logger] is required")

	if a.transport == nil {
		chain.AddValidator(validation.NewTCPAddressValidator(a.address))
	}
	return chain.Validate()
}

func (a *Actor) newTCPTransport() (*tcp.Transport, error) {
	wrapper, err := tcp.NewConnWrapper(a.compression)
	if err != nil {
		return nil, err
	}

	options := append([]tcp.Option{tcp.WithLogger(a.logger)}, a.tcpOptions...)
	if wrapper != nil {
		options = append(options, tcp.WithConnWrapper(wrapper))
	}

	tr := tcp.NewTransport(a.address, options...)
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	return tr, nil
}

func outcome(resp *message.ResponseEnvelope, err error) imetric.Outcome {
	switch {
	case err == nil && resp.Failed():
		return imetric.OutcomeFault
	case err == nil:
		return imetric.OutcomeSuccess
	case errors.Is(err, gerrors.ErrCallTimeout):
		return imetric.OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return imetric.OutcomeCanceled
	default:
		return imetric.OutcomeError
	}
}

// handler receives the transport events of one boot generation.
type handler struct {
	actor      *Actor
	generation uint64
}

var _ transport.Handler = (*handler)(nil)

func (h *handler) OnReceive(frame []byte) {
	h.actor.receive(frame)
}

// OnDisconnect must not block the read loop, which the teardown waits for.
func (h *handler) OnDisconnect(err error) {
	h.actor.handlers.Add(1)
	go func() {
		defer h.actor.handlers.Done()
		h.actor.disconnected(h.generation, err)
	}()
}
