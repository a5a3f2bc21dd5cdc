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

package actor

import (
	"context"
	"errors"
	"net"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kapetan-io/tackle/autotls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"

	"github.com/blueteethyl1986/Redola/codec"
	gerrors "github.com/blueteethyl1986/Redola/errors"
	"github.com/blueteethyl1986/Redola/log"
	"github.com/blueteethyl1986/Redola/message"
	"github.com/blueteethyl1986/Redola/proxy"
	"github.com/blueteethyl1986/Redola/testkit"
	"github.com/blueteethyl1986/Redola/transport"
	"github.com/blueteethyl1986/Redola/transport/tcp"
)

func TestNew(t *testing.T) {
	t.Run("With default settings", func(t *testing.T) {
		client, err := New("client", "127.0.0.1:9000")
		require.NoError(t, err)
		assert.Equal(t, "client", client.Name())
		assert.Equal(t, "127.0.0.1:9000", client.Address())
		assert.Equal(t, Created, client.State())
		assert.Equal(t, codec.CBORName, client.Codec().Name())
		assert.Equal(t, log.DefaultLogger, client.Logger())
		assert.Equal(t, DefaultCallTimeout, client.callTimeout)
		assert.IsType(t, &tcp.Transport{}, client.transport)
		assert.Zero(t, client.PendingCalls())
	})
	t.Run("With invalid settings", func(t *testing.T) {
		cases := map[string]func() (*Actor, error){
			"empty name":     func() (*Actor, error) { return New("", "127.0.0.1:9000") },
			"invalid name":   func() (*Actor, error) { return New("-client", "127.0.0.1:9000") },
			"no port":        func() (*Actor, error) { return New("client", "127.0.0.1") },
			"zero timeout":   func() (*Actor, error) { return New("client", "127.0.0.1:9000", WithCallTimeout(0)) },
			"nil codec":      func() (*Actor, error) { return New("client", "127.0.0.1:9000", WithCodec(nil)) },
			"nil logger":     func() (*Actor, error) { return New("client", "127.0.0.1:9000", WithLogger(nil)) },
			"bad frame size": func() (*Actor, error) { return New("client", "127.0.0.1:9000", WithMaxFrameSize(-1)) },
			"bad compression": func() (*Actor, error) {
				return New("client", "127.0.0.1:9000", WithCompression(tcp.Compression(42)))
			},
		}
		for name, create := range cases {
			t.Run(name, func(t *testing.T) {
				client, err := create()
				require.ErrorIs(t, err, gerrors.ErrInvalidConfig)
				assert.Nil(t, client)
			})
		}
	})
	t.Run("With a custom transport", func(t *testing.T) {
		tr := new(fakeTransport)
		client, err := New("client", "", WithTransport(tr), WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		assert.Same(t, tr, client.transport)
	})
}

func TestState(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "bootstrapping", Bootstrapping.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "shutting down", ShuttingDown.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	t.Run("With Add before and after Shutdown", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server)
		calc := newCalc(t, client)
		require.NoError(t, client.RegisterRpcService(calc))

		require.NoError(t, client.Bootup(ctx))
		require.Equal(t, Running, client.State())
		// booting a running actor is a no-op
		require.NoError(t, client.Bootup(ctx))

		resp, err := calc.Add(ctx, &testkit.AddRequest{X: 3, Y: 4})
		require.NoError(t, err)
		assert.Equal(t, 7, resp.Result)

		require.NoError(t, client.Shutdown(ctx))
		assert.Equal(t, Stopped, client.State())
		assert.Empty(t, client.RpcServices())

		resp, err = calc.Add(ctx, &testkit.AddRequest{X: 3, Y: 4})
		require.ErrorIs(t, err, gerrors.ErrActorShutdown)
		assert.Nil(t, resp)

		// shutting down twice is a no-op
		require.NoError(t, client.Shutdown(ctx))
	})
	t.Run("With Invoke before Bootup", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server)
		calc := newCalc(t, client)

		_, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 1})
		require.ErrorIs(t, err, gerrors.ErrActorNotRunning)
		assert.EqualValues(t, 0, server.Received())
	})
	t.Run("With Shutdown before Bootup", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server)
		require.NoError(t, client.RegisterRpcService(newCalc(t, client)))

		require.NoError(t, client.Shutdown(ctx))
		assert.Equal(t, Created, client.State())
		assert.Empty(t, client.RpcServices())
	})
	t.Run("With Bootup after Shutdown", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server)
		calc := newCalc(t, client)

		require.NoError(t, client.Bootup(ctx))
		require.NoError(t, client.Shutdown(ctx))
		require.NoError(t, client.Bootup(ctx))

		resp, err := calc.Add(ctx, &testkit.AddRequest{X: 20, Y: 22})
		require.NoError(t, err)
		assert.Equal(t, 42, resp.Result)
	})
	t.Run("With Reconnect", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server)
		calc := newCalc(t, client)
		require.NoError(t, client.RegisterRpcService(calc))
		require.NoError(t, client.Bootup(ctx))

		require.NoError(t, client.Reconnect(ctx))
		require.Equal(t, Running, client.State())
		// the registry survives a reconnect
		require.Len(t, client.RpcServices(), 1)

		resp, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Result)
	})
	t.Run("With nobody listening", func(t *testing.T) {
		port := dynaport.Get(1)[0]
		client, err := New("client", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
			WithLogger(log.DiscardLogger),
			WithConnectRetry(2, time.Millisecond, 5*time.Millisecond),
			WithDialTimeout(time.Second))
		require.NoError(t, err)

		err = client.Bootup(ctx)
		require.ErrorIs(t, err, gerrors.ErrConnection)
		assert.Equal(t, Stopped, client.State())
		require.NoError(t, client.Shutdown(ctx))
	})
	t.Run("With a failing custom transport", func(t *testing.T) {
		boom := errors.New("boom")
		tr := &fakeTransport{connect: func(context.Context) error { return boom }}
		client, err := New("client", "", WithTransport(tr), WithLogger(log.DiscardLogger))
		require.NoError(t, err)

		err = client.Bootup(ctx)
		require.ErrorIs(t, err, gerrors.ErrConnection)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, Stopped, client.State())
	})
	t.Run("With Shutdown during Bootup", func(t *testing.T) {
		connecting := make(chan struct{})
		tr := &fakeTransport{connect: func(ctx context.Context) error {
			close(connecting)
			<-ctx.Done()
			return ctx.Err()
		}}
		client, err := New("client", "", WithTransport(tr), WithLogger(log.DiscardLogger))
		require.NoError(t, err)

		booted := make(chan error, 1)
		go func() { booted <- client.Bootup(ctx) }()

		<-connecting
		require.Equal(t, Bootstrapping, client.State())
		require.NoError(t, client.Shutdown(ctx))

		require.ErrorIs(t, <-booted, gerrors.ErrActorShutdown)
		assert.Equal(t, Stopped, client.State())
	})
	t.Run("With TLS", func(t *testing.T) {
		conf := autotls.Config{AutoTLS: true, InsecureSkipVerify: true}
		require.NoError(t, autotls.Setup(&conf))

		server := newSampleServer(t, testkit.WithTLS(conf.ServerTLS))
		client := newTestActor(t, server, WithTLS(conf.ClientTLS))
		calc := newCalc(t, client)
		require.NoError(t, client.Bootup(ctx))
		require.Eventually(t, func() bool { return server.Connections() == 1 }, 5*time.Second, 10*time.Millisecond)

		resp, err := calc.Add(ctx, &testkit.AddRequest{X: 3, Y: 4})
		require.NoError(t, err)
		assert.Equal(t, 7, resp.Result)
	})
	t.Run("With compression", func(t *testing.T) {
		compressions := []tcp.Compression{tcp.GzipCompression, tcp.ZstdCompression, tcp.BrotliCompression}
		for _, compression := range compressions {
			t.Run(compression.String(), func(t *testing.T) {
				wrapper, err := tcp.NewConnWrapper(compression)
				require.NoError(t, err)

				server := newSampleServer(t, testkit.WithConnWrapper(wrapper))
				client := newTestActor(t, server, WithCompression(compression))
				hello, err := proxy.CreateServiceProxy[testkit.HelloService](client, "server")
				require.NoError(t, err)
				require.NoError(t, client.Bootup(ctx))

				resp, err := hello.Hello(ctx, &testkit.HelloRequest{Text: "hello " + compression.String()})
				require.NoError(t, err)
				assert.Equal(t, "hello "+compression.String(), resp.Text)
			})
		}
	})
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	server := newSampleServer(t)
	client := newTestActor(t, server)

	calc := newCalc(t, client)
	hello, err := proxy.CreateServiceProxy[testkit.HelloService](client, "server")
	require.NoError(t, err)
	orders, err := proxy.CreateServiceProxy[testkit.OrderService](client, "server")
	require.NoError(t, err)

	t.Run("With several services", func(t *testing.T) {
		require.NoError(t, client.RegisterRpcService(orders))
		require.NoError(t, client.RegisterRpcService(hello))
		require.NoError(t, client.RegisterRpcService(calc))

		services := client.RpcServices()
		require.Len(t, services, 3)
		assert.Same(t, calc, services[0])
		assert.Same(t, hello, services[1])
		assert.Same(t, orders, services[2])

		service, ok := client.RpcService(reflect.TypeFor[*testkit.CalcService]())
		require.True(t, ok)
		assert.Same(t, calc, service)

		typed, ok := Service[testkit.HelloService](client)
		require.True(t, ok)
		assert.Same(t, hello, typed)

		_, ok = client.RpcService(nil)
		assert.False(t, ok)
	})
	t.Run("With a duplicate registration", func(t *testing.T) {
		other := newCalc(t, client)
		err := client.RegisterRpcService(other)
		require.ErrorIs(t, err, gerrors.ErrDuplicateRegistration)

		// the first registration is intact
		service, ok := Service[testkit.CalcService](client)
		require.True(t, ok)
		assert.Same(t, calc, service)
	})
	t.Run("With invalid services", func(t *testing.T) {
		require.ErrorIs(t, client.RegisterRpcService(nil), gerrors.ErrInvalidArgument)

		var nilCalc *testkit.CalcService
		require.ErrorIs(t, client.RegisterRpcService(nilCalc), gerrors.ErrInvalidArgument)
		require.ErrorIs(t, client.RegisterRpcService(new(testkit.CalcService)), gerrors.ErrInvalidArgument)

		another := newTestActor(t, server)
		require.ErrorIs(t, another.RegisterRpcService(calc), gerrors.ErrInvalidArgument)
	})
	t.Run("With Deregister", func(t *testing.T) {
		require.NoError(t, client.DeregisterRpcService(orders))
		require.ErrorIs(t, client.DeregisterRpcService(orders), gerrors.ErrServiceNotRegistered)
		_, ok := Service[testkit.OrderService](client)
		assert.False(t, ok)
		require.Len(t, client.RpcServices(), 2)
	})
	t.Run("With a registration during Shutdown", func(t *testing.T) {
		release := make(chan struct{})
		tr := &fakeTransport{closing: release}
		other, err := New("other", "", WithTransport(tr), WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		require.NoError(t, other.Bootup(ctx))
		calc := newCalc(t, other)

		stopped := make(chan error, 1)
		go func() { stopped <- other.Shutdown(ctx) }()
		require.Eventually(t, func() bool { return other.State() == ShuttingDown }, 5*time.Second, time.Millisecond)

		require.ErrorIs(t, other.RegisterRpcService(calc), gerrors.ErrActorShuttingDown)

		close(release)
		require.NoError(t, <-stopped)
		assert.Equal(t, Stopped, other.State())
		assert.Empty(t, other.RpcServices())
	})
	t.Run("With Shutdown clearing the registry", func(t *testing.T) {
		require.NoError(t, client.Bootup(ctx))
		require.NoError(t, client.Shutdown(ctx))
		assert.Empty(t, client.RpcServices())
		assert.False(t, client.registered("CalcService"))

		// services can be registered again once stopped
		require.NoError(t, client.RegisterRpcService(calc))
	})
}

func TestStrictRegistration(t *testing.T) {
	ctx := context.Background()
	server := newSampleServer(t)
	client := newTestActor(t, server, WithStrictRegistration())
	calc := newCalc(t, client)
	hello, err := proxy.CreateServiceProxy[testkit.HelloService](client, "server")
	require.NoError(t, err)

	require.NoError(t, client.RegisterRpcService(calc))
	require.NoError(t, client.Bootup(ctx))

	resp, err := calc.Add(ctx, &testkit.AddRequest{X: 3, Y: 4})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Result)

	_, err = hello.Hello(ctx, &testkit.HelloRequest{Text: "hi"})
	require.ErrorIs(t, err, gerrors.ErrServiceNotRegistered)
	assert.EqualValues(t, 1, server.Received())
}

func TestInvoke(t *testing.T) {
	ctx := context.Background()
	t.Run("With a remote fault", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server)
		orders, err := proxy.CreateServiceProxy[testkit.OrderService](client, "server")
		require.NoError(t, err)
		require.NoError(t, client.Bootup(ctx))

		_, err = orders.PlaceOrder(&testkit.PlaceOrderRequest{Contract: &testkit.Order{OrderID: "1", ItemID: "Apple"}})
		require.ErrorIs(t, err, gerrors.ErrRemoteInvocation)

		var remote *gerrors.RemoteInvocationError
		require.True(t, errors.As(err, &remote))
		assert.Equal(t, testkit.FaultInvalidOrder, remote.Code)

		order := &testkit.Order{OrderID: "2", ItemID: "Apple", BuyCount: 100}
		resp, err := orders.PlaceOrder(&testkit.PlaceOrderRequest{Contract: order})
		require.NoError(t, err)
		assert.Equal(t, order, resp.Order)
		assert.Zero(t, client.PendingCalls())
	})
	t.Run("With an unknown method", func(t *testing.T) {
		server := testkit.NewServer(t)
		client := newTestActor(t, server)
		require.NoError(t, client.Bootup(ctx))

		resp, err := client.Invoke(ctx, "server", &message.RequestEnvelope{Service: "CalcService", Method: "Add", Payload: []byte{0xa0}})
		require.ErrorIs(t, err, gerrors.ErrRemoteInvocation)
		require.NotNil(t, resp)
		assert.Equal(t, testkit.FaultNotFound, resp.Fault.Code)
	})
	t.Run("With invalid envelopes", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server)
		require.NoError(t, client.Bootup(ctx))

		_, err := client.Invoke(ctx, "server", nil)
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)

		_, err = client.Invoke(ctx, "", &message.RequestEnvelope{Service: "CalcService", Method: "Add"})
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)
	})
	t.Run("With the envelope defaults", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server, WithCallTimeout(time.Minute))
		require.NoError(t, client.Bootup(ctx))

		payload, err := codec.Default().Serialize(&testkit.AddRequest{X: 1, Y: 1})
		require.NoError(t, err)

		req := &message.RequestEnvelope{Service: "CalcService", Method: "Add", Payload: payload}
		resp, err := client.Invoke(ctx, "server", req)
		require.NoError(t, err)
		assert.Equal(t, req.CorrelationID, resp.CorrelationID)
		assert.NotEmpty(t, req.CorrelationID)
		assert.Equal(t, "server", req.Endpoint)
		assert.Equal(t, codec.CBORName, req.Codec)

		deadline, ok := server.LastRequest().DeadlineTime()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	})
	t.Run("With a duplicate correlation id", func(t *testing.T) {
		server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{Drop: true}))
		client := newTestActor(t, server, WithCallTimeout(time.Minute))
		require.NoError(t, client.Bootup(ctx))

		req := func() *message.RequestEnvelope {
			return &message.RequestEnvelope{CorrelationID: "same", Service: "CalcService", Method: "Add", Payload: []byte{0xa0}}
		}

		first := make(chan error, 1)
		go func() {
			_, err := client.Invoke(ctx, "server", req())
			first <- err
		}()
		require.Eventually(t, func() bool { return client.PendingCalls() == 1 }, 5*time.Second, time.Millisecond)

		_, err := client.Invoke(ctx, "server", req())
		require.ErrorIs(t, err, gerrors.ErrDuplicateCorrelationID)

		require.NoError(t, client.Shutdown(ctx))
		require.ErrorIs(t, <-first, gerrors.ErrActorShutdown)
	})
	t.Run("With a send failure", func(t *testing.T) {
		boom := errors.New("boom")
		tr := &fakeTransport{send: func(context.Context, transport.Handler, *message.RequestEnvelope) error {
			return boom
		}}
		client, err := New("client", "", WithTransport(tr), WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		require.NoError(t, client.Bootup(ctx))
		t.Cleanup(func() { _ = client.Shutdown(ctx) })

		calc := newCalc(t, client)
		_, err = calc.Add(ctx, &testkit.AddRequest{})
		require.ErrorIs(t, err, boom)
		assert.Zero(t, client.PendingCalls())
	})
	t.Run("With a custom transport answering", func(t *testing.T) {
		tr := &fakeTransport{send: func(_ context.Context, h transport.Handler, req *message.RequestEnvelope) error {
			frame, err := message.MarshalResponse(&message.ResponseEnvelope{CorrelationID: req.CorrelationID, Payload: req.Payload})
			if err != nil {
				return err
			}
			go h.OnReceive(frame)
			return nil
		}}
		client, err := New("client", "", WithTransport(tr), WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		require.NoError(t, client.Bootup(ctx))
		t.Cleanup(func() { _ = client.Shutdown(ctx) })

		hello, err := proxy.CreateServiceProxy[testkit.HelloService](client, "server")
		require.NoError(t, err)

		// the transport echoes the request payload
		resp, err := hello.Hello(ctx, &testkit.HelloRequest{Text: "echo"})
		require.NoError(t, err)
		assert.Equal(t, "echo", resp.Text)
	})
	t.Run("With malformed and unknown responses", func(t *testing.T) {
		tr := new(fakeTransport)
		client, err := New("client", "", WithTransport(tr), WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		require.NoError(t, client.Bootup(ctx))
		t.Cleanup(func() { _ = client.Shutdown(ctx) })

		frame, err := message.MarshalResponse(&message.ResponseEnvelope{CorrelationID: "unknown"})
		require.NoError(t, err)

		handler := tr.currentHandler()
		require.NotNil(t, handler)
		handler.OnReceive([]byte("garbage"))
		handler.OnReceive(frame)
		assert.Zero(t, client.PendingCalls())
		assert.Equal(t, Running, client.State())
	})
}

func TestTimeout(t *testing.T) {
	ctx := context.Background()
	t.Run("With a call timeout", func(t *testing.T) {
		server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{Drop: true}))
		client := newTestActor(t, server, WithCallTimeout(50*time.Millisecond))
		calc := newCalc(t, client)
		require.NoError(t, client.Bootup(ctx))

		start := time.Now()
		_, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 2})
		require.ErrorIs(t, err, gerrors.ErrCallTimeout)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
		assert.Zero(t, client.PendingCalls())
	})
	t.Run("With a late response", func(t *testing.T) {
		server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{Delay: 200 * time.Millisecond}))
		client := newTestActor(t, server, WithCallTimeout(20*time.Millisecond))
		calc := newCalc(t, client)
		require.NoError(t, client.Bootup(ctx))

		for range 5 {
			_, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 2})
			require.ErrorIs(t, err, gerrors.ErrCallTimeout)
		}
		assert.Zero(t, client.PendingCalls())

		// the late responses are dropped without leaking pending calls
		time.Sleep(300 * time.Millisecond)
		assert.Zero(t, client.PendingCalls())
		assert.Equal(t, Running, client.State())

		server.SetBehavior(testkit.Behavior{})
		resp, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Result)
	})
	t.Run("With an expired context deadline", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server)
		calc := newCalc(t, client)
		require.NoError(t, client.Bootup(ctx))

		ctx, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()
		_, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 2})
		require.ErrorIs(t, err, gerrors.ErrCallTimeout)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Zero(t, client.PendingCalls())
		assert.Equal(t, Running, client.State())
	})
	t.Run("With very short deadlines", func(t *testing.T) {
		server := newSampleServer(t)
		client := newTestActor(t, server)
		calc := newCalc(t, client)
		require.NoError(t, client.Bootup(ctx))

		for i := range 2000 {
			ctx, cancel := context.WithTimeout(ctx, time.Duration(i%50)*time.Microsecond)
			if _, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 2}); err != nil {
				require.ErrorIs(t, err, gerrors.ErrCallTimeout)
			}
			cancel()
		}

		// a timed out call never takes the connection down
		assert.Equal(t, Running, client.State())
		resp, err := calc.Add(ctx, &testkit.AddRequest{X: 3, Y: 4})
		require.NoError(t, err)
		assert.Equal(t, 7, resp.Result)
	})
	t.Run("With a context deadline", func(t *testing.T) {
		server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{Drop: true}))
		client := newTestActor(t, server, WithCallTimeout(time.Minute))
		calc := newCalc(t, client)
		require.NoError(t, client.Bootup(ctx))

		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 2})
		require.ErrorIs(t, err, gerrors.ErrCallTimeout)
		assert.Zero(t, client.PendingCalls())
	})
	t.Run("With a proxy timeout", func(t *testing.T) {
		server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{Drop: true}))
		client := newTestActor(t, server, WithCallTimeout(time.Minute))
		calc, err := proxy.CreateServiceProxy[testkit.CalcService](client, "server", proxy.WithCallTimeout(50*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, client.Bootup(ctx))

		_, err = calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 2})
		require.ErrorIs(t, err, gerrors.ErrCallTimeout)
	})
	t.Run("With a canceled context", func(t *testing.T) {
		server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{Drop: true}))
		client := newTestActor(t, server, WithCallTimeout(time.Minute))
		calc := newCalc(t, client)
		require.NoError(t, client.Bootup(ctx))

		ctx, cancel := context.WithCancel(ctx)
		time.AfterFunc(50*time.Millisecond, cancel)
		_, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 2})
		require.ErrorIs(t, err, context.Canceled)
		require.NotErrorIs(t, err, gerrors.ErrCallTimeout)
		assert.Zero(t, client.PendingCalls())
	})
}

func TestShutdownWithPendingCalls(t *testing.T) {
	const pending = 16
	ctx := context.Background()
	server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{Drop: true}))
	client := newTestActor(t, server, WithCallTimeout(time.Minute))
	calc := newCalc(t, client)
	require.NoError(t, client.Bootup(ctx))

	errs := make(chan error, pending)
	for i := range pending {
		go func() {
			_, err := calc.Add(ctx, &testkit.AddRequest{X: i, Y: i})
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return client.PendingCalls() == pending }, 5*time.Second, time.Millisecond)

	require.NoError(t, client.Shutdown(ctx))
	for range pending {
		err := <-errs
		require.ErrorIs(t, err, gerrors.ErrActorShutdown)
		require.NotErrorIs(t, err, gerrors.ErrConnection)
	}
	assert.Zero(t, client.PendingCalls())
}

func TestConnectionLoss(t *testing.T) {
	const pending = 8
	ctx := context.Background()
	server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{Drop: true}))
	client := newTestActor(t, server, WithCallTimeout(time.Minute))
	calc := newCalc(t, client)
	require.NoError(t, client.RegisterRpcService(calc))
	require.NoError(t, client.Bootup(ctx))

	errs := make(chan error, pending)
	for i := range pending {
		go func() {
			_, err := calc.Add(ctx, &testkit.AddRequest{X: i, Y: i})
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return client.PendingCalls() == pending }, 5*time.Second, time.Millisecond)

	server.DropConnections()
	for range pending {
		err := <-errs
		require.ErrorIs(t, err, gerrors.ErrActorShutdown)
		require.ErrorIs(t, err, gerrors.ErrConnection)
	}
	require.Eventually(t, func() bool { return client.State() == Stopped }, 5*time.Second, time.Millisecond)
	assert.Zero(t, client.PendingCalls())

	_, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 1})
	require.ErrorIs(t, err, gerrors.ErrActorShutdown)

	// the registry is kept and Bootup reconnects
	require.Len(t, client.RpcServices(), 1)
	server.SetBehavior(testkit.Behavior{})
	require.NoError(t, client.Bootup(ctx))
	resp, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Result)

	// Shutdown after another loss still clears the registry
	server.DropConnections()
	require.Eventually(t, func() bool { return client.State() == Stopped }, 5*time.Second, time.Millisecond)
	require.NoError(t, client.Shutdown(ctx))
	assert.Empty(t, client.RpcServices())
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	t.Run("With responses in reverse order", func(t *testing.T) {
		const callers = 8
		server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{ReverseBatch: callers}))
		client := newTestActor(t, server)
		calc := newCalc(t, client)
		require.NoError(t, client.Bootup(ctx))

		eg, ctx := errgroup.WithContext(ctx)
		for i := range callers {
			eg.Go(func() error {
				resp, err := calc.Add(ctx, &testkit.AddRequest{X: i, Y: 1000 * i})
				if err != nil {
					return err
				}
				if resp.Result != 1001*i {
					return errors.New("response delivered to the wrong caller")
				}
				return nil
			})
		}
		require.NoError(t, eg.Wait())
		assert.Zero(t, client.PendingCalls())
	})
	t.Run("With duplicate responses", func(t *testing.T) {
		server := newSampleServer(t, testkit.WithBehavior(testkit.Behavior{Duplicate: true}))
		client := newTestActor(t, server)
		calc := newCalc(t, client)
		require.NoError(t, client.Bootup(ctx))

		for i := range 10 {
			resp, err := calc.Add(ctx, &testkit.AddRequest{X: i, Y: i})
			require.NoError(t, err)
			assert.Equal(t, 2*i, resp.Result)
		}
		assert.Zero(t, client.PendingCalls())
	})
	t.Run("With 10000 calls over 8 callers", func(t *testing.T) {
		const (
			callers = 8
			total   = 10000
		)
		server := newSampleServer(t)
		client := newTestActor(t, server, WithCallTimeout(30*time.Second))
		hello, err := proxy.CreateServiceProxy[testkit.HelloService](client, "server")
		require.NoError(t, err)
		require.NoError(t, client.RegisterRpcService(hello))
		require.NoError(t, client.Bootup(ctx))

		var (
			mu       sync.Mutex
			resolved int
		)
		eg, ctx := errgroup.WithContext(ctx)
		for caller := range callers {
			eg.Go(func() error {
				for i := caller; i < total; i += callers {
					text := strconv.Itoa(i)
					resp, err := hello.Hello10000(ctx, &testkit.Hello10000Request{Text: text})
					if err != nil {
						return err
					}
					if resp.Text != text {
						return errors.New("response delivered to the wrong caller")
					}
					mu.Lock()
					resolved++
					mu.Unlock()
				}
				return nil
			})
		}
		require.NoError(t, eg.Wait())
		assert.Equal(t, total, resolved)
		assert.Zero(t, client.PendingCalls())
		assert.EqualValues(t, total, server.Received())
	})
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	server := newSampleServer(t)
	client := newTestActor(t, server, WithMeterProvider(provider))
	calc := newCalc(t, client)
	require.NoError(t, client.Bootup(ctx))

	for range 3 {
		_, err := calc.Add(ctx, &testkit.AddRequest{X: 1, Y: 1})
		require.NoError(t, err)
	}

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &data))
	require.NotEmpty(t, data.ScopeMetrics)

	var calls int64
	for _, m := range data.ScopeMetrics[0].Metrics {
		if m.Name != "rpc.client.calls" {
			continue
		}
		for _, point := range m.Data.(metricdata.Sum[int64]).DataPoints {
			calls += point.Value
		}
	}
	assert.EqualValues(t, 3, calls)
}
