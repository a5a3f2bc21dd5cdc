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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blueteethyl1986/Redola/log"
	"github.com/blueteethyl1986/Redola/message"
	"github.com/blueteethyl1986/Redola/proxy"
	"github.com/blueteethyl1986/Redola/testkit"
	"github.com/blueteethyl1986/Redola/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestActor creates an actor connected to the server and shut down when the test ends.
func newTestActor(t *testing.T, server *testkit.Server, opts ...Option) *Actor {
	t.Helper()
	opts = append([]Option{WithLogger(log.DiscardLogger)}, opts...)
	client, err := New("client", server.Address(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Shutdown(context.Background()) })
	return client
}

// newSampleServer starts a server serving the sample services.
func newSampleServer(t *testing.T, opts ...testkit.Option) *testkit.Server {
	t.Helper()
	server := testkit.NewServer(t, opts...)
	testkit.RegisterSampleServices(server)
	return server
}

func newCalc(t *testing.T, client *Actor) *testkit.CalcService {
	t.Helper()
	calc, err := proxy.CreateServiceProxy[testkit.CalcService](client, "server")
	require.NoError(t, err)
	return calc
}

// fakeTransport is an in-memory transport whose behavior is set per test.
type fakeTransport struct {
	mu      sync.Mutex
	handler transport.Handler
	closed  int

	connect func(ctx context.Context) error
	send    func(ctx context.Context, h transport.Handler, req *message.RequestEnvelope) error
	// closing, when set, blocks Close until it is closed
	closing chan struct{}
}

var _ transport.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) Connect(ctx context.Context, handler transport.Handler) error {
	if f.connect != nil {
		if err := f.connect(ctx); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Send(ctx context.Context, frame []byte) error {
	req, err := message.UnmarshalRequest(frame)
	if err != nil {
		return err
	}

	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()

	if f.send == nil {
		return nil
	}
	return f.send(ctx, handler, req)
}

func (f *fakeTransport) Close() error {
	if f.closing != nil {
		<-f.closing
	}

	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) currentHandler() transport.Handler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler
}
