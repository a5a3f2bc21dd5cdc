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
	"crypto/tls"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/blueteethyl1986/Redola/codec"
	"github.com/blueteethyl1986/Redola/log"
	"github.com/blueteethyl1986/Redola/transport"
	"github.com/blueteethyl1986/Redola/transport/tcp"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Actor)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Actor)

// Apply implements Option
func (f OptionFunc) Apply(a *Actor) {
	f(a)
}

// WithTransport sets the transport used by the actor.
// The TCP options of this package are ignored when it is set.
func WithTransport(transport transport.Transport) Option {
	return OptionFunc(func(a *Actor) {
		a.transport = transport
	})
}

// WithCallTimeout sets the default timeout of a call.
// A shorter context deadline takes precedence.
func WithCallTimeout(timeout time.Duration) Option {
	return OptionFunc(func(a *Actor) {
		a.callTimeout = timeout
	})
}

// WithCodec sets the default payload codec handed to service proxies
func WithCodec(codec codec.Codec) Option {
	return OptionFunc(func(a *Actor) {
		a.codec = codec
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(a *Actor) {
		a.logger = logger
	})
}

// WithMeterProvider sets the provider of the call metrics.
// The global provider is used by default.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(a *Actor) {
		a.meterProvider = provider
	})
}

// WithStrictRegistration rejects calls to services that are not registered
func WithStrictRegistration() Option {
	return OptionFunc(func(a *Actor) {
		a.strictRegistration = true
	})
}

// WithCompression compresses the TCP connection
func WithCompression(compression tcp.Compression) Option {
	return OptionFunc(func(a *Actor) {
		a.compression = compression
	})
}

// WithTLS secures the TCP connection
func WithTLS(config *tls.Config) Option {
	return OptionFunc(func(a *Actor) {
		a.tcpOptions = append(a.tcpOptions, tcp.WithTLS(config))
	})
}

// WithDialTimeout sets the TCP dial timeout
func WithDialTimeout(timeout time.Duration) Option {
	return OptionFunc(func(a *Actor) {
		a.tcpOptions = append(a.tcpOptions, tcp.WithDialTimeout(timeout))
	})
}

// WithConnectRetry sets how many times Bootup dials before giving up and the
// backoff between attempts.
func WithConnectRetry(attempts int, initialDelay, maxDelay time.Duration) Option {
	return OptionFunc(func(a *Actor) {
		a.tcpOptions = append(a.tcpOptions, tcp.WithConnectRetry(attempts, initialDelay, maxDelay))
	})
}

// WithMaxFrameSize sets the largest frame the TCP transport sends or accepts
func WithMaxFrameSize(size int) Option {
	return OptionFunc(func(a *Actor) {
		a.tcpOptions = append(a.tcpOptions, tcp.WithMaxFrameSize(size))
	})
}

// WithWriteTimeout bounds the write of a single frame on the TCP connection.
// Call deadlines never interrupt a write.
func WithWriteTimeout(timeout time.Duration) Option {
	return OptionFunc(func(a *Actor) {
		a.tcpOptions = append(a.tcpOptions, tcp.WithWriteTimeout(timeout))
	})
}
