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

package tcp

import (
	"crypto/tls"
	"time"

	"github.com/blueteethyl1986/Redola/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a Transport.
	Apply(*Transport)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Transport)

// Apply implements Option
func (f OptionFunc) Apply(t *Transport) {
	f(t)
}

// WithTLS wraps every connection with TLS. An empty ServerName is
// filled from the dialed host.
func WithTLS(config *tls.Config) Option {
	return OptionFunc(func(t *Transport) {
		t.tlsConfig = config
	})
}

// WithConnWrapper appends a ConnWrapper applied after TLS.
func WithConnWrapper(wrapper ConnWrapper) Option {
	return OptionFunc(func(t *Transport) {
		if wrapper != nil {
			t.wrappers = append(t.wrappers, wrapper)
		}
	})
}

// WithDialTimeout sets the timeout of a single dial attempt.
func WithDialTimeout(timeout time.Duration) Option {
	return OptionFunc(func(t *Transport) {
		t.dialer.Timeout = timeout
	})
}

// WithKeepAlive sets the TCP keep-alive period.
func WithKeepAlive(period time.Duration) Option {
	return OptionFunc(func(t *Transport) {
		t.dialer.KeepAlive = period
	})
}

// WithWriteTimeout bounds the write of a single frame. Zero disables the bound.
func WithWriteTimeout(timeout time.Duration) Option {
	return OptionFunc(func(t *Transport) {
		t.writeTimeout = timeout
	})
}

// WithMaxFrameSize sets the largest frame sent or accepted.
func WithMaxFrameSize(size int) Option {
	return OptionFunc(func(t *Transport) {
		t.maxFrameSize = size
	})
}

// WithConnectRetry sets how many dial attempts Connect makes and the
// backoff bounds between attempts.
func WithConnectRetry(attempts int, initialDelay, maxDelay time.Duration) Option {
	return OptionFunc(func(t *Transport) {
		t.connectAttempts = attempts
		t.retryInitialDelay = initialDelay
		t.retryMaxDelay = maxDelay
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	})
}
