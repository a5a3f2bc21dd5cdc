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

package proxy

import (
	"maps"
	"time"

	"github.com/blueteethyl1986/Redola/codec"
)

type config struct {
	serviceName string
	codec       codec.Codec
	timeout     time.Duration
	metadata    map[string]string
}

// Option is the interface that applies a proxy option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*config)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*config)

// Apply implements Option
func (f OptionFunc) Apply(c *config) {
	f(c)
}

// WithServiceName overrides the service name sent on the wire.
func WithServiceName(name string) Option {
	return OptionFunc(func(c *config) {
		c.serviceName = name
	})
}

// WithCodec sets the payload codec. It defaults to the invoker's codec.
func WithCodec(c codec.Codec) Option {
	return OptionFunc(func(cfg *config) {
		cfg.codec = c
	})
}

// WithCallTimeout bounds every call made through the proxy.
// The invoker's own timeout still applies when it is shorter.
func WithCallTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *config) {
		c.timeout = timeout
	})
}

// WithMetadata attaches headers to every request made through the proxy.
func WithMetadata(metadata map[string]string) Option {
	return OptionFunc(func(c *config) {
		c.metadata = maps.Clone(metadata)
	})
}
