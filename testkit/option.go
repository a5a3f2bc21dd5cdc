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

package testkit

import (
	"crypto/tls"

	"github.com/blueteethyl1986/Redola/log"
	"github.com/blueteethyl1986/Redola/transport/tcp"
)

// Option is the interface that applies a Server option.
type Option interface {
	// Apply sets the Option value of a Server.
	Apply(*Server)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Server)

// Apply implements Option
func (f OptionFunc) Apply(s *Server) {
	f(s)
}

// WithConnWrapper wraps every accepted connection, typically to match the
// compression of the client transport.
func WithConnWrapper(wrapper tcp.ConnWrapper) Option {
	return OptionFunc(func(s *Server) {
		s.wrapper = wrapper
	})
}

// WithLogger sets the server logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(s *Server) {
		s.logger = logger
	})
}

// WithBehavior sets the initial response behavior
func WithBehavior(behavior Behavior) Option {
	return OptionFunc(func(s *Server) {
		s.behavior = behavior
	})
}

// WithTLS serves TLS connections
func WithTLS(config *tls.Config) Option {
	return OptionFunc(func(s *Server) {
		s.tlsConfig = config
	})
}
