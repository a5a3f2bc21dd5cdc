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
	"errors"
	"io"
	"net"

	"github.com/klauspost/compress/gzip"
)

// GzipConnWrapper wraps connections with gzip compression.
type GzipConnWrapper struct {
	level int
}

var _ ConnWrapper = (*GzipConnWrapper)(nil)

// GzipOption configures NewGzipConnWrapper.
type GzipOption func(*GzipConnWrapper)

// WithGzipLevel sets the gzip level, from gzip.BestSpeed to gzip.BestCompression,
// or gzip.DefaultCompression.
func WithGzipLevel(level int) GzipOption {
	return func(w *GzipConnWrapper) { w.level = level }
}

// NewGzipConnWrapper creates a GzipConnWrapper. The level is validated eagerly.
func NewGzipConnWrapper(opts ...GzipOption) (*GzipConnWrapper, error) {
	w := &GzipConnWrapper{level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(w)
	}

	if _, err := gzip.NewWriterLevel(io.Discard, w.level); err != nil {
		return nil, errors.Join(ErrInvalidCompressionLevel, err)
	}
	return w, nil
}

// Wrap applies gzip compression to conn.
func (g *GzipConnWrapper) Wrap(conn net.Conn) (net.Conn, error) {
	gw, err := gzip.NewWriterLevel(conn, g.level)
	if err != nil {
		return nil, err
	}

	reader := newLazyReader(func() (io.Reader, error) {
		return gzip.NewReader(conn)
	})
	return newCompressedConn(conn, reader, gw), nil
}
