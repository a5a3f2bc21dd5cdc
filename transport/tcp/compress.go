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
	"fmt"
	"io"
	"net"
	"sync"
)

// ConnWrapper transforms a net.Conn, typically by adding a compression layer.
// Both ends of a connection must use the same wrapper.
type ConnWrapper interface {
	Wrap(conn net.Conn) (net.Conn, error)
}

// Compression selects the compression layer applied to a connection.
type Compression int

const (
	// NoCompression sends frames as is
	NoCompression Compression = iota
	// GzipCompression compresses the stream with gzip
	GzipCompression
	// ZstdCompression compresses the stream with Zstandard
	ZstdCompression
	// BrotliCompression compresses the stream with Brotli
	BrotliCompression
)

// String returns the compression name
func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case GzipCompression:
		return "gzip"
	case ZstdCompression:
		return "zstd"
	case BrotliCompression:
		return "brotli"
	default:
		return fmt.Sprintf("compression(%d)", int(c))
	}
}

// NewConnWrapper returns the wrapper implementing the given compression.
// NoCompression yields a nil wrapper.
func NewConnWrapper(c Compression) (ConnWrapper, error) {
	switch c {
	case NoCompression:
		return nil, nil
	case GzipCompression:
		return NewGzipConnWrapper()
	case ZstdCompression:
		return NewZstdConnWrapper()
	case BrotliCompression:
		return NewBrotliConnWrapper(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}
}

type flushWriter interface {
	io.Writer
	Flush() error
}

// compressedConn flushes after every Write so that a frame is on the wire
// as soon as Send returns. Close only closes the raw connection: the
// codec state is dropped with the connection.
type compressedConn struct {
	net.Conn
	reader io.Reader
	writer flushWriter
}

func newCompressedConn(raw net.Conn, r io.Reader, w flushWriter) *compressedConn {
	return &compressedConn{Conn: raw, reader: r, writer: w}
}

func (c *compressedConn) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

func (c *compressedConn) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	if err != nil {
		return n, err
	}
	if err := c.writer.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// lazyReader opens the decompressing reader on the first Read. Decoders
// that parse a header on creation would otherwise block until the peer
// writes its first frame.
type lazyReader struct {
	open   func() (io.Reader, error)
	once   sync.Once
	reader io.Reader
	err    error
}

func newLazyReader(open func() (io.Reader, error)) *lazyReader {
	return &lazyReader{open: open}
}

func (r *lazyReader) Read(p []byte) (int, error) {
	r.once.Do(func() {
		r.reader, r.err = r.open()
	})
	if r.err != nil {
		return 0, r.err
	}
	return r.reader.Read(p)
}
