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

	"github.com/klauspost/compress/zstd"
)

// ZstdConnWrapper wraps connections with Zstandard compression.
// Encoders and decoders run synchronously on the caller goroutine.
type ZstdConnWrapper struct {
	encoderOpts []zstd.EOption
	decoderOpts []zstd.DOption
}

var _ ConnWrapper = (*ZstdConnWrapper)(nil)

type zstdConfig struct {
	level  zstd.EncoderLevel
	window int
	maxMem uint64
}

// ZstdOption configures NewZstdConnWrapper.
type ZstdOption func(*zstdConfig)

// WithZstdLevel sets the Zstandard compression level.
func WithZstdLevel(level zstd.EncoderLevel) ZstdOption {
	return func(c *zstdConfig) { c.level = level }
}

// WithZstdDecoderMaxMemory sets the decoder memory limit.
func WithZstdDecoderMaxMemory(n uint64) ZstdOption {
	return func(c *zstdConfig) { c.maxMem = n }
}

// NewZstdConnWrapper creates a ZstdConnWrapper. The options are validated eagerly.
func NewZstdConnWrapper(opts ...ZstdOption) (*ZstdConnWrapper, error) {
	cfg := zstdConfig{
		level:  zstd.SpeedDefault,
		window: 512 << 10,
		maxMem: 64 << 20,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &ZstdConnWrapper{
		encoderOpts: []zstd.EOption{
			zstd.WithEncoderLevel(cfg.level),
			zstd.WithWindowSize(cfg.window),
			zstd.WithEncoderConcurrency(1),
			zstd.WithLowerEncoderMem(true),
			zstd.WithZeroFrames(true),
		},
		decoderOpts: []zstd.DOption{
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxMemory(cfg.maxMem),
		},
	}

	enc, err := zstd.NewWriter(nil, w.encoderOpts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidCompressionLevel, err)
	}
	_ = enc.Close()

	dec, err := zstd.NewReader(nil, w.decoderOpts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidCompressionLevel, err)
	}
	dec.Close()
	return w, nil
}

// Wrap applies Zstandard compression to conn.
func (z *ZstdConnWrapper) Wrap(conn net.Conn) (net.Conn, error) {
	enc, err := zstd.NewWriter(conn, z.encoderOpts...)
	if err != nil {
		return nil, err
	}

	reader := newLazyReader(func() (io.Reader, error) {
		return zstd.NewReader(conn, z.decoderOpts...)
	})
	return newCompressedConn(conn, reader, enc), nil
}
