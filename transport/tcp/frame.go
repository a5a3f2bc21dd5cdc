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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blueteethyl1986/Redola/errors"
	"github.com/blueteethyl1986/Redola/internal/bufferpool"
)

const (
	headerSize = 4
	// DefaultMaxFrameSize is the largest frame accepted by default (16 MiB).
	DefaultMaxFrameSize = 16 << 20
)

// ReadFrame reads one length-prefixed frame. The returned slice comes
// from pool and must be handed back with pool.Put once consumed.
func ReadFrame(r io.Reader, maxSize int, pool *bufferpool.Pool) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := int(binary.BigEndian.Uint32(header[:]))
	if size == 0 {
		return nil, ErrInvalidFrame
	}

	if size > maxSize {
		return nil, fmt.Errorf("%w: size=(%d) max=(%d)", errors.ErrFrameTooLarge, size, maxSize)
	}

	frame := pool.Get(size)
	if _, err := io.ReadFull(r, frame); err != nil {
		pool.Put(frame)
		return nil, err
	}
	return frame, nil
}

// EncodeFrame prefixes payload with its length into a pooled buffer so
// that the whole frame goes out in a single Write.
func EncodeFrame(payload []byte, maxSize int, pool *bufferpool.Pool) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrInvalidFrame
	}

	if len(payload) > maxSize {
		return nil, fmt.Errorf("%w: size=(%d) max=(%d)", errors.ErrFrameTooLarge, len(payload), maxSize)
	}

	buf := pool.Get(headerSize + len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)
	return buf, nil
}
