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

// Package bufferpool recycles the byte slices used to read and write frames.
package bufferpool

import (
	"math/bits"
	"sync"
)

const (
	minShift   = 8  // 256 B
	maxShift   = 22 // 4 MiB
	numBuckets = maxShift - minShift + 1
)

// Pool keeps one sync.Pool per power-of-two size class.
// Requests larger than the biggest class are allocated directly and never pooled.
type Pool struct {
	buckets [numBuckets]sync.Pool
}

// New creates a Pool
func New() *Pool {
	pool := new(Pool)
	for i := range pool.buckets {
		size := 1 << (minShift + i)
		pool.buckets[i].New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
	return pool
}

// Get returns a slice of length n. Its content is undefined.
func (p *Pool) Get(n int) []byte {
	idx := bucketFor(n)
	if idx >= numBuckets {
		return make([]byte, n)
	}
	buf := p.buckets[idx].Get().(*[]byte)
	return (*buf)[:n]
}

// Put hands a slice obtained from Get back to the pool.
// Slices whose capacity is not a size class are dropped.
func (p *Pool) Put(buf []byte) {
	c := cap(buf)
	if c == 0 || c&(c-1) != 0 {
		return
	}

	idx := bits.Len(uint(c)) - 1 - minShift
	if idx < 0 || idx >= numBuckets {
		return
	}

	buf = buf[:c]
	p.buckets[idx].Put(&buf)
}

// bucketFor returns the index of the smallest class holding n bytes.
func bucketFor(n int) int {
	if n <= 1<<minShift {
		return 0
	}
	return bits.Len(uint(n-1)) - minShift
}
