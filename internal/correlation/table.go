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

// Package correlation pairs outbound requests with their responses.
//
// A pending call lives in the Table from the moment it is sent until it is
// removed by the first of: its response, its timeout, a send failure or a
// drain. The goroutine that removes the call is the only one allowed to
// complete it, which makes completion exactly-once without extra locking.
package correlation

import (
	"sync"

	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"

	"github.com/blueteethyl1986/Redola/errors"
)

const shardCount = 32

// Table is a sharded map of pending calls keyed by correlation id.
// It is safe for concurrent use.
type Table[T any] struct {
	shards [shardCount]shard[T]
	size   *atomic.Int64
}

type shard[T any] struct {
	mu    sync.Mutex
	calls map[string]*PendingCall[T]
}

// NewTable creates an empty Table
func NewTable[T any]() *Table[T] {
	table := &Table[T]{size: atomic.NewInt64(0)}
	for i := range table.shards {
		table.shards[i].calls = make(map[string]*PendingCall[T])
	}
	return table
}

// Insert adds a pending call. It fails with ErrDuplicateCorrelationID when a
// call with the same id is already pending.
func (t *Table[T]) Insert(call *PendingCall[T]) error {
	s := t.shardFor(call.id)
	s.mu.Lock()
	if _, ok := s.calls[call.id]; ok {
		s.mu.Unlock()
		return errors.NewErrDuplicateCorrelationID(call.id)
	}
	s.calls[call.id] = call
	s.mu.Unlock()
	t.size.Inc()
	return nil
}

// ResolveAndRemove completes the call with the given value.
// It returns false when no call with that id is pending.
func (t *Table[T]) ResolveAndRemove(id string, value T) bool {
	call, ok := t.remove(id)
	if !ok {
		return false
	}
	call.complete(value, nil)
	return true
}

// FailAndRemove completes the call with the given error.
// It returns false when no call with that id is pending.
func (t *Table[T]) FailAndRemove(id string, err error) bool {
	call, ok := t.remove(id)
	if !ok {
		return false
	}
	var zero T
	call.complete(zero, err)
	return true
}

// DrainAll fails every pending call with err and returns how many were failed.
// Calls inserted concurrently with a drain are either drained or left in the table.
func (t *Table[T]) DrainAll(err error) int {
	var zero T
	drained := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		calls := s.calls
		s.calls = make(map[string]*PendingCall[T])
		s.mu.Unlock()

		for _, call := range calls {
			call.complete(zero, err)
		}
		drained += len(calls)
		t.size.Sub(int64(len(calls)))
	}
	return drained
}

// Len returns the number of pending calls
func (t *Table[T]) Len() int {
	return int(t.size.Load())
}

// Has reports whether a call with the given id is pending
func (t *Table[T]) Has(id string) bool {
	s := t.shardFor(id)
	s.mu.Lock()
	_, ok := s.calls[id]
	s.mu.Unlock()
	return ok
}

func (t *Table[T]) remove(id string) (*PendingCall[T], bool) {
	s := t.shardFor(id)
	s.mu.Lock()
	call, ok := s.calls[id]
	if ok {
		delete(s.calls, id)
	}
	s.mu.Unlock()
	if ok {
		t.size.Dec()
	}
	return call, ok
}

func (t *Table[T]) shardFor(id string) *shard[T] {
	return &t.shards[xxh3.HashString(id)%shardCount]
}
