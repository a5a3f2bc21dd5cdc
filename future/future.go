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

// Package future provides single-assignment results for asynchronous calls.
package future

import (
	"context"
	"fmt"
	"sync"
)

// Future represents a value which may or may not currently be available,
// but will be available at some point in the future, or an error if that value
// could not be made available.
//
//	f := future.New(func() (*AddResponse, error) {
//	    return proxy.Call[*AddRequest, *AddResponse](ctx, calc, "Add", req)
//	})
//
//	resp, err := f.Await(ctx)
type Future[T any] interface {
	// Await blocks until the Future is completed or ctx is done and
	// returns either a result or an error. Giving up on ctx does not cancel the task.
	Await(ctx context.Context) (T, error)
	// Done is closed once the Future is completed.
	Done() <-chan struct{}
}

// New runs task on a new goroutine and returns a Future completed with its outcome.
// A panic in task fails the Future.
func New[T any](task func() (T, error)) Future[T] {
	promise := NewPromise[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				promise.Failure(fmt.Errorf("future task panicked: %v", r))
			}
		}()

		value, err := task()
		if err != nil {
			promise.Failure(err)
			return
		}
		promise.Success(value)
	}()
	return promise.Future()
}

// Completed returns a Future that is already completed with the given outcome.
func Completed[T any](value T, err error) Future[T] {
	promise := NewPromise[T]()
	if err != nil {
		promise.Failure(err)
	} else {
		promise.Success(value)
	}
	return promise.Future()
}

// Promise is the writable side of a Future. Only the first completion counts.
type Promise[T any] struct {
	once   sync.Once
	future *future[T]
}

// NewPromise creates a Promise
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{future: &future[T]{done: make(chan struct{})}}
}

// Success completes the underlying Future with a value.
// It returns false when the Future was already completed.
func (p *Promise[T]) Success(value T) bool {
	return p.complete(value, nil)
}

// Failure fails the underlying Future with an error.
// It returns false when the Future was already completed.
func (p *Promise[T]) Failure(err error) bool {
	var zero T
	return p.complete(zero, err)
}

// Future returns the underlying Future.
func (p *Promise[T]) Future() Future[T] {
	return p.future
}

func (p *Promise[T]) complete(value T, err error) bool {
	completed := false
	p.once.Do(func() {
		p.future.value = value
		p.future.err = err
		close(p.future.done)
		completed = true
	})
	return completed
}

type future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

var _ Future[any] = (*future[any])(nil)

func (x *future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-x.done:
		return x.value, x.err
	default:
	}

	select {
	case <-x.done:
		return x.value, x.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (x *future[T]) Done() <-chan struct{} {
	return x.done
}
