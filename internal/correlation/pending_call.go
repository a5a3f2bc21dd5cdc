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

package correlation

import "time"

// PendingCall is a single-use completion slot for one outbound request.
type PendingCall[T any] struct {
	id      string
	created time.Time
	done    chan struct{}
	value   T
	err     error
}

// NewPendingCall creates a pending call for the given correlation id
func NewPendingCall[T any](id string) *PendingCall[T] {
	return &PendingCall[T]{
		id:      id,
		created: time.Now(),
		done:    make(chan struct{}),
	}
}

// ID returns the correlation id
func (c *PendingCall[T]) ID() string {
	return c.id
}

// Age returns the time elapsed since the call was created
func (c *PendingCall[T]) Age() time.Duration {
	return time.Since(c.created)
}

// Done is closed once the call has been completed
func (c *PendingCall[T]) Done() <-chan struct{} {
	return c.done
}

// Result returns the outcome. It must only be read after Done is closed.
func (c *PendingCall[T]) Result() (T, error) {
	return c.value, c.err
}

// complete is only called by the goroutine that removed the call from the table.
func (c *PendingCall[T]) complete(value T, err error) {
	c.value = value
	c.err = err
	close(c.done)
}
