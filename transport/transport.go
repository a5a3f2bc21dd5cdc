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

// Package transport defines the byte stream the actor sends requests over.
//
// A Transport carries whole frames: one Send is received as one frame by the
// peer and every inbound frame is handed to the Handler in a single
// OnReceive call. Framing, compression and encryption are the transport's
// business; envelopes are encoded by the message package.
package transport

import "context"

// Handler receives the inbound side of a connection.
type Handler interface {
	// OnReceive is called from the read goroutine for every inbound frame.
	// The frame is only valid for the duration of the call.
	OnReceive(frame []byte)
	// OnDisconnect is called once when an established connection is lost.
	// It is not called after Close. It must not call Close synchronously.
	OnDisconnect(err error)
}

// Transport is a persistent, bidirectional frame connection.
// Send may be called concurrently; frames are never interleaved.
type Transport interface {
	// Connect establishes the connection and starts delivering inbound
	// frames to handler. A transport can be connected again after Close.
	Connect(ctx context.Context, handler Handler) error
	// Send writes a single frame.
	Send(ctx context.Context, frame []byte) error
	// Close tears the connection down and waits for the read goroutine to exit.
	Close() error
}

// HandlerFuncs adapts two functions to the Handler interface.
// A nil function is a no-op.
type HandlerFuncs struct {
	Receive    func(frame []byte)
	Disconnect func(err error)
}

var _ Handler = HandlerFuncs{}

// OnReceive implements Handler
func (h HandlerFuncs) OnReceive(frame []byte) {
	if h.Receive != nil {
		h.Receive(frame)
	}
}

// OnDisconnect implements Handler
func (h HandlerFuncs) OnDisconnect(err error) {
	if h.Disconnect != nil {
		h.Disconnect(err)
	}
}
