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

package actor

import "fmt"

// State is the lifecycle state of an Actor.
//
// States only move forward, Created → Bootstrapping → Running →
// ShuttingDown → Stopped, except that a Stopped actor can be booted again.
type State int32

const (
	// Created is the state of a new actor that was never booted
	Created State = iota
	// Bootstrapping is the state while the transport connects
	Bootstrapping
	// Running is the state while calls can be issued
	Running
	// ShuttingDown is the state while pending calls are drained and the transport closed
	ShuttingDown
	// Stopped is the state after a shutdown or a connection loss
	Stopped
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Bootstrapping:
		return "bootstrapping"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting down"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
