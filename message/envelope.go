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

package message

import (
	"time"

	"github.com/google/uuid"
)

// RequestEnvelope carries a single outbound call.
type RequestEnvelope struct {
	// CorrelationID pairs the request with its response
	CorrelationID string `cbor:"1,keyasint"`
	// Endpoint is the logical name of the remote peer
	Endpoint string `cbor:"2,keyasint"`
	// Service is the name of the target service contract
	Service string `cbor:"3,keyasint"`
	// Method is the name of the target method
	Method string `cbor:"4,keyasint"`
	// Codec names the codec used for Payload
	Codec string `cbor:"5,keyasint"`
	// Payload holds the encoded call argument
	Payload []byte `cbor:"6,keyasint"`
	// Deadline is the unix time in nanoseconds after which the caller gives up.
	// Zero means no deadline.
	Deadline int64 `cbor:"7,keyasint,omitempty"`
	// Metadata holds optional caller supplied headers
	Metadata map[string]string `cbor:"8,keyasint,omitempty"`
}

// ResponseEnvelope carries the outcome of a call.
type ResponseEnvelope struct {
	// CorrelationID is copied from the request
	CorrelationID string `cbor:"1,keyasint"`
	// Payload holds the encoded response value, empty on fault
	Payload []byte `cbor:"2,keyasint,omitempty"`
	// Fault is set when the remote service failed
	Fault *Fault `cbor:"3,keyasint,omitempty"`
}

// Fault describes a remote application error.
type Fault struct {
	Code    string `cbor:"1,keyasint,omitempty"`
	Message string `cbor:"2,keyasint"`
	Detail  []byte `cbor:"3,keyasint,omitempty"`
}

// NewCorrelationID returns a fresh, globally unique correlation id.
func NewCorrelationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// FullMethod returns the service qualified method name, service/method.
func (x *RequestEnvelope) FullMethod() string {
	return x.Service + "/" + x.Method
}

// SetDeadline records the given deadline on the envelope.
func (x *RequestEnvelope) SetDeadline(deadline time.Time) {
	if deadline.IsZero() {
		x.Deadline = 0
		return
	}
	x.Deadline = deadline.UnixNano()
}

// DeadlineTime returns the deadline and whether one is set.
func (x *RequestEnvelope) DeadlineTime() (time.Time, bool) {
	if x.Deadline == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, x.Deadline), true
}

// Failed reports whether the response carries a fault.
func (x *ResponseEnvelope) Failed() bool {
	return x.Fault != nil
}
