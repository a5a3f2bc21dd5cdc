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
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/blueteethyl1986/Redola/errors"
)

// Kind tells a request frame from a response frame.
type Kind uint8

const (
	// KindRequest marks a frame carrying a RequestEnvelope
	KindRequest Kind = iota + 1
	// KindResponse marks a frame carrying a ResponseEnvelope
	KindResponse
)

// frame is the unit written on the wire. Exactly one of Request or Response is set.
type frame struct {
	Kind     Kind              `cbor:"1,keyasint"`
	Request  *RequestEnvelope  `cbor:"2,keyasint,omitempty"`
	Response *ResponseEnvelope `cbor:"3,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCoreDeterministic,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		MaxNestedLevels: 16,
		IndefLength:     cbor.IndefLengthForbidden,
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// MarshalRequest encodes a request envelope into a wire frame.
func MarshalRequest(req *RequestEnvelope) ([]byte, error) {
	if req == nil {
		return nil, errors.NewErrSerialization(errors.ErrInvalidArgument)
	}
	return marshal(&frame{Kind: KindRequest, Request: req})
}

// MarshalResponse encodes a response envelope into a wire frame.
func MarshalResponse(resp *ResponseEnvelope) ([]byte, error) {
	if resp == nil {
		return nil, errors.NewErrSerialization(errors.ErrInvalidArgument)
	}
	return marshal(&frame{Kind: KindResponse, Response: resp})
}

// UnmarshalRequest decodes a wire frame holding a request envelope.
func UnmarshalRequest(data []byte) (*RequestEnvelope, error) {
	f, err := unmarshal(data)
	if err != nil {
		return nil, err
	}

	if f.Kind != KindRequest || f.Request == nil {
		return nil, errors.NewErrSerialization(fmt.Errorf("unexpected frame kind=(%d)", f.Kind))
	}
	return f.Request, nil
}

// UnmarshalResponse decodes a wire frame holding a response envelope.
// The returned envelope does not alias data.
func UnmarshalResponse(data []byte) (*ResponseEnvelope, error) {
	f, err := unmarshal(data)
	if err != nil {
		return nil, err
	}

	if f.Kind != KindResponse || f.Response == nil {
		return nil, errors.NewErrSerialization(fmt.Errorf("unexpected frame kind=(%d)", f.Kind))
	}

	if f.Response.CorrelationID == "" {
		return nil, errors.NewErrSerialization(errors.NewErrInvalidArgument("response without correlation id"))
	}
	return f.Response, nil
}

func marshal(f *frame) ([]byte, error) {
	data, err := encMode.Marshal(f)
	if err != nil {
		return nil, errors.NewErrSerialization(err)
	}
	return data, nil
}

func unmarshal(data []byte) (*frame, error) {
	f := new(frame)
	if err := decMode.Unmarshal(data, f); err != nil {
		return nil, errors.NewErrSerialization(err)
	}
	return f, nil
}
