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

package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/blueteethyl1986/Redola/errors"
)

// ProtoName is the wire name of the protobuf codec
const ProtoName = "proto"

// Proto encodes payloads that implement proto.Message.
// Any other payload type fails with ErrSerialization.
type Proto struct {
	marshal   proto.MarshalOptions
	unmarshal proto.UnmarshalOptions
}

var _ Codec = (*Proto)(nil)

// NewProto creates a protobuf codec
func NewProto() *Proto {
	return &Proto{
		marshal:   proto.MarshalOptions{Deterministic: true},
		unmarshal: proto.UnmarshalOptions{DiscardUnknown: true},
	}
}

// Name implements Codec
func (p *Proto) Name() string {
	return ProtoName
}

// Serialize implements Codec
func (p *Proto) Serialize(v any) ([]byte, error) {
	message, ok := v.(proto.Message)
	if !ok || message == nil {
		return nil, errors.NewErrSerialization(fmt.Errorf("%T is not a proto.Message", v))
	}

	data, err := p.marshal.Marshal(message)
	if err != nil {
		return nil, errors.NewErrSerialization(err)
	}
	return data, nil
}

// Deserialize implements Codec
func (p *Proto) Deserialize(data []byte, target any) error {
	message, ok := target.(proto.Message)
	if !ok || message == nil {
		return errors.NewErrSerialization(fmt.Errorf("%T is not a proto.Message", target))
	}

	if err := p.unmarshal.Unmarshal(data, message); err != nil {
		return errors.NewErrSerialization(err)
	}
	return nil
}
