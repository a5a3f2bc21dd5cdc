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
	"github.com/fxamacker/cbor/v2"

	"github.com/blueteethyl1986/Redola/errors"
)

// CBORName is the wire name of the CBOR codec
const CBORName = "cbor"

var (
	cborEncOpts = cbor.EncOptions{
		Sort:        cbor.SortNone,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeUnixDynamic,
	}
	cborDecOpts = cbor.DecOptions{
		MaxNestedLevels: 64,
		IndefLength:     cbor.IndefLengthForbidden,
		UTF8:            cbor.UTF8DecodeInvalid,
	}
)

// CBOR encodes payloads using the Concise Binary Object Representation.
// Struct fields are keyed by name, honoring `cbor` and `json` tags.
type CBOR struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

var _ Codec = (*CBOR)(nil)

// NewCBOR creates a CBOR codec
func NewCBOR() *CBOR {
	encMode, _ := cborEncOpts.EncMode()
	decMode, _ := cborDecOpts.DecMode()
	return &CBOR{encMode: encMode, decMode: decMode}
}

// Name implements Codec
func (c *CBOR) Name() string {
	return CBORName
}

// Serialize implements Codec
func (c *CBOR) Serialize(v any) ([]byte, error) {
	if v == nil {
		return nil, errors.NewErrSerialization(errors.ErrInvalidArgument)
	}

	data, err := c.encMode.Marshal(v)
	if err != nil {
		return nil, errors.NewErrSerialization(err)
	}
	return data, nil
}

// Deserialize implements Codec
func (c *CBOR) Deserialize(data []byte, target any) error {
	if err := c.decMode.Unmarshal(data, target); err != nil {
		return errors.NewErrSerialization(err)
	}
	return nil
}
