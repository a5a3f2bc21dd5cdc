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
	"encoding/json"

	"github.com/blueteethyl1986/Redola/errors"
)

// JSONName is the wire name of the JSON codec
const JSONName = "json"

// JSON encodes payloads with encoding/json. It is mostly useful when the
// peer is not a Go program.
type JSON struct{}

var _ Codec = JSON{}

// NewJSON creates a JSON codec
func NewJSON() JSON {
	return JSON{}
}

// Name implements Codec
func (JSON) Name() string {
	return JSONName
}

// Serialize implements Codec
func (JSON) Serialize(v any) ([]byte, error) {
	if v == nil {
		return nil, errors.NewErrSerialization(errors.ErrInvalidArgument)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.NewErrSerialization(err)
	}
	return data, nil
}

// Deserialize implements Codec
func (JSON) Deserialize(data []byte, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return errors.NewErrSerialization(err)
	}
	return nil
}
